// Package security implements the record-layer protocol engine consumed by
// tlsio.Stream. The engine is a synchronous state machine: it ingests and
// emits raw encrypted bytes through io.Reader/io.Writer boundaries, exposes
// plaintext queues, and never performs I/O of its own. Suspension, if any,
// belongs to the caller.
package security

import (
	"io"

	"github.com/brickingsoft/errors"
)

var (
	// ErrWouldBlock is the transient signal: no data or space is available
	// right now, drive the underlying I/O and retry.
	ErrWouldBlock = errors.Define("security: would block")
	// ErrConfig reports an invalid or unsupported configuration.
	ErrConfig = errors.Define("security: invalid config")
	// ErrClosed reports use of an engine after a close notify was scheduled.
	ErrClosed = errors.Define("security: closed")
	// ErrHandshaking reports application data access before the handshake
	// completed.
	ErrHandshaking = errors.Define("security: handshake incomplete")
	// ErrProtocol reports a record or handshake violation by the peer.
	ErrProtocol = errors.Define("security: protocol violation")
	// ErrRemoteAlert reports a fatal alert received from the peer.
	ErrRemoteAlert = errors.Define("security: remote alert")
)

func IsWouldBlock(err error) bool {
	return errors.Is(err, ErrWouldBlock)
}

func IsProtocol(err error) bool {
	return errors.Is(err, ErrProtocol) || errors.Is(err, ErrRemoteAlert)
}

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "security"
)

// Status is the outcome of ProcessIncoming.
type Status struct {
	// PeerClosed is true once the peer's close notify was consumed.
	PeerClosed bool
}

// Engine is the synchronous protocol state machine.
//
// ReadEncrypted and WriteEncrypted move raw encrypted bytes across the wire
// boundary; both propagate ErrWouldBlock from the given reader or writer
// unchanged. ProcessIncoming validates and decrypts everything queued by
// ReadEncrypted. All other calls touch in-memory queues only.
type Engine interface {
	// ReadEncrypted pulls raw bytes from r into the inbound queue.
	// A zero count with nil error means r reported orderly end of input.
	ReadEncrypted(r io.Reader) (n int, err error)
	// WriteEncrypted pushes queued outbound bytes into w. A zero count with
	// nil error means nothing was queued.
	WriteEncrypted(w io.Writer) (n int, err error)
	// ProcessIncoming validates framing and decrypts all complete inbound
	// records. On failure the engine queues a fatal alert for the peer and
	// poisons itself.
	ProcessIncoming() (status Status, err error)
	// WantsRead reports whether reading more raw bytes can make progress.
	WantsRead() bool
	// WantsWrite reports whether outbound raw bytes are queued.
	WantsWrite() bool
	// Handshaking reports whether the handshake is still in flight.
	Handshaking() bool
	// SendCloseNotify schedules the orderly closure record. Idempotent.
	SendCloseNotify()
	// ReadPlaintext drains decrypted application data into p. It returns
	// ErrWouldBlock when none is ready and io.EOF after the peer's close
	// notify.
	ReadPlaintext(p []byte) (n int, err error)
	// WritePlaintext queues p for encryption. Purely in-memory, it either
	// accepts all of p or fails.
	WritePlaintext(p []byte) (n int, err error)
}
