package tlsio

import (
	"io"

	"github.com/brickingsoft/errors"
)

var (
	// ErrClosed reports use of a Stream after Shutdown.
	ErrClosed = errors.Define("tlsio: stream closed")
	// ErrEmptyBytes reports a zero length buffer.
	ErrEmptyBytes = errors.Define("tlsio: empty bytes")
	// ErrProtocol reports a record or handshake violation; the Stream must
	// not be used afterwards.
	ErrProtocol = errors.Define("tlsio: protocol violation")
	// ErrUnexpectedEOF reports a silent transport close: the channel ended
	// without the peer's close notify.
	ErrUnexpectedEOF = errors.Define("tlsio: unexpected end of stream")
	// ErrHandshakeTruncated reports end of input while the handshake was
	// still in flight. Terminal, never retried.
	ErrHandshakeTruncated = errors.Define("tlsio: handshake truncated")
)

func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

func IsProtocol(err error) bool {
	return errors.Is(err, ErrProtocol)
}

func IsUnexpectedEOF(err error) bool {
	return errors.Is(err, ErrUnexpectedEOF)
}

func IsHandshakeTruncated(err error) bool {
	return errors.Is(err, ErrHandshakeTruncated)
}

// IsOrderlyClosure reports whether a Read result is the peer's orderly
// close notify rather than an error.
func IsOrderlyClosure(err error) bool {
	return errors.Is(err, io.EOF)
}

const (
	errMetaPkgKey  = "pkg"
	errMetaPkgVal  = "tlsio"
	errMetaOpKey   = "op"
	errMetaOpRead  = "read"
	errMetaOpWrite = "write"
	errMetaOpClose = "close"
	errMetaOpShake = "handshake"
)
