// Package transport defines the completion based byte channel consumed by
// tlsio.Stream, an in-memory duplex pair for in-process use, and an adaptor
// that runs ordinary net.Conn I/O as dispatched completions.
package transport

import (
	"context"

	"github.com/brickingsoft/errors"
)

var (
	ErrShutdown   = errors.Define("transport: channel was shut down")
	ErrEmptyBytes = errors.Define("transport: empty bytes")
	ErrBusy       = errors.Define("transport: executors busy")
)

func IsShutdown(err error) bool {
	return errors.Is(err, ErrShutdown)
}

func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "transport"
	errMetaOpKey  = "op"
	errMetaOpRecv = "receive"
	errMetaOpSend = "send"
)

// Channel is a single-shot, completion based byte transport. Receive and
// Send consume ownership of b for the duration of the call and hand it back
// as out together with the result; the caller must not touch b before the
// call returns. On a context cancellation the operation may still be in
// flight and out is nil: the buffer is forfeited and the channel must not
// be reused.
//
// A zero Receive count with nil error is the orderly end of input.
type Channel interface {
	Receive(ctx context.Context, b []byte) (n int, out []byte, err error)
	Send(ctx context.Context, b []byte) (n int, out []byte, err error)
	// Shutdown closes the outgoing direction of the transport.
	Shutdown() (err error)
}
