package transport

import (
	"context"
	"io"
	"net"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/rxp"
)

// Adapt wraps a net.Conn into a Channel. Each Receive and Send is dispatched
// on the rxp executors as one single-shot operation whose completion is
// awaited by the caller; when ctx carries no executors the package set is
// used.
func Adapt(conn net.Conn) Channel {
	return &connChannel{conn: conn}
}

type connChannel struct {
	conn net.Conn
}

type ioResult struct {
	n   int
	err error
}

// taskFn adapts a closure to the executors' task contract.
type taskFn func()

func (task taskFn) Handle(_ context.Context) {
	task()
}

func (ch *connChannel) Receive(ctx context.Context, b []byte) (n int, out []byte, err error) {
	if len(b) == 0 {
		out = b
		err = errors.From(ErrEmptyBytes,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpRecv),
		)
		return
	}
	ctx = withExecutors(ctx)
	rch := make(chan ioResult, 1)
	conn := ch.conn
	if ok := rxp.TryExecute(ctx, taskFn(func() {
		rn, rErr := conn.Read(b)
		if rErr == io.EOF {
			// orderly end of input
			rErr = nil
		}
		rch <- ioResult{n: rn, err: rErr}
	})); !ok {
		out = b
		err = errors.From(ErrBusy,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpRecv),
		)
		return
	}
	select {
	case result := <-rch:
		n, out, err = result.n, b, result.err
		return
	case <-ctx.Done():
		// the dispatched read still owns b, forfeit it
		err = ctx.Err()
		return
	}
}

func (ch *connChannel) Send(ctx context.Context, b []byte) (n int, out []byte, err error) {
	if len(b) == 0 {
		out = b
		err = errors.From(ErrEmptyBytes,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpSend),
		)
		return
	}
	ctx = withExecutors(ctx)
	rch := make(chan ioResult, 1)
	conn := ch.conn
	if ok := rxp.TryExecute(ctx, taskFn(func() {
		wn, wErr := conn.Write(b)
		rch <- ioResult{n: wn, err: wErr}
	})); !ok {
		out = b
		err = errors.From(ErrBusy,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpSend),
		)
		return
	}
	select {
	case result := <-rch:
		n, out, err = result.n, b, result.err
		return
	case <-ctx.Done():
		err = ctx.Err()
		return
	}
}

func (ch *connChannel) Shutdown() (err error) {
	if cw, ok := ch.conn.(interface{ CloseWrite() error }); ok {
		err = cw.CloseWrite()
		return
	}
	err = ch.conn.Close()
	return
}

func withExecutors(ctx context.Context) context.Context {
	if _, has := rxp.TryFrom(ctx); has {
		return ctx
	}
	return rxp.With(ctx, Executors())
}
