package transport

import (
	"context"
	"sync"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/tlsio/pkg/bytebuffers"
)

// Pipe creates a connected in-memory duplex channel pair. Bytes sent on one
// end arrive at the other in order. Shutting an end down delivers orderly
// end of input to its peer once the buffered bytes are drained.
func Pipe() (local Channel, remote Channel) {
	a := newPipeBuffer()
	b := newPipeBuffer()
	local = &pipeChannel{recv: a, send: b}
	remote = &pipeChannel{recv: b, send: a}
	return
}

type pipeChannel struct {
	recv *pipeBuffer
	send *pipeBuffer
}

func (ch *pipeChannel) Receive(ctx context.Context, b []byte) (n int, out []byte, err error) {
	out = b
	if len(b) == 0 {
		err = errors.From(ErrEmptyBytes,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpRecv),
		)
		return
	}
	n, err = ch.recv.read(ctx, b)
	return
}

func (ch *pipeChannel) Send(ctx context.Context, b []byte) (n int, out []byte, err error) {
	out = b
	if len(b) == 0 {
		err = errors.From(ErrEmptyBytes,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpSend),
		)
		return
	}
	n, err = ch.send.write(b)
	return
}

func (ch *pipeChannel) Shutdown() (err error) {
	ch.send.close()
	return
}

func newPipeBuffer() *pipeBuffer {
	return &pipeBuffer{
		buf:    bytebuffers.NewBuffer(),
		wakeup: make(chan struct{}),
	}
}

// pipeBuffer is one direction of the pipe: a byte queue with blocking,
// context aware reads. wakeup is closed and replaced on every state change.
type pipeBuffer struct {
	mu     sync.Mutex
	buf    bytebuffers.Buffer
	closed bool
	wakeup chan struct{}
}

func (pb *pipeBuffer) read(ctx context.Context, b []byte) (n int, err error) {
	for {
		pb.mu.Lock()
		if pb.buf.Len() > 0 {
			n, _ = pb.buf.Read(b)
			pb.mu.Unlock()
			return
		}
		if pb.closed {
			pb.mu.Unlock()
			return
		}
		wakeup := pb.wakeup
		pb.mu.Unlock()
		select {
		case <-wakeup:
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

func (pb *pipeBuffer) write(b []byte) (n int, err error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.closed {
		err = errors.From(ErrShutdown,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpSend),
		)
		return
	}
	n, err = pb.buf.Write(b)
	pb.notify()
	return
}

func (pb *pipeBuffer) close() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.closed {
		return
	}
	pb.closed = true
	pb.notify()
}

func (pb *pipeBuffer) notify() {
	close(pb.wakeup)
	pb.wakeup = make(chan struct{})
}
