package tlsio

import (
	"context"
	"io"

	"github.com/brickingsoft/tlsio/security"
	"github.com/brickingsoft/tlsio/transport"
)

// The bridges convert between the engine's borrowed slice io.Reader and
// io.Writer boundary and the channel's owned buffers. Each owns one
// transfer buffer that is moved to the channel for the duration of a
// single operation and moved back with the completion; the engine and the
// channel never view it at the same time. When the engine finds the bridge
// empty or unsent it gets security.ErrWouldBlock, and the Stream performs
// exactly one channel operation before retrying.

// inboundBridge buffers bytes received from the channel for the engine to
// consume.
type inboundBridge struct {
	buf []byte
	r   int
	w   int
	eof bool
}

func (b *inboundBridge) Read(p []byte) (n int, err error) {
	if b.r == b.w {
		if b.eof {
			err = io.EOF
			return
		}
		err = security.ErrWouldBlock
		return
	}
	n = copy(p, b.buf[b.r:b.w])
	b.r += n
	if b.r == b.w {
		b.r, b.w = 0, 0
	}
	return
}

// fill performs the single channel receive backing one would-block event.
func (b *inboundBridge) fill(ctx context.Context, ch transport.Channel) (err error) {
	if b.buf == nil {
		b.buf = make([]byte, security.MaxRecordSize)
	}
	buf := b.buf
	b.buf = nil // moved to the channel
	n, out, rErr := ch.Receive(ctx, buf)
	b.buf = out // moved back, nil if the operation is still in flight
	if rErr != nil {
		err = rErr
		return
	}
	if n == 0 {
		b.eof = true
		return
	}
	b.r, b.w = 0, n
	return
}

// outboundBridge stages the engine's pending encrypted bytes for a single
// channel send and reports the confirmed count back on the engine's retry.
type outboundBridge struct {
	buf     []byte
	pending int
	sent    int
}

func (b *outboundBridge) Write(p []byte) (n int, err error) {
	if b.sent > 0 {
		n = b.sent
		if n > len(p) {
			n = len(p)
		}
		b.sent = 0
		return
	}
	if len(p) == 0 {
		return
	}
	if b.buf == nil {
		b.buf = make([]byte, security.MaxRecordSize)
	}
	b.pending = copy(b.buf, p)
	err = security.ErrWouldBlock
	return
}

// flush performs the single channel send backing one would-block event.
func (b *outboundBridge) flush(ctx context.Context, ch transport.Channel) (err error) {
	if b.pending == 0 {
		return
	}
	buf := b.buf[:b.pending]
	b.buf = nil // moved to the channel
	b.pending = 0
	n, out, sErr := ch.Send(ctx, buf)
	if out != nil {
		b.buf = out[:cap(out)]
	}
	if sErr != nil {
		err = sErr
		return
	}
	b.sent = n
	return
}
