package bytebuffers

import (
	"errors"
	"io"
	"math"
	"os"
)

// Buffer is a grow-able FIFO byte queue. Reads consume from the head,
// writes append to the tail, Peek exposes the head without consuming.
type Buffer interface {
	Len() (n int)
	Cap() (n int)
	Peek(n int) (p []byte)
	Discard(n int)
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Reset()
}

var (
	pagesize = os.Getpagesize()
)

var (
	ErrTooLarge = errors.New("bytebuffers: buffer too large")
)

func NewBuffer() Buffer {
	return NewBufferWithSize(1)
}

func NewBufferWithSize(size int) Buffer {
	if size <= 0 {
		size = 1
	}
	b := &buffer{
		b: nil,
		r: 0,
		w: 0,
	}
	_ = b.grow(size)
	return b
}

type buffer struct {
	b []byte
	r int
	w int
}

func (buf *buffer) Len() int { return buf.w - buf.r }

func (buf *buffer) Cap() int { return cap(buf.b) }

func (buf *buffer) Peek(n int) (p []byte) {
	bLen := buf.Len()
	if n < 1 || bLen == 0 {
		return
	}
	if bLen > n {
		p = buf.b[buf.r : buf.r+n]
		return
	}
	p = buf.b[buf.r:buf.w]
	return
}

func (buf *buffer) Discard(n int) {
	if n < 1 {
		return
	}
	if bLen := buf.Len(); n >= bLen {
		buf.Reset()
		return
	}
	buf.r += n
	buf.tryReset()
	return
}

func (buf *buffer) Read(p []byte) (n int, err error) {
	if buf.Len() == 0 {
		buf.Reset()
		err = io.EOF
		return
	}
	if len(p) == 0 {
		return
	}
	n = copy(p, buf.b[buf.r:buf.w])
	buf.r += n
	buf.tryReset()
	return
}

func (buf *buffer) Write(p []byte) (n int, err error) {
	pLen := len(p)
	if pLen == 0 {
		return
	}
	if m := buf.w + pLen - len(buf.b); m > 0 {
		if err = buf.grow(m); err != nil {
			return
		}
	}
	n = copy(buf.b[buf.w:], p)
	buf.w += n
	return
}

func (buf *buffer) Reset() {
	buf.r = 0
	buf.w = 0
}

func (buf *buffer) tryReset() {
	if buf.r == buf.w {
		buf.Reset()
	}
}

func (buf *buffer) grow(n int) (err error) {
	if n < 1 {
		return
	}
	defer func() {
		if recover() != nil {
			err = ErrTooLarge
		}
	}()
	adjustedSize := int(math.Ceil(float64(n)/float64(pagesize)) * float64(pagesize))
	buf.b = append(buf.b, make([]byte, adjustedSize)...)
	return
}
