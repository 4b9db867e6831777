package tlsio

import (
	"context"
	"io"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/tlsio/security"
	"github.com/brickingsoft/tlsio/transport"
)

// Stream speaks the encrypted record protocol over a completion based
// channel. It exclusively owns the channel handle and the engine; exactly
// one logical call (Handshake, Read, Write or Shutdown) may be in flight at
// a time and the caller serializes access. Suspension happens only inside
// the channel's single-shot operations; every engine interaction is
// synchronous.
//
// Vectored read and write are not supported, Stream is single buffer only.
type Stream struct {
	ch         transport.Channel
	engine     security.Engine
	in         inboundBridge
	out        outboundBridge
	handshaked bool
	closed     bool
}

// readIO pulls encrypted bytes from the channel into the engine and
// processes them: at most one channel receive per would-block signal, then
// one packet-processing step. A zero count is the channel's orderly end of
// input.
func (s *Stream) readIO(ctx context.Context) (n int, err error) {
	for {
		n, err = s.engine.ReadEncrypted(&s.in)
		if err == nil {
			break
		}
		if !security.IsWouldBlock(err) {
			n = 0
			return
		}
		if fillErr := s.in.fill(ctx, s.ch); fillErr != nil {
			n, err = 0, fillErr
			return
		}
	}

	status, procErr := s.engine.ProcessIncoming()
	if procErr != nil {
		// best effort flush so the peer sees the queued alert; the single
		// owner contract keeps this from racing a caller issued write
		_, _ = s.writeIO(ctx)
		n = 0
		err = errors.From(ErrProtocol,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(procErr),
		)
		return
	}

	if status.PeerClosed && s.engine.Handshaking() {
		n = 0
		err = errors.From(ErrHandshakeTruncated,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpShake),
		)
		return
	}
	return
}

// writeIO pushes the engine's queued encrypted bytes to the channel, one
// send per would-block signal, and reports the bytes flushed by this call.
func (s *Stream) writeIO(ctx context.Context) (n int, err error) {
	for {
		n, err = s.engine.WriteEncrypted(&s.out)
		if err == nil {
			return
		}
		if !security.IsWouldBlock(err) {
			n = 0
			return
		}
		if flushErr := s.out.flush(ctx, s.ch); flushErr != nil {
			n, err = 0, flushErr
			return
		}
	}
}

// Handshake drives the handshake to completion and reports the raw bytes
// read and written for diagnostics. It runs internally on the first Read or
// Write; calling it again after success is a no-op.
func (s *Stream) Handshake(ctx context.Context) (rd int, wr int, err error) {
	if s.closed {
		err = errors.From(ErrClosed,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpShake),
		)
		return
	}
	if s.handshaked {
		return
	}

	eof := false
	for {
		for s.engine.WantsWrite() && s.engine.Handshaking() {
			n, wErr := s.writeIO(ctx)
			if wErr != nil {
				err = wErr
				return
			}
			wr += n
		}
		for !eof && s.engine.WantsRead() && s.engine.Handshaking() {
			n, rErr := s.readIO(ctx)
			if rErr != nil {
				err = rErr
				return
			}
			rd += n
			if n == 0 {
				eof = true
			}
		}
		if !s.engine.Handshaking() {
			break
		}
		if eof {
			err = errors.From(ErrHandshakeTruncated,
				errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
				errors.WithMeta(errMetaOpKey, errMetaOpShake),
			)
			return
		}
	}

	// drain the residual flight queued after the handshake completed
	for s.engine.WantsWrite() {
		n, wErr := s.writeIO(ctx)
		if wErr != nil {
			err = wErr
			return
		}
		wr += n
	}

	s.handshaked = true
	return
}

// Read fills b with decrypted application data. Ownership of b transfers
// into the call and is handed back as out on every path; out is nil only
// when a cancelled channel operation still holds the transfer buffer, in
// which case the Stream must not be reused. The peer's orderly closure
// surfaces as io.EOF.
func (s *Stream) Read(ctx context.Context, b []byte) (n int, out []byte, err error) {
	out = b
	if s.closed {
		err = errors.From(ErrClosed,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpRead),
		)
		return
	}
	if len(b) == 0 {
		err = errors.From(ErrEmptyBytes,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpRead),
		)
		return
	}
	if !s.handshaked {
		if _, _, err = s.Handshake(ctx); err != nil {
			return
		}
	}

	for {
		pn, pErr := s.engine.ReadPlaintext(b)
		if pErr == nil {
			n = pn
			return
		}
		if errors.Is(pErr, io.EOF) {
			err = io.EOF
			return
		}
		if !security.IsWouldBlock(pErr) {
			err = pErr
			return
		}

		rn, rErr := s.readIO(ctx)
		if rErr != nil {
			err = rErr
			return
		}
		if rn == 0 {
			// a silent close without close notify is a protocol violation
			err = errors.From(ErrUnexpectedEOF,
				errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
				errors.WithMeta(errMetaOpKey, errMetaOpRead),
			)
			return
		}
	}
}

// Write encrypts b and pushes it towards the wire. The buffer is borrowed
// for the call and always handed back as out; n is the plaintext accepted
// into the engine, which may not be on the wire yet when a pump iteration
// made no progress.
func (s *Stream) Write(ctx context.Context, b []byte) (n int, out []byte, err error) {
	out = b
	if s.closed {
		err = errors.From(ErrClosed,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpWrite),
		)
		return
	}
	if len(b) == 0 {
		err = errors.From(ErrEmptyBytes,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpWrite),
		)
		return
	}
	if !s.handshaked {
		if _, _, err = s.Handshake(ctx); err != nil {
			return
		}
	}

	n, err = s.engine.WritePlaintext(b)
	if err != nil {
		n = 0
		return
	}

	for s.engine.WantsWrite() {
		wn, wErr := s.writeIO(ctx)
		if wErr != nil {
			err = wErr
			return
		}
		if wn == 0 {
			// no progress, the remainder stays queued inside the engine
			break
		}
	}
	return
}

// Shutdown schedules the close notify record, drains all pending outbound
// bytes and shuts the channel down. The Stream must not be used afterwards
// regardless of the outcome.
func (s *Stream) Shutdown(ctx context.Context) (err error) {
	if s.closed {
		err = errors.From(ErrClosed,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpClose),
		)
		return
	}
	s.closed = true

	s.engine.SendCloseNotify()
	for s.engine.WantsWrite() {
		if _, err = s.writeIO(ctx); err != nil {
			return
		}
	}
	err = s.ch.Shutdown()
	return
}
