package security

import (
	"encoding/binary"
	"io"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/tlsio/pkg/bytebuffers"
)

// NewClient constructs a client side engine. The client hello is queued
// immediately, so a fresh client engine wants to write.
func NewClient(config *Config) (engine Engine, err error) {
	engine, err = newEngine(config, true)
	return
}

// NewServer constructs a server side engine.
func NewServer(config *Config) (engine Engine, err error) {
	engine, err = newEngine(config, false)
	return
}

func newEngine(config *Config, isClient bool) (eng *engine, err error) {
	config, err = MergeConfig(DefaultConfig(), config)
	if err != nil {
		return
	}
	if err = config.Verify(); err != nil {
		return
	}
	suite, suiteErr := suiteOf(config.Suite)
	if suiteErr != nil {
		err = suiteErr
		return
	}
	hs, hsErr := newHandshakeState(config.Rand)
	if hsErr != nil {
		err = errors.From(ErrConfig,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(hsErr),
		)
		return
	}
	eng = &engine{
		config:   config,
		isClient: isClient,
		suite:    suite,
		hs:       hs,
		inbound:  bytebuffers.NewBuffer(),
		outbound: bytebuffers.NewBuffer(),
		plain:    bytebuffers.NewBuffer(),
	}
	if isClient {
		hello := hs.hello(suite.id)
		hs.transcript.Write(hello)
		eng.writeRecord(recordTypeHandshake, hello)
	}
	return
}

type engine struct {
	config   *Config
	isClient bool
	suite    *cipherSuite

	hs       *handshakeState
	in, out  halfProtection
	inbound  bytebuffers.Buffer
	outbound bytebuffers.Buffer
	plain    bytebuffers.Buffer

	peerClosed      bool
	closeNotifySent bool
	failed          error

	scratch [recordHeaderLen + maxCiphertext]byte
}

func (e *engine) ReadEncrypted(r io.Reader) (n int, err error) {
	n, err = r.Read(e.scratch[:])
	if n > 0 {
		if _, wErr := e.inbound.Write(e.scratch[:n]); wErr != nil {
			err = errors.From(ErrProtocol,
				errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
				errors.WithWrap(wErr),
			)
			return
		}
	}
	if err != nil {
		if err == io.EOF {
			err = nil
		}
		return
	}
	return
}

func (e *engine) WriteEncrypted(w io.Writer) (n int, err error) {
	pending := e.outbound.Len()
	if pending == 0 {
		return
	}
	n, err = w.Write(e.outbound.Peek(pending))
	if n > 0 {
		e.outbound.Discard(n)
	}
	if err != nil && n == 0 {
		return
	}
	err = nil
	return
}

func (e *engine) ProcessIncoming() (status Status, err error) {
	if e.failed != nil {
		err = e.failed
		return
	}
	for !e.peerClosed {
		header := e.inbound.Peek(recordHeaderLen)
		if len(header) < recordHeaderLen {
			break
		}
		typ := recordType(header[0])
		length := int(binary.BigEndian.Uint16(header[1:]))
		if !validRecordType(typ) {
			err = e.fail(alertUnexpectedMessage, errors.Define("unknown record type"))
			return
		}
		if length > maxCiphertext {
			err = e.fail(alertRecordOverflow, errors.Define("record overflow"))
			return
		}
		if e.inbound.Len() < recordHeaderLen+length {
			break
		}
		record := e.scratch[:recordHeaderLen+length]
		copy(record, e.inbound.Peek(recordHeaderLen+length))
		e.inbound.Discard(recordHeaderLen + length)

		payload := record[recordHeaderLen:]
		if e.in.ready() {
			payload, err = e.in.open(payload[:0], payload, record[:recordHeaderLen])
			if err != nil {
				err = e.fail(alertBadRecordMAC, err)
				return
			}
		}

		switch typ {
		case recordTypeAlert:
			if len(payload) != 2 {
				err = e.fail(alertDecodeError, errors.Define("malformed alert"))
				return
			}
			if Alert(payload[1]) == alertCloseNotify {
				e.peerClosed = true
				break
			}
			e.failed = errors.From(ErrRemoteAlert,
				errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
				errors.WithWrap(Alert(payload[1])),
			)
			err = e.failed
			return
		case recordTypeHandshake:
			if alert, hsErr := e.processHandshakeMessage(payload); hsErr != nil {
				err = e.fail(alert, hsErr)
				return
			}
		case recordTypeApplicationData:
			if e.Handshaking() {
				err = e.fail(alertUnexpectedMessage, errors.Define("application data during handshake"))
				return
			}
			if _, wErr := e.plain.Write(payload); wErr != nil {
				err = e.fail(alertInternalError, wErr)
				return
			}
		}
	}
	status = Status{PeerClosed: e.peerClosed}
	return
}

func (e *engine) processHandshakeMessage(msg []byte) (alert Alert, err error) {
	if len(msg) == 0 || len(msg) > maxHandshake {
		alert = alertDecodeError
		err = errors.Define("malformed handshake message")
		return
	}
	switch msg[0] {
	case msgTypeHello:
		if e.hs.stage != hsWaitHello {
			alert = alertUnexpectedMessage
			err = errors.Define("unexpected hello")
			return
		}
		hello, parseAlert, parseErr := parseHello(msg)
		if parseErr != nil {
			alert = parseAlert
			err = parseErr
			return
		}
		if e.isClient {
			if hello.suite != e.suite.id {
				alert = alertIllegalParameter
				err = errors.Define("server selected an unoffered suite")
				return
			}
			e.hs.transcript.Write(msg)
			if alert, err = e.derive(hello.peerPub); err != nil {
				return
			}
			e.hs.stage = hsWaitFinished
			return
		}
		// server: adopt the client's suite when supported, answer with the
		// hello and finished flight, then arm both protections.
		suite, suiteErr := suiteOf(hello.suite)
		if suiteErr != nil {
			alert = alertHandshakeFailure
			err = errors.Define("no common cipher suite")
			return
		}
		e.suite = suite
		e.hs.transcript.Write(msg)
		serverHello := e.hs.hello(suite.id)
		e.hs.transcript.Write(serverHello)
		e.writeRecord(recordTypeHandshake, serverHello)
		if alert, err = e.derive(hello.peerPub); err != nil {
			return
		}
		e.writeRecord(recordTypeHandshake, e.hs.finished(e.hs.localFinishedKey))
		e.hs.stage = hsWaitFinished
		return
	case msgTypeFinished:
		if e.hs.stage != hsWaitFinished {
			alert = alertUnexpectedMessage
			err = errors.Define("unexpected finished")
			return
		}
		if alert, err = e.hs.verifyFinished(msg); err != nil {
			return
		}
		if e.isClient {
			e.writeRecord(recordTypeHandshake, e.hs.finished(e.hs.localFinishedKey))
		}
		e.hs.stage = hsDone
		return
	default:
		alert = alertUnexpectedMessage
		err = errors.Define("unknown handshake message")
		return
	}
}

func (e *engine) WantsRead() bool {
	if e.failed != nil || e.peerClosed {
		return false
	}
	if e.plain.Len() > 0 {
		return false
	}
	if e.Handshaking() {
		// flush the queued flight before expecting the peer's answer
		return e.outbound.Len() == 0
	}
	return true
}

func (e *engine) WantsWrite() bool {
	return e.outbound.Len() > 0
}

func (e *engine) Handshaking() bool {
	return e.hs.stage != hsDone
}

func (e *engine) SendCloseNotify() {
	if e.closeNotifySent {
		return
	}
	e.closeNotifySent = true
	e.writeRecord(recordTypeAlert, []byte{alertLevelWarning, uint8(alertCloseNotify)})
}

func (e *engine) ReadPlaintext(p []byte) (n int, err error) {
	if e.plain.Len() > 0 {
		n, _ = e.plain.Read(p)
		return
	}
	if e.failed != nil {
		err = e.failed
		return
	}
	if e.peerClosed {
		err = io.EOF
		return
	}
	err = ErrWouldBlock
	return
}

func (e *engine) WritePlaintext(p []byte) (n int, err error) {
	if e.failed != nil {
		err = e.failed
		return
	}
	if e.closeNotifySent {
		err = errors.From(ErrClosed, errors.WithMeta(errMetaPkgKey, errMetaPkgVal))
		return
	}
	if e.Handshaking() {
		err = errors.From(ErrHandshaking, errors.WithMeta(errMetaPkgKey, errMetaPkgVal))
		return
	}
	for len(p) > 0 {
		chunk := p
		if len(chunk) > maxPlaintext {
			chunk = chunk[:maxPlaintext]
		}
		e.writeRecord(recordTypeApplicationData, chunk)
		n += len(chunk)
		p = p[len(chunk):]
	}
	return
}

// writeRecord frames payload into the outbound queue, sealing it once the
// outgoing protection is armed.
func (e *engine) writeRecord(typ recordType, payload []byte) {
	var header [recordHeaderLen]byte
	header[0] = uint8(typ)
	if e.out.ready() {
		binary.BigEndian.PutUint16(header[1:], uint16(len(payload)+e.out.overhead()))
		sealed := e.out.seal(nil, payload, header[:])
		_, _ = e.outbound.Write(header[:])
		_, _ = e.outbound.Write(sealed)
		return
	}
	binary.BigEndian.PutUint16(header[1:], uint16(len(payload)))
	_, _ = e.outbound.Write(header[:])
	_, _ = e.outbound.Write(payload)
}

// fail poisons the engine and queues a fatal alert so a best effort flush
// can still tell the peer what happened.
func (e *engine) fail(alert Alert, cause error) (err error) {
	e.writeRecord(recordTypeAlert, []byte{alertLevelError, uint8(alert)})
	e.failed = errors.From(ErrProtocol,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta("alert", alert.String()),
		errors.WithWrap(cause),
	)
	err = e.failed
	return
}
