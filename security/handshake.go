package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"hash"
	"io"

	"github.com/brickingsoft/errors"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

const protocolVersion = 1

const (
	msgTypeHello    uint8 = 1
	msgTypeFinished uint8 = 20
)

const (
	helloLen    = 1 + 1 + 1 + 32 + 32 // type, version, suite, random, public key
	finishedLen = 1 + sha256.Size     // type, transcript mac
)

type hsStage int

const (
	hsWaitHello hsStage = iota
	hsWaitFinished
	hsDone
)

// handshakeState carries the in-flight handshake: the local key pair and
// random, the running transcript over both hello messages, and the finished
// keys once derived.
type handshakeState struct {
	stage      hsStage
	priv       []byte
	pub        []byte
	random     [32]byte
	transcript hash.Hash

	localFinishedKey []byte
	peerFinishedKey  []byte
}

func newHandshakeState(entropy io.Reader) (hs *handshakeState, err error) {
	hs = &handshakeState{
		stage:      hsWaitHello,
		transcript: sha256.New(),
	}
	hs.priv = make([]byte, curve25519.ScalarSize)
	if _, err = io.ReadFull(entropy, hs.priv); err != nil {
		return
	}
	if _, err = io.ReadFull(entropy, hs.random[:]); err != nil {
		return
	}
	hs.pub, err = curve25519.X25519(hs.priv, curve25519.Basepoint)
	return
}

func (hs *handshakeState) hello(suite CipherSuite) (msg []byte) {
	msg = make([]byte, 0, helloLen)
	msg = append(msg, msgTypeHello, protocolVersion, uint8(suite))
	msg = append(msg, hs.random[:]...)
	msg = append(msg, hs.pub...)
	return
}

type helloMessage struct {
	suite   CipherSuite
	peerPub []byte
}

func parseHello(msg []byte) (hello helloMessage, alert Alert, err error) {
	if len(msg) != helloLen {
		alert = alertDecodeError
		err = errors.Define("malformed hello")
		return
	}
	if msg[1] != protocolVersion {
		alert = alertProtocolVersion
		err = errors.Define("protocol version not supported")
		return
	}
	hello.suite = CipherSuite(msg[2])
	hello.peerPub = msg[3+32:]
	return
}

// derive computes the per-direction traffic keys and finished keys from the
// X25519 shared secret, the optional pre-shared key and the transcript so
// far, then arms the record protections.
func (e *engine) derive(peerPub []byte) (alert Alert, err error) {
	shared, sharedErr := curve25519.X25519(e.hs.priv, peerPub)
	if sharedErr != nil {
		alert = alertIllegalParameter
		err = sharedErr
		return
	}
	secret := hkdf.Extract(sha256.New, shared, e.config.PresharedKey)
	th := e.hs.transcript.Sum(nil)

	clientKey, clientKeyErr := expandLabel(secret, "client data", th, e.suite.keyLen)
	if clientKeyErr != nil {
		alert = alertInternalError
		err = clientKeyErr
		return
	}
	serverKey, serverKeyErr := expandLabel(secret, "server data", th, e.suite.keyLen)
	if serverKeyErr != nil {
		alert = alertInternalError
		err = serverKeyErr
		return
	}
	clientFinished, clientFinishedErr := expandLabel(secret, "client finished", th, sha256.Size)
	if clientFinishedErr != nil {
		alert = alertInternalError
		err = clientFinishedErr
		return
	}
	serverFinished, serverFinishedErr := expandLabel(secret, "server finished", th, sha256.Size)
	if serverFinishedErr != nil {
		alert = alertInternalError
		err = serverFinishedErr
		return
	}

	var outKey, inKey []byte
	if e.isClient {
		outKey, inKey = clientKey, serverKey
		e.hs.localFinishedKey, e.hs.peerFinishedKey = clientFinished, serverFinished
	} else {
		outKey, inKey = serverKey, clientKey
		e.hs.localFinishedKey, e.hs.peerFinishedKey = serverFinished, clientFinished
	}
	if setupErr := e.out.setup(e.suite, outKey); setupErr != nil {
		alert = alertInternalError
		err = setupErr
		return
	}
	if setupErr := e.in.setup(e.suite, inKey); setupErr != nil {
		alert = alertInternalError
		err = setupErr
		return
	}
	return
}

func expandLabel(secret []byte, label string, transcript []byte, length int) (key []byte, err error) {
	info := make([]byte, 0, len("tlsio ")+len(label)+len(transcript))
	info = append(info, "tlsio "...)
	info = append(info, label...)
	info = append(info, transcript...)
	key = make([]byte, length)
	_, err = io.ReadFull(hkdf.Expand(sha256.New, secret, info), key)
	return
}

func (hs *handshakeState) finished(key []byte) (msg []byte) {
	mac := hmac.New(sha256.New, key)
	mac.Write(hs.transcript.Sum(nil))
	msg = make([]byte, 0, finishedLen)
	msg = append(msg, msgTypeFinished)
	msg = append(msg, mac.Sum(nil)...)
	return
}

func (hs *handshakeState) verifyFinished(msg []byte) (alert Alert, err error) {
	if len(msg) != finishedLen {
		alert = alertDecodeError
		err = errors.Define("malformed finished")
		return
	}
	mac := hmac.New(sha256.New, hs.peerFinishedKey)
	mac.Write(hs.transcript.Sum(nil))
	if !hmac.Equal(msg[1:], mac.Sum(nil)) {
		alert = alertDecryptError
		err = errors.Define("finished verification failed")
		return
	}
	return
}
