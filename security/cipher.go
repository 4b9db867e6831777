package security

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"

	"github.com/brickingsoft/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

type CipherSuite uint8

const (
	// Chacha20Poly1305 is the default suite.
	Chacha20Poly1305 CipherSuite = 1
	// AES256GCM is the hardware friendly alternative.
	AES256GCM CipherSuite = 2
)

func (s CipherSuite) String() string {
	switch s {
	case Chacha20Poly1305:
		return "CHACHA20_POLY1305"
	case AES256GCM:
		return "AES_256_GCM"
	default:
		return "UNKNOWN"
	}
}

type cipherSuite struct {
	id      CipherSuite
	keyLen  int
	newAEAD func(key []byte) (cipher.AEAD, error)
}

var cipherSuites = map[CipherSuite]*cipherSuite{
	Chacha20Poly1305: {
		id:      Chacha20Poly1305,
		keyLen:  chacha20poly1305.KeySize,
		newAEAD: chacha20poly1305.New,
	},
	AES256GCM: {
		id:      AES256GCM,
		keyLen:  32,
		newAEAD: newAESGCM,
	},
}

func newAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func suiteOf(id CipherSuite) (s *cipherSuite, err error) {
	s, has := cipherSuites[id]
	if !has {
		err = errors.From(ErrConfig,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(errors.Define("unsupported cipher suite")),
		)
		return
	}
	return
}

// halfProtection seals or opens records for one direction. Nonces are a
// 96-bit counter, never reused within a connection because each direction
// has its own key.
type halfProtection struct {
	aead cipher.AEAD
	seq  uint64
}

func (half *halfProtection) setup(s *cipherSuite, key []byte) (err error) {
	half.aead, err = s.newAEAD(key)
	half.seq = 0
	return
}

func (half *halfProtection) ready() bool {
	return half.aead != nil
}

func (half *halfProtection) nonce() (n [12]byte) {
	binary.BigEndian.PutUint64(n[4:], half.seq)
	half.seq++
	return
}

func (half *halfProtection) seal(dst, plaintext, additional []byte) []byte {
	nonce := half.nonce()
	return half.aead.Seal(dst, nonce[:], plaintext, additional)
}

func (half *halfProtection) open(dst, ciphertext, additional []byte) ([]byte, error) {
	nonce := half.nonce()
	opened, err := half.aead.Open(dst, nonce[:], ciphertext, additional)
	if err != nil {
		return nil, alertBadRecordMAC
	}
	return opened, nil
}

func (half *halfProtection) overhead() int {
	return half.aead.Overhead()
}
