package security

import (
	"crypto/rand"
	"io"

	"github.com/brickingsoft/errors"
	"github.com/imdario/mergo"
)

// Config is the engine configuration. Zero value fields fall back to the
// defaults, see MergeConfig.
type Config struct {
	// Suite is the AEAD suite the client offers and the server prefers.
	Suite CipherSuite

	// PresharedKey, when set, is mixed into the key schedule. Both sides
	// must agree on it or finished verification fails.
	PresharedKey []byte

	// Rand is the entropy source for key pairs and randoms.
	Rand io.Reader
}

// DefaultConfig returns the default config.
func DefaultConfig() *Config {
	return &Config{
		Suite: Chacha20Poly1305,
		Rand:  rand.Reader,
	}
}

// Verify checks whether a config is valid.
func (config *Config) Verify() (err error) {
	if config == nil {
		err = errors.From(ErrConfig,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(errors.Define("nil config")),
		)
		return
	}
	if _, err = suiteOf(config.Suite); err != nil {
		return
	}
	if config.Rand == nil {
		err = errors.From(ErrConfig,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(errors.Define("nil rand")),
		)
		return
	}
	return
}

// MergeConfig merges a given config with the default config. Any non zero
// value fields override the default.
func MergeConfig(base, conf *Config) (merged *Config, err error) {
	combined := *base
	if conf != nil {
		if mergeErr := mergo.Merge(&combined, conf, mergo.WithOverride); mergeErr != nil {
			err = errors.From(ErrConfig,
				errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
				errors.WithWrap(mergeErr),
			)
			return
		}
	}
	merged = &combined
	return
}
