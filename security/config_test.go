package security_test

import (
	"testing"

	"github.com/brickingsoft/tlsio/security"
)

func TestMergeConfigDefaults(t *testing.T) {
	merged, err := security.MergeConfig(security.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if merged.Suite != security.Chacha20Poly1305 {
		t.Fatal("default suite:", merged.Suite)
	}
	if merged.Rand == nil {
		t.Fatal("default rand is nil")
	}
	if err = merged.Verify(); err != nil {
		t.Fatal(err)
	}
}

func TestMergeConfigOverride(t *testing.T) {
	merged, err := security.MergeConfig(security.DefaultConfig(), &security.Config{
		Suite:        security.AES256GCM,
		PresharedKey: []byte("secret"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if merged.Suite != security.AES256GCM {
		t.Fatal("suite not overridden:", merged.Suite)
	}
	if string(merged.PresharedKey) != "secret" {
		t.Fatal("psk not overridden")
	}
	if merged.Rand == nil {
		t.Fatal("rand default dropped by merge")
	}
}

func TestVerifyRejectsUnknownSuite(t *testing.T) {
	config := security.DefaultConfig()
	config.Suite = security.CipherSuite(250)
	if err := config.Verify(); err == nil {
		t.Fatal("expected unsupported suite error")
	}
}

func TestVerifyRejectsNilConfig(t *testing.T) {
	var config *security.Config
	if err := config.Verify(); err == nil {
		t.Fatal("expected nil config error")
	}
}
