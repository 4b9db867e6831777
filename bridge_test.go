package tlsio

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/brickingsoft/tlsio/security"
	"github.com/brickingsoft/tlsio/transport"
)

func TestInboundBridge(t *testing.T) {
	ctx := context.Background()
	local, remote := transport.Pipe()
	bridge := new(inboundBridge)

	// empty bridge speaks the engine's transient signal
	p := make([]byte, 8)
	if _, err := bridge.Read(p); !security.IsWouldBlock(err) {
		t.Fatal("expected would block, got", err)
	}

	if _, _, err := remote.Send(ctx, []byte("abcdef")); err != nil {
		t.Fatal(err)
	}
	if err := bridge.fill(ctx, local); err != nil {
		t.Fatal(err)
	}
	n, err := bridge.Read(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(p[:n]) != "abcdef" {
		t.Fatalf("read %q", p[:n])
	}
	if _, err = bridge.Read(p); !security.IsWouldBlock(err) {
		t.Fatal("expected would block after drain, got", err)
	}

	// orderly end of input sticks
	if err = remote.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if err = bridge.fill(ctx, local); err != nil {
		t.Fatal(err)
	}
	if _, err = bridge.Read(p); err != io.EOF {
		t.Fatal("expected EOF, got", err)
	}
}

func TestInboundBridgePartialRead(t *testing.T) {
	ctx := context.Background()
	local, remote := transport.Pipe()
	bridge := new(inboundBridge)

	if _, _, err := remote.Send(ctx, []byte("abcdef")); err != nil {
		t.Fatal(err)
	}
	if err := bridge.fill(ctx, local); err != nil {
		t.Fatal(err)
	}
	p := make([]byte, 4)
	n, _ := bridge.Read(p)
	if string(p[:n]) != "abcd" {
		t.Fatalf("first read %q", p[:n])
	}
	n, _ = bridge.Read(p)
	if string(p[:n]) != "ef" {
		t.Fatalf("second read %q", p[:n])
	}
}

func TestOutboundBridge(t *testing.T) {
	ctx := context.Background()
	local, remote := transport.Pipe()
	bridge := new(outboundBridge)

	// first write stages and signals would block
	payload := []byte("pending bytes")
	n, err := bridge.Write(payload)
	if n != 0 || !security.IsWouldBlock(err) {
		t.Fatal("expected staged would block, got", n, err)
	}

	if err = bridge.flush(ctx, local); err != nil {
		t.Fatal(err)
	}

	// the retry reports the confirmed count, once
	n, err = bridge.Write(payload)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(payload) {
		t.Fatal("confirmed", n, "want", len(payload))
	}
	if n, err = bridge.Write(payload); n != 0 || !security.IsWouldBlock(err) {
		t.Fatal("expected a fresh stage, got", n, err)
	}

	got := make([]byte, 32)
	rn, _, rErr := remote.Receive(ctx, got)
	if rErr != nil {
		t.Fatal(rErr)
	}
	if !bytes.Equal(got[:rn], payload) {
		t.Fatalf("wire carried %q", got[:rn])
	}
}

func TestOutboundBridgeFlushWithoutPending(t *testing.T) {
	ctx := context.Background()
	local, _ := transport.Pipe()
	bridge := new(outboundBridge)
	if err := bridge.flush(ctx, local); err != nil {
		t.Fatal(err)
	}
}
