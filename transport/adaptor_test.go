package transport_test

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/brickingsoft/tlsio/transport"
)

func TestAdaptSendReceive(t *testing.T) {
	ctx := context.Background()
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	local := transport.Adapt(client)
	remote := transport.Adapt(server)

	payload := []byte("dispatched bytes")
	sent := make(chan error, 1)
	go func() {
		_, _, err := local.Send(ctx, payload)
		sent <- err
	}()

	got := make([]byte, 64)
	n, out, err := remote.Receive(ctx, got)
	if err != nil {
		t.Fatal(err)
	}
	if sendErr := <-sent; sendErr != nil {
		t.Fatal(sendErr)
	}
	if !bytes.Equal(out[:n], payload) {
		t.Fatalf("received %q", out[:n])
	}
}

func TestAdaptOrderlyEndOfInput(t *testing.T) {
	ctx := context.Background()
	client, server := net.Pipe()
	defer server.Close()

	remote := transport.Adapt(server)
	if err := client.Close(); err != nil {
		t.Fatal(err)
	}

	n, _, err := remote.Receive(ctx, make([]byte, 8))
	if err != nil {
		t.Fatal("expected orderly end of input, got", err)
	}
	if n != 0 {
		t.Fatal("expected zero count, got", n)
	}
}

func TestAdaptShutdown(t *testing.T) {
	ctx := context.Background()
	client, server := net.Pipe()
	defer server.Close()

	local := transport.Adapt(client)
	if err := local.Shutdown(); err != nil {
		t.Fatal(err)
	}

	remote := transport.Adapt(server)
	n, _, err := remote.Receive(ctx, make([]byte, 8))
	if err != nil {
		t.Fatal("expected orderly end of input, got", err)
	}
	if n != 0 {
		t.Fatal("expected zero count, got", n)
	}
}
