package tlsio_test

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/brickingsoft/tlsio"
	"github.com/brickingsoft/tlsio/security"
	"github.com/brickingsoft/tlsio/transport"
)

func streamPair(t *testing.T, config *security.Config) (client, server *tlsio.Stream, clientCh, serverCh transport.Channel) {
	t.Helper()
	clientCh, serverCh = transport.Pipe()
	client, err := tlsio.Client(clientCh, config)
	if err != nil {
		t.Fatal(err)
	}
	server, err = tlsio.Server(serverCh, config)
	if err != nil {
		t.Fatal(err)
	}
	return
}

func handshakeBoth(t *testing.T, client, server *tlsio.Stream) {
	t.Helper()
	ctx := context.Background()
	wg := new(sync.WaitGroup)
	wg.Add(1)
	var serverErr error
	go func() {
		defer wg.Done()
		_, _, serverErr = server.Handshake(ctx)
	}()
	if _, _, err := client.Handshake(ctx); err != nil {
		t.Fatal("client handshake:", err)
	}
	wg.Wait()
	if serverErr != nil {
		t.Fatal("server handshake:", serverErr)
	}
}

func TestStreamHandshake(t *testing.T) {
	client, server, _, _ := streamPair(t, nil)
	handshakeBoth(t, client, server)

	// idempotent after success
	rd, wr, err := client.Handshake(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rd != 0 || wr != 0 {
		t.Fatal("second handshake moved bytes:", rd, wr)
	}
}

func TestStreamPingPong(t *testing.T) {
	ctx := context.Background()
	client, server, _, _ := streamPair(t, nil)
	handshakeBoth(t, client, server)

	if _, _, err := client.Write(ctx, []byte("ping")); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, 16)
	n, _, err := server.Read(ctx, got)
	if err != nil {
		t.Fatal(err)
	}
	if string(got[:n]) != "ping" {
		t.Fatalf("server read %q", got[:n])
	}

	if _, _, err = server.Write(ctx, []byte("pong")); err != nil {
		t.Fatal(err)
	}
	n, _, err = client.Read(ctx, got)
	if err != nil {
		t.Fatal(err)
	}
	if string(got[:n]) != "pong" {
		t.Fatalf("client read %q", got[:n])
	}

	if err = client.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	n, _, err = server.Read(ctx, got)
	if !tlsio.IsOrderlyClosure(err) {
		t.Fatal("expected orderly closure, got", n, err)
	}
}

func TestStreamRoundTripLarge(t *testing.T) {
	ctx := context.Background()
	client, server, _, _ := streamPair(t, nil)
	handshakeBoth(t, client, server)

	message := bytes.Repeat([]byte("0123456789abcdef"), 8192) // 128 KiB
	wg := new(sync.WaitGroup)
	wg.Add(1)
	var writeErr error
	go func() {
		defer wg.Done()
		_, _, writeErr = client.Write(ctx, message)
	}()

	got := make([]byte, 0, len(message))
	chunk := make([]byte, 32*1024)
	for len(got) < len(message) {
		n, _, err := server.Read(ctx, chunk)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, chunk[:n]...)
	}
	wg.Wait()
	if writeErr != nil {
		t.Fatal(writeErr)
	}
	if !bytes.Equal(got, message) {
		t.Fatal("large round trip mismatch")
	}
}

func TestStreamHandshakeOnFirstUse(t *testing.T) {
	ctx := context.Background()
	client, server, _, _ := streamPair(t, nil)

	// no explicit Handshake: the first Write and Read drive it internally
	got := make([]byte, 16)
	read := make(chan string, 1)
	go func() {
		n, _, err := server.Read(ctx, got)
		if err != nil {
			read <- "error: " + err.Error()
			return
		}
		read <- string(got[:n])
	}()

	if _, _, err := client.Write(ctx, []byte("lazy")); err != nil {
		t.Fatal(err)
	}
	if msg := <-read; msg != "lazy" {
		t.Fatalf("server read %q", msg)
	}
}

func TestStreamHandshakeTruncated(t *testing.T) {
	ctx := context.Background()
	client, _, _, serverCh := streamPair(t, nil)

	// raw end of input before the server ever answers
	if err := serverCh.Shutdown(); err != nil {
		t.Fatal(err)
	}
	_, _, err := client.Handshake(ctx)
	if !tlsio.IsHandshakeTruncated(err) {
		t.Fatal("expected handshake truncated, got", err)
	}
}

func TestStreamUnexpectedClosure(t *testing.T) {
	ctx := context.Background()
	client, server, _, serverCh := streamPair(t, nil)
	handshakeBoth(t, client, server)

	// the transport ends silently, without the server's close notify
	if err := serverCh.Shutdown(); err != nil {
		t.Fatal(err)
	}
	_, _, err := client.Read(ctx, make([]byte, 16))
	if !tlsio.IsUnexpectedEOF(err) {
		t.Fatal("expected unexpected end of stream, got", err)
	}
}

func TestStreamProtocolViolation(t *testing.T) {
	ctx := context.Background()
	client, server, clientCh, _ := streamPair(t, nil)
	handshakeBoth(t, client, server)

	// a forged application data record with an unauthenticated body
	forged := []byte{23, 0, 4, 'j', 'u', 'n', 'k'}
	if _, _, err := clientCh.Send(ctx, forged); err != nil {
		t.Fatal(err)
	}
	_, _, err := server.Read(ctx, make([]byte, 16))
	if !tlsio.IsProtocol(err) {
		t.Fatal("expected protocol violation, got", err)
	}
}

func TestStreamWriteReturnsBuffer(t *testing.T) {
	ctx := context.Background()
	client, server, _, _ := streamPair(t, nil)
	handshakeBoth(t, client, server)

	payload := []byte("keep me")
	n, out, err := client.Write(ctx, payload)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(payload) {
		t.Fatal("accepted", n)
	}
	if &out[0] != &payload[0] {
		t.Fatal("write substituted the buffer")
	}

	// error paths hand the buffer back too
	if err = client.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	_, out, err = client.Write(ctx, payload)
	if !tlsio.IsClosed(err) {
		t.Fatal("expected closed, got", err)
	}
	if &out[0] != &payload[0] {
		t.Fatal("failed write dropped the buffer")
	}
}

func TestStreamUseAfterShutdown(t *testing.T) {
	ctx := context.Background()
	client, server, _, _ := streamPair(t, nil)
	handshakeBoth(t, client, server)

	if err := client.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if _, _, err := client.Read(ctx, make([]byte, 8)); !tlsio.IsClosed(err) {
		t.Fatal("expected closed on read, got", err)
	}
	if err := client.Shutdown(ctx); !tlsio.IsClosed(err) {
		t.Fatal("expected closed on second shutdown, got", err)
	}
}

// countingChannel wraps a Channel and tallies the operations performed.
type countingChannel struct {
	inner     transport.Channel
	sends     int
	shutdowns int
}

func (ch *countingChannel) Receive(ctx context.Context, b []byte) (int, []byte, error) {
	return ch.inner.Receive(ctx, b)
}

func (ch *countingChannel) Send(ctx context.Context, b []byte) (int, []byte, error) {
	ch.sends++
	return ch.inner.Send(ctx, b)
}

func (ch *countingChannel) Shutdown() error {
	ch.shutdowns++
	return ch.inner.Shutdown()
}

func TestStreamShutdownDegenerate(t *testing.T) {
	ctx := context.Background()
	clientCh, serverCh := transport.Pipe()
	counting := &countingChannel{inner: clientCh}
	client, err := tlsio.Client(counting, nil)
	if err != nil {
		t.Fatal(err)
	}
	server, err := tlsio.Server(serverCh, nil)
	if err != nil {
		t.Fatal(err)
	}
	handshakeBoth(t, client, server)

	// nothing pending: exactly one close notify flush, one channel shutdown
	counting.sends = 0
	if err = client.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if counting.sends != 1 {
		t.Fatal("close notify drained in", counting.sends, "sends")
	}
	if counting.shutdowns != 1 {
		t.Fatal("channel shut down", counting.shutdowns, "times")
	}
}
