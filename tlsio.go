// Package tlsio adapts the synchronous record protocol engine in
// security to completion based byte channels: transports whose receive and
// send operations consume buffer ownership and hand it back with the
// result. The Stream pumps encrypted bytes between the two worlds, drives
// the handshake and exposes plaintext Read, Write and Shutdown whose only
// suspension points are the channel's single-shot operations.
package tlsio

import (
	"github.com/brickingsoft/tlsio/security"
	"github.com/brickingsoft/tlsio/transport"
)

// Client pairs an established channel with a fresh client engine. The
// handshake runs on the first Read or Write, or explicitly via Handshake.
func Client(ch transport.Channel, config *security.Config) (s *Stream, err error) {
	engine, engineErr := security.NewClient(config)
	if engineErr != nil {
		err = engineErr
		return
	}
	s = &Stream{
		ch:     ch,
		engine: engine,
	}
	return
}

// Server pairs an established channel with a fresh server engine.
func Server(ch transport.Channel, config *security.Config) (s *Stream, err error) {
	engine, engineErr := security.NewServer(config)
	if engineErr != nil {
		err = engineErr
		return
	}
	s = &Stream{
		ch:     ch,
		engine: engine,
	}
	return
}
