package rkr

import "github.com/pkg/errors"

// Terminal errors. Any of these ends the engine's run loop: there is no
// per-packet recovery, since the Minecraft stream is stateful and
// re-synchronisation without a disconnect is impossible.
var (
	// ErrMalformedFrame covers a malformed length prefix or a compressed
	// frame whose inflated length doesn't match its announced length.
	ErrMalformedFrame = errors.New("rkr: malformed frame")
	// ErrUnknownPacket is returned when the codec table has no entry for
	// (state, direction, id).
	ErrUnknownPacket = errors.New("rkr: unknown packet id")
	// ErrConnectionClosed is returned by Send and friends once the engine
	// has shut down.
	ErrConnectionClosed = errors.New("rkr: connection closed")
	// ErrNotConnected reports that no connection has been established. No
	// Engine method returns it: Send queues frames for the write loop
	// whether or not Connect has completed.
	ErrNotConnected = errors.New("rkr: not connected")
	// ErrAlreadyConnected reports a second connection attempt on one Engine.
	// Connect does not check for this and does not return it.
	ErrAlreadyConnected = errors.New("rkr: already connected")
)
