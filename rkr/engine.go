package rkr

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/coalforge/rkr/eventbus"
	"github.com/coalforge/rkr/framebuf"
	"github.com/coalforge/rkr/mcd"
	"github.com/coalforge/rkr/mcd/crypto"
)

// Engine drives one client connection end to end: it owns the socket, the
// inbound ring buffer, the outbound frame channel, the Framer that turns
// bytes into packets and back, and the event bus packet handlers dispatch
// through. The outbound side has no framebuf.Buffer: each encoded frame is
// queued on the channel and written as a whole by the write loop. Send is
// safe to call from any goroutine, including from inside an event-bus
// callback running on the read loop.
type Engine struct {
	conn net.Conn

	logger   Logger
	registry *mcd.Registry
	bus      *eventbus.Bus
	framer   *Framer
	metrics  MetricsRegisterer
	rng      io.Reader

	inbound  *framebuf.Buffer
	outbound chan []byte

	idleTimeout time.Duration

	// encResponseFactory and pendingSecret belong to the encryption
	// handshake, which runs as a strict sequence of calls made by the read
	// loop: no concurrent access, so no lock.
	encResponseFactory EncryptionResponseFactory
	pendingSecret      [crypto.KeySize]byte

	closed            atomic.Bool
	shutdownRequested atomic.Bool
	cancel            context.CancelFunc
	killOnce          sync.Once
}

// New constructs an Engine from the given options. WithRegistry is
// required; every other option has a default grounded in the connection
// defaults this engine is built on.
func New(opts ...EngineOption) (*Engine, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	if o.registry == nil {
		return nil, errors.New("rkr: WithRegistry is required")
	}
	if o.rng == nil {
		o.rng = rand.Reader
	}

	bus := eventbus.New()
	bus.RegisterEvent(EventConnect)
	bus.RegisterEvent(EventKill)
	o.registry.Each(func(state mcd.State, dir mcd.Direction, id int32, name string) {
		bus.RegisterEvent(name)
	})

	e := &Engine{
		logger:             o.logger,
		registry:           o.registry,
		bus:                bus,
		metrics:            o.metricsRegisterer,
		rng:                o.rng,
		inbound:            framebuf.New(o.inboundBuffer),
		outbound:           make(chan []byte, o.bufferSize),
		idleTimeout:        o.idleTimeout,
		encResponseFactory: o.encResponseFactory,
	}
	e.framer = NewFramer(o.registry, bus, o.logger)

	return e, nil
}

// Bus returns the engine's event bus, for subscribing to packet and control
// events. Safe to call before or after Connect.
func (e *Engine) Bus() *eventbus.Bus {
	return e.bus
}

// ConnectInfo is the payload of the "io_connect" event, emitted once a
// socket connection has been established and before the read/write loops
// start.
type ConnectInfo struct {
	Addr string
	Port int
}

// EventConnect is the name of the event emitted after a successful Connect.
const EventConnect = "io_connect"

// EventKill is the name of the event emitted exactly once, with the
// terminal error as payload, when the connection ends abnormally: a
// malformed frame, an unrecoverable decode error, a failed encryption
// handshake, or any other condition the engine cannot recover from.
const EventKill = "kill"

// SetState moves the framer to a new protocol state, e.g. after a
// LoginSuccess packet.
func (e *Engine) SetState(s mcd.State) {
	e.framer.SetState(s)
}

// Connect dials host:port and starts the engine's read and write loops.
// Connect blocks until the connection ends, either because the remote
// closed it, an unrecoverable decode error occurred, or ctx was canceled.
func (e *Engine) Connect(ctx context.Context, host string, port int) error {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return errors.Wrap(err, "rkr: dial")
	}
	return e.run(ctx, conn, ConnectInfo{Addr: host, Port: port})
}

// run starts the read/write loops over an already-established conn and
// blocks until they stop. Split out from Connect so tests can drive the
// engine over a connection they set up themselves (a loopback TCP pair)
// instead of one dialed by Connect.
func (e *Engine) run(ctx context.Context, conn net.Conn, info ConnectInfo) error {
	e.conn = conn

	e.logger.Info("connected", "addr", conn.RemoteAddr())
	if err := e.bus.EmitByName(EventConnect, info, "rkr.ConnectInfo"); err != nil && err != eventbus.ErrUnknownEvent {
		e.logger.Warn("emit io_connect failed", "error", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	group, child := errgroup.WithContext(runCtx)

	group.Go(func() error {
		return e.readLoop(child)
	})
	group.Go(func() error {
		return e.writeLoop(child)
	})

	err := group.Wait()
	e.closeConn()

	if err == nil || errors.Is(err, context.Canceled) {
		e.logger.Info("connection closed")
	} else if e.shutdownRequested.Load() {
		// Shutdown unblocks the read/write loops with a "closed connection"
		// error of its own; that's an artifact of tearing down, not a
		// kill-worthy condition.
		e.logger.Info("connection closed", "error", err)
	} else {
		e.logger.Info("connection closed with error", "error", err)
		e.terminate(err)
	}
	return err
}

// Send encodes pkt through the framer and queues the resulting frame for
// the write loop. Send returns once the frame is queued, not once it has
// reached the socket.
func (e *Engine) Send(pkt mcd.Packet) error {
	if e.closed.Load() {
		return ErrConnectionClosed
	}

	start := time.Now()
	frame, err := e.framer.EncodePacket(pkt)
	e.metrics.EncodeDuration(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	e.metrics.PacketSent(pkt.Name(), len(frame))

	queued := false
	select {
	case e.outbound <- frame:
		queued = true
	default:
	}
	if !queued {
		select {
		case e.outbound <- frame:
			queued = true
		case <-time.After(e.idleTimeout):
			return errors.New("rkr: send buffer full")
		}
	}

	// The shared secret must not be encrypted with itself: flip encryption
	// on only now that this packet's bytes are already queued for the
	// write loop, never before.
	if _, ok := pkt.(EncryptionSecretPayload); ok {
		e.onServerboundEncryptionBegin()
	}

	return nil
}

// Shutdown closes the connection and stops the read/write loops. Safe to
// call multiple times and from any goroutine.
func (e *Engine) Shutdown() error {
	e.shutdownRequested.Store(true)
	if e.closed.Swap(true) {
		return nil
	}
	if e.cancel != nil {
		e.cancel()
	}
	if e.conn != nil {
		return e.conn.Close()
	}
	return nil
}

// fail logs err, marks it as a terminal condition and tears the connection
// down. Used by control-event handlers, which run on the read loop and have
// no other way to propagate a failure out of a callback.
func (e *Engine) fail(err error) {
	e.logger.Error("terminal error", "error", err)
	e.terminate(err)
	_ = e.Shutdown()
}

// terminate records the terminal-error metric and emits the kill event
// exactly once for this connection. fail (from a control-event handler) and
// run's own error path both funnel through here: Shutdown, triggered by
// fail, makes the read loop's blocked conn.Read return its own error, which
// would otherwise reach run's error branch and fire a second time.
func (e *Engine) terminate(err error) {
	e.killOnce.Do(func() {
		e.metrics.TerminalError(rootCauseTag(err))
		if kerr := e.bus.EmitByName(EventKill, err, "error"); kerr != nil && kerr != eventbus.ErrUnknownEvent {
			e.logger.Warn("emit kill failed", "error", kerr)
		}
	})
}

func (e *Engine) readLoop(ctx context.Context) error {
	const readChunk = 4096
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_ = e.conn.SetReadDeadline(time.Now().Add(e.idleTimeout * 2))

		dst := e.inbound.Prepare(readChunk)
		n, err := e.conn.Read(dst)
		if n > 0 {
			chunk := dst[:n]
			e.framer.DecryptInPlace(chunk)
			e.inbound.Commit(n)
		}
		if err != nil {
			return errors.Wrap(err, "rkr: read")
		}

		for {
			start := time.Now()
			ok, result, derr := e.framer.TryDecode(e.inbound)
			e.metrics.DecodeDuration(time.Since(start).Seconds())
			if derr != nil {
				return derr
			}
			if !ok {
				break
			}
			e.metrics.PacketReceived(result.Name, result.FrameLen)

			if begin, ok := result.Packet.(EncryptionBeginPayload); ok {
				e.onClientboundEncryptionBegin(begin)
			}
			if c, ok := result.Packet.(CompressPayload); ok {
				e.onClientboundCompress(c)
			}
		}
	}
}

func (e *Engine) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-e.outbound:
			_ = e.conn.SetWriteDeadline(time.Now().Add(e.idleTimeout * 2))
			if _, err := e.conn.Write(frame); err != nil {
				return errors.Wrap(err, "rkr: write")
			}
		}
	}
}

func (e *Engine) closeConn() {
	e.closed.Store(true)
	if e.conn != nil {
		_ = e.conn.Close()
	}
}

// rootCauseTag derives a short metrics label from a terminal error, falling
// back to a generic tag for anything that isn't one of the engine's own
// sentinels.
func rootCauseTag(err error) string {
	switch {
	case errors.Is(err, ErrMalformedFrame):
		return "malformed_frame"
	case errors.Is(err, ErrUnknownPacket):
		return "unknown_packet"
	case errors.Is(err, ErrConnectionClosed):
		return "connection_closed"
	default:
		return "other"
	}
}
