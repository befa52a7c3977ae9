package rkr

import (
	"io"
	"time"

	"github.com/coalforge/rkr/mcd"
)

// Default configuration values, mirrored from the connection defaults this
// engine is built on.
const (
	defaultBufferSize    = 16
	defaultInboundBuffer = 4096
	defaultIdleTimeout   = 30 * time.Second
)

// options holds the engine's configuration, assembled from a set of
// EngineOptions before New constructs an Engine. The event Bus is not
// configured here; New creates it.
type options struct {
	registry *mcd.Registry
	logger   Logger
	rng      io.Reader

	bufferSize    int
	inboundBuffer int
	idleTimeout   time.Duration

	encResponseFactory EncryptionResponseFactory

	metricsRegisterer MetricsRegisterer
}

// EngineOption configures an Engine constructed by New.
type EngineOption func(*options)

// WithRegistry supplies the codec table of packets the engine understands.
// Required: New returns an error if no registry is set.
func WithRegistry(registry *mcd.Registry) EngineOption {
	return func(o *options) { o.registry = registry }
}

// WithLogger overrides the default slog-backed logger.
func WithLogger(logger Logger) EngineOption {
	return func(o *options) { o.logger = logger }
}

// WithRandReader overrides the source of randomness used to generate the
// shared secret during the encryption handshake. Tests use this to make the
// handshake deterministic.
func WithRandReader(rng io.Reader) EngineOption {
	return func(o *options) { o.rng = rng }
}

// WithSendBuffer sets the capacity of the outbound frame channel.
func WithSendBuffer(n int) EngineOption {
	return func(o *options) { o.bufferSize = n }
}

// WithInboundBufferSize sets the initial capacity of the inbound ring
// buffer.
func WithInboundBufferSize(n int) EngineOption {
	return func(o *options) { o.inboundBuffer = n }
}

// WithIdleTimeout sets the read/write deadline applied on every socket
// operation; twice this value is used as the actual deadline, matching the
// heartbeat*2 convention.
func WithIdleTimeout(d time.Duration) EngineOption {
	return func(o *options) { o.idleTimeout = d }
}

// WithEncryptionResponseFactory supplies the constructor for the
// serverbound packet sent in response to a clientbound encryption-begin
// packet. Required if the codec table's login sequence includes
// encryption.
func WithEncryptionResponseFactory(fn EncryptionResponseFactory) EngineOption {
	return func(o *options) { o.encResponseFactory = fn }
}

// WithMetricsRegisterer wires a MetricsRegisterer (typically backed by a
// Prometheus registry) so the engine's counters and histograms are
// observable.
func WithMetricsRegisterer(m MetricsRegisterer) EngineOption {
	return func(o *options) { o.metricsRegisterer = m }
}

func defaultOptions() options {
	return options{
		logger:            defaultLogger(),
		bufferSize:        defaultBufferSize,
		inboundBuffer:     defaultInboundBuffer,
		idleTimeout:       defaultIdleTimeout,
		metricsRegisterer: noopMetrics{},
	}
}
