// Package metrics provides a Prometheus-backed rkr.MetricsRegisterer for
// engines that want their packet traffic and terminal errors observable.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the namespace and registry the metrics are registered
// under.
type Config struct {
	// Namespace is the metrics namespace (default: "rkr").
	Namespace string
	// Subsystem is the metrics subsystem (default: "").
	Subsystem string
	// Registry is the Prometheus registerer to use (default:
	// prometheus.DefaultRegisterer).
	Registry prometheus.Registerer
	// Buckets are the histogram buckets for encode/decode duration.
	Buckets []float64
}

// Option configures a Config.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(ns string) Option {
	return func(c *Config) { c.Namespace = ns }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(sub string) Option {
	return func(c *Config) { c.Subsystem = sub }
}

// WithRegistry sets the Prometheus registerer.
func WithRegistry(r prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = r }
}

// WithBuckets sets the histogram buckets used for encode/decode duration.
func WithBuckets(b []float64) Option {
	return func(c *Config) { c.Buckets = b }
}

func defaultConfig() Config {
	return Config{
		Namespace: "rkr",
		Registry:  prometheus.DefaultRegisterer,
		Buckets:   prometheus.DefBuckets,
	}
}

// Metrics implements rkr.MetricsRegisterer with a fixed set of Prometheus
// collectors: packet counters and byte counters labeled by packet name,
// encode/decode duration histograms, and a terminal-error counter labeled
// by cause.
type Metrics struct {
	packetsSent     *prometheus.CounterVec
	packetsReceived *prometheus.CounterVec
	bytesSent       *prometheus.CounterVec
	bytesReceived   *prometheus.CounterVec
	encodeDuration  prometheus.Histogram
	decodeDuration  prometheus.Histogram
	terminalErrors  *prometheus.CounterVec
}

// New registers and returns a Metrics instance.
func New(opts ...Option) *Metrics {
	c := defaultConfig()
	for _, opt := range opts {
		opt(&c)
	}

	factory := promauto.With(c.Registry)

	return &Metrics{
		packetsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.Namespace,
			Subsystem: c.Subsystem,
			Name:      "packets_sent_total",
			Help:      "Total number of packets sent, by packet name.",
		}, []string{"packet"}),

		packetsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.Namespace,
			Subsystem: c.Subsystem,
			Name:      "packets_received_total",
			Help:      "Total number of packets received, by packet name.",
		}, []string{"packet"}),

		bytesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.Namespace,
			Subsystem: c.Subsystem,
			Name:      "bytes_sent_total",
			Help:      "Total frame bytes sent, by packet name.",
		}, []string{"packet"}),

		bytesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.Namespace,
			Subsystem: c.Subsystem,
			Name:      "bytes_received_total",
			Help:      "Total frame bytes received, by packet name.",
		}, []string{"packet"}),

		encodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: c.Namespace,
			Subsystem: c.Subsystem,
			Name:      "encode_duration_seconds",
			Help:      "Time spent encoding one outbound packet into a frame.",
			Buckets:   c.Buckets,
		}),

		decodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: c.Namespace,
			Subsystem: c.Subsystem,
			Name:      "decode_duration_seconds",
			Help:      "Time spent decoding one inbound frame into a packet.",
			Buckets:   c.Buckets,
		}),

		terminalErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.Namespace,
			Subsystem: c.Subsystem,
			Name:      "terminal_errors_total",
			Help:      "Total number of terminal engine errors, by cause.",
		}, []string{"cause"}),
	}
}

// PacketSent implements rkr.MetricsRegisterer.
func (m *Metrics) PacketSent(name string, bytes int) {
	m.packetsSent.WithLabelValues(name).Inc()
	m.bytesSent.WithLabelValues(name).Add(float64(bytes))
}

// PacketReceived implements rkr.MetricsRegisterer.
func (m *Metrics) PacketReceived(name string, bytes int) {
	m.packetsReceived.WithLabelValues(name).Inc()
	m.bytesReceived.WithLabelValues(name).Add(float64(bytes))
}

// EncodeDuration implements rkr.MetricsRegisterer.
func (m *Metrics) EncodeDuration(seconds float64) {
	m.encodeDuration.Observe(seconds)
}

// DecodeDuration implements rkr.MetricsRegisterer.
func (m *Metrics) DecodeDuration(seconds float64) {
	m.decodeDuration.Observe(seconds)
}

// TerminalError implements rkr.MetricsRegisterer.
func (m *Metrics) TerminalError(cause string) {
	m.terminalErrors.WithLabelValues(cause).Inc()
}
