package rkr

// MetricsRegisterer receives observability events from the engine's
// read/write loops. The rkr/metrics package provides a Prometheus-backed
// implementation; WithMetricsRegisterer installs any implementation, or
// none, in which case a no-op stands in.
type MetricsRegisterer interface {
	PacketSent(name string, bytes int)
	PacketReceived(name string, bytes int)
	EncodeDuration(seconds float64)
	DecodeDuration(seconds float64)
	TerminalError(kind string)
}

// noopMetrics is the zero-cost default MetricsRegisterer.
type noopMetrics struct{}

func (noopMetrics) PacketSent(string, int)     {}
func (noopMetrics) PacketReceived(string, int) {}
func (noopMetrics) EncodeDuration(float64)     {}
func (noopMetrics) DecodeDuration(float64)     {}
func (noopMetrics) TerminalError(string)       {}
