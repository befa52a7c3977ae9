package main

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coalforge/rkr/rkr/metrics"
)

// startMetrics wires up a Prometheus registry and, if addr is non-empty,
// serves it over /metrics in the background. An empty addr still returns a
// working MetricsRegisterer; it just isn't exposed anywhere.
func startMetrics(addr string) *metrics.Metrics {
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(reg), metrics.WithNamespace("rkr"))

	if addr == "" {
		return m
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Default().Warn("metrics server stopped", "error", err)
		}
	}()

	return m
}
