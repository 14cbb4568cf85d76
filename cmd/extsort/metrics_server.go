package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// serveMetrics runs a Prometheus scrape endpoint for the lifetime of the
// process; it is only started when --metrics-addr is set.
func serveMetrics(addr string, logger *zap.SugaredLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warnf("extsort: metrics server exited: %v", err)
	}
}
