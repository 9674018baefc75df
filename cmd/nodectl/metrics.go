package main

import (
	"net/http"

	"github.com/chronodb/nodecore/pkg/log"
	"github.com/chronodb/nodecore/pkg/metrics"
)

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())

	logger := log.WithComponent("nodectl")
	logger.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped: " + err.Error())
	}
}
