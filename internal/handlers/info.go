package handlers

import (
	"net/http"

	"media-catalog/internal/startup"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// GetVersion returns the build information.
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, startup.GetBuildInfo())
}

// metricsHandler serves Prometheus metrics, refreshing the database file
// sizes on every scrape.
func (h *Handlers) metricsHandler() http.Handler {
	prom := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.db != nil {
			h.db.UpdateDBMetrics()
		}
		prom.ServeHTTP(w, r)
	})
}
