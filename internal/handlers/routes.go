package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes adds the API, health and metrics routes to router.
// A known path requested with the wrong method answers 405 on both routers.
func (h *Handlers) RegisterRoutes(router *mux.Router, metricsEnabled bool) {
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	api := router.PathPrefix("/api").Subrouter()
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	api.HandleFunc("/search", h.Search).Methods(http.MethodGet).Name("search")
	api.HandleFunc("/count", h.Count).Methods(http.MethodGet).Name("count")
	api.HandleFunc("/summary", h.Summary).Methods(http.MethodGet).Name("summary")
	api.HandleFunc("/stats", h.Stats).Methods(http.MethodGet).Name("stats")
	api.HandleFunc("/predictions", h.Predictions).Methods(http.MethodGet).Name("predictions")
	api.HandleFunc("/thumbnail/{path:.*}", h.Thumbnail).Methods(http.MethodGet, http.MethodHead).Name("thumbnail")

	api.HandleFunc("/items", h.Item).Methods(http.MethodGet).Name("item")
	api.HandleFunc("/items/crc", h.ComputeCRC).Methods(http.MethodPost).Name("item-crc")
	api.HandleFunc("/items/position", h.SavePosition).Methods(http.MethodPost).Name("item-position")
	api.HandleFunc("/items/location", h.SaveLocation).Methods(http.MethodPost).Name("item-location")

	api.HandleFunc("/imports", h.RecordImport).Methods(http.MethodPost).Name("import-record")
	api.HandleFunc("/imports/check", h.CheckImport).Methods(http.MethodGet).Name("import-check")

	api.HandleFunc("/reindex", h.TriggerReindex).Methods(http.MethodPost).Name("reindex")
	api.HandleFunc("/maintenance", h.Maintenance).Methods(http.MethodPost).Name("maintenance")
	api.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet).Name("version")

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet).Name("health")
	router.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet).Name("healthz")
	router.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead).Name("livez")
	router.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet).Name("readyz")

	if metricsEnabled {
		router.Handle("/metrics", h.metricsHandler()).Methods(http.MethodGet).Name("metrics")
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, r.Method+" not allowed on "+r.URL.Path, http.StatusMethodNotAllowed)
}
