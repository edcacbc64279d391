package handlers

import (
	"net/http"
	"runtime"

	"media-catalog/internal/indexer"
	"media-catalog/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse is the indexer's health plus catalog and runtime totals.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	indexer.HealthStatus

	TotalFiles   int `json:"totalFiles"`
	TotalFolders int `json:"totalFolders"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// healthStatus is "starting" until the cached catalog is loaded. A ready
// catalog whose first index failed, or whose database writes fail, still
// serves searches from memory and is "degraded".
func healthStatus(s indexer.HealthStatus) string {
	switch {
	case !s.Ready:
		return statusStarting
	case s.InitialIndexError != "" || s.DatabaseErrors:
		return statusDegraded
	}
	return statusHealthy
}

// HealthCheck reports the service health. It answers 503 until the
// catalog is ready.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	status := h.indexer.GetHealthStatus()
	summary := h.state.Summary()

	response := HealthResponse{
		Status:       healthStatus(status),
		Version:      startup.Version,
		HealthStatus: status,
		TotalFiles:   summary.Files,
		TotalFolders: summary.Folders,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, response)
}

// LivenessCheck answers 200 while the process serves HTTP.
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSONStatus(w, http.StatusOK, "alive")
}

// ReadinessCheck answers 200 once the cached catalog is loaded and
// searches can be served.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.indexer.IsReady() {
		writeJSONStatus(w, http.StatusOK, "ready")
		return
	}
	writeJSONStatus(w, http.StatusServiceUnavailable, "not_ready")
}
