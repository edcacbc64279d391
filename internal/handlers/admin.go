package handlers

import (
	"errors"
	"net/http"

	"media-catalog/internal/indexer"
	"media-catalog/internal/logging"
)

// TriggerReindex starts a background rescan. full=true re-reads every
// folder and re-extracts metadata.
func (h *Handlers) TriggerReindex(w http.ResponseWriter, r *http.Request) {
	if h.indexer.IsIndexing() {
		writeJSONStatus(w, http.StatusConflict, "already_indexing")
		return
	}

	full := boolParam(r, "full")
	logging.Info("Re-index requested (full=%v)", full)
	h.indexer.TriggerIndex(full)

	writeJSONStatus(w, http.StatusAccepted, "started")
}

// Maintenance compacts the database, or with reset=true discards the
// database and catalog and rebuilds them in the background.
func (h *Handlers) Maintenance(w http.ResponseWriter, r *http.Request) {
	reset := boolParam(r, "reset")

	if reset {
		if err := h.indexer.TriggerMaintenance(true); err != nil {
			maintenanceError(w, err)
			return
		}
		logging.Info("Catalog reset requested")
		writeJSONStatus(w, http.StatusAccepted, "reset_started")
		return
	}

	if err := h.indexer.Maintenance(r.Context(), false); err != nil {
		maintenanceError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, "compacted")
}

func maintenanceError(w http.ResponseWriter, err error) {
	if errors.Is(err, indexer.ErrIndexing) {
		writeJSONStatus(w, http.StatusConflict, "already_indexing")
		return
	}
	logging.Error("Maintenance failed: %v", err)
	writeJSONError(w, "maintenance failed", http.StatusInternalServerError)
}
