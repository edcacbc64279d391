package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ImportRequest identifies an imported file by name, modification time and
// size.
type ImportRequest struct {
	Name     string    `json:"name"`
	Modified time.Time `json:"modified"`
	Size     int64     `json:"size"`
}

// RecordImport remembers an imported file.
func (h *Handlers) RecordImport(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.Size < 0 {
		writeJSONError(w, "name and a non-negative size are required", http.StatusBadRequest)
		return
	}

	if err := h.db.RecordImport(r.Context(), req.Name, req.Modified, req.Size); err != nil {
		writeJSONError(w, "failed to record import", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, http.StatusCreated, "recorded")
}

// CheckImport reports whether ?name=&modified=&size= was imported before.
// modified accepts Unix seconds or any common date layout.
func (h *Handlers) CheckImport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	name := strings.TrimSpace(query.Get("name"))
	if name == "" {
		writeJSONError(w, "name is required", http.StatusBadRequest)
		return
	}
	size, err := strconv.ParseInt(query.Get("size"), 10, 64)
	if err != nil || size < 0 {
		writeJSONError(w, "invalid size", http.StatusBadRequest)
		return
	}
	modified, err := parseTimeParam(query.Get("modified"))
	if err != nil {
		writeJSONError(w, "invalid modified time", http.StatusBadRequest)
		return
	}

	imported := h.db.IsImported(r.Context(), name, modified, size)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]bool{"imported": imported})
}

func parseTimeParam(value string) (time.Time, error) {
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(secs, 0), nil
	}
	return dateparse.ParseIn(value, time.UTC)
}
