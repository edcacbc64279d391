package handlers

import (
	"fmt"
	"net/http"

	"media-catalog/internal/media"
	"media-catalog/internal/metadata"
	"media-catalog/internal/search"
)

type itemRequest struct {
	Path string `json:"path"`
}

type positionRequest struct {
	Path     string `json:"path"`
	Position int64  `json:"position"`
}

type locationRequest struct {
	Path      string  `json:"path"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Item returns the catalog entry for ?path=.
func (h *Handlers) Item(w http.ResponseWriter, r *http.Request) {
	file, ok := parseFilePath(r.URL.Query().Get("path"))
	if !ok {
		writeJSONError(w, "path is required", http.StatusBadRequest)
		return
	}
	item, ok := h.state.File(file)
	if !ok {
		writeJSONError(w, "file not found in catalog", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, newItemResponse(file.Folder(), item, search.Match{}))
}

// ComputeCRC reads a catalogued file, stores its CRC-32 and returns it.
func (h *Handlers) ComputeCRC(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, ok := parseFilePath(req.Path)
	if !ok {
		writeJSONError(w, "path is required", http.StatusBadRequest)
		return
	}
	if _, ok := h.state.File(file); !ok {
		writeJSONError(w, "file not found in catalog", http.StatusNotFound)
		return
	}

	crc, err := media.CRC32(file.Text())
	if err != nil {
		writeJSONError(w, fmt.Sprintf("failed to read file: %v", err), http.StatusUnprocessableEntity)
		return
	}
	if !h.state.SaveCRC(file, crc) {
		writeJSONError(w, "file not found in catalog", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"path": file.Text(), "crc": fmt.Sprintf("%08X", crc)})
}

// SavePosition records a playback position in seconds.
func (h *Handlers) SavePosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, ok := parseFilePath(req.Path)
	if !ok {
		writeJSONError(w, "path is required", http.StatusBadRequest)
		return
	}
	if req.Position < 0 {
		writeJSONError(w, "position must not be negative", http.StatusBadRequest)
		return
	}
	if !h.state.SaveMediaPosition(file, req.Position) {
		writeJSONError(w, "file not found in catalog", http.StatusNotFound)
		return
	}
	writeJSONStatus(w, http.StatusOK, "saved")
}

// SaveLocation sets the GPS location of a catalogued file.
func (h *Handlers) SaveLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, ok := parseFilePath(req.Path)
	if !ok {
		writeJSONError(w, "path is required", http.StatusBadRequest)
		return
	}
	loc := metadata.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	if !loc.IsValid() {
		writeJSONError(w, "invalid coordinate", http.StatusBadRequest)
		return
	}

	if !h.state.SaveLocation(file, loc) {
		writeJSONError(w, "file not found in catalog", http.StatusNotFound)
		return
	}
	writeJSONStatus(w, http.StatusOK, "saved")
}
