package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"media-catalog/internal/logging"
	"media-catalog/internal/media"
	"media-catalog/internal/paths"

	"github.com/gorilla/mux"
)

// Thumbnail serves the JPEG thumbnail of a catalogued file or folder. The
// path is the route remainder, e.g. /api/thumbnail/media/photos/a.jpg.
// Files without a stored thumbnail get one generated and queued for
// storage.
func (h *Handlers) Thumbnail(w http.ResponseWriter, r *http.Request) {
	text := mux.Vars(r)["path"]
	file, ok := parseFilePath(text)
	if !ok {
		writeJSONError(w, "path is required", http.StatusBadRequest)
		return
	}

	// A folder path serves the folder's chosen thumbnail.
	if entry := h.state.FolderItem(paths.NewFolder(file.Text())); entry != nil {
		if len(entry.Thumbnail) == 0 {
			writeJSONError(w, "folder has no thumbnail", http.StatusNotFound)
			return
		}
		writeThumbnail(w, entry.Thumbnail)
		return
	}

	item, ok := h.state.File(file)
	if !ok {
		writeJSONError(w, "file not found in catalog", http.StatusNotFound)
		return
	}

	if thumb, ok := h.state.Thumbnail(file); ok {
		writeThumbnail(w, thumb)
		return
	}

	if h.thumbGen == nil || item.Offline {
		writeJSONError(w, "thumbnail not available", http.StatusNotFound)
		return
	}

	thumb, err := h.thumbGen.Generate(r.Context(), file.Text(), item.Type)
	if err != nil {
		if errors.Is(err, media.ErrUnsupported) {
			writeJSONError(w, "thumbnail not available", http.StatusNotFound)
			return
		}
		logging.Warn("Thumbnail generation failed for %s: %v", file, err)
		writeJSONError(w, "thumbnail generation failed", http.StatusInternalServerError)
		return
	}

	h.state.SaveThumbnail(file, thumb)
	writeThumbnail(w, thumb)
}

func writeThumbnail(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		logging.Debug("failed to write thumbnail: %v", err)
	}
}
