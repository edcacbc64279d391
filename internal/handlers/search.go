package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/index"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/paths"
	"media-catalog/internal/props"
	"media-catalog/internal/search"
	"media-catalog/internal/streaming"
)

const (
	defaultSearchLimit = 500
	maxSearchLimit     = 20000
	defaultPredictions = 10
	maxPredictions     = 100

	// flushEvery bounds how many results sit in the response buffer.
	flushEvery = 100
)

// ItemResponse is the JSON form of a catalogued file or folder.
type ItemResponse struct {
	Path            string              `json:"path"`
	Folder          string              `json:"folder"`
	Name            string              `json:"name"`
	Type            mediatypes.FileType `json:"type"`
	Size            int64               `json:"size"`
	Created         time.Time           `json:"created,omitzero"`
	Modified        time.Time           `json:"modified,omitzero"`
	Offline         bool                `json:"offline,omitempty"`
	HasThumbnail    bool                `json:"hasThumbnail,omitempty"`
	Duplicates      int                 `json:"duplicates,omitempty"`
	Match           string              `json:"match,omitempty"`
	MatchedProperty string              `json:"matchedProperty,omitempty"`
	Properties      map[string]string   `json:"properties,omitempty"`
}

// newItemResponse describes item in folder. Properties lists every
// metadata property that is set, formatted for display.
func newItemResponse(folder paths.Folder, item *catalog.FileItem, match search.Match) ItemResponse {
	resp := ItemResponse{
		Folder:       folder.Text(),
		Name:         item.Name,
		Type:         item.Type,
		Size:         item.Size,
		Created:      item.Created,
		Modified:     item.Modified,
		Offline:      item.Offline,
		HasThumbnail: item.HasThumbnail(),
	}
	if item.IsFolder() {
		resp.Path = folder.Combine(item.Name).Text()
	} else {
		resp.Path = paths.NewFile(folder, item.Name).Text()
	}
	if n := item.DuplicateCount(); n > 1 {
		resp.Duplicates = n
	}
	if match.Kind != search.NoMatch {
		resp.Match = match.Kind.String()
		if match.Kind == search.MatchProperty && match.Prop.IsValid() {
			resp.MatchedProperty = match.Prop.Name()
		}
	}

	if md := item.Metadata(); md != nil {
		for _, k := range props.All() {
			if v := md.Format(k); v != "" {
				if resp.Properties == nil {
					resp.Properties = make(map[string]string)
				}
				resp.Properties[k.Name()] = v
			}
		}
	}
	return resp
}

// parseQuery reads the q parameter the way a user typed it.
func (h *Handlers) parseQuery(r *http.Request) *search.Search {
	return search.ParseFromInput(r.URL.Query().Get("q"), h.state)
}

// Search streams matching items as a JSON array. With live=true the
// request supersedes any earlier live search, which is how a
// search-as-you-type client abandons stale queries.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	q := h.parseQuery(r)
	limit := intParam(r, "limit", defaultSearchLimit, maxSearchLimit)

	ctx := r.Context()
	if boolParam(r, "live") {
		var cancel func()
		ctx, cancel = h.state.BeginQuery(ctx)
		defer cancel()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	config := streaming.DefaultConfig()
	config.FlushEvery = flushEvery
	out := streaming.NewArrayWriter(ctx, w, config)

	_, cancelled := h.state.QueryItems(out.Context(), q, nil, func(hit index.Hit) bool {
		if err := out.Add(newItemResponse(hit.Folder, hit.Item, hit.Match)); err != nil {
			if errors.Is(err, streaming.ErrClientGone) || errors.Is(err, streaming.ErrWriteTimeout) ||
				errors.Is(err, streaming.ErrStreamCanceled) {
				return false
			}
			logging.Error("failed to encode search hit %s: %v", hit.File(), err)
			return true
		}
		return out.Items() < limit
	})

	if err := out.Close(); err != nil {
		logging.Debug("search response aborted after %d items: %v", out.Items(), err)
		return
	}
	if cancelled {
		logging.Debug("search %q cancelled after %d items", q.Text, out.Items())
	}
}

// Count returns how many files and folders a query matches.
func (h *Handlers) Count(w http.ResponseWriter, r *http.Request) {
	q := h.parseQuery(r)
	result := h.state.CountMatches(r.Context(), q)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

// Summary returns the catalog-wide histograms from the last index run.
func (h *Handlers) Summary(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.state.Summary())
}

// Stats returns live catalog counters.
func (h *Handlers) Stats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.state.Stats())
}

// Predictions returns completions for the last word of q.
func (h *Handlers) Predictions(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("q")
	limit := intParam(r, "limit", defaultPredictions, maxPredictions)

	// Only the word being typed is completed.
	prefix := text
	if i := strings.LastIndexAny(text, " \t"); i >= 0 {
		prefix = text[i+1:]
	}

	predictions := h.state.Predict(prefix, limit)
	if predictions == nil {
		predictions = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, predictions)
}
