package index

import (
	"context"
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/metrics"
	"media-catalog/internal/paths"
	"media-catalog/internal/search"
)

// Hit is one matched item.
type Hit struct {
	Folder paths.Folder
	Item   *catalog.FileItem
	Match  search.Match
}

// File returns the path of the hit.
func (h Hit) File() paths.File {
	return paths.NewFile(h.Folder, h.Item.Name)
}

// CountResult summarises the matches of a search.
type CountResult struct {
	Files     int   `json:"files"`
	Folders   int   `json:"folders"`
	Size      int64 `json:"size"`
	Cancelled bool  `json:"cancelled"`
}

// BeginQuery returns a context for a new query and cancels the previous
// one. Only the most recent query keeps running.
func (s *State) BeginQuery(ctx context.Context) (context.Context, context.CancelFunc) {
	qctx, cancel := context.WithCancel(ctx)
	s.queryMu.Lock()
	s.generation.Add(1)
	if s.cancelQuery != nil {
		s.cancelQuery()
	}
	s.cancelQuery = cancel
	s.queryMu.Unlock()
	return qctx, cancel
}

// Generation returns the number of queries begun so far.
func (s *State) Generation() uint64 {
	return s.generation.Load()
}

// Resolve prepares a matcher for s, looking up the related file if any.
func (s *State) Resolve(q *search.Search) *search.Matcher {
	var related *catalog.FileItem
	if q.HasRelated() {
		related, _ = s.File(q.Related)
	}
	return search.NewMatcher(q, s.now(), related)
}

// candidates returns the folders a search needs to visit. Searches with
// selectors only visit the selected subtrees; related searches and plain
// searches visit everything.
func (s *State) candidates(q *search.Search) []*catalog.FolderItem {
	if q.HasRelated() || len(q.Selectors) == 0 {
		return s.snapshot(nil)
	}
	seen := make(map[string]struct{})
	var out []*catalog.FolderItem
	for _, sel := range q.Selectors {
		for _, f := range s.subtree(sel.Folder, sel.Recursive) {
			key := f.Folder.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// walk applies the matcher to every candidate item and calls fn for each
// match until fn returns false. Cancellation is checked once per folder.
// It reports whether the walk was cut short by ctx.
func (s *State) walk(ctx context.Context, q *search.Search, fn func(Hit) bool) bool {
	m := s.Resolve(q)
	for _, folder := range s.candidates(q) {
		if ctx.Err() != nil {
			return true
		}
		for _, item := range folder.Files() {
			match := m.MatchItem(folder.Folder, item)
			if !match.IsMatch() {
				continue
			}
			if !fn(Hit{Folder: folder.Folder, Item: item, Match: match}) {
				return false
			}
		}
	}
	return ctx.Err() != nil
}

func (s *State) observeQuery(kind string, start time.Time, matches int, cancelled bool) {
	status := "success"
	if cancelled {
		status = "cancelled"
	}
	metrics.QueriesTotal.WithLabelValues(kind, status).Inc()
	metrics.QueryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	metrics.QueryMatches.Observe(float64(matches))
}

// CountMatches counts the items q matches. A cancelled count returns what
// it accumulated so far with Cancelled set.
func (s *State) CountMatches(ctx context.Context, q *search.Search) CountResult {
	s.activeQueries.Add(1)
	defer s.activeQueries.Add(-1)
	start := time.Now()

	var res CountResult
	if q.IsEmpty() {
		s.observeQuery("count", start, 0, false)
		return res
	}
	folders := make(map[string]struct{})
	res.Cancelled = s.walk(ctx, q, func(h Hit) bool {
		if h.Item.IsFolder() {
			folders[h.Folder.Combine(h.Item.Name).Key()] = struct{}{}
			return true
		}
		res.Files++
		res.Size += h.Item.Size
		folders[h.Folder.Key()] = struct{}{}
		return true
	})
	res.Folders = len(folders)
	s.observeQuery("count", start, res.Files, res.Cancelled)
	return res
}

// QueryItems streams the items q matches to fn, skipping files whose key is
// in existing. fn returning false stops the query. It returns the number of
// hits delivered and whether ctx cancelled the query.
func (s *State) QueryItems(ctx context.Context, q *search.Search, existing map[string]struct{}, fn func(Hit) bool) (int, bool) {
	s.activeQueries.Add(1)
	defer s.activeQueries.Add(-1)
	start := time.Now()

	if q.IsEmpty() {
		s.observeQuery("search", start, 0, false)
		return 0, false
	}
	n := 0
	cancelled := s.walk(ctx, q, func(h Hit) bool {
		if len(existing) > 0 {
			if _, ok := existing[h.File().Key()]; ok {
				return true
			}
		}
		n++
		return fn(h)
	})
	s.observeQuery("search", start, n, cancelled)
	return n, cancelled
}
