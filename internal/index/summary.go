package index

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"media-catalog/internal/catalog"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metrics"
	"media-catalog/internal/paths"
	"media-catalog/internal/props"
)

// Summary holds catalog-wide histograms.
type Summary struct {
	Files           int                         `json:"files"`
	Folders         int                         `json:"folders"`
	Offline         int                         `json:"offline"`
	TotalSize       int64                       `json:"totalSize"`
	Types           map[mediatypes.FileType]int `json:"types"`
	Tags            map[string]int              `json:"tags"`
	Labels          map[string]int              `json:"labels"`
	Ratings         map[int]int                 `json:"ratings"`
	DuplicateGroups int                         `json:"duplicateGroups"`
	Updated         time.Time                   `json:"updated"`
}

type prediction struct {
	text  string
	count int
}

// Summary returns the last computed summary.
func (s *State) Summary() Summary {
	s.summaryMu.RLock()
	defer s.summaryMu.RUnlock()
	return s.summary
}

// UpdateSummary recomputes the histograms and duplicate groups from a
// snapshot of the index. The index lock is released before the summary lock
// is taken.
func (s *State) UpdateSummary() Summary {
	folders := s.snapshot(nil)

	sum := Summary{
		Types:   make(map[mediatypes.FileType]int),
		Tags:    make(map[string]int),
		Labels:  make(map[string]int),
		Ratings: make(map[int]int),
		Updated: s.now(),
	}
	for _, f := range folders {
		sum.Folders++
		for _, item := range f.Files() {
			if item.IsFolder() {
				continue
			}
			sum.Files++
			sum.TotalSize += item.Size
			sum.Types[item.Type]++
			if item.Offline {
				sum.Offline++
			}
			md := item.Metadata()
			for _, tag := range md.TagList() {
				sum.Tags[tag]++
			}
			if md != nil {
				if md.Label != "" {
					sum.Labels[md.Label]++
				}
				if md.Rating > 0 {
					sum.Ratings[md.Rating]++
				}
			}
		}
	}
	sum.DuplicateGroups = linkDuplicates(folders)

	s.summaryMu.Lock()
	s.summary = sum
	s.summaryMu.Unlock()

	metrics.CatalogDuplicateGroups.Set(float64(sum.DuplicateGroups))
	return sum
}

// duplicateKey groups files by content hash when known, else by folded
// name and size. Files of unknown type are never grouped.
func duplicateKey(item *catalog.FileItem) (string, bool) {
	if item.IsFolder() || item.Type == mediatypes.FileTypeOther || item.Offline {
		return "", false
	}
	if item.Hash != "" {
		return "h:" + item.Hash, true
	}
	if item.Size <= 0 {
		return "", false
	}
	return "n:" + paths.Fold(item.Name) + ":" + strconv.FormatInt(item.Size, 10), true
}

// linkDuplicates assigns group ids to every set of two or more equivalent
// files and clears stale links. It returns the number of groups.
func linkDuplicates(folders []*catalog.FolderItem) int {
	groups := make(map[string][]*catalog.FileItem)
	var order []string
	for _, f := range folders {
		for _, item := range f.Files() {
			key, ok := duplicateKey(item)
			if !ok {
				if item.DuplicateGroup() != 0 {
					item.SetDuplicates(0, 0)
				}
				continue
			}
			if _, seen := groups[key]; !seen {
				order = append(order, key)
			}
			groups[key] = append(groups[key], item)
		}
	}

	var id int64
	for _, key := range order {
		members := groups[key]
		if len(members) < 2 {
			if members[0].DuplicateGroup() != 0 {
				members[0].SetDuplicates(0, 0)
			}
			continue
		}
		id++
		for _, item := range members {
			item.SetDuplicates(id, len(members))
		}
	}
	return int(id)
}

// UpdatePredictions rebuilds the autocomplete candidates from the current
// summary: tags as "#tag", labels, and scope words as "scope:".
func (s *State) UpdatePredictions() int {
	sum := s.Summary()

	var preds []prediction
	for tag, n := range sum.Tags {
		preds = append(preds, prediction{text: "#" + tag, count: n})
	}
	for label, n := range sum.Labels {
		preds = append(preds, prediction{text: label, count: n})
	}
	for ft, n := range sum.Types {
		if ft != mediatypes.FileTypeOther {
			preds = append(preds, prediction{text: "@" + string(ft), count: n})
		}
	}
	for _, scope := range props.ScopeNames() {
		preds = append(preds, prediction{text: scope + ":"})
	}
	slices.SortFunc(preds, func(a, b prediction) int {
		if a.count != b.count {
			return b.count - a.count
		}
		return strings.Compare(a.text, b.text)
	})

	s.summaryMu.Lock()
	s.predictions = preds
	s.summaryMu.Unlock()
	return len(preds)
}

// Predict returns up to limit completions for prefix, best first. An empty
// prefix returns the most frequent candidates.
func (s *State) Predict(prefix string, limit int) []string {
	s.summaryMu.RLock()
	preds := s.predictions
	s.summaryMu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	prefix = strings.TrimSpace(prefix)
	var out []string
	if prefix == "" {
		for _, p := range preds {
			if len(out) == limit {
				break
			}
			out = append(out, p.text)
		}
		return out
	}

	texts := make([]string, len(preds))
	for i, p := range preds {
		texts[i] = p.text
	}
	for _, m := range fuzzy.Find(prefix, texts) {
		if len(out) == limit {
			break
		}
		out = append(out, m.Str)
	}
	return out
}
