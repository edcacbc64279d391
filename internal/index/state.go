package index

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/btree"

	"media-catalog/internal/catalog"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metadata"
	"media-catalog/internal/metrics"
	"media-catalog/internal/paths"
)

// Store is the persistence the state reads back from.
type Store interface {
	// LoadThumbnail returns the stored thumbnail of a file.
	LoadThumbnail(file paths.File) ([]byte, bool)
	// Failures returns the number of failed database operations.
	Failures() int64
}

// Extractor reads metadata, thumbnails and content hashes from files.
type Extractor interface {
	Extract(ctx context.Context, path string, ft mediatypes.FileType) (*metadata.Metadata, error)
	Thumbnail(ctx context.Context, path string, ft mediatypes.FileType) ([]byte, error)
	Hash(path string) (string, error)
}

// Throttle holds back folder scans, typically under memory pressure.
type Throttle interface {
	Wait(ctx context.Context) error
}

// Options configures a State.
type Options struct {
	// Workers bounds concurrent folder scans. Zero means GOMAXPROCS.
	Workers  int
	// Throttle, when set, is waited on before each folder scan.
	Throttle Throttle
	Retry    filesystem.RetryConfig
	// Now is the clock used for indexing times and relative dates.
	Now func() time.Time
}

// State is the shared catalog.
type State struct {
	mu      sync.RWMutex
	folders *btree.Map[string, *catalog.FolderItem]

	summaryMu   sync.RWMutex
	summary     Summary
	predictions []prediction

	writesMu sync.Mutex
	writes   []Write

	queryMu     sync.Mutex
	generation  atomic.Uint64
	cancelQuery context.CancelFunc

	activeScans   atomic.Int32
	activeQueries atomic.Int32
	itemsScanned  atomic.Int64
	errors        atomic.Int64

	store     Store
	extractor Extractor
	workers   int
	throttle  Throttle
	retry     filesystem.RetryConfig
	now       func() time.Time
}

// New creates an empty catalog. store and extractor may be nil.
func New(store Store, extractor Extractor, opts Options) *State {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.InitialBackoff == 0 {
		opts.Retry = filesystem.DefaultRetryConfig()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &State{
		folders:   btree.NewMap[string, *catalog.FolderItem](0),
		store:     store,
		extractor: extractor,
		workers:   opts.Workers,
		throttle:  opts.Throttle,
		retry:     opts.Retry,
		now:       opts.Now,
	}
}

// Now returns the state's clock reading.
func (s *State) Now() time.Time { return s.now() }

// FolderItem returns the entry for folder, nil if it is not catalogued.
func (s *State) FolderItem(folder paths.Folder) *catalog.FolderItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, _ := s.folders.Get(folder.Key())
	return item
}

// File returns the catalogued item for file.
func (s *State) File(file paths.File) (*catalog.FileItem, bool) {
	return s.FolderItem(file.Folder()).Find(file.Name())
}

// FolderExists reports whether folder is catalogued.
func (s *State) FolderExists(folder paths.Folder) bool {
	return s.FolderItem(folder) != nil
}

// FileExists reports whether file is catalogued.
func (s *State) FileExists(file paths.File) bool {
	_, ok := s.File(file)
	return ok
}

// Folders returns all catalogued folders in key order.
func (s *State) Folders() []paths.Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]paths.Folder, 0, s.folders.Len())
	s.folders.Scan(func(_ string, item *catalog.FolderItem) bool {
		out = append(out, item.Folder)
		return true
	})
	return out
}

// snapshot returns the current folder entries, or only those below the
// given selectors' roots. The index lock is released before returning.
func (s *State) snapshot(filter func(paths.Folder) bool) []*catalog.FolderItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*catalog.FolderItem, 0, s.folders.Len())
	s.folders.Scan(func(_ string, item *catalog.FolderItem) bool {
		if filter == nil || filter(item.Folder) {
			out = append(out, item)
		}
		return true
	})
	return out
}

// subtree returns the entry for root and, when recursive, every entry below
// it, using a range scan over the ordered folder keys.
func (s *State) subtree(root paths.Folder, recursive bool) []*catalog.FolderItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*catalog.FolderItem
	if item, ok := s.folders.Get(root.Key()); ok {
		out = append(out, item)
	}
	if !recursive {
		return out
	}
	prefix := root.SubtreePrefix()
	s.folders.Ascend(prefix, func(key string, item *catalog.FolderItem) bool {
		if len(key) < len(prefix) || key[:len(prefix)] != prefix {
			return false
		}
		if key != root.Key() {
			out = append(out, item)
		}
		return true
	})
	return out
}

// HasErrors reports whether any scan or database operation failed.
func (s *State) HasErrors() bool {
	if s.errors.Load() > 0 {
		return true
	}
	return s.store != nil && s.store.Failures() > 0
}

func (s *State) recordError() {
	s.errors.Add(1)
}

// Reset drops every folder, the summary, predictions and pending writes, and
// cancels the running query.
func (s *State) Reset() {
	s.queryMu.Lock()
	s.generation.Add(1)
	if s.cancelQuery != nil {
		s.cancelQuery()
		s.cancelQuery = nil
	}
	s.queryMu.Unlock()

	s.mu.Lock()
	s.folders.Clear()
	s.mu.Unlock()

	s.summaryMu.Lock()
	s.summary = Summary{}
	s.predictions = nil
	s.summaryMu.Unlock()

	s.writesMu.Lock()
	s.writes = nil
	s.writesMu.Unlock()
	metrics.WriteQueueDepth.Set(0)

	s.errors.Store(0)
}

// Stats describes the current catalog and activity.
type Stats struct {
	Folders       int   `json:"folders"`
	Files         int   `json:"files"`
	Offline       int   `json:"offline"`
	TotalSize     int64 `json:"totalSize"`
	PendingWrites int   `json:"pendingWrites"`
	ActiveScans   int   `json:"activeScans"`
	ActiveQueries int   `json:"activeQueries"`
	ItemsScanned  int64 `json:"itemsScanned"`
	Errors        int64 `json:"errors"`
}

// Stats counts folders and files without taking the summary lock.
func (s *State) Stats() Stats {
	st := Stats{
		PendingWrites: s.PendingWrites(),
		ActiveScans:   int(s.activeScans.Load()),
		ActiveQueries: int(s.activeQueries.Load()),
		ItemsScanned:  s.itemsScanned.Load(),
		Errors:        s.errors.Load(),
	}
	for _, f := range s.snapshot(nil) {
		st.Folders++
		for _, item := range f.Files() {
			if item.IsFolder() {
				continue
			}
			st.Files++
			st.TotalSize += item.Size
			if item.Offline {
				st.Offline++
			}
		}
	}
	return st
}

// GetStats implements metrics.StatsProvider from the last summary.
func (s *State) GetStats() metrics.Stats {
	sum := s.Summary()
	byType := make(map[string]int, len(sum.Types))
	for ft, n := range sum.Types {
		byType[string(ft)] = n
	}
	return metrics.Stats{
		FilesByType:     byType,
		Folders:         sum.Folders,
		Tags:            len(sum.Tags),
		DuplicateGroups: sum.DuplicateGroups,
		PendingWrites:   s.PendingWrites(),
	}
}
