package indexer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"media-catalog/internal/index"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
	"media-catalog/internal/paths"
)

// defaultDebounce is how long the watcher waits for a burst of events to
// settle before rescanning.
const defaultDebounce = 500 * time.Millisecond

// Watcher applies file system change notifications to the catalog.
type Watcher struct {
	state *index.State
	flags index.ScanFlags
	fsw   *fsnotify.Watcher
	delay time.Duration

	mu      sync.Mutex
	pending map[string]fsnotify.Op
	watched int
}

// NewWatcher creates a watcher that rescans changed items with flags.
func NewWatcher(state *index.State, flags index.ScanFlags) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		state:   state,
		flags:   flags,
		fsw:     fsw,
		delay:   defaultDebounce,
		pending: make(map[string]fsnotify.Op),
	}, nil
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Watched returns the number of directories being watched.
func (w *Watcher) Watched() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watched
}

// AddRoots watches every non-hidden directory below roots.
func (w *Watcher) AddRoots(roots []paths.Folder) {
	for _, root := range roots {
		w.addTree(root.Text())
	}
	logging.Debug("Catalog watcher started, watching %d directories", w.Watched())
}

// addTree adds dir and all directories below it.
func (w *Watcher) addTree(dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(path) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", path, addErr)
			metrics.WatcherErrors.Inc()
			return nil
		}
		w.mu.Lock()
		w.watched++
		w.mu.Unlock()
		metrics.WatchedDirectories.Inc()
		return nil
	})
	if err != nil {
		logging.Error("failed to walk %s for watcher: %v", dir, err)
		metrics.WatcherErrors.Inc()
	}
}

// forget accounts for n watched directories that were deleted. fsnotify
// drops their watches itself.
func (w *Watcher) forget(n int) {
	w.mu.Lock()
	n = min(n, w.watched)
	w.watched -= n
	w.mu.Unlock()
	metrics.WatchedDirectories.Sub(float64(n))
}

// Run processes events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	timer := time.NewTimer(w.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.record(event) {
				timer.Reset(w.delay)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()

		case <-timer.C:
			w.apply(ctx)
		}
	}
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// record queues an event for the next batch. It reports whether the event
// needs any work.
func (w *Watcher) record(event fsnotify.Event) bool {
	if isHidden(event.Name) {
		return false
	}
	metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()
	if event.Op == fsnotify.Chmod {
		return false
	}

	w.mu.Lock()
	w.pending[event.Name] |= event.Op
	w.mu.Unlock()
	return true
}

// eventType returns a string representation of the fsnotify operation
func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}

// apply rescans everything touched since the last batch.
func (w *Watcher) apply(ctx context.Context) {
	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.mu.Unlock()

	for path, op := range batch {
		if ctx.Err() != nil {
			return
		}
		w.applyOne(ctx, path, op)
	}
}

func (w *Watcher) applyOne(ctx context.Context, path string, op fsnotify.Op) {
	file := paths.ParseFile(path)
	info, err := os.Stat(path)
	if err != nil {
		// Gone: drop the folder subtree, if it was one, and the entry.
		folder := paths.NewFolder(path)
		if w.state.FolderExists(folder) {
			n := w.state.RemoveFolder(folder, true)
			w.forget(n)
			logging.Debug("Removed %d folders below %s", n, path)
		}
		if err := w.state.ScanFile(ctx, file, w.flags); err != nil {
			logging.Warn("Rescan of %s failed: %v", path, err)
		}
		return
	}

	if err := w.state.ScanFile(ctx, file, w.flags); err != nil {
		logging.Warn("Rescan of %s failed: %v", path, err)
		return
	}
	if info.IsDir() && op&(fsnotify.Create|fsnotify.Rename) != 0 {
		w.addTree(path)
		folder := paths.NewFolder(path)
		r := w.state.ScanItems(ctx, []paths.Folder{folder}, w.flags, true)
		logging.Debug("Indexed new folder %s: %d folders, %d files", path, r.Folders, r.Files)
	}
}
