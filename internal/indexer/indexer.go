package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"media-catalog/internal/database"
	"media-catalog/internal/index"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
	"media-catalog/internal/paths"
)

const (
	// Minimum items loaded or indexed before marking server as ready
	minItemsForReady = 100

	defaultFlushInterval = 2 * time.Second

	// lastRunKey stores the last completed run in the web service cache.
	lastRunKey = "indexer:last_run"
)

// ErrIndexing is returned when an operation needs the indexer idle.
var ErrIndexing = errors.New("index already in progress")

// Config configures an Indexer.
type Config struct {
	// Roots are the top-level media folders.
	Roots []paths.Folder
	// IndexInterval is the time between periodic rescans. Zero disables them.
	IndexInterval time.Duration
	// FlushInterval is the time between write-back queue flushes.
	FlushInterval time.Duration
	// ExtractMetadata reads EXIF and container metadata during scans.
	ExtractMetadata bool
	// GenerateThumbnails renders thumbnails during scans.
	GenerateThumbnails bool
	// Watch enables fsnotify change notifications.
	Watch bool
}

// Indexer keeps the in-memory catalog in step with the file system and
// persists it through the database.
type Indexer struct {
	state *index.State
	db    *database.Database
	cfg   Config

	stopChan chan struct{}
	stopOnce sync.Once
	flushNow chan struct{}
	flushMu  sync.Mutex // held from dequeue to commit
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc

	indexMu              sync.Mutex
	isIndexing           bool
	lastIndexTime        time.Time
	initialIndexComplete bool
	initialIndexError    error
	startTime            time.Time

	// Progress tracking
	itemsLoaded    atomic.Int64
	filesIndexed   atomic.Int64
	foldersIndexed atomic.Int64
	indexProgress  atomic.Value

	watcher *Watcher

	// Callback when indexing completes
	onIndexComplete func()
}

// IndexProgress tracks the current indexing progress
type IndexProgress struct {
	FilesIndexed   int64     `json:"filesIndexed"`
	FoldersIndexed int64     `json:"foldersIndexed"`
	IsIndexing     bool      `json:"isIndexing"`
	StartedAt      time.Time `json:"startedAt,omitempty"`
}

// lastRun is persisted after every completed index.
type lastRun struct {
	Completed time.Time `json:"completed"`
	Duration  string    `json:"duration"`
	Folders   int       `json:"folders"`
	Files     int       `json:"files"`
	Errors    int       `json:"errors"`
}

// New creates a new Indexer instance.
func New(state *index.State, db *database.Database, cfg Config) *Indexer {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	idx := &Indexer{
		state:     state,
		db:        db,
		cfg:       cfg,
		stopChan:  make(chan struct{}),
		flushNow:  make(chan struct{}, 1),
		ctx:       context.Background(),
		startTime: time.Now(),
	}
	idx.indexProgress.Store(IndexProgress{})
	return idx
}

// SetOnIndexComplete sets a callback to be invoked when indexing completes.
func (idx *Indexer) SetOnIndexComplete(callback func()) {
	idx.onIndexComplete = callback
}

// State returns the catalog the indexer maintains.
func (idx *Indexer) State() *index.State {
	return idx.state
}

// scanFlags are the flags used by background scans.
func (idx *Indexer) scanFlags(full bool) index.ScanFlags {
	return index.ScanFlags{
		Metadata:     idx.cfg.ExtractMetadata,
		Thumbnails:   idx.cfg.GenerateThumbnails,
		OnlyIfNeeded: !full,
		Refresh:      true,
	}
}

// LoadCache fills the catalog from the database. Folders outside the
// configured roots are skipped.
func (idx *Indexer) LoadCache(ctx context.Context) (int, error) {
	start := time.Now()
	folders := 0
	n, err := idx.db.LoadIndexValues(ctx, func(b database.FolderBatch) {
		if !idx.inRoots(b.Folder) {
			return
		}
		idx.state.MergeFolder(b.Folder, b.Items, b.LastIndexed)
		if len(b.Thumbnail) > 0 {
			idx.state.SetFolderThumbnail(b.Folder, b.Thumbnail)
		}
		folders++
		idx.itemsLoaded.Add(int64(len(b.Items)))
	})
	if err != nil {
		return n, err
	}

	if v, ok := idx.db.WebCacheGet(ctx, lastRunKey); ok {
		var last lastRun
		if err := json.Unmarshal([]byte(v), &last); err == nil {
			idx.indexMu.Lock()
			idx.lastIndexTime = last.Completed
			idx.indexMu.Unlock()
		}
	}

	idx.state.LinkSubfolders()
	idx.state.UpdateSummary()
	idx.state.UpdatePredictions()
	logging.Info("Loaded %d cached items in %d folders in %v", n, folders, time.Since(start))
	return n, nil
}

func (idx *Indexer) inRoots(folder paths.Folder) bool {
	for _, root := range idx.cfg.Roots {
		if root.Contains(folder, true) {
			return true
		}
	}
	return false
}

// Start loads the cache and begins background indexing, flushing and,
// when configured, watching.
func (idx *Indexer) Start(ctx context.Context) error {
	ctx, idx.cancel = context.WithCancel(ctx)
	idx.ctx = ctx

	if _, err := idx.LoadCache(ctx); err != nil {
		logging.Warn("Cache load failed, starting from an empty catalog: %v", err)
	}

	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		idx.writeLoop(ctx)
	}()

	// Start initial index in background
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		logging.Info("Starting initial index in background...")
		if err := idx.Index(ctx, false); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("Initial index error: %v", err)
			idx.indexMu.Lock()
			idx.initialIndexError = err
			idx.indexMu.Unlock()
		}
	}()

	if idx.cfg.IndexInterval > 0 {
		idx.wg.Add(1)
		go func() {
			defer idx.wg.Done()
			idx.periodicIndex(ctx)
		}()
	}

	if idx.cfg.Watch {
		w, err := NewWatcher(idx.state, idx.scanFlags(false))
		if err != nil {
			logging.Error("Failed to create file watcher: %v", err)
			metrics.WatcherErrors.Inc()
		} else {
			idx.watcher = w
			w.AddRoots(idx.cfg.Roots)
			idx.wg.Add(1)
			go func() {
				defer idx.wg.Done()
				w.Run(ctx)
			}()
		}
	}
	return nil
}

// Stop halts background work and flushes pending writes.
func (idx *Indexer) Stop() {
	idx.stopOnce.Do(func() {
		close(idx.stopChan)
		if idx.cancel != nil {
			idx.cancel()
		}
	})
	idx.wg.Wait()
	if idx.watcher != nil {
		if err := idx.watcher.Close(); err != nil {
			logging.Warn("failed to close file watcher: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := idx.Flush(ctx); err != nil {
		logging.Error("Final flush failed, %d writes lost: %v", idx.state.PendingWrites(), err)
	}
}

// IsReady returns true if the server is ready to accept traffic.
func (idx *Indexer) IsReady() bool {
	if idx.itemsLoaded.Load()+idx.filesIndexed.Load()+idx.foldersIndexed.Load() >= minItemsForReady {
		return true
	}

	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.initialIndexComplete
}

// getProgress safely retrieves the current IndexProgress.
func (idx *Indexer) getProgress() IndexProgress {
	if progress, ok := idx.indexProgress.Load().(IndexProgress); ok {
		return progress
	}
	return IndexProgress{}
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready             bool           `json:"ready"`
	Indexing          bool           `json:"indexing"`
	StartTime         time.Time      `json:"startTime"`
	Uptime            string         `json:"uptime"`
	LastIndexed       time.Time      `json:"lastIndexed,omitempty"`
	InitialIndexError string         `json:"initialIndexError,omitempty"`
	ItemsLoaded       int64          `json:"itemsLoaded"`
	FilesIndexed      int64          `json:"filesIndexed"`
	FoldersIndexed    int64          `json:"foldersIndexed"`
	PendingWrites     int            `json:"pendingWrites"`
	DatabaseErrors    bool           `json:"databaseErrors"`
	IndexProgress     *IndexProgress `json:"indexProgress,omitempty"`
}

// GetHealthStatus returns detailed health information.
func (idx *Indexer) GetHealthStatus() HealthStatus {
	ready := idx.IsReady()

	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	progress := idx.getProgress()
	status := HealthStatus{
		Ready:          ready,
		Indexing:       idx.isIndexing,
		StartTime:      idx.startTime,
		Uptime:         time.Since(idx.startTime).String(),
		LastIndexed:    idx.lastIndexTime,
		ItemsLoaded:    idx.itemsLoaded.Load(),
		FilesIndexed:   idx.filesIndexed.Load(),
		FoldersIndexed: idx.foldersIndexed.Load(),
		PendingWrites:  idx.state.PendingWrites(),
		DatabaseErrors: idx.state.HasErrors(),
	}
	if idx.isIndexing {
		status.IndexProgress = &progress
	}
	if idx.initialIndexError != nil {
		status.InitialIndexError = idx.initialIndexError.Error()
	}
	return status
}

// Index rescans every root. A full index re-reads all folders and
// re-extracts metadata; otherwise unchanged folders are trusted.
func (idx *Indexer) Index(ctx context.Context, full bool) error {
	if !idx.tryStartIndexing() {
		logging.Info("Index already in progress, skipping...")
		return nil
	}
	defer idx.finishIndexing()
	return idx.index(ctx, full)
}

func (idx *Indexer) index(ctx context.Context, full bool) error {
	metrics.IndexerIsRunning.Set(1)
	defer metrics.IndexerIsRunning.Set(0)
	metrics.IndexerRunsTotal.Inc()

	startTime := time.Now()
	logging.Info("Starting catalog index of %d roots (full=%v)...", len(idx.cfg.Roots), full)
	idx.resetCounters(startTime)

	removed := idx.dropExcludedFolders()
	if removed > 0 {
		logging.Info("Dropped %d folders outside the configured roots", removed)
	}

	result := idx.state.ScanItems(ctx, idx.cfg.Roots, idx.scanFlags(full), true)
	idx.filesIndexed.Store(int64(result.Files))
	idx.foldersIndexed.Store(int64(result.Folders))
	metrics.IndexerFilesProcessed.Add(float64(result.Files))
	metrics.IndexerFoldersProcessed.Add(float64(result.Folders))
	if result.Errors > 0 {
		metrics.IndexerErrors.Add(float64(result.Errors))
	}

	if result.Cancelled {
		logging.Info("Index cancelled after %d folders", result.Folders)
		return ctx.Err()
	}

	sum := idx.state.UpdateSummary()
	idx.state.UpdatePredictions()
	idx.requestFlush()

	if cleaned, err := idx.db.Clean(ctx, idx.state.Folders()); err != nil {
		logging.Error("Error cleaning database: %v", err)
		metrics.IndexerErrors.Inc()
	} else if cleaned.Items+cleaned.Thumbnails+cleaned.Folders > 0 {
		logging.Info("Removed %d stale items, %d thumbnails and %d folders from the database",
			cleaned.Items, cleaned.Thumbnails, cleaned.Folders)
	}

	duration := time.Since(startTime)
	idx.finalizeIndex(ctx, startTime, result)
	metrics.IndexerLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.IndexerLastRunDuration.Set(duration.Seconds())

	logging.Info("Index complete: %d files, %d folders, %d extracted, %d offline, %d errors in %v (catalog: %d files, %d duplicate groups)",
		result.Files, result.Folders, result.Extracted, result.Offline, result.Errors, duration, sum.Files, sum.DuplicateGroups)
	return nil
}

// dropExcludedFolders removes catalogued folders that no root contains,
// for example roots removed from the configuration.
func (idx *Indexer) dropExcludedFolders() int {
	n := 0
	for _, f := range idx.state.Folders() {
		if !idx.inRoots(f) {
			n += idx.state.RemoveFolder(f, false)
		}
	}
	return n
}

// tryStartIndexing attempts to start indexing, returns false if already in progress.
func (idx *Indexer) tryStartIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	if idx.isIndexing {
		return false
	}
	idx.isIndexing = true
	return true
}

// finishIndexing marks indexing as complete.
func (idx *Indexer) finishIndexing() {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	idx.isIndexing = false
	idx.initialIndexComplete = true
}

// resetCounters resets the indexing counters.
func (idx *Indexer) resetCounters(startTime time.Time) {
	idx.filesIndexed.Store(0)
	idx.foldersIndexed.Store(0)
	idx.indexProgress.Store(IndexProgress{
		IsIndexing: true,
		StartedAt:  startTime,
	})
}

// finalizeIndex records the completed run.
func (idx *Indexer) finalizeIndex(ctx context.Context, startTime time.Time, result index.ScanResult) {
	now := time.Now()

	idx.indexMu.Lock()
	idx.lastIndexTime = now
	idx.indexMu.Unlock()

	idx.indexProgress.Store(IndexProgress{
		FilesIndexed:   int64(result.Files),
		FoldersIndexed: int64(result.Folders),
		IsIndexing:     false,
	})

	data, err := json.Marshal(lastRun{
		Completed: now,
		Duration:  now.Sub(startTime).String(),
		Folders:   result.Folders,
		Files:     result.Files,
		Errors:    result.Errors,
	})
	if err == nil {
		if err := idx.db.WebCacheSet(ctx, lastRunKey, string(data)); err != nil {
			logging.Warn("failed to record index run: %v", err)
		}
	}

	if idx.onIndexComplete != nil {
		idx.onIndexComplete()
	}
}

func (idx *Indexer) periodicIndex(ctx context.Context) {
	ticker := time.NewTicker(idx.cfg.IndexInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logging.Debug("Periodic re-index triggered")
			if err := idx.Index(ctx, false); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error("periodic re-index failed: %v", err)
			}
		case <-idx.stopChan:
			return
		}
	}
}

// IsIndexing returns whether an index operation is currently in progress.
func (idx *Indexer) IsIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.isIndexing
}

// LastIndexTime returns the time of the last completed index operation.
func (idx *Indexer) LastIndexTime() time.Time {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.lastIndexTime
}

// TriggerIndex manually triggers a re-index in the background.
func (idx *Indexer) TriggerIndex(full bool) {
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		if err := idx.Index(idx.ctx, full); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("manually triggered re-index failed: %v", err)
		}
	}()
}

// GetProgress returns the current indexing progress.
func (idx *Indexer) GetProgress() IndexProgress {
	return idx.getProgress()
}

// Maintenance compacts the database, or with reset discards it together
// with the in-memory catalog and rebuilds both from the file system.
func (idx *Indexer) Maintenance(ctx context.Context, reset bool) error {
	if !idx.tryStartIndexing() {
		return ErrIndexing
	}
	defer idx.finishIndexing()
	return idx.maintenance(ctx, reset)
}

// TriggerMaintenance starts Maintenance in the background. It fails with
// ErrIndexing straight away when an index or maintenance run is active.
func (idx *Indexer) TriggerMaintenance(reset bool) error {
	if !idx.tryStartIndexing() {
		return ErrIndexing
	}
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		defer idx.finishIndexing()
		if err := idx.maintenance(idx.ctx, reset); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("maintenance (reset=%v) failed: %v", reset, err)
		}
	}()
	return nil
}

func (idx *Indexer) maintenance(ctx context.Context, reset bool) error {
	if !reset {
		if err := idx.Flush(ctx); err != nil {
			logging.Warn("Flush before maintenance failed: %v", err)
		}
		return idx.db.Maintenance(ctx, false)
	}

	logging.Info("Resetting catalog and database")
	idx.state.Reset()
	if err := idx.db.Maintenance(ctx, true); err != nil {
		return err
	}
	idx.itemsLoaded.Store(0)
	return idx.index(ctx, true)
}
