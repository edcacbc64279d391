package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"media-catalog/internal/catalog"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metrics"
	"media-catalog/internal/paths"
)

// ScanFlags control how much work a scan does.
type ScanFlags struct {
	// Metadata extracts metadata and content hashes.
	Metadata bool
	// Thumbnails generates thumbnails for items without one.
	Thumbnails bool
	// OnlyIfNeeded skips folders not modified since they were last indexed
	// and items that already carry metadata.
	OnlyIfNeeded bool
	// IncludeOffline retries items that were unreadable on the last scan.
	IncludeOffline bool
	// Refresh re-reads folders already loaded from the database cache
	// instead of trusting it.
	Refresh bool
}

// ScanResult summarises a scan.
type ScanResult struct {
	Folders   int
	Files     int
	Extracted int
	Offline   int
	Errors    int
	Cancelled bool
}

func (r *ScanResult) add(o ScanResult) {
	r.Folders += o.Folders
	r.Files += o.Files
	r.Extracted += o.Extracted
	r.Offline += o.Offline
	r.Errors += o.Errors
}

// ScanItems scans folders and, when recursive, every sub-folder found,
// with at most Options.Workers folders in flight. Failures are counted and
// logged but never stop the scan. Cancellation is checked per folder.
func (s *State) ScanItems(ctx context.Context, folders []paths.Folder, flags ScanFlags, recursive bool) ScanResult {
	s.activeScans.Add(1)
	defer s.activeScans.Add(-1)

	var (
		mu     sync.Mutex
		result ScanResult
	)
	level := folders
	for len(level) > 0 {
		var next []paths.Folder
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for _, folder := range level {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if s.throttle != nil {
					if err := s.throttle.Wait(gctx); err != nil {
						return nil
					}
				}
				if gctx.Err() != nil {
					return nil
				}
				item, r, err := s.scanFolder(gctx, folder, flags)
				mu.Lock()
				defer mu.Unlock()
				result.add(r)
				if err != nil {
					result.Errors++
					logging.Warn("Scan of %s failed: %v", folder, err)
				}
				if recursive && item != nil {
					for _, child := range item.Files() {
						if child.IsFolder() {
							next = append(next, folder.Combine(child.Name))
						}
					}
				}
				return nil
			})
		}
		_ = g.Wait()
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}
		level = next
	}
	return result
}

// ScanFolder scans a single folder.
func (s *State) ScanFolder(ctx context.Context, folder paths.Folder, flags ScanFlags) (*catalog.FolderItem, error) {
	s.activeScans.Add(1)
	defer s.activeScans.Add(-1)
	item, _, err := s.scanFolder(ctx, folder, flags)
	return item, err
}

func (s *State) scanFolder(ctx context.Context, folder paths.Folder, flags ScanFlags) (*catalog.FolderItem, ScanResult, error) {
	start := time.Now()
	defer func() {
		metrics.IndexerFolderScanDuration.Observe(time.Since(start).Seconds())
	}()

	var result ScanResult
	prev := s.FolderItem(folder)

	var entry *catalog.FolderItem
	switch {
	case prev != nil && prev.Indexed && !flags.Refresh:
		entry = prev
	case prev != nil && prev.Indexed && flags.OnlyIfNeeded && !s.modifiedSince(folder, prev.LastIndexed):
		entry = prev
	default:
		items, offline, err := s.readFolder(folder)
		if err != nil {
			s.recordError()
			result.Offline = s.markOffline(folder, prev)
			return s.FolderItem(folder), result, err
		}
		now := s.now()
		var removed []string
		entry, removed = s.MergeFolder(folder, items, now)
		result.Offline += offline

		var writes []Write
		for _, name := range removed {
			writes = append(writes, Write{Kind: WriteRemove, File: paths.NewFile(folder, name), Folder: folder})
		}
		for _, item := range entry.Files() {
			if item.IsFolder() {
				continue
			}
			if old, ok := prev.Find(item.Name); !ok || old != item && !item.Unchanged(old) {
				writes = append(writes, propertiesWrite(paths.NewFile(folder, item.Name), item))
			}
		}
		writes = append(writes, Write{Kind: WriteFolder, Folder: folder, LastIndexed: now})
		s.enqueue(writes...)
	}
	result.Folders = 1

	for _, item := range entry.Files() {
		if item.IsFolder() {
			continue
		}
		result.Files++
		s.itemsScanned.Add(1)
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}
		if s.extract(ctx, folder, item, flags) {
			result.Extracted++
		}
	}
	if flags.Thumbnails && !result.Cancelled {
		s.pickFolderThumbnail(folder)
	}
	return s.FolderItem(folder), result, nil
}

// pickFolderThumbnail uses the first image thumbnail of a folder that has
// none of its own.
func (s *State) pickFolderThumbnail(folder paths.Folder) {
	entry := s.FolderItem(folder)
	if entry == nil || entry.Thumbnail != nil {
		return
	}
	for _, item := range entry.Files() {
		if item.Type != mediatypes.FileTypeImage || !item.HasThumbnail() {
			continue
		}
		if thumb, ok := s.Thumbnail(paths.NewFile(folder, item.Name)); ok {
			s.SaveFolderThumbnail(folder, thumb)
			return
		}
	}
}

// modifiedSince reports whether the folder's directory entry changed after t.
// Folders that cannot be stat'ed count as modified.
func (s *State) modifiedSince(folder paths.Folder, t time.Time) bool {
	info, err := filesystem.StatWithRetry(folder.Text(), s.retry)
	if err != nil {
		return true
	}
	return info.ModTime().After(t)
}

// readFolder lists a directory into catalog items. Hidden entries and files
// that are not media are skipped. Entries whose attributes cannot be read
// become offline items.
func (s *State) readFolder(folder paths.Folder) ([]*catalog.FileItem, int, error) {
	entries, err := filesystem.ReadDirWithRetry(folder.Text(), s.retry)
	if err != nil {
		return nil, 0, fmt.Errorf("read folder %s: %w", folder, err)
	}

	offline := 0
	items := make([]*catalog.FileItem, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		info, infoErr := e.Info()
		if e.IsDir() {
			var mod time.Time
			if infoErr == nil {
				mod = info.ModTime()
			}
			items = append(items, catalog.NewFolderEntry(name, mod))
			continue
		}
		if mediatypes.FromName(name) == mediatypes.FileTypeOther {
			continue
		}
		if infoErr != nil {
			logging.Debug("Cannot stat %s: %v", filepath.Join(folder.Text(), name), infoErr)
			items = append(items, catalog.NewFileItem(catalog.Attributes{Name: name, Offline: true}))
			offline++
			continue
		}
		items = append(items, catalog.NewFileItem(attributesOf(name, info)))
	}
	if offline > 0 {
		metrics.IndexerOfflineItems.Add(float64(offline))
	}
	return items, offline, nil
}

func attributesOf(name string, info os.FileInfo) catalog.Attributes {
	return catalog.Attributes{
		Name:     name,
		Size:     info.Size(),
		Created:  info.ModTime(),
		Modified: info.ModTime(),
	}
}

// markOffline flags every item of an unreadable folder as offline.
func (s *State) markOffline(folder paths.Folder, prev *catalog.FolderItem) int {
	if prev == nil {
		return 0
	}
	items := make([]*catalog.FileItem, 0, prev.Len())
	n := 0
	for _, old := range prev.Files() {
		if old.IsFolder() {
			items = append(items, old)
			continue
		}
		attrs := old.Attributes
		attrs.Offline = true
		item := catalog.NewFileItem(attrs)
		item.Adopt(old)
		items = append(items, item)
		n++
	}
	s.MergeFolder(folder, items, time.Time{})
	metrics.IndexerOfflineItems.Add(float64(n))
	return n
}

// extract fills in metadata, hash and thumbnail for an item as flags
// require and queues the results. It reports whether anything changed.
func (s *State) extract(ctx context.Context, folder paths.Folder, item *catalog.FileItem, flags ScanFlags) bool {
	if s.extractor == nil || item.Offline && !flags.IncludeOffline {
		return false
	}
	file := paths.NewFile(folder, item.Name)
	path := filepath.Join(folder.Text(), item.Name)
	changed := false

	if flags.Metadata && (!flags.OnlyIfNeeded || item.Metadata() == nil) {
		md, err := s.extractor.Extract(ctx, path, item.Type)
		if err != nil {
			metrics.MetadataExtractionsTotal.WithLabelValues(string(item.Type), "error").Inc()
			logging.Debug("Metadata extraction failed for %s: %v", path, err)
		} else {
			metrics.MetadataExtractionsTotal.WithLabelValues(string(item.Type), "success").Inc()
			item.SetMetadata(md.Merge(item.Metadata()))
			changed = true
		}
		if item.Hash == "" {
			if h, err := s.extractor.Hash(path); err == nil {
				// Hash is read by queries without a lock, so publish a copy.
				next := catalog.NewFileItem(withHash(item.Attributes, h))
				next.Adopt(item)
				s.ReplaceItem(folder, next)
				item = next
				changed = true
			}
		}
		if changed {
			s.enqueue(propertiesWrite(file, item))
		}
	}

	if flags.Thumbnails && !item.HasThumbnail() {
		start := time.Now()
		thumb, err := s.extractor.Thumbnail(ctx, path, item.Type)
		metrics.ThumbnailGenerationDuration.WithLabelValues(string(item.Type)).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ThumbnailGenerationsTotal.WithLabelValues(string(item.Type), "error").Inc()
			logging.Debug("Thumbnail failed for %s: %v", path, err)
		} else {
			metrics.ThumbnailGenerationsTotal.WithLabelValues(string(item.Type), "success").Inc()
			s.SaveThumbnail(file, thumb)
			changed = true
		}
	}
	return changed
}

func withHash(a catalog.Attributes, hash string) catalog.Attributes {
	a.Hash = hash
	return a
}

// ScanFile re-reads a single file, typically after a change notification.
// A file that no longer exists is removed from the catalog.
func (s *State) ScanFile(ctx context.Context, file paths.File, flags ScanFlags) error {
	path := filepath.Join(file.Folder().Text(), file.Name())
	info, err := filesystem.StatWithRetry(path, s.retry)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.RemoveItem(file)
			return nil
		}
		s.recordError()
		return fmt.Errorf("stat %s: %w", path, err)
	}

	var item *catalog.FileItem
	if info.IsDir() {
		item = catalog.NewFolderEntry(file.Name(), info.ModTime())
	} else {
		if mediatypes.FromName(file.Name()) == mediatypes.FileTypeOther {
			return nil
		}
		item = catalog.NewFileItem(attributesOf(file.Name(), info))
	}
	s.ReplaceItem(file.Folder(), item)
	if item.IsFolder() {
		return nil
	}
	s.enqueue(propertiesWrite(file, item))
	s.itemsScanned.Add(1)
	s.extract(ctx, file.Folder(), item, flags)
	return nil
}
