package index

import (
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/paths"
)

// MergeFolder replaces the entry for folder with items. Items that match an
// unchanged item already in the catalog adopt its state, so a thin record
// from a rescan never discards richer metadata loaded earlier. It returns the
// new entry and the names of items that disappeared.
func (s *State) MergeFolder(folder paths.Folder, items []*catalog.FileItem, lastIndexed time.Time) (*catalog.FolderItem, []string) {
	next := catalog.NewFolderItem(folder, items, lastIndexed)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, _ := s.folders.Get(folder.Key())
	removed := adoptFrom(next, prev)
	if prev != nil {
		if next.Thumbnail == nil {
			next.Thumbnail = prev.Thumbnail
		}
		if lastIndexed.IsZero() {
			next.LastIndexed = prev.LastIndexed
			next.Indexed = prev.Indexed
		}
	}
	s.folders.Set(folder.Key(), next)
	return next, removed
}

// adoptFrom carries state over from prev into next for unchanged items and
// returns the names present in prev but not in next. Both lists are sorted,
// so a single merge pass is enough.
func adoptFrom(next, prev *catalog.FolderItem) []string {
	var removed []string
	a, b := next.Files(), prev.Files()
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch c := paths.CompareNames(a[i].Name, b[j].Name); {
		case c < 0:
			i++
		case c > 0:
			removed = append(removed, b[j].Name)
			j++
		default:
			if a[i] != b[j] && a[i].Unchanged(b[j]) {
				a[i].Adopt(b[j])
			}
			i++
			j++
		}
	}
	for ; j < len(b); j++ {
		removed = append(removed, b[j].Name)
	}
	return removed
}

// ReplaceItem inserts or substitutes a single item, creating the folder
// entry if needed. The replaced item's state is adopted when unchanged.
func (s *State) ReplaceItem(folder paths.Folder, item *catalog.FileItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.folders.Get(folder.Key())
	if !ok {
		s.folders.Set(folder.Key(), catalog.NewFolderItem(folder, []*catalog.FileItem{item}, time.Time{}))
		return
	}
	if old, found := cur.Find(item.Name); found && old != item && item.Unchanged(old) {
		item.Adopt(old)
	}
	s.folders.Set(folder.Key(), cur.Replace(item))
}

// RemoveItem drops a file from its folder entry and queues its removal.
func (s *State) RemoveItem(file paths.File) bool {
	s.mu.Lock()
	cur, ok := s.folders.Get(file.Folder().Key())
	if !ok {
		s.mu.Unlock()
		return false
	}
	next := cur.Remove(file.Name())
	changed := next != cur
	if changed {
		s.folders.Set(file.Folder().Key(), next)
	}
	s.mu.Unlock()

	if changed {
		s.enqueue(Write{Kind: WriteRemove, File: file, Folder: file.Folder()})
	}
	return changed
}

// RemoveFolder drops folder and, when recursive, every folder below it.
func (s *State) RemoveFolder(folder paths.Folder, recursive bool) int {
	victims := s.subtree(folder, recursive)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range victims {
		s.folders.Delete(v.Folder.Key())
	}
	return len(victims)
}

// SetFolderThumbnail attaches a thumbnail to a folder entry.
func (s *State) SetFolderThumbnail(folder paths.Folder, thumb []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.folders.Get(folder.Key())
	if !ok {
		return false
	}
	s.folders.Set(folder.Key(), cur.WithThumbnail(thumb))
	return true
}

// LinkSubfolders gives every catalogued folder an entry for each catalogued
// child it does not list yet. Cache loads deliver folders independently and
// only files are persisted, so parents learn of their children here.
func (s *State) LinkSubfolders() int {
	n := 0
	for _, f := range s.Folders() {
		if f.IsRoot() {
			continue
		}
		parent := s.FolderItem(f.Parent())
		if parent == nil {
			continue
		}
		if _, ok := parent.Find(f.Name()); ok {
			continue
		}
		s.ReplaceItem(f.Parent(), catalog.NewFolderEntry(f.Name(), time.Time{}))
		n++
	}
	return n
}
