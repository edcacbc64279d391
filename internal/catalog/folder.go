package catalog

import (
	"slices"
	"time"

	"media-catalog/internal/paths"
)

// FolderItem is the catalog entry for one folder. Files are kept sorted by
// case-insensitive name.
type FolderItem struct {
	Folder      paths.Folder
	LastIndexed time.Time
	Indexed     bool
	Thumbnail   []byte

	files []*FileItem
}

// NewFolderItem builds a folder entry. files is copied and sorted.
func NewFolderItem(folder paths.Folder, files []*FileItem, lastIndexed time.Time) *FolderItem {
	sorted := slices.Clone(files)
	slices.SortStableFunc(sorted, compareItems)
	sorted = slices.CompactFunc(sorted, func(a, b *FileItem) bool {
		return compareItems(a, b) == 0
	})
	return &FolderItem{
		Folder:      folder,
		LastIndexed: lastIndexed,
		Indexed:     !lastIndexed.IsZero(),
		files:       sorted,
	}
}

func compareItems(a, b *FileItem) int {
	return paths.CompareNames(a.Name, b.Name)
}

// Files returns the sorted items. The slice must not be modified.
func (f *FolderItem) Files() []*FileItem {
	if f == nil {
		return nil
	}
	return f.files
}

// Len returns the number of items.
func (f *FolderItem) Len() int {
	if f == nil {
		return 0
	}
	return len(f.files)
}

func (f *FolderItem) search(name string) (int, bool) {
	return slices.BinarySearchFunc(f.files, name, func(item *FileItem, n string) int {
		return paths.CompareNames(item.Name, n)
	})
}

// Find returns the item called name.
func (f *FolderItem) Find(name string) (*FileItem, bool) {
	if f == nil {
		return nil, false
	}
	i, ok := f.search(name)
	if !ok {
		return nil, false
	}
	return f.files[i], true
}

func (f *FolderItem) clone(files []*FileItem) *FolderItem {
	c := *f
	c.files = files
	return &c
}

// Replace returns a copy with item inserted or substituted by name.
func (f *FolderItem) Replace(item *FileItem) *FolderItem {
	i, ok := f.search(item.Name)
	files := make([]*FileItem, 0, len(f.files)+1)
	files = append(files, f.files[:i]...)
	files = append(files, item)
	if ok {
		i++
	}
	files = append(files, f.files[i:]...)
	return f.clone(files)
}

// Remove returns a copy without the item called name. The receiver is
// returned unchanged when no such item exists.
func (f *FolderItem) Remove(name string) *FolderItem {
	i, ok := f.search(name)
	if !ok {
		return f
	}
	files := slices.Concat(f.files[:i], f.files[i+1:])
	return f.clone(files)
}

// WithThumbnail returns a copy carrying a folder thumbnail.
func (f *FolderItem) WithThumbnail(thumb []byte) *FolderItem {
	c := f.clone(f.files)
	c.Thumbnail = thumb
	return c
}

// TotalSize returns the sum of file sizes.
func (f *FolderItem) TotalSize() int64 {
	var n int64
	for _, item := range f.Files() {
		n += item.Size
	}
	return n
}
