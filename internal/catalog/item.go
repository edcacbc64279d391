package catalog

import (
	"sync/atomic"
	"time"

	"media-catalog/internal/bloom"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metadata"
	"media-catalog/internal/paths"
)

// Attributes are the file system attributes of a file.
type Attributes struct {
	Name     string
	Size     int64
	Created  time.Time
	Modified time.Time
	// Hash is a quick content hash, empty until computed.
	Hash string
	// Offline marks files whose source could not be read on the last scan.
	Offline bool
}

// FileItem is one catalogued file.
type FileItem struct {
	Attributes
	Type mediatypes.FileType

	md        atomic.Pointer[metadata.Metadata]
	crc       atomic.Uint32
	position  atomic.Int64
	dupGroup  atomic.Int64
	dupCount  atomic.Int32
	bloomBits atomic.Uint32
	thumbnail atomic.Bool
}

// NewFileItem builds an item and classifies it by extension.
func NewFileItem(attrs Attributes) *FileItem {
	f := &FileItem{Attributes: attrs, Type: mediatypes.FromName(attrs.Name)}
	f.refreshBloom()
	return f
}

// NewFolderEntry builds an item that stands for a sub-folder.
func NewFolderEntry(name string, modified time.Time) *FileItem {
	f := &FileItem{
		Attributes: Attributes{Name: name, Modified: modified, Created: modified},
		Type:       mediatypes.FileTypeFolder,
	}
	f.refreshBloom()
	return f
}

// IsFolder reports whether the item stands for a sub-folder.
func (f *FileItem) IsFolder() bool {
	return f.Type == mediatypes.FileTypeFolder
}

// Ext returns the lower-case extension without its dot.
func (f *FileItem) Ext() string {
	return paths.Ext(f.Name)
}

// Metadata returns the current metadata snapshot, or nil if none is loaded.
func (f *FileItem) Metadata() *metadata.Metadata {
	return f.md.Load()
}

// SetMetadata publishes a new metadata record. The record must not be
// modified afterwards.
func (f *FileItem) SetMetadata(md *metadata.Metadata) {
	f.md.Store(md)
	f.refreshBloom()
}

// CRC returns the stored content CRC, zero if unknown.
func (f *FileItem) CRC() uint32 { return f.crc.Load() }

// SetCRC records a content CRC.
func (f *FileItem) SetCRC(crc uint32) { f.crc.Store(crc) }

// MediaPosition returns the saved playback position in seconds.
func (f *FileItem) MediaPosition() int64 { return f.position.Load() }

// SetMediaPosition records a playback position.
func (f *FileItem) SetMediaPosition(pos int64) { f.position.Store(pos) }

// HasThumbnail reports whether a thumbnail is stored for the item.
func (f *FileItem) HasThumbnail() bool { return f.thumbnail.Load() }

// SetHasThumbnail records whether a thumbnail is stored.
func (f *FileItem) SetHasThumbnail(v bool) { f.thumbnail.Store(v) }

// DuplicateGroup returns the duplicate group id, zero if none.
func (f *FileItem) DuplicateGroup() int64 { return f.dupGroup.Load() }

// DuplicateCount returns the size of the item's duplicate group.
func (f *FileItem) DuplicateCount() int { return int(f.dupCount.Load()) }

// SetDuplicates links the item into a duplicate group of count members.
func (f *FileItem) SetDuplicates(group int64, count int) {
	f.dupGroup.Store(group)
	f.dupCount.Store(int32(count))
	f.refreshBloom()
}

// Bloom returns the item's bloom signature.
func (f *FileItem) Bloom() bloom.Bits {
	return bloom.Bits(f.bloomBits.Load())
}

// refreshBloom recomputes the signature from the current fields. The old
// value is loaded before the fields are read, so a concurrent refresh that
// lands first makes the swap fail and the recompute sees its inputs.
func (f *FileItem) refreshBloom() {
	for {
		old := f.bloomBits.Load()
		b := bloom.Group(f.Type)
		if md := f.md.Load(); md != nil {
			b |= md.Bloom()
		}
		if f.dupCount.Load() > 1 {
			b |= bloom.HasDuplicates
		}
		if f.bloomBits.CompareAndSwap(old, uint32(b)) {
			return
		}
	}
}

// Unchanged reports whether other describes the same file content as f,
// judged by name and either size plus modification time or content hash.
func (f *FileItem) Unchanged(other *FileItem) bool {
	if paths.CompareNames(f.Name, other.Name) != 0 {
		return false
	}
	if f.Hash != "" && other.Hash != "" {
		return f.Hash == other.Hash
	}
	return f.Size == other.Size && f.Modified.Equal(other.Modified)
}

// Adopt copies the state another scan already established for the same
// file: richer metadata, CRC, position, thumbnail flag and duplicate links.
func (f *FileItem) Adopt(old *FileItem) {
	if oldMD := old.Metadata(); oldMD != nil {
		cur := f.Metadata()
		if cur == nil || oldMD.Count() > cur.Count() {
			f.md.Store(oldMD.Merge(cur))
		}
	}
	if f.CRC() == 0 {
		f.SetCRC(old.CRC())
	}
	if f.MediaPosition() == 0 {
		f.SetMediaPosition(old.MediaPosition())
	}
	if old.HasThumbnail() {
		f.SetHasThumbnail(true)
	}
	if f.Hash == "" {
		f.Hash = old.Hash
	}
	f.dupGroup.Store(old.dupGroup.Load())
	f.dupCount.Store(old.dupCount.Load())
	f.refreshBloom()
}
