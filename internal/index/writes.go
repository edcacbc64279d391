package index

import (
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/metadata"
	"media-catalog/internal/metrics"
	"media-catalog/internal/paths"
)

// WriteKind selects what a Write persists.
type WriteKind int

const (
	// WriteProperties stores an item's attributes, hash and packed metadata.
	WriteProperties WriteKind = iota
	// WritePosition stores a playback position.
	WritePosition
	// WriteCRC stores a content CRC.
	WriteCRC
	// WriteThumbnail stores a thumbnail image.
	WriteThumbnail
	// WriteFolder stores when a folder was last indexed.
	WriteFolder
	// WriteRemove deletes an item that disappeared from its folder.
	WriteRemove
)

func (k WriteKind) String() string {
	switch k {
	case WriteProperties:
		return "properties"
	case WritePosition:
		return "position"
	case WriteCRC:
		return "crc"
	case WriteThumbnail:
		return "thumbnail"
	case WriteFolder:
		return "folder"
	case WriteRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Write is one queued database change.
type Write struct {
	Kind WriteKind
	// File is the item written; for WriteFolder only its folder is set.
	File        paths.File
	Folder      paths.Folder
	Attributes  catalog.Attributes
	Metadata    *metadata.Metadata
	CRC         uint32
	Position    int64
	Thumbnail   []byte
	LastIndexed time.Time
}

func (s *State) enqueue(w ...Write) {
	s.writesMu.Lock()
	s.writes = append(s.writes, w...)
	n := len(s.writes)
	s.writesMu.Unlock()
	metrics.WriteQueueDepth.Set(float64(n))
}

// DequeueAll removes and returns every pending write in queue order.
func (s *State) DequeueAll() []Write {
	s.writesMu.Lock()
	out := s.writes
	s.writes = nil
	s.writesMu.Unlock()
	metrics.WriteQueueDepth.Set(0)
	return out
}

// Requeue puts writes that could not be applied back at the front of the
// queue.
func (s *State) Requeue(w []Write) {
	if len(w) == 0 {
		return
	}
	s.writesMu.Lock()
	s.writes = append(w[:len(w):len(w)], s.writes...)
	n := len(s.writes)
	s.writesMu.Unlock()
	metrics.WriteQueueDepth.Set(float64(n))
}

// PendingWrites returns the queue length.
func (s *State) PendingWrites() int {
	s.writesMu.Lock()
	defer s.writesMu.Unlock()
	return len(s.writes)
}

func propertiesWrite(file paths.File, item *catalog.FileItem) Write {
	return Write{
		Kind:       WriteProperties,
		File:       file,
		Folder:     file.Folder(),
		Attributes: item.Attributes,
		Metadata:   item.Metadata(),
		CRC:        item.CRC(),
		Position:   item.MediaPosition(),
	}
}

// SaveMediaPosition records a playback position for a catalogued file. It
// reports false, queueing nothing, when the file is not catalogued.
func (s *State) SaveMediaPosition(file paths.File, position int64) bool {
	item, ok := s.File(file)
	if !ok {
		return false
	}
	item.SetMediaPosition(position)
	s.enqueue(Write{Kind: WritePosition, File: file, Folder: file.Folder(), Position: position})
	return true
}

// SaveCRC records a content CRC for a catalogued file. It reports false,
// queueing nothing, when the file is not catalogued.
func (s *State) SaveCRC(file paths.File, crc uint32) bool {
	item, ok := s.File(file)
	if !ok {
		return false
	}
	item.SetCRC(crc)
	s.enqueue(Write{Kind: WriteCRC, File: file, Folder: file.Folder(), CRC: crc})
	return true
}

// SaveLocation sets the GPS location of a catalogued file. The item's
// metadata is replaced by an updated copy. It reports false when the file is
// not catalogued.
func (s *State) SaveLocation(file paths.File, loc metadata.Coordinate) bool {
	item, ok := s.File(file)
	if !ok {
		return false
	}
	md := item.Metadata().Clone()
	md.Location = loc
	item.SetMetadata(md)
	s.enqueue(propertiesWrite(file, item))
	return true
}

// SaveThumbnail stores a thumbnail for file.
func (s *State) SaveThumbnail(file paths.File, thumb []byte) {
	if item, ok := s.File(file); ok {
		item.SetHasThumbnail(len(thumb) > 0)
	}
	s.enqueue(Write{Kind: WriteThumbnail, File: file, Folder: file.Folder(), Thumbnail: thumb})
}

// Thumbnail returns the thumbnail of file, preferring one still waiting in
// the queue over the stored one.
func (s *State) Thumbnail(file paths.File) ([]byte, bool) {
	s.writesMu.Lock()
	for i := len(s.writes) - 1; i >= 0; i-- {
		w := s.writes[i]
		if w.Kind == WriteThumbnail && w.File.Equal(file) {
			s.writesMu.Unlock()
			return w.Thumbnail, len(w.Thumbnail) > 0
		}
	}
	s.writesMu.Unlock()

	if s.store == nil {
		return nil, false
	}
	return s.store.LoadThumbnail(file)
}

// SaveFolderThumbnail attaches a thumbnail to folder and queues it. A
// folder thumbnail write has an empty File.
func (s *State) SaveFolderThumbnail(folder paths.Folder, thumb []byte) {
	s.SetFolderThumbnail(folder, thumb)
	s.enqueue(Write{Kind: WriteThumbnail, Folder: folder, Thumbnail: thumb})
}
