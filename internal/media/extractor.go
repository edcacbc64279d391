package media

import (
	"context"
	"os/exec"

	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metadata"
)

// Extractor reads metadata, thumbnails and content hashes from media files.
type Extractor struct {
	thumbnails  *ThumbnailGenerator
	ffprobePath string
}

// NewExtractor creates an Extractor. Audio and video metadata need ffprobe
// on the PATH; without it those files only get file-system attributes.
func NewExtractor(thumbnailSize int) *Extractor {
	e := &Extractor{thumbnails: NewThumbnailGenerator(thumbnailSize)}
	if p, err := exec.LookPath("ffprobe"); err == nil {
		e.ffprobePath = p
	} else {
		logging.Info("ffprobe not found, audio and video metadata disabled")
	}
	return e
}

// Extract returns the metadata of the file at path.
func (e *Extractor) Extract(ctx context.Context, path string, ft mediatypes.FileType) (*metadata.Metadata, error) {
	switch ft {
	case mediatypes.FileTypeImage:
		return e.extractImage(path)
	case mediatypes.FileTypeVideo, mediatypes.FileTypeAudio:
		if e.ffprobePath == "" {
			return &metadata.Metadata{}, nil
		}
		return probe(ctx, e.ffprobePath, path)
	}
	return &metadata.Metadata{}, nil
}

func (e *Extractor) extractImage(path string) (*metadata.Metadata, error) {
	m, err := ReadExif(path)
	if err != nil {
		return nil, err
	}
	if m.Width == 0 || m.Height == 0 {
		// RAW and HEIC files have no stdlib decoder; their EXIF is enough.
		if w, h, err := imageSize(path); err == nil {
			m.Width, m.Height = w, h
		}
	}
	// Orientations 5-8 are rotated 90 degrees.
	if m.Orientation >= 5 && m.Orientation <= 8 {
		m.Width, m.Height = m.Height, m.Width
	}
	return m, nil
}

// Thumbnail renders a JPEG thumbnail.
func (e *Extractor) Thumbnail(ctx context.Context, path string, ft mediatypes.FileType) ([]byte, error) {
	return e.thumbnails.Generate(ctx, path, ft)
}

// Hash returns the quick content hash used for duplicate detection.
func (e *Extractor) Hash(path string) (string, error) {
	return QuickHash(path)
}
