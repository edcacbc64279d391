package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"

	"github.com/disintegration/imaging"

	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
)

// ErrUnsupported is returned for files no thumbnail can be made of.
var ErrUnsupported = errors.New("unsupported file type")

const (
	// DefaultThumbnailSize bounds the longer side of a thumbnail.
	DefaultThumbnailSize = 256
	thumbnailQuality     = 80
)

// ThumbnailGenerator renders JPEG thumbnails of images and video frames.
type ThumbnailGenerator struct {
	size       int
	ffmpegPath string
}

// NewThumbnailGenerator creates a generator. Videos are supported only when
// ffmpeg is on the PATH.
func NewThumbnailGenerator(size int) *ThumbnailGenerator {
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	t := &ThumbnailGenerator{size: size}
	if p, err := exec.LookPath("ffmpeg"); err == nil {
		t.ffmpegPath = p
		logging.Debug("ThumbnailGenerator: using ffmpeg at %s", p)
	} else {
		logging.Debug("ThumbnailGenerator: ffmpeg not found, video thumbnails disabled")
	}
	return t
}

// Generate returns a JPEG thumbnail of the file at path.
func (t *ThumbnailGenerator) Generate(ctx context.Context, path string, ft mediatypes.FileType) ([]byte, error) {
	var (
		img image.Image
		err error
	)
	switch ft {
	case mediatypes.FileTypeImage:
		img, err = t.imageThumbnail(ctx, path)
	case mediatypes.FileTypeVideo:
		img, err = t.videoFrame(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ft)
	}
	if err != nil {
		return nil, fmt.Errorf("thumbnail generation failed: %w", err)
	}
	return t.encode(img)
}

func (t *ThumbnailGenerator) encode(img image.Image) ([]byte, error) {
	thumb := imaging.Fit(img, t.size, t.size, imaging.Lanczos)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func (t *ThumbnailGenerator) imageThumbnail(ctx context.Context, path string) (image.Image, error) {
	img, err := loadConstrained(path, MaxImageDimension, MaxImagePixels)
	if err == nil {
		return img, nil
	}
	actual, _ := detectFileType(path)
	logging.Debug("Decoding %s (detected %s) failed: %v, trying ffmpeg", path, actual, err)

	img, ffErr := t.ffmpegFrame(ctx, path, "")
	if ffErr != nil {
		return nil, errors.Join(err, ffErr)
	}
	return img, nil
}

func (t *ThumbnailGenerator) videoFrame(ctx context.Context, path string) (image.Image, error) {
	img, err := t.ffmpegFrame(ctx, path, "00:00:01")
	if err == nil {
		return img, nil
	}
	logging.Debug("Frame at 1s failed for %s: %v, trying first frame", path, err)
	return t.ffmpegFrame(ctx, path, "")
}

// ffmpegFrame decodes one frame through ffmpeg, seeking to offset when set.
func (t *ThumbnailGenerator) ffmpegFrame(ctx context.Context, path, offset string) (image.Image, error) {
	if t.ffmpegPath == "" {
		return nil, errors.New("ffmpeg not found")
	}
	args := []string{"-i", path}
	if offset != "" {
		args = append(args, "-ss", offset)
	}
	args = append(args, "-vframes", "1", "-f", "image2pipe", "-vcodec", "png", "-")

	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", path)
	}
	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}

// detectFileType sniffs the container format from the file header.
func detectFileType(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	header := make([]byte, 12)
	n, err := file.Read(header)
	if err != nil {
		return "", err
	}
	header = header[:n]

	switch {
	case bytes.HasPrefix(header, []byte{0xFF, 0xD8, 0xFF}):
		return "jpeg", nil
	case bytes.HasPrefix(header, []byte{0x89, 'P', 'N', 'G'}):
		return "png", nil
	case bytes.HasPrefix(header, []byte("GIF8")):
		return "gif", nil
	case len(header) >= 12 && bytes.HasPrefix(header, []byte("RIFF")) && string(header[8:12]) == "WEBP":
		return "webp", nil
	case bytes.HasPrefix(header, []byte("BM")):
		return "bmp", nil
	case bytes.HasPrefix(header, []byte{'I', 'I', 0x2A, 0x00}), bytes.HasPrefix(header, []byte{'M', 'M', 0x00, 0x2A}):
		return "tiff", nil
	case len(header) >= 12 && string(header[4:8]) == "ftyp":
		switch string(header[8:12]) {
		case "heic", "heix", "hevc", "hevx", "mif1", "msf1":
			return "heif", nil
		case "avif", "avis":
			return "avif", nil
		}
		return "mp4-container", nil
	}
	return "unknown", nil
}
