package media

import (
	"fmt"
	"image"
	"math"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // BMP format support
	_ "golang.org/x/image/tiff" // TIFF format support
	_ "golang.org/x/image/webp" // WebP format support

	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
)

const (
	// MaxImageDimension bounds the width and height of a decoded image.
	MaxImageDimension = 4096

	// MaxImagePixels bounds width*height; 20MP is about 80MB as RGBA.
	MaxImagePixels = 20_000_000
)

// imageSize reads the dimensions from the image header without decoding
// the pixels.
func imageSize(path string) (width, height int, err error) {
	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, err
	}
	return config.Width, config.Height, nil
}

// constrain returns the size an image must be reduced to so that it fits
// both limits, and whether any reduction is needed.
func constrain(width, height, maxDimension, maxPixels int) (int, int, bool) {
	if width <= maxDimension && height <= maxDimension && width*height <= maxPixels {
		return width, height, false
	}

	w, h := width, height
	if w > maxDimension || h > maxDimension {
		if w > h {
			w, h = maxDimension, height*maxDimension/width
		} else {
			w, h = width*maxDimension/height, maxDimension
		}
	}
	if w*h > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(w*h))
		w = int(float64(w) * scale)
		h = int(float64(h) * scale)
	}
	return max(w, 1), max(h, 1), true
}

// loadConstrained decodes an image with its EXIF orientation applied and
// downscales it to the size limits.
func loadConstrained(path string, maxDimension, maxPixels int) (image.Image, error) {
	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	w, h, needed := constrain(b.Dx(), b.Dy(), maxDimension, maxPixels)
	if !needed {
		return img, nil
	}
	logging.Debug("Constraining large image %s from %dx%d to %dx%d", path, b.Dx(), b.Dy(), w, h)
	return imaging.Resize(img, w, h, imaging.Lanczos), nil
}
