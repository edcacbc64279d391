package media

import (
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"media-catalog/internal/logging"
	"media-catalog/internal/metadata"
)

// ReadExif decodes the EXIF block of an image into a metadata record.
// Images without EXIF return an empty record and no error.
func ReadExif(path string) (*metadata.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	x, err := exif.Decode(f)
	if err != nil {
		if exif.IsCriticalError(err) {
			logging.Debug("No EXIF in %s: %v", path, err)
			return &metadata.Metadata{}, nil
		}
		// Non-critical errors still yield a usable partial result.
		logging.Debug("Partial EXIF in %s: %v", path, err)
	}
	return fromExif(x), nil
}

func fromExif(x *exif.Exif) *metadata.Metadata {
	m := &metadata.Metadata{}
	if x == nil {
		return m
	}

	m.CameraMake = exifString(x, exif.Make)
	m.CameraModel = exifString(x, exif.Model)
	m.Lens = exifString(x, exif.LensModel)
	m.Copyright = exifString(x, exif.Copyright)
	m.Software = exifString(x, exif.Software)
	m.Description = exifString(x, exif.ImageDescription)
	m.Artist = exifString(x, exif.Artist)

	m.FNumber = exifFloat(x, exif.FNumber)
	m.ExposureTime = exifFloat(x, exif.ExposureTime)
	m.FocalLength = exifFloat(x, exif.FocalLength)
	m.ISO = exifInt(x, exif.ISOSpeedRatings)
	m.Orientation = exifInt(x, exif.Orientation)

	if w, h := exifInt(x, exif.PixelXDimension), exifInt(x, exif.PixelYDimension); w > 0 && h > 0 {
		m.Width, m.Height = w, h
	}

	if t, err := x.DateTime(); err == nil && !t.IsZero() {
		m.DateTaken = t
		m.Year = t.Year()
	}

	if lat, long, err := x.LatLong(); err == nil {
		c := metadata.Coordinate{Latitude: lat, Longitude: long}
		if c.IsValid() {
			m.Location = c
		}
	}
	return m
}

func exifTag(x *exif.Exif, name exif.FieldName) *tiff.Tag {
	tag, err := x.Get(name)
	if err != nil {
		return nil
	}
	return tag
}

func exifString(x *exif.Exif, name exif.FieldName) string {
	tag := exifTag(x, name)
	if tag == nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

func exifInt(x *exif.Exif, name exif.FieldName) int {
	tag := exifTag(x, name)
	if tag == nil {
		return 0
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0
	}
	return v
}

func exifFloat(x *exif.Exif, name exif.FieldName) float64 {
	tag := exifTag(x, name)
	if tag == nil {
		return 0
	}
	r, err := tag.Rat(0)
	if err != nil || r.Sign() <= 0 {
		return 0
	}
	f, _ := r.Float64()
	return f
}
