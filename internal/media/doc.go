// Package media reads what the catalog needs from media files: EXIF and
// container metadata, JPEG thumbnails and quick content hashes.
//
// The Extractor implements index.Extractor:
//   - Images: EXIF via goexif, dimensions via image.DecodeConfig
//   - Video and audio: ffprobe JSON output, when ffprobe is installed
//   - Thumbnails: imaging for images, an ffmpeg frame for videos
//
// QuickHash fingerprints a file from its size and its first and last 64KB,
// which is enough to group duplicates without reading whole videos. CRC32
// reads the whole file and is only computed on request.
package media
