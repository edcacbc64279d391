package mediatypes

import "strings"

// FileType represents the media group of a catalogued file.
type FileType string

const (
	// FileTypeFolder represents a directory.
	FileTypeFolder FileType = "folder"
	// FileTypeImage represents an image file.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a video file.
	FileTypeVideo FileType = "video"
	// FileTypeAudio represents an audio file.
	FileTypeAudio FileType = "audio"
	// FileTypePlaylist represents a playlist file.
	FileTypePlaylist FileType = "playlist"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// AllTypes lists the groups in bloom-bit order.
var AllTypes = []FileType{
	FileTypeFolder,
	FileTypeImage,
	FileTypeVideo,
	FileTypeAudio,
	FileTypePlaylist,
	FileTypeOther,
}

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
	".avif": true,
	".cr2":  true,
	".nef":  true,
	".arw":  true,
	".dng":  true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
	".mts":  true,
}

// AudioExtensions maps file extensions to whether they are supported audio formats.
var AudioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
	".opus": true,
	".wma":  true,
	".aiff": true,
}

// PlaylistExtensions maps file extensions to whether they are supported playlist formats.
var PlaylistExtensions = map[string]bool{
	".wpl":  true,
	".m3u":  true,
	".m3u8": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
	".avif": "image/avif",

	// Videos
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",

	// Audio
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",

	// Playlists
	".wpl":  "application/vnd.ms-wpl",
	".m3u":  "audio/x-mpegurl",
	".m3u8": "application/vnd.apple.mpegurl",
}

// aliases maps query words (as typed after '@') to groups.
var aliases = map[string]FileType{
	"photo":     FileTypeImage,
	"photos":    FileTypeImage,
	"image":     FileTypeImage,
	"images":    FileTypeImage,
	"picture":   FileTypeImage,
	"pictures":  FileTypeImage,
	"video":     FileTypeVideo,
	"videos":    FileTypeVideo,
	"movie":     FileTypeVideo,
	"movies":    FileTypeVideo,
	"audio":     FileTypeAudio,
	"music":     FileTypeAudio,
	"song":      FileTypeAudio,
	"songs":     FileTypeAudio,
	"playlist":  FileTypePlaylist,
	"playlists": FileTypePlaylist,
	"folder":    FileTypeFolder,
	"folders":   FileTypeFolder,
	"other":     FileTypeOther,
}

// GetFileType returns the FileType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns FileTypeOther if the extension is not recognized.
func GetFileType(ext string) FileType {
	if ImageExtensions[ext] {
		return FileTypeImage
	}
	if VideoExtensions[ext] {
		return FileTypeVideo
	}
	if AudioExtensions[ext] {
		return FileTypeAudio
	}
	if PlaylistExtensions[ext] {
		return FileTypePlaylist
	}
	return FileTypeOther
}

// FromName classifies a file name by its extension.
func FromName(name string) FileType {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return FileTypeOther
	}
	return GetFileType(strings.ToLower(name[i:]))
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsMediaFile returns true if the extension represents a supported media file.
func IsMediaFile(ext string) bool {
	return GetFileType(ext) != FileTypeOther
}

// ParseAlias resolves a query word such as "photo" or "music" to a group.
func ParseAlias(word string) (FileType, bool) {
	t, ok := aliases[strings.ToLower(strings.TrimSpace(word))]
	return t, ok
}

// Index returns the position of t in AllTypes, used for bloom bits.
func (t FileType) Index() int {
	for i, v := range AllTypes {
		if v == t {
			return i
		}
	}
	return len(AllTypes) - 1
}
