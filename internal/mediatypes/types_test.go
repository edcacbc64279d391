package mediatypes

import (
	"testing"
)

func TestGetFileType(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want FileType
	}{
		{
			name: "JPEG image",
			ext:  ".jpg",
			want: FileTypeImage,
		},
		{
			name: "PNG image",
			ext:  ".png",
			want: FileTypeImage,
		},
		{
			name: "MP4 video",
			ext:  ".mp4",
			want: FileTypeVideo,
		},
		{
			name: "WebM video",
			ext:  ".webm",
			want: FileTypeVideo,
		},
		{
			name: "FLAC audio",
			ext:  ".flac",
			want: FileTypeAudio,
		},
		{
			name: "WPL playlist",
			ext:  ".wpl",
			want: FileTypePlaylist,
		},
		{
			name: "Unknown extension",
			ext:  ".xyz",
			want: FileTypeOther,
		},
		{
			name: "Empty extension",
			ext:  "",
			want: FileTypeOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetFileType(tt.ext)
			if got != tt.want {
				t.Errorf("GetFileType(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestFromName(t *testing.T) {
	tests := []struct {
		name string
		want FileType
	}{
		{"IMG_0001.JPG", FileTypeImage},
		{"holiday.MoV", FileTypeVideo},
		{"track01.mp3", FileTypeAudio},
		{"README", FileTypeOther},
		{"archive.tar.gz", FileTypeOther},
	}

	for _, tt := range tests {
		if got := FromName(tt.name); got != tt.want {
			t.Errorf("FromName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".jpg", "image/jpeg"},
		{".mkv", "video/x-matroska"},
		{".mp3", "audio/mpeg"},
		{".unknown", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := GetMimeType(tt.ext); got != tt.want {
			t.Errorf("GetMimeType(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestIsMediaFile(t *testing.T) {
	if !IsMediaFile(".jpg") {
		t.Error("Expected .jpg to be a media file")
	}
	if !IsMediaFile(".ogg") {
		t.Error("Expected .ogg to be a media file")
	}
	if IsMediaFile(".txt") {
		t.Error("Expected .txt not to be a media file")
	}
}

func TestParseAlias(t *testing.T) {
	tests := []struct {
		word   string
		want   FileType
		wantOK bool
	}{
		{"photo", FileTypeImage, true},
		{"Photos", FileTypeImage, true},
		{"music", FileTypeAudio, true},
		{" video ", FileTypeVideo, true},
		{"duplicate", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseAlias(tt.word)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseAlias(%q) = %v, %v; want %v, %v", tt.word, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFileTypeIndexIsStable(t *testing.T) {
	seen := map[int]bool{}
	for _, ft := range AllTypes {
		i := ft.Index()
		if seen[i] {
			t.Errorf("duplicate index %d for %v", i, ft)
		}
		seen[i] = true
	}
	if FileType("bogus").Index() != FileTypeOther.Index() {
		t.Error("unknown types should map to the other group")
	}
}
