package props

import (
	"sort"
	"strings"

	"media-catalog/internal/bloom"
)

// Key identifies a catalog property.
type Key int

// Property keys. The zero Key means "no property".
const (
	None Key = iota
	FileName
	Folder
	Extension
	Size
	Created
	Modified
	DateTaken
	Title
	Artist
	AlbumArtist
	Album
	Genre
	Comment
	Description
	Tag
	Label
	Rating
	Year
	Track
	Disc
	Show
	Season
	Episode
	CameraMake
	CameraModel
	Lens
	Copyright
	Software
	Width
	Height
	Dimensions
	Megapixels
	ISO
	FNumber
	ExposureTime
	FocalLength
	Orientation
	Location
	Duration
	Bitrate
	FrameRate
	VideoCodec
	AudioCodec
	PixelFormat
	AudioSampleRate
	AudioSampleType
	AudioChannels
	MediaPosition
	Duplicates

	keyCount
)

// ValueKind describes the payload type of a property.
type ValueKind int

const (
	// KindNone marks properties without a comparable value.
	KindNone ValueKind = iota
	// KindText is a UTF-8 string.
	KindText
	// KindInt is a 32-bit integer.
	KindInt
	// KindFloat is a float64.
	KindFloat
	// KindInt64 is a 64-bit integer such as a byte count.
	KindInt64
	// KindDate is a point in time.
	KindDate
	// KindCoordinate is a latitude/longitude pair.
	KindCoordinate
	// KindPair is an x/y integer pair such as "track 3 of 12".
	KindPair
)

func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindInt64:
		return "int64"
	case KindDate:
		return "date"
	case KindCoordinate:
		return "coordinate"
	case KindPair:
		return "pair"
	default:
		return "none"
	}
}

// Def is the static description of a property.
type Def struct {
	Key     Key
	Name    string
	Aliases []string
	Kind    ValueKind
	// PackID is the field id used by the metadata pack format. Zero means
	// the property is not stored in the metadata record.
	PackID uint16
	// Bloom is the has-value flag a file carries when the property is set.
	Bloom bloom.Bits
	// Searchable properties take part in free-text matching.
	Searchable bool
}

var defs = [keyCount]Def{
	None:            {Key: None, Name: ""},
	FileName:        {Key: FileName, Name: "name", Aliases: []string{"file", "filename", "file_name"}, Kind: KindText, Searchable: true},
	Folder:          {Key: Folder, Name: "folder", Aliases: []string{"path", "dir", "directory"}, Kind: KindText},
	Extension:       {Key: Extension, Name: "extension", Kind: KindText},
	Size:            {Key: Size, Name: "size", Aliases: []string{"filesize", "file_size"}, Kind: KindInt64},
	Created:         {Key: Created, Name: "created", Aliases: []string{"date", "createdate"}, Kind: KindDate},
	Modified:        {Key: Modified, Name: "modified", Aliases: []string{"changed", "modifydate"}, Kind: KindDate},
	DateTaken:       {Key: DateTaken, Name: "taken", Aliases: []string{"date_taken", "datetaken", "shot"}, Kind: KindDate, PackID: 1, Bloom: bloom.HasDateTaken},
	Title:           {Key: Title, Name: "title", Kind: KindText, PackID: 2, Searchable: true},
	Artist:          {Key: Artist, Name: "artist", Aliases: []string{"author", "performer"}, Kind: KindText, PackID: 3, Searchable: true},
	AlbumArtist:     {Key: AlbumArtist, Name: "album_artist", Aliases: []string{"albumartist"}, Kind: KindText, PackID: 4, Searchable: true},
	Album:           {Key: Album, Name: "album", Kind: KindText, PackID: 5, Searchable: true},
	Genre:           {Key: Genre, Name: "genre", Kind: KindText, PackID: 6, Searchable: true},
	Comment:         {Key: Comment, Name: "comment", Aliases: []string{"comments"}, Kind: KindText, PackID: 7, Searchable: true},
	Description:     {Key: Description, Name: "description", Aliases: []string{"caption"}, Kind: KindText, PackID: 8, Searchable: true},
	Tag:             {Key: Tag, Name: "tag", Aliases: []string{"tags", "keyword", "keywords"}, Kind: KindText, PackID: 9, Searchable: true},
	Label:           {Key: Label, Name: "label", Kind: KindText, PackID: 10, Searchable: true},
	Rating:          {Key: Rating, Name: "rating", Aliases: []string{"stars"}, Kind: KindInt, PackID: 11},
	Year:            {Key: Year, Name: "year", Kind: KindInt, PackID: 12},
	Track:           {Key: Track, Name: "track", Kind: KindPair, PackID: 13},
	Disc:            {Key: Disc, Name: "disc", Aliases: []string{"disk"}, Kind: KindPair, PackID: 14},
	Show:            {Key: Show, Name: "show", Aliases: []string{"series"}, Kind: KindText, PackID: 15, Searchable: true},
	Season:          {Key: Season, Name: "season", Kind: KindInt, PackID: 16},
	Episode:         {Key: Episode, Name: "episode", Kind: KindPair, PackID: 17},
	CameraMake:      {Key: CameraMake, Name: "camera_make", Aliases: []string{"make", "manufacturer"}, Kind: KindText, PackID: 18, Searchable: true},
	CameraModel:     {Key: CameraModel, Name: "camera_model", Aliases: []string{"camera", "model"}, Kind: KindText, PackID: 19, Searchable: true},
	Lens:            {Key: Lens, Name: "lens", Kind: KindText, PackID: 20, Searchable: true},
	Copyright:       {Key: Copyright, Name: "copyright", Kind: KindText, PackID: 21, Searchable: true},
	Software:        {Key: Software, Name: "software", Kind: KindText, PackID: 22, Searchable: true},
	Width:           {Key: Width, Name: "width", Kind: KindInt, PackID: 23},
	Height:          {Key: Height, Name: "height", Kind: KindInt, PackID: 24},
	Dimensions:      {Key: Dimensions, Name: "dimensions", Aliases: []string{"resolution", "dims"}, Kind: KindPair, Searchable: true},
	Megapixels:      {Key: Megapixels, Name: "megapixels", Aliases: []string{"mp"}, Kind: KindFloat},
	ISO:             {Key: ISO, Name: "iso", Kind: KindInt, PackID: 25, Searchable: true},
	FNumber:         {Key: FNumber, Name: "f_number", Aliases: []string{"fnumber", "aperture", "f"}, Kind: KindFloat, PackID: 26, Searchable: true},
	ExposureTime:    {Key: ExposureTime, Name: "exposure", Aliases: []string{"exposure_time", "shutter"}, Kind: KindFloat, PackID: 27, Searchable: true},
	FocalLength:     {Key: FocalLength, Name: "focal_length", Aliases: []string{"focal", "focallength"}, Kind: KindFloat, PackID: 28, Searchable: true},
	Orientation:     {Key: Orientation, Name: "orientation", Kind: KindInt, PackID: 29},
	Location:        {Key: Location, Name: "location", Aliases: []string{"gps"}, Kind: KindCoordinate, PackID: 30, Bloom: bloom.HasLocation},
	Duration:        {Key: Duration, Name: "duration", Aliases: []string{"length", "runtime"}, Kind: KindInt, PackID: 31, Searchable: true},
	Bitrate:         {Key: Bitrate, Name: "bitrate", Kind: KindInt, PackID: 32},
	FrameRate:       {Key: FrameRate, Name: "frame_rate", Aliases: []string{"fps", "framerate"}, Kind: KindFloat, PackID: 33},
	VideoCodec:      {Key: VideoCodec, Name: "video_codec", Aliases: []string{"vcodec"}, Kind: KindText, PackID: 34, Searchable: true},
	AudioCodec:      {Key: AudioCodec, Name: "audio_codec", Aliases: []string{"acodec"}, Kind: KindText, PackID: 35, Searchable: true},
	PixelFormat:     {Key: PixelFormat, Name: "pixel_format", Aliases: []string{"pixfmt"}, Kind: KindText, PackID: 36, Searchable: true},
	AudioSampleRate: {Key: AudioSampleRate, Name: "sample_rate", Aliases: []string{"audio_sample_rate", "samplerate"}, Kind: KindInt, PackID: 37},
	AudioSampleType: {Key: AudioSampleType, Name: "sample_type", Aliases: []string{"audio_sample_type", "bitdepth", "bits"}, Kind: KindInt, PackID: 38},
	AudioChannels:   {Key: AudioChannels, Name: "channels", Aliases: []string{"audio_channels"}, Kind: KindInt, PackID: 39},
	MediaPosition:   {Key: MediaPosition, Name: "position", Aliases: []string{"media_position", "resume"}, Kind: KindInt},
	Duplicates:      {Key: Duplicates, Name: "duplicates", Aliases: []string{"dupes", "duplicate"}, Kind: KindInt, Bloom: bloom.HasDuplicates},
}

var (
	byScope  map[string]Key
	byPackID map[uint16]Key
)

func init() {
	byScope = make(map[string]Key, len(defs)*2)
	byPackID = make(map[uint16]Key, len(defs))
	for _, d := range defs[1:] {
		byScope[d.Name] = d.Key
		for _, a := range d.Aliases {
			byScope[a] = d.Key
		}
		if d.PackID != 0 {
			byPackID[d.PackID] = d.Key
		}
	}
}

// Definition returns the static description of k.
func (k Key) Definition() Def {
	if k < 0 || k >= keyCount {
		return defs[None]
	}
	return defs[k]
}

// Name returns the canonical property name.
func (k Key) Name() string { return k.Definition().Name }

func (k Key) String() string { return k.Name() }

// Kind returns the value kind of k.
func (k Key) Kind() ValueKind { return k.Definition().Kind }

// IsValid reports whether k names a property.
func (k Key) IsValid() bool { return k > None && k < keyCount }

// Lookup resolves a query scope word to a property key.
func Lookup(scope string) (Key, bool) {
	k, ok := byScope[strings.ToLower(strings.TrimSpace(scope))]
	return k, ok
}

// ByPackID resolves a metadata pack field id.
func ByPackID(id uint16) (Key, bool) {
	k, ok := byPackID[id]
	return k, ok
}

// All returns every property key in declaration order.
func All() []Key {
	keys := make([]Key, 0, keyCount-1)
	for k := None + 1; k < keyCount; k++ {
		keys = append(keys, k)
	}
	return keys
}

// Packed returns the keys stored in the metadata record, ordered by pack id.
func Packed() []Key {
	keys := make([]Key, 0, len(byPackID))
	for _, k := range byPackID {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return defs[keys[i]].PackID < defs[keys[j]].PackID
	})
	return keys
}

// Searchable returns the keys that take part in free-text matching, in the
// order they are scanned.
func Searchable() []Key {
	var keys []Key
	for _, d := range defs[1:] {
		if d.Searchable {
			keys = append(keys, d.Key)
		}
	}
	return keys
}

// ScopeNames returns every accepted scope word, sorted.
func ScopeNames() []string {
	names := make([]string, 0, len(byScope))
	for s := range byScope {
		names = append(names, s)
	}
	sort.Strings(names)
	return names
}
