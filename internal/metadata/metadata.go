package metadata

import (
	"math"
	"strings"
	"time"

	"media-catalog/internal/bloom"
	"media-catalog/internal/props"
)

// Pair is an x/y integer pair, for example track 3 of 12 or 1920x1080.
type Pair struct {
	X int
	Y int
}

// IsEmpty reports whether both parts are zero.
func (p Pair) IsEmpty() bool { return p.X == 0 && p.Y == 0 }

// Coordinate is a GPS position in decimal degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// IsValid reports whether c is a usable position. 0,0 is treated as unset.
func (c Coordinate) IsValid() bool {
	if c.Latitude == 0 && c.Longitude == 0 {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180 &&
		!math.IsNaN(c.Latitude) && !math.IsNaN(c.Longitude)
}

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between c and o.
func (c Coordinate) DistanceKm(o Coordinate) float64 {
	lat1 := c.Latitude * math.Pi / 180
	lat2 := o.Latitude * math.Pi / 180
	dLat := (o.Latitude - c.Latitude) * math.Pi / 180
	dLon := (o.Longitude - c.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Metadata is the rich metadata of one file. A zero field means "not set".
type Metadata struct {
	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	Genre       string
	Comment     string
	Description string
	Tags        string
	Label       string
	Show        string
	CameraMake  string
	CameraModel string
	Lens        string
	Copyright   string
	Software    string
	VideoCodec  string
	AudioCodec  string
	PixelFormat string

	Rating          int
	Year            int
	Season          int
	Width           int
	Height          int
	ISO             int
	Orientation     int
	Duration        int
	Bitrate         int
	AudioSampleRate int
	AudioSampleType int
	AudioChannels   int

	Track   Pair
	Disc    Pair
	Episode Pair

	FNumber      float64
	ExposureTime float64
	FocalLength  float64
	FrameRate    float64

	DateTaken time.Time
	Location  Coordinate
}

type accessor struct {
	text  func(*Metadata) *string
	num   func(*Metadata) *int
	float func(*Metadata) *float64
	date  func(*Metadata) *time.Time
	pair  func(*Metadata) *Pair
	coord func(*Metadata) *Coordinate
}

var accessors = map[props.Key]accessor{
	props.Title:           {text: func(m *Metadata) *string { return &m.Title }},
	props.Artist:          {text: func(m *Metadata) *string { return &m.Artist }},
	props.AlbumArtist:     {text: func(m *Metadata) *string { return &m.AlbumArtist }},
	props.Album:           {text: func(m *Metadata) *string { return &m.Album }},
	props.Genre:           {text: func(m *Metadata) *string { return &m.Genre }},
	props.Comment:         {text: func(m *Metadata) *string { return &m.Comment }},
	props.Description:     {text: func(m *Metadata) *string { return &m.Description }},
	props.Tag:             {text: func(m *Metadata) *string { return &m.Tags }},
	props.Label:           {text: func(m *Metadata) *string { return &m.Label }},
	props.Show:            {text: func(m *Metadata) *string { return &m.Show }},
	props.CameraMake:      {text: func(m *Metadata) *string { return &m.CameraMake }},
	props.CameraModel:     {text: func(m *Metadata) *string { return &m.CameraModel }},
	props.Lens:            {text: func(m *Metadata) *string { return &m.Lens }},
	props.Copyright:       {text: func(m *Metadata) *string { return &m.Copyright }},
	props.Software:        {text: func(m *Metadata) *string { return &m.Software }},
	props.VideoCodec:      {text: func(m *Metadata) *string { return &m.VideoCodec }},
	props.AudioCodec:      {text: func(m *Metadata) *string { return &m.AudioCodec }},
	props.PixelFormat:     {text: func(m *Metadata) *string { return &m.PixelFormat }},
	props.Rating:          {num: func(m *Metadata) *int { return &m.Rating }},
	props.Year:            {num: func(m *Metadata) *int { return &m.Year }},
	props.Season:          {num: func(m *Metadata) *int { return &m.Season }},
	props.Width:           {num: func(m *Metadata) *int { return &m.Width }},
	props.Height:          {num: func(m *Metadata) *int { return &m.Height }},
	props.ISO:             {num: func(m *Metadata) *int { return &m.ISO }},
	props.Orientation:     {num: func(m *Metadata) *int { return &m.Orientation }},
	props.Duration:        {num: func(m *Metadata) *int { return &m.Duration }},
	props.Bitrate:         {num: func(m *Metadata) *int { return &m.Bitrate }},
	props.AudioSampleRate: {num: func(m *Metadata) *int { return &m.AudioSampleRate }},
	props.AudioSampleType: {num: func(m *Metadata) *int { return &m.AudioSampleType }},
	props.AudioChannels:   {num: func(m *Metadata) *int { return &m.AudioChannels }},
	props.Track:           {pair: func(m *Metadata) *Pair { return &m.Track }},
	props.Disc:            {pair: func(m *Metadata) *Pair { return &m.Disc }},
	props.Episode:         {pair: func(m *Metadata) *Pair { return &m.Episode }},
	props.FNumber:         {float: func(m *Metadata) *float64 { return &m.FNumber }},
	props.ExposureTime:    {float: func(m *Metadata) *float64 { return &m.ExposureTime }},
	props.FocalLength:     {float: func(m *Metadata) *float64 { return &m.FocalLength }},
	props.FrameRate:       {float: func(m *Metadata) *float64 { return &m.FrameRate }},
	props.DateTaken:       {date: func(m *Metadata) *time.Time { return &m.DateTaken }},
	props.Location:        {coord: func(m *Metadata) *Coordinate { return &m.Location }},
}

// Stored reports whether k is held in the metadata record.
func Stored(k props.Key) bool {
	_, ok := accessors[k]
	return ok
}

// Text returns a text property.
func (m *Metadata) Text(k props.Key) (string, bool) {
	if m == nil {
		return "", false
	}
	if a, ok := accessors[k]; ok && a.text != nil {
		v := *a.text(m)
		return v, v != ""
	}
	return "", false
}

// Int returns an integer property.
func (m *Metadata) Int(k props.Key) (int, bool) {
	if m == nil {
		return 0, false
	}
	if a, ok := accessors[k]; ok && a.num != nil {
		v := *a.num(m)
		return v, v != 0
	}
	return 0, false
}

// Float returns a float property.
func (m *Metadata) Float(k props.Key) (float64, bool) {
	if m == nil {
		return 0, false
	}
	if a, ok := accessors[k]; ok && a.float != nil {
		v := *a.float(m)
		return v, v != 0
	}
	return 0, false
}

// Date returns a date property.
func (m *Metadata) Date(k props.Key) (time.Time, bool) {
	if m == nil {
		return time.Time{}, false
	}
	if a, ok := accessors[k]; ok && a.date != nil {
		v := *a.date(m)
		return v, !v.IsZero()
	}
	return time.Time{}, false
}

// PairValue returns a pair property.
func (m *Metadata) PairValue(k props.Key) (Pair, bool) {
	if m == nil {
		return Pair{}, false
	}
	if k == props.Dimensions {
		p := Pair{m.Width, m.Height}
		return p, m.Width != 0 && m.Height != 0
	}
	if a, ok := accessors[k]; ok && a.pair != nil {
		v := *a.pair(m)
		return v, !v.IsEmpty()
	}
	return Pair{}, false
}

// Coordinate returns the location if it is valid.
func (m *Metadata) Coordinate() (Coordinate, bool) {
	if m == nil {
		return Coordinate{}, false
	}
	return m.Location, m.Location.IsValid()
}

// Has reports whether property k carries a value.
func (m *Metadata) Has(k props.Key) bool {
	if m == nil {
		return false
	}
	switch k {
	case props.Dimensions:
		return m.Width != 0 && m.Height != 0
	case props.Megapixels:
		return m.Megapixels() > 0
	case props.Location:
		return m.Location.IsValid()
	}
	a, ok := accessors[k]
	if !ok {
		return false
	}
	switch {
	case a.text != nil:
		return *a.text(m) != ""
	case a.num != nil:
		return *a.num(m) != 0
	case a.float != nil:
		return *a.float(m) != 0
	case a.date != nil:
		return !a.date(m).IsZero()
	case a.pair != nil:
		return !a.pair(m).IsEmpty()
	case a.coord != nil:
		return a.coord(m).IsValid()
	}
	return false
}

// Megapixels returns width*height in millions.
func (m *Metadata) Megapixels() float64 {
	if m == nil || m.Width <= 0 || m.Height <= 0 {
		return 0
	}
	return float64(m.Width) * float64(m.Height) / 1e6
}

// TagList splits the tags field on ',' and ';'.
func (m *Metadata) TagList() []string {
	if m == nil {
		return nil
	}
	return SplitTags(m.Tags)
}

// SplitTags splits a tag string on ',' and ';', trimming blanks.
func SplitTags(s string) []string {
	if s == "" {
		return nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Bloom returns the has-value flags implied by this record.
func (m *Metadata) Bloom() bloom.Bits {
	if m == nil {
		return 0
	}
	b := bloom.HasMetadata
	for k := range accessors {
		if f := k.Definition().Bloom; f != 0 && m.Has(k) {
			b |= f
		}
	}
	return b
}

// IsEmpty reports whether no field is set.
func (m *Metadata) IsEmpty() bool {
	if m == nil {
		return true
	}
	return *m == Metadata{}
}

// Clone returns a copy that can be modified before being published.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return &Metadata{}
	}
	c := *m
	return &c
}

// Merge returns a copy of m with its empty fields filled from other.
func (m *Metadata) Merge(other *Metadata) *Metadata {
	out := m.Clone()
	if other == nil {
		return out
	}
	for k, a := range accessors {
		if out.Has(k) || !other.Has(k) {
			continue
		}
		switch {
		case a.text != nil:
			*a.text(out) = *a.text(other)
		case a.num != nil:
			*a.num(out) = *a.num(other)
		case a.float != nil:
			*a.float(out) = *a.float(other)
		case a.date != nil:
			*a.date(out) = *a.date(other)
		case a.pair != nil:
			*a.pair(out) = *a.pair(other)
		case a.coord != nil:
			*a.coord(out) = *a.coord(other)
		}
	}
	return out
}

// Count returns the number of fields that carry a value. Used to decide
// which of two records is richer.
func (m *Metadata) Count() int {
	if m == nil {
		return 0
	}
	n := 0
	for k := range accessors {
		if m.Has(k) {
			n++
		}
	}
	return n
}
