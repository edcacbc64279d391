package metadata

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"media-catalog/internal/bloom"
	"media-catalog/internal/props"
)

func fullRecord() *Metadata {
	return &Metadata{
		Title:           "Christmas Morning",
		Artist:          "Ana",
		AlbumArtist:     "Various",
		Album:           "Holidays",
		Genre:           "Family",
		Comment:         "first snow",
		Description:     "tree and presents",
		Tags:            "beach, sunset; 2023",
		Label:           "red",
		Show:            "Home Movies",
		CameraMake:      "Canon",
		CameraModel:     "EOS R5",
		Lens:            "RF 24-70mm",
		Copyright:       "(c) 2023",
		Software:        "Lightroom",
		VideoCodec:      "h264",
		AudioCodec:      "aac",
		PixelFormat:     "yuv420p",
		Rating:          4,
		Year:            2023,
		Season:          2,
		Width:           8192,
		Height:          5464,
		ISO:             200,
		Orientation:     6,
		Duration:        90,
		Bitrate:         320000,
		AudioSampleRate: 48000,
		AudioSampleType: props.SampleS24,
		AudioChannels:   2,
		Track:           Pair{3, 12},
		Disc:            Pair{1, 2},
		Episode:         Pair{5, 0},
		FNumber:         2.8,
		ExposureTime:    1.0 / 500,
		FocalLength:     50,
		FrameRate:       29.97,
		DateTaken:       time.Date(2023, 12, 25, 8, 30, 0, 0, time.UTC),
		Location:        Coordinate{51.505, -0.119},
	}
}

func TestPackRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		md   *Metadata
	}{
		{"empty", &Metadata{}},
		{"title only", &Metadata{Title: "x"}},
		{"negative int", &Metadata{Rating: -1}},
		{"full", fullRecord()},
		{"long text", &Metadata{Comment: strings.Repeat("a", 300)}},
		{"very long text", &Metadata{Description: strings.Repeat("b", 70000)}},
		{"pre-epoch date", &Metadata{DateTaken: time.Date(1955, 3, 1, 0, 0, 0, 0, time.UTC)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unpack(Pack(tt.md))
			if err != nil {
				t.Fatalf("Unpack: %v", err)
			}
			if *got != *tt.md {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, tt.md)
			}
		})
	}
}

func TestPackOmitsEmptyFields(t *testing.T) {
	data := Pack(&Metadata{})
	if !bytes.Equal(data, []byte{0xFF, 0x01}) {
		t.Errorf("empty record packed to %x", data)
	}

	data = Pack(&Metadata{Title: "ab"})
	want := []byte{0xFF, 0x01, 2, 0, 2, 'a', 'b'}
	if !bytes.Equal(data, want) {
		t.Errorf("Pack = %x, want %x", data, want)
	}
}

func TestPackLengthPrefixes(t *testing.T) {
	tests := []struct {
		n      int
		prefix []byte
	}{
		{0xFD, []byte{0xFD}},
		{0xFE, []byte{0xFF, 0xFE, 0x00}},
		{0xFFFF, []byte{0xFF, 0xFF, 0xFF}},
		{0x10000, []byte{0xFE, 0x00, 0x00, 0x01, 0x00}},
	}

	for _, tt := range tests {
		data := Pack(&Metadata{Title: strings.Repeat("x", tt.n)})
		got := data[4 : 4+len(tt.prefix)]
		if !bytes.Equal(got, tt.prefix) {
			t.Errorf("length %d: prefix %x, want %x", tt.n, got, tt.prefix)
		}
	}
}

func TestUnpackStopsAtUnknownID(t *testing.T) {
	data := Pack(&Metadata{Title: "kept"})
	data = append(data, 0xEE, 0xEE, 1, 'z')
	data = append(data, 3, 0, 1, 'q')

	got, err := Unpack(data)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got.Title != "kept" || got.Artist != "" {
		t.Errorf("got %+v", got)
	}
}

func TestUnpackErrors(t *testing.T) {
	if md, err := Unpack(nil); md != nil || err != nil {
		t.Errorf("Unpack(nil) = %v, %v", md, err)
	}
	if _, err := Unpack([]byte{0x00, 0x01}); !errors.Is(err, ErrBadHeader) {
		t.Errorf("expected ErrBadHeader, got %v", err)
	}

	data := Pack(&Metadata{Title: "hello", Rating: 3})
	md, err := Unpack(data[:len(data)-2])
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
	if md == nil || md.Title != "hello" {
		t.Errorf("fields before truncation should survive: %+v", md)
	}
}

func TestHasAndAccessors(t *testing.T) {
	md := fullRecord()

	if v, ok := md.Int(props.Rating); !ok || v != 4 {
		t.Errorf("Int(Rating) = %d, %v", v, ok)
	}
	if _, ok := md.Text(props.Rating); ok {
		t.Error("Text on an int property should fail")
	}
	if p, ok := md.PairValue(props.Dimensions); !ok || p != (Pair{8192, 5464}) {
		t.Errorf("Dimensions = %v, %v", p, ok)
	}
	if !md.Has(props.Location) || (&Metadata{}).Has(props.Location) {
		t.Error("Has(Location) wrong")
	}

	var nilMD *Metadata
	if nilMD.Has(props.Title) || nilMD.Megapixels() != 0 {
		t.Error("nil record should have nothing")
	}
}

func TestBloomFlags(t *testing.T) {
	md := fullRecord()
	b := md.Bloom()
	if !b.Satisfies(bloom.HasDateTaken | bloom.HasLocation | bloom.HasMetadata) {
		t.Errorf("Bloom = %v", b)
	}
	if (&Metadata{Title: "x"}).Bloom().Satisfies(bloom.HasDateTaken) {
		t.Error("record without date should not carry date flag")
	}
}

func TestMergeKeepsExisting(t *testing.T) {
	thin := &Metadata{Title: "new title"}
	rich := fullRecord()

	merged := thin.Merge(rich)
	if merged.Title != "new title" {
		t.Errorf("Title = %q", merged.Title)
	}
	if merged.Artist != rich.Artist || merged.Location != rich.Location {
		t.Errorf("missing fields not filled: %+v", merged)
	}
	if thin.Artist != "" {
		t.Error("Merge mutated the receiver")
	}
	if merged.Count() <= thin.Count() {
		t.Error("merged record should be richer")
	}
}

func TestDistanceKm(t *testing.T) {
	a := Coordinate{51.5, -0.12}
	b := Coordinate{51.505, -0.119}
	d := a.DistanceKm(b)
	if d < 0.4 || d > 0.8 {
		t.Errorf("distance = %f km, want about 0.6", d)
	}
	c := Coordinate{51.545, -0.12}
	if d := a.DistanceKm(c); math.Abs(d-5) > 0.1 {
		t.Errorf("distance = %f km, want about 5", d)
	}
}

func TestFormat(t *testing.T) {
	md := fullRecord()
	tests := []struct {
		key  props.Key
		want string
	}{
		{props.Dimensions, "8192x5464"},
		{props.Duration, "1:30"},
		{props.ISO, "ISO200"},
		{props.FNumber, "f/2.8"},
		{props.ExposureTime, "1/500s"},
		{props.FocalLength, "50mm"},
		{props.Megapixels, "45MP"},
		{props.AudioChannels, "stereo"},
		{props.Track, "3/12"},
		{props.Title, "Christmas Morning"},
	}

	for _, tt := range tests {
		if got := md.Format(tt.key); got != tt.want {
			t.Errorf("Format(%v) = %q, want %q", tt.key, got, tt.want)
		}
	}
	if FormatDuration(3723) != "1:02:03" {
		t.Errorf("FormatDuration(3723) = %q", FormatDuration(3723))
	}
}

func TestNearestStop(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{2.9, 2.8},
		{2.8, 2.8},
		{5.5, 5.6},
		{7.9, 8},
		{1.75, 1.8},
	}
	for _, tt := range tests {
		if got := NearestStop(tt.in); got != tt.want {
			t.Errorf("NearestStop(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRoundSize(t *testing.T) {
	if RoundSize(1_960_000) != RoundSize(2_000_000) {
		t.Errorf("%q and %q should render the same", RoundSize(1_960_000), RoundSize(2_000_000))
	}
	if RoundSize(1_000_000) == RoundSize(2_000_000) {
		t.Error("distinct sizes rendered equal")
	}
}

func TestSplitTags(t *testing.T) {
	got := SplitTags(" beach, sunset;;2023 ")
	want := []string{"beach", "sunset", "2023"}
	if len(got) != len(want) {
		t.Fatalf("SplitTags = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SplitTags[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
