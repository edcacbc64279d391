package metadata

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"media-catalog/internal/props"
)

// standardStops are the conventional full, half and third f-stops.
var standardStops = []float64{
	0.95, 1.0, 1.1, 1.2, 1.4, 1.6, 1.8, 2.0, 2.2, 2.5, 2.8, 3.2, 3.5, 4.0,
	4.5, 5.0, 5.6, 6.3, 7.1, 8.0, 9.0, 10, 11, 13, 14, 16, 18, 20, 22, 25,
	29, 32, 36, 40, 45, 51, 57, 64,
}

// NearestStop rounds an aperture to the closest conventional f-stop.
func NearestStop(f float64) float64 {
	if f <= 0 {
		return 0
	}
	best := standardStops[0]
	for _, s := range standardStops[1:] {
		if math.Abs(math.Log(s/f)) < math.Abs(math.Log(best/f)) {
			best = s
		}
	}
	return best
}

// RoundMegapixels rounds to one decimal place below 2MP and to whole
// megapixels above.
func RoundMegapixels(mp float64) float64 {
	if mp < 2 {
		return math.Round(mp*10) / 10
	}
	return math.Round(mp)
}

// RoundSize rounds a byte count to the precision it is displayed with.
func RoundSize(n int64) string {
	return humanize.Bytes(uint64(max(n, 0)))
}

// RoundSizeValue rounds a byte count to the value its display form
// stands for, so "1.96 MB" and "2 MB" compare equal.
func RoundSizeValue(n int64) int64 {
	v, err := humanize.ParseBytes(RoundSize(n))
	if err != nil {
		return n
	}
	return int64(v)
}

// FormatSize renders a byte count for display.
func FormatSize(n int64) string {
	return RoundSize(n)
}

// FormatDuration renders seconds as m:ss or h:mm:ss.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds / 60) % 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatFNumber renders an aperture as f/N.
func FormatFNumber(f float64) string {
	return "f/" + strconv.FormatFloat(NearestStop(f), 'f', -1, 64)
}

// FormatExposure renders an exposure time as 1/Ns or Ns.
func FormatExposure(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	if seconds < 1 {
		return fmt.Sprintf("1/%ds", int(math.Round(1/seconds)))
	}
	return strconv.FormatFloat(seconds, 'f', -1, 64) + "s"
}

// FormatFocalLength renders a focal length in millimetres.
func FormatFocalLength(mm float64) string {
	return strconv.FormatFloat(math.Round(mm*10)/10, 'f', -1, 64) + "mm"
}

// FormatISO renders an ISO speed.
func FormatISO(iso int) string {
	return "ISO" + strconv.Itoa(iso)
}

// FormatDimensions renders width x height.
func FormatDimensions(w, h int) string {
	return strconv.Itoa(w) + "x" + strconv.Itoa(h)
}

// FormatPair renders "x of y" or just x.
func FormatPair(p Pair) string {
	if p.Y > 0 {
		return fmt.Sprintf("%d/%d", p.X, p.Y)
	}
	return strconv.Itoa(p.X)
}

// Format renders property k for display and free-text matching. Empty
// properties render as "".
func (m *Metadata) Format(k props.Key) string {
	if m == nil || !m.Has(k) {
		return ""
	}
	switch k {
	case props.Dimensions:
		return FormatDimensions(m.Width, m.Height)
	case props.Megapixels:
		return strconv.FormatFloat(RoundMegapixels(m.Megapixels()), 'f', -1, 64) + "MP"
	case props.Duration:
		return FormatDuration(m.Duration)
	case props.ISO:
		return FormatISO(m.ISO)
	case props.FNumber:
		return FormatFNumber(m.FNumber)
	case props.ExposureTime:
		return FormatExposure(m.ExposureTime)
	case props.FocalLength:
		return FormatFocalLength(m.FocalLength)
	case props.AudioSampleType:
		return props.SampleTypeName(m.AudioSampleType)
	case props.AudioChannels:
		if n := props.ChannelsName(m.AudioChannels); n != "" {
			return n
		}
		return strconv.Itoa(m.AudioChannels)
	case props.Location:
		return fmt.Sprintf("%.5f,%.5f", m.Location.Latitude, m.Location.Longitude)
	case props.DateTaken:
		return m.DateTaken.Format("2006-01-02 15:04:05")
	}

	if s, ok := m.Text(k); ok {
		return s
	}
	if n, ok := m.Int(k); ok {
		return strconv.Itoa(n)
	}
	if f, ok := m.Float(k); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if p, ok := m.PairValue(k); ok {
		return FormatPair(p)
	}
	return ""
}

// Values renders every set property, keyed by canonical name.
func (m *Metadata) Values() map[string]string {
	out := map[string]string{}
	if m == nil {
		return out
	}
	for _, k := range props.All() {
		if !Stored(k) && k != props.Dimensions && k != props.Megapixels {
			continue
		}
		if s := m.Format(k); s != "" {
			out[strings.ToLower(k.Name())] = s
		}
	}
	return out
}
