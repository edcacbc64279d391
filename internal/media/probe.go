package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"media-catalog/internal/metadata"
	"media-catalog/internal/props"
)

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType     string            `json:"codec_type"`
	CodecName     string            `json:"codec_name"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	PixFmt        string            `json:"pix_fmt"`
	AvgFrameRate  string            `json:"avg_frame_rate"`
	RFrameRate    string            `json:"r_frame_rate"`
	SampleRate    string            `json:"sample_rate"`
	SampleFmt     string            `json:"sample_fmt"`
	Channels      int               `json:"channels"`
	BitsPerSample string            `json:"bits_per_raw_sample"`
	Tags          map[string]string `json:"tags"`
}

type probeFormat struct {
	Duration string            `json:"duration"`
	BitRate  string            `json:"bit_rate"`
	Tags     map[string]string `json:"tags"`
}

// probe runs ffprobe against path and converts its JSON report.
func probe(ctx context.Context, ffprobePath, path string) (*metadata.Metadata, error) {
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe error: %w - %s", err, stderr.String())
	}
	return parseProbe(stdout.Bytes())
}

func parseProbe(data []byte) (*metadata.Metadata, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	m := &metadata.Metadata{}
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil && d > 0 {
		m.Duration = int(math.Round(d))
	}
	if b, err := strconv.Atoi(out.Format.BitRate); err == nil && b > 0 {
		m.Bitrate = b / 1000
	}

	videoSeen, audioSeen := false, false
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if videoSeen {
				continue
			}
			videoSeen = true
			m.VideoCodec = s.CodecName
			m.Width, m.Height = s.Width, s.Height
			m.PixelFormat = s.PixFmt
			rate := parseRate(s.AvgFrameRate)
			if rate == 0 {
				rate = parseRate(s.RFrameRate)
			}
			m.FrameRate = math.Round(rate*100) / 100
		case "audio":
			if audioSeen {
				continue
			}
			audioSeen = true
			m.AudioCodec = s.CodecName
			m.AudioChannels = s.Channels
			if r, err := strconv.Atoi(s.SampleRate); err == nil {
				m.AudioSampleRate = r
			}
			m.AudioSampleType = sampleType(s.SampleFmt, s.BitsPerSample)
		}
	}

	applyTags(m, lowerKeys(out.Format.Tags))
	return m, nil
}

// parseRate parses ffprobe rationals like "30000/1001".
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func sampleType(format, bitsPerSample string) int {
	switch {
	case bitsPerSample == "24":
		return props.SampleS24
	case strings.HasPrefix(format, "u8"):
		return props.SampleU8
	case strings.HasPrefix(format, "s16"):
		return props.SampleS16
	case strings.HasPrefix(format, "s32"):
		return props.SampleS32
	case strings.HasPrefix(format, "flt"):
		return props.SampleFloat
	case strings.HasPrefix(format, "dbl"):
		return props.SampleDouble
	}
	return props.SampleUnknown
}

func lowerKeys(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[strings.ToLower(k)] = strings.TrimSpace(v)
	}
	return out
}

func applyTags(m *metadata.Metadata, tags map[string]string) {
	m.Title = tags["title"]
	m.Artist = tags["artist"]
	m.AlbumArtist = firstOf(tags, "album_artist", "albumartist")
	m.Album = tags["album"]
	m.Genre = tags["genre"]
	m.Comment = tags["comment"]
	m.Description = firstOf(tags, "description", "synopsis")
	m.Show = tags["show"]
	m.Copyright = tags["copyright"]
	m.Tags = firstOf(tags, "keywords", "tags")
	m.Track = parsePair(tags["track"])
	m.Disc = parsePair(tags["disc"])
	if ep, err := strconv.Atoi(tags["episode_id"]); err == nil {
		m.Episode = metadata.Pair{X: ep}
	}
	if season, err := strconv.Atoi(tags["season_number"]); err == nil {
		m.Season = season
	}

	if s := firstOf(tags, "creation_time", "date"); s != "" {
		if y, err := strconv.Atoi(s); err == nil && y > 0 && y < 10000 {
			m.Year = y
		} else if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
			m.DateTaken = t
			m.Year = t.Year()
		}
	}
}

func firstOf(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := tags[k]; v != "" {
			return v
		}
	}
	return ""
}

// parsePair reads "3/12" or "3".
func parsePair(s string) metadata.Pair {
	a, b, _ := strings.Cut(s, "/")
	x, _ := strconv.Atoi(strings.TrimSpace(a))
	y, _ := strconv.Atoi(strings.TrimSpace(b))
	return metadata.Pair{X: x, Y: y}
}
