package props

import "strings"

// Audio sample types as stored in AudioSampleType.
const (
	SampleUnknown = 0
	SampleU8      = 1
	SampleS16     = 2
	SampleS24     = 3
	SampleS32     = 4
	SampleFloat   = 5
	SampleDouble  = 6
)

var sampleTypes = []struct {
	value int
	names []string
}{
	{SampleU8, []string{"8bit", "8-bit", "u8"}},
	{SampleS16, []string{"16bit", "16-bit", "s16", "cd"}},
	{SampleS24, []string{"24bit", "24-bit", "s24", "hires", "hi-res"}},
	{SampleS32, []string{"32bit", "32-bit", "s32"}},
	{SampleFloat, []string{"float", "f32", "flt"}},
	{SampleDouble, []string{"double", "f64", "dbl"}},
}

var channelNames = []struct {
	value int
	names []string
}{
	{1, []string{"mono"}},
	{2, []string{"stereo"}},
	{3, []string{"2.1"}},
	{6, []string{"5.1", "surround"}},
	{8, []string{"7.1"}},
}

// ParseSampleType resolves a sample type word ("16bit", "float").
func ParseSampleType(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, st := range sampleTypes {
		for _, n := range st.names {
			if n == s {
				return st.value, true
			}
		}
	}
	return SampleUnknown, false
}

// SampleTypeName returns the display name of a sample type.
func SampleTypeName(v int) string {
	for _, st := range sampleTypes {
		if st.value == v {
			return st.names[0]
		}
	}
	return ""
}

// ParseChannels resolves a channel layout word ("stereo", "5.1").
func ParseChannels(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range channelNames {
		for _, n := range c.names {
			if n == s {
				return c.value, true
			}
		}
	}
	return 0, false
}

// ChannelsName returns the display name of a channel count.
func ChannelsName(v int) string {
	for _, c := range channelNames {
		if c.value == v {
			return c.names[0]
		}
	}
	return ""
}
