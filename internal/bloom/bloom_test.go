package bloom

import (
	"testing"

	"media-catalog/internal/mediatypes"
)

func TestSatisfies(t *testing.T) {
	photo := Group(mediatypes.FileTypeImage) | HasDateTaken

	tests := []struct {
		name     string
		file     Bits
		required Bits
		want     bool
	}{
		{"nothing required", photo, 0, true},
		{"group present", photo, Group(mediatypes.FileTypeImage), true},
		{"group and flag", photo, Group(mediatypes.FileTypeImage) | HasDateTaken, true},
		{"other group", photo, Group(mediatypes.FileTypeVideo), false},
		{"missing flag", photo, HasDuplicates, false},
		{"empty file", 0, HasLocation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.file.Satisfies(tt.required); got != tt.want {
				t.Errorf("%v.Satisfies(%v) = %v, want %v", tt.file, tt.required, got, tt.want)
			}
		})
	}
}

func TestGroupBitsDoNotOverlapFlags(t *testing.T) {
	for _, ft := range mediatypes.AllTypes {
		g := Group(ft)
		if g.Flags() != 0 {
			t.Errorf("group bit for %v overlaps flag space: %#x", ft, uint32(g))
		}
	}
	flags := HasDuplicates | HasDateTaken | HasLocation | HasMetadata
	if flags.Groups() != 0 {
		t.Errorf("flags overlap group space: %#x", uint32(flags))
	}
}

func TestString(t *testing.T) {
	b := Group(mediatypes.FileTypeVideo) | HasDuplicates
	if got := b.String(); got != "video|duplicates" {
		t.Errorf("String() = %q", got)
	}
	if got := Bits(0).String(); got != "none" {
		t.Errorf("String() = %q", got)
	}
}
