package bloom

import (
	"strings"

	"media-catalog/internal/mediatypes"
)

// Bits is a bloom signature.
type Bits uint32

// Has-value flags live above the media group byte.
const (
	HasDuplicates Bits = 1 << (8 + iota)
	HasDateTaken
	HasLocation
	HasMetadata
)

// Group returns the media group bit for t.
func Group(t mediatypes.FileType) Bits {
	return 1 << uint(t.Index())
}

// Satisfies reports whether every bit in required is also set in b.
func (b Bits) Satisfies(required Bits) bool {
	return b&required == required
}

// Groups returns only the media group bits.
func (b Bits) Groups() Bits {
	return b & 0xFF
}

// Flags returns only the has-value bits.
func (b Bits) Flags() Bits {
	return b &^ 0xFF
}

func (b Bits) String() string {
	if b == 0 {
		return "none"
	}
	var parts []string
	for _, t := range mediatypes.AllTypes {
		if b&Group(t) != 0 {
			parts = append(parts, string(t))
		}
	}
	if b&HasDuplicates != 0 {
		parts = append(parts, "duplicates")
	}
	if b&HasDateTaken != 0 {
		parts = append(parts, "date_taken")
	}
	if b&HasLocation != 0 {
		parts = append(parts, "location")
	}
	if b&HasMetadata != 0 {
		parts = append(parts, "metadata")
	}
	return strings.Join(parts, "|")
}
