package metadata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"media-catalog/internal/props"
)

const (
	packMarker  = 0xFF
	packVersion = 0x01

	len16 = 0xFF
	len32 = 0xFE
)

// ErrBadHeader is returned by Unpack when the buffer does not start with
// the expected marker and version.
var ErrBadHeader = errors.New("metadata: bad pack header")

// ErrTruncated is returned by Unpack when a field runs past the end of the
// buffer. The fields read before it are still returned.
var ErrTruncated = errors.New("metadata: truncated pack")

// Pack encodes the non-empty fields of m.
func Pack(m *Metadata) []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, packMarker, packVersion)
	if m == nil {
		return buf
	}

	for _, k := range props.Packed() {
		a, ok := accessors[k]
		if !ok {
			continue
		}
		if value, ok := encodeField(m, a); ok {
			buf = appendField(buf, k.Definition().PackID, value)
		}
	}
	return buf
}

// encodeField returns the raw bytes of one field, or false when the field
// holds its zero value.
func encodeField(m *Metadata, a accessor) ([]byte, bool) {
	le := binary.LittleEndian
	switch {
	case a.text != nil:
		v := *a.text(m)
		return []byte(v), v != ""
	case a.num != nil:
		v := *a.num(m)
		return le.AppendUint32(nil, uint32(int32(v))), v != 0
	case a.float != nil:
		v := *a.float(m)
		return le.AppendUint64(nil, math.Float64bits(v)), v != 0
	case a.date != nil:
		v := *a.date(m)
		return le.AppendUint64(nil, uint64(v.Unix())), !v.IsZero()
	case a.pair != nil:
		p := *a.pair(m)
		b := le.AppendUint32(nil, uint32(int32(p.X)))
		return le.AppendUint32(b, uint32(int32(p.Y))), !p.IsEmpty()
	case a.coord != nil:
		c := *a.coord(m)
		b := le.AppendUint64(nil, math.Float64bits(c.Latitude))
		return le.AppendUint64(b, math.Float64bits(c.Longitude)), c != (Coordinate{})
	}
	return nil, false
}

func appendField(buf []byte, id uint16, value []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, id)
	n := len(value)
	switch {
	case n < len32:
		buf = append(buf, byte(n))
	case n < 0x10000:
		buf = append(buf, len16)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(n))
	default:
		buf = append(buf, len32)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(n))
	}
	return append(buf, value...)
}

// Unpack decodes a buffer produced by Pack. An empty buffer yields a nil
// record and no error.
func Unpack(data []byte) (*Metadata, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < 2 || data[0] != packMarker || data[1] != packVersion {
		return nil, ErrBadHeader
	}

	m := &Metadata{}
	pos := 2
	for pos+2 <= len(data) {
		id := binary.LittleEndian.Uint16(data[pos:])
		k, ok := props.ByPackID(id)
		if !ok {
			break
		}
		a, ok := accessors[k]
		if !ok {
			break
		}
		pos += 2

		n, next, err := readLength(data, pos)
		if err != nil {
			return m, err
		}
		pos = next
		if pos+n > len(data) {
			return m, ErrTruncated
		}
		value := data[pos : pos+n]
		pos += n

		if err := decodeField(m, a, value); err != nil {
			return m, fmt.Errorf("metadata: field %s: %w", k, err)
		}
	}
	return m, nil
}

func readLength(data []byte, pos int) (n, next int, err error) {
	if pos >= len(data) {
		return 0, pos, ErrTruncated
	}
	switch data[pos] {
	case len16:
		if pos+3 > len(data) {
			return 0, pos, ErrTruncated
		}
		return int(binary.LittleEndian.Uint16(data[pos+1:])), pos + 3, nil
	case len32:
		if pos+5 > len(data) {
			return 0, pos, ErrTruncated
		}
		return int(binary.LittleEndian.Uint32(data[pos+1:])), pos + 5, nil
	default:
		return int(data[pos]), pos + 1, nil
	}
}

func decodeField(m *Metadata, a accessor, v []byte) error {
	switch {
	case a.text != nil:
		*a.text(m) = string(v)
	case a.num != nil:
		if len(v) != 4 {
			return errSize(4, len(v))
		}
		*a.num(m) = int(int32(binary.LittleEndian.Uint32(v)))
	case a.float != nil:
		if len(v) != 8 {
			return errSize(8, len(v))
		}
		*a.float(m) = math.Float64frombits(binary.LittleEndian.Uint64(v))
	case a.date != nil:
		if len(v) != 8 {
			return errSize(8, len(v))
		}
		*a.date(m) = time.Unix(int64(binary.LittleEndian.Uint64(v)), 0).UTC()
	case a.pair != nil:
		if len(v) != 8 {
			return errSize(8, len(v))
		}
		*a.pair(m) = Pair{
			X: int(int32(binary.LittleEndian.Uint32(v))),
			Y: int(int32(binary.LittleEndian.Uint32(v[4:]))),
		}
	case a.coord != nil:
		if len(v) != 16 {
			return errSize(16, len(v))
		}
		*a.coord(m) = Coordinate{
			Latitude:  math.Float64frombits(binary.LittleEndian.Uint64(v)),
			Longitude: math.Float64frombits(binary.LittleEndian.Uint64(v[8:])),
		}
	}
	return nil
}

func errSize(want, got int) error {
	return fmt.Errorf("expected %d bytes, got %d", want, got)
}
