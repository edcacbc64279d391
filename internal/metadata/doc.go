// Package metadata holds the rich per-file metadata record and its compact
// binary encoding.
//
// A Metadata value is built once, published through an atomic pointer on the
// catalog item and never modified afterwards. Updates build a fresh record
// (usually via Clone) and swap it in.
//
// # Pack format
//
// Pack writes a two byte header {0xFF, 0x01} followed by one entry per
// non-empty field:
//
//	u16 LE  property pack id
//	len     1 byte if < 0xFE, else 0xFF + u16 LE, else 0xFE + u32 LE
//	bytes   the value
//
// Strings are raw UTF-8, integers are int32 LE, floats are float64 LE, dates
// are int64 LE Unix seconds, pairs are two int32 and coordinates two float64.
// Empty fields are not written. Unpack stops at the end of the buffer or at
// the first id it does not recognise.
package metadata
