// Package props defines the closed set of catalog properties.
//
// Each Key has a definition describing its canonical name, the scope words a
// query may use for it, the kind of value it carries, the stable id used by
// the metadata pack format, the bloom flag it implies and whether it takes
// part in free-text searches. Callers switch on Key values or consult the
// definition table; keys are never compared by pointer.
package props
