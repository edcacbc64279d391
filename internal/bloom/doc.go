// Package bloom defines the small bit signature used to reject files before
// running the full matcher.
//
// A signature has two independent bit spaces. The low byte holds one bit per
// media group (see mediatypes.AllTypes). The bits above it are "has value"
// flags such as HasDuplicates or HasDateTaken.
//
// A file's signature is computed once when the item is built. A search
// computes its required bits once per query. A file whose signature does
// not satisfy the required bits can never match, but satisfying them is not
// proof of a match.
package bloom
