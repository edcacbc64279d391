// Package mediatypes classifies files into media groups by extension.
//
// It has no internal imports so the catalog, the query parser and the
// scanner can all depend on it.
//
//	mediatypes.FromName("IMG_0001.JPG") // FileTypeImage
//	mediatypes.ParseAlias("movies")     // FileTypeVideo, true
//
// ParseAlias resolves the words users type after '@' in a query.
package mediatypes
