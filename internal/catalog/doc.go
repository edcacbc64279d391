// Package catalog defines the in-memory catalog entries: one FileItem per
// file and one FolderItem per folder.
//
// A FolderItem is immutable once published. Changes produce a new FolderItem
// (Replace, Remove, With) that the owner swaps in under its own lock, so a
// reader holding an old pointer keeps a consistent snapshot.
//
// FileItem scalar attributes are fixed at construction. The metadata record,
// CRC, media position, duplicate linkage and bloom signature are published
// through atomics and may change after the item is visible to readers.
package catalog
