// Package database provides the SQLite cache behind the in-memory catalog.
//
// It stores:
//   - Item properties: file attributes, content hash, CRC, playback position
//     and the packed metadata record of every catalogued file
//   - Thumbnails of files and folders
//   - When each folder was last read from the file system
//   - Import history and cached web service responses
//
// All writes arrive as batches drained from the catalog's write-back queue
// and are applied in one transaction per batch by PerformWrites. Failures
// after open are logged and counted (see Failures) rather than returned to
// readers. A file that is not a readable database fails New with a
// *CorruptError; Maintenance(ctx, true) deletes and recreates it.
//
// The database uses WAL mode and a one second busy timeout.
package database
