// Package indexer keeps the in-memory catalog in step with the media
// folders and persists it.
//
// On Start the indexer:
//   - Loads the database cache into the catalog, linking sub-folders
//   - Rescans every root in the background, trusting unchanged folders
//   - Rescans periodically when an index interval is configured
//   - Applies fsnotify change notifications, debounced, when watching
//
// A single write loop drains the catalog's write-back queue into the
// database, one transaction per flush. A batch that fails because the
// database is busy is requeued; any other failure drops it.
//
// Folders outside the configured roots are dropped from the catalog on the
// next index and from the database by the clean that follows it. Hidden
// files and directories (prefixed with '.') are never catalogued.
package indexer
