// Package main provides the media-catalog command.
//
// media-catalog keeps an in-memory catalog of one or more media folders,
// persisted to SQLite, and answers searches over it. The serve command runs
// the indexer and the HTTP API; the other commands work offline against the
// cached catalog.
//
// # Commands
//
//	media-catalog serve                  index, watch and serve the HTTP API
//	media-catalog query "@photo beach"   search the cached catalog
//	media-catalog count "@video 2023"    count matches in the cached catalog
//	media-catalog maintenance [--reset]  compact or clear the database
//	media-catalog version                print build information
//
// query and count print a table on a terminal and JSON otherwise, so their
// output can be piped into other tools.
//
// # Application Lifecycle
//
// serve follows a fixed initialization sequence:
//
//  1. Configuration Loading: environment variables, then the optional TOML file
//  2. Logging: optional rotating log file
//  3. Metrics: Prometheus registration and filesystem observer
//  4. Database Initialization: opens the SQLite catalog, failing on corruption
//  5. Catalog: loads cached folders, then starts the background indexer,
//     the write-back flusher and, when enabled, the file watcher
//  6. HTTP Server Setup: routes, metrics and logging middleware
//  7. Graceful Shutdown: on SIGINT/SIGTERM the server drains, the indexer
//     stops and pending writes are flushed before the database closes
//
// # Environment Variables
//
// See package startup for the full list. The most common are:
//
//   - MEDIA_DIRS: media roots separated by the OS path list separator
//   - DATABASE_DIR: directory holding catalog.db and catalog.toml
//   - PORT: HTTP port (default: 8080)
//   - INDEX_INTERVAL: time between rescans (default: 30m)
//   - WATCH: watch the media roots for changes (default: false)
//   - LOG_LEVEL: debug, info, warn or error
//
// # Recovering a Corrupt Database
//
// A catalog database that fails sqlite's quick check stops serve at
// startup. The catalog is a cache of the media folders, so
//
//	media-catalog maintenance --reset
//
// deletes it and the next serve rebuilds it from a full scan.
package main
