// Package handlers provides the HTTP API over the in-memory catalog.
//
// It includes handlers for:
//   - Search, match counts, predictions and the catalog summary
//   - Thumbnails, served from the write-back queue, the database or generated on demand
//   - Per-item updates: CRC, playback position and GPS location
//   - Import history
//   - Re-index and database maintenance triggers
//   - Health, readiness, version and Prometheus metrics
//
// Queries are parsed with the search package and evaluated against the
// index.State owned by the indexer; the handlers never touch SQL directly
// except for import history.
package handlers
