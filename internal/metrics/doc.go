// Package metrics provides Prometheus instrumentation for the media catalog.
//
// All metrics are registered with promauto at package initialisation and
// prefixed with "media_catalog_".
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of total requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Database Metrics
//
//   - DBQueryTotal / DBQueryDuration: per operation
//   - DBTransactionDuration: commit, rollback and write batches
//   - DBFailuresTotal: failed operations; the catalog reports errors once this moves
//   - DBSizeBytes: main, WAL and SHM file sizes
//
// ## Indexer Metrics
//
//   - IndexerRunsTotal, IndexerLastRunTimestamp, IndexerLastRunDuration
//   - IndexerFilesProcessed, IndexerFoldersProcessed, IndexerErrors
//   - IndexerIsRunning, IndexerFolderScanDuration, IndexerOfflineItems
//
// ## Query Metrics
//
//   - QueriesTotal: by kind (search, count) and status (success, cancelled)
//   - QueryDuration: by kind
//   - QueryMatches: matches per query
//
// ## Write-back Queue Metrics
//
//   - WriteQueueDepth, WriteQueueFlushes, WriteQueueItemsWritten
//
// ## Catalog Content Metrics
//
// Updated by the Collector from a StatsProvider:
//   - CatalogFilesTotal, CatalogFoldersTotal, CatalogTagsTotal, CatalogDuplicateGroups
//
// ## Filesystem Metrics
//
// Recorded through the filesystem.Observer returned by NewFilesystemObserver,
// which keeps the filesystem package free of a metrics import.
//
// # Usage
//
//	metrics.InitializeMetrics()
//	collector := metrics.NewCollector(state, time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
//	router.Handle("/metrics", promhttp.Handler())
package metrics
