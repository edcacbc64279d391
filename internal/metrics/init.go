package metrics

import "media-catalog/internal/filesystem"

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Filesystem operation metrics (per volume × operation) ---
	volumes := []string{"media", "database", "unknown"}
	fsOps := []string{"stat", "open", "readdir"}

	for _, vol := range volumes {
		for _, op := range fsOps {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryDuration.WithLabelValues(vol, op)
			for _, event := range []filesystem.RetryEvent{
				filesystem.RetryStale, filesystem.RetryAgain, filesystem.RetryRecovered, filesystem.RetryExhausted,
			} {
				FilesystemRetryEvents.WithLabelValues(vol, op, event.String())
			}
		}
	}

	for _, t := range []string{"image", "video", "audio", "folder"} {
		ThumbnailGenerationsTotal.WithLabelValues(t, "success")
		ThumbnailGenerationsTotal.WithLabelValues(t, "error")
		ThumbnailGenerationDuration.WithLabelValues(t)
		MetadataExtractionsTotal.WithLabelValues(t, "success")
		MetadataExtractionsTotal.WithLabelValues(t, "error")
		CatalogFilesTotal.WithLabelValues(t)
	}

	for _, kind := range []string{"search", "count"} {
		for _, status := range []string{"success", "cancelled"} {
			QueriesTotal.WithLabelValues(kind, status)
		}
		QueryDuration.WithLabelValues(kind)
	}

	for _, status := range []string{"success", "error"} {
		WriteQueueFlushes.WithLabelValues(status)
	}

	for _, reason := range []string{"write_timeout", "client_gone", "canceled"} {
		StreamAbortsTotal.WithLabelValues(reason)
	}

	// --- DB query operations ---
	for _, op := range []string{"initialize_schema", "load_index_values", "perform_writes",
		"load_thumbnail", "web_cache_get", "web_cache_set", "record_import", "is_imported",
		"clean", "vacuum", "begin_transaction", "commit", "rollback"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, t := range []string{"commit", "rollback", "write_batch", "clean"} {
		DBTransactionDuration.WithLabelValues(t)
	}

	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}
}
