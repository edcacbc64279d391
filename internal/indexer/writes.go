package indexer

import (
	"context"
	"time"

	"media-catalog/internal/database"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// writeLoop flushes catalog changes to the database on a timer and
// whenever a flush is requested.
func (idx *Indexer) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(idx.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-idx.flushNow:
		case <-idx.stopChan:
			return
		}
		if err := idx.Flush(ctx); err != nil {
			logging.Warn("Write-back flush failed: %v", err)
		}
	}
}

// requestFlush wakes the write loop without waiting for it.
func (idx *Indexer) requestFlush() {
	select {
	case idx.flushNow <- struct{}{}:
	default:
	}
}

// Flush writes every queued change in one transaction. When the database
// is only busy the batch is put back for the next flush; any other failure
// drops it, since retrying a rejected batch would fail the same way.
// Flushes from the write loop, Stop and maintenance are serialized, so
// batches commit in the order they were dequeued.
func (idx *Indexer) Flush(ctx context.Context) error {
	idx.flushMu.Lock()
	defer idx.flushMu.Unlock()

	writes := idx.state.DequeueAll()
	if len(writes) == 0 {
		return nil
	}

	err := idx.db.PerformWrites(ctx, writes)
	if err != nil {
		metrics.WriteQueueFlushes.WithLabelValues("error").Inc()
		if database.IsBusy(err) {
			idx.state.Requeue(writes)
			logging.Debug("Database busy, requeued %d writes", len(writes))
		} else {
			logging.Error("Dropping %d queued writes: %v", len(writes), err)
		}
		return err
	}

	metrics.WriteQueueFlushes.WithLabelValues("success").Inc()
	metrics.WriteQueueItemsWritten.Add(float64(len(writes)))
	metrics.WriteQueueDepth.Set(float64(idx.state.PendingWrites()))
	return nil
}
