package metrics

import (
	"time"

	"media-catalog/internal/filesystem"
)

type filesystemObserver struct{}

// NewFilesystemObserver returns the observer that feeds the Filesystem*
// metrics. Install it with filesystem.SetObserver.
func NewFilesystemObserver() filesystem.Observer {
	return filesystemObserver{}
}

func (filesystemObserver) Finished(volume, op string, attempts int, elapsed time.Duration, err error) {
	FilesystemOperationDuration.WithLabelValues(volume, op).Observe(elapsed.Seconds())
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(volume, op).Inc()
	}
	if attempts > 1 {
		FilesystemRetryDuration.WithLabelValues(volume, op).Observe(elapsed.Seconds())
	}
}

func (filesystemObserver) Retry(volume, op string, event filesystem.RetryEvent) {
	FilesystemRetryEvents.WithLabelValues(volume, op, event.String()).Inc()
}
