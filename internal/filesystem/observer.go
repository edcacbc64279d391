package filesystem

import "time"

// RetryEvent is one step of the stale file handle retry loop.
type RetryEvent int

const (
	// RetryStale means an attempt failed with ESTALE.
	RetryStale RetryEvent = iota
	// RetryAgain means another attempt follows after a backoff.
	RetryAgain
	// RetryRecovered means an attempt after a stale handle succeeded.
	RetryRecovered
	// RetryExhausted means every attempt failed with ESTALE.
	RetryExhausted
)

func (e RetryEvent) String() string {
	switch e {
	case RetryStale:
		return "stale"
	case RetryAgain:
		return "retry"
	case RetryRecovered:
		return "recovered"
	case RetryExhausted:
		return "exhausted"
	}
	return "unknown"
}

// Observer receives file system metrics. The metrics package implements it,
// which keeps Prometheus out of this package.
type Observer interface {
	// Finished records a completed operation. attempts counts every call of
	// the underlying os function, so it is above one only after a retry.
	Finished(volume, op string, attempts int, elapsed time.Duration, err error)

	// Retry records a step of the retry loop.
	Retry(volume, op string, event RetryEvent)
}

type nopObserver struct{}

func (nopObserver) Finished(string, string, int, time.Duration, error) {}
func (nopObserver) Retry(string, string, RetryEvent)                   {}

var observer Observer = nopObserver{}

// SetObserver installs the metrics observer. Call it once at startup; nil
// restores the default, which records nothing.
func SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	observer = o
}
