package streaming

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a write exceeded the configured timeout.
	// This typically occurs when a client has stopped reading.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the client disconnected before the stream completed.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates that the writer was used after Close.
	ErrStreamCanceled = errors.New("stream canceled")
)

// Config configures an ArrayWriter.
type Config struct {
	// WriteTimeout is the maximum time a single write may block. Zero
	// disables the deadline.
	WriteTimeout time.Duration
	// FlushEvery flushes the response after this many elements. Zero
	// flushes only on Close.
	FlushEvery int
}

// DefaultConfig returns the settings used for search results.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		FlushEvery:   100,
	}
}

// ArrayWriter streams a JSON array to an HTTP client one element at a time.
// A client that stops reading fails the next write after WriteTimeout, and
// the writer's context is cancelled so the producer can stop early.
type ArrayWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	ctx     context.Context
	cancel  context.CancelFunc
	config  Config
	start   time.Time
	flusher bool

	mu           sync.Mutex
	deadlines    bool
	opened       bool
	closed       bool
	items        int
	bytesWritten int64
	err          error
}

// NewArrayWriter starts a JSON array response on w. Headers must be set
// before the first Add.
func NewArrayWriter(ctx context.Context, w http.ResponseWriter, config Config) *ArrayWriter {
	writerCtx, cancel := context.WithCancel(ctx)
	_, canFlush := w.(http.Flusher)
	return &ArrayWriter{
		w:         w,
		rc:        http.NewResponseController(w),
		ctx:       writerCtx,
		cancel:    cancel,
		config:    config,
		start:     time.Now(),
		flusher:   canFlush,
		deadlines: config.WriteTimeout > 0,
	}
}

// Context is cancelled when the stream fails or is closed.
func (a *ArrayWriter) Context() context.Context {
	return a.ctx
}

// Add encodes v as the next array element.
func (a *ArrayWriter) Add(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode stream element: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrStreamCanceled
	}
	if a.err != nil {
		return a.err
	}

	sep := byte(',')
	if !a.opened {
		sep = '['
		a.opened = true
	}
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, sep)
	buf = append(buf, data...)
	if err := a.write(buf); err != nil {
		return err
	}
	a.items++
	if a.config.FlushEvery > 0 && a.items%a.config.FlushEvery == 0 {
		a.flush()
	}
	return nil
}

// Close terminates the array and cancels the writer's context. It returns
// the error that aborted the stream, if any, in which case the array is
// left unterminated.
func (a *ArrayWriter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	defer a.cancel()

	if a.closed {
		return a.err
	}
	a.closed = true
	if a.err != nil {
		return a.err
	}

	tail := []byte("]\n")
	if !a.opened {
		tail = []byte("[]\n")
	}
	if err := a.write(tail); err != nil {
		return err
	}
	a.flush()

	logging.Debug("Stream completed: %d elements, %d bytes in %v", a.items, a.bytesWritten, time.Since(a.start))
	return nil
}

// Items returns the number of elements written.
func (a *ArrayWriter) Items() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.items
}

// Stats returns streaming statistics
func (a *ArrayWriter) Stats() (bytesWritten int64, duration time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bytesWritten, time.Since(a.start)
}

// write sends p with a fresh deadline. Callers hold a.mu.
func (a *ArrayWriter) write(p []byte) error {
	if a.deadlines {
		if err := a.rc.SetWriteDeadline(time.Now().Add(a.config.WriteTimeout)); err != nil {
			// Recorders and some wrappers cannot carry deadlines.
			if !errors.Is(err, http.ErrNotSupported) {
				logging.Debug("failed to set stream write deadline: %v", err)
			}
			a.deadlines = false
		}
	}

	n, err := a.w.Write(p)
	a.bytesWritten += int64(n)
	if err != nil {
		return a.fail(err)
	}
	return nil
}

func (a *ArrayWriter) flush() {
	if a.flusher {
		if err := a.rc.Flush(); err != nil {
			logging.Debug("failed to flush stream: %v", err)
		}
	}
}

// fail records why the stream stopped. Callers hold a.mu.
func (a *ArrayWriter) fail(err error) error {
	var reason string
	switch {
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		a.err = fmt.Errorf("%w: %v", ErrWriteTimeout, err)
		reason = "write_timeout"
	case a.ctx.Err() != nil:
		a.err = fmt.Errorf("%w: %v", ErrStreamCanceled, err)
		reason = "canceled"
	default:
		a.err = fmt.Errorf("%w: %v", ErrClientGone, err)
		reason = "client_gone"
	}
	metrics.StreamAbortsTotal.WithLabelValues(reason).Inc()
	a.cancel()
	return a.err
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
