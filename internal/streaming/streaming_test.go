package streaming

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type item struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// failingWriter accepts failAfter writes and then errors.
type failingWriter struct {
	*httptest.ResponseRecorder
	failAfter int
	writes    int
	err       error
}

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.writes >= f.failAfter {
		return 0, f.err
	}
	f.writes++
	return f.ResponseRecorder.Write(p)
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.WriteTimeout != 30*time.Second {
		t.Errorf("Expected WriteTimeout=30s, got %v", config.WriteTimeout)
	}
	if config.FlushEvery != 100 {
		t.Errorf("Expected FlushEvery=100, got %d", config.FlushEvery)
	}
}

func TestArrayWriterProducesJSONArray(t *testing.T) {
	tests := []struct {
		name  string
		items []item
		want  string
	}{
		{"empty", nil, "[]\n"},
		{"one", []item{{"a.jpg", 1}}, `[{"name":"a.jpg","size":1}]` + "\n"},
		{"several", []item{{"a.jpg", 1}, {"b.png", 2}, {"c.mp3", 3}},
			`[{"name":"a.jpg","size":1},{"name":"b.png","size":2},{"name":"c.mp3","size":3}]` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			aw := NewArrayWriter(context.Background(), w, DefaultConfig())
			for _, it := range tt.items {
				if err := aw.Add(it); err != nil {
					t.Fatalf("Add: %v", err)
				}
			}
			if err := aw.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if got := w.Body.String(); got != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
			var decoded []item
			if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
				t.Errorf("body is not valid JSON: %v", err)
			}
			if aw.Items() != len(tt.items) {
				t.Errorf("Items = %d, want %d", aw.Items(), len(tt.items))
			}
		})
	}
}

func TestArrayWriterFlushes(t *testing.T) {
	w := httptest.NewRecorder()
	aw := NewArrayWriter(context.Background(), w, Config{FlushEvery: 2})

	if err := aw.Add(item{"a", 1}); err != nil {
		t.Fatal(err)
	}
	if w.Flushed {
		t.Error("flushed before FlushEvery elements")
	}
	if err := aw.Add(item{"b", 2}); err != nil {
		t.Fatal(err)
	}
	if !w.Flushed {
		t.Error("expected a flush after FlushEvery elements")
	}
}

func TestArrayWriterStats(t *testing.T) {
	w := httptest.NewRecorder()
	aw := NewArrayWriter(context.Background(), w, DefaultConfig())
	for i := 0; i < 5; i++ {
		if err := aw.Add(item{"x", i}); err != nil {
			t.Fatal(err)
		}
	}
	if err := aw.Close(); err != nil {
		t.Fatal(err)
	}

	bytesWritten, duration := aw.Stats()
	if bytesWritten != int64(w.Body.Len()) {
		t.Errorf("bytesWritten = %d, want %d", bytesWritten, w.Body.Len())
	}
	if duration < 0 {
		t.Errorf("negative duration %v", duration)
	}
}

func TestArrayWriterWriteFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"client gone", errors.New("broken pipe"), ErrClientGone},
		{"timeout", timeoutErr{}, ErrWriteTimeout},
		{"deadline", context.DeadlineExceeded, ErrWriteTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fw := &failingWriter{ResponseRecorder: httptest.NewRecorder(), failAfter: 1, err: tt.err}
			aw := NewArrayWriter(context.Background(), fw, DefaultConfig())

			if err := aw.Add(item{"a", 1}); err != nil {
				t.Fatalf("first Add: %v", err)
			}
			err := aw.Add(item{"b", 2})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Add error = %v, want %v", err, tt.wantErr)
			}
			if aw.Context().Err() == nil {
				t.Error("context should be cancelled after a failed write")
			}
			if err := aw.Add(item{"c", 3}); !errors.Is(err, tt.wantErr) {
				t.Errorf("Add after failure = %v, want %v", err, tt.wantErr)
			}
			if err := aw.Close(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Close = %v, want %v", err, tt.wantErr)
			}
			if strings.HasSuffix(fw.Body.String(), "]\n") {
				t.Error("aborted stream should not be terminated")
			}
		})
	}
}

func TestArrayWriterCancelledParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fw := &failingWriter{ResponseRecorder: httptest.NewRecorder(), failAfter: 0, err: errors.New("connection reset")}
	aw := NewArrayWriter(ctx, fw, DefaultConfig())
	cancel()

	if err := aw.Add(item{"a", 1}); !errors.Is(err, ErrStreamCanceled) {
		t.Errorf("Add = %v, want ErrStreamCanceled", err)
	}
}

func TestArrayWriterParentCancelStillTerminates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := httptest.NewRecorder()
	aw := NewArrayWriter(ctx, w, DefaultConfig())
	if err := aw.Add(item{"a", 1}); err != nil {
		t.Fatal(err)
	}
	cancel()

	if aw.Context().Err() == nil {
		t.Error("writer context should follow its parent")
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	var decoded []item
	if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil || len(decoded) != 1 {
		t.Errorf("body %q should be a complete one-element array: %v", w.Body.String(), err)
	}
}

func TestArrayWriterClose(t *testing.T) {
	w := httptest.NewRecorder()
	aw := NewArrayWriter(context.Background(), w, DefaultConfig())

	if err := aw.Close(); err != nil {
		t.Fatal(err)
	}
	if aw.Context().Err() == nil {
		t.Error("Close should cancel the context")
	}
	if err := aw.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if err := aw.Add(item{"late", 1}); !errors.Is(err, ErrStreamCanceled) {
		t.Errorf("Add after Close = %v, want ErrStreamCanceled", err)
	}
	if w.Body.String() != "[]\n" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestArrayWriterEncodeError(t *testing.T) {
	w := httptest.NewRecorder()
	aw := NewArrayWriter(context.Background(), w, DefaultConfig())

	if err := aw.Add(make(chan int)); err == nil {
		t.Fatal("expected an encoding error")
	}
	// An element that cannot be encoded is skipped, not fatal.
	if err := aw.Add(item{"ok", 1}); err != nil {
		t.Fatalf("Add after encode error: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatal(err)
	}
	if aw.Items() != 1 {
		t.Errorf("Items = %d, want 1", aw.Items())
	}
}

func TestArrayWriterConcurrentAdds(t *testing.T) {
	w := httptest.NewRecorder()
	aw := NewArrayWriter(context.Background(), w, Config{FlushEvery: 3})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := aw.Add(item{"x", n}); err != nil {
				t.Errorf("Add: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if err := aw.Close(); err != nil {
		t.Fatal(err)
	}

	var decoded []item
	if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded) != 10 {
		t.Errorf("decoded %d elements, want 10", len(decoded))
	}
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	errs := []error{ErrWriteTimeout, ErrClientGone, ErrStreamCanceled}
	for i, a := range errs {
		for j, b := range errs {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}

var _ http.ResponseWriter = (*failingWriter)(nil)
