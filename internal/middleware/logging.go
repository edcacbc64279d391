package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"media-catalog/internal/logging"
)

// w3cFields is the W3C Extended Log Format header for the access log.
// x-ttfb is the time to the first response byte, which for streamed
// searches is when the first match was found.
const w3cFields = "#Fields: date time c-ip cs-method cs-uri-stem cs-uri-query sc-status sc-bytes time-taken x-ttfb cs(User-Agent) cs(Referer)"

// responseWriter records the status, size and first-byte time of a
// response. Flush is passed through and Unwrap lets
// http.ResponseController reach the connection for write deadlines.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
	start        time.Time
	firstByte    time.Duration
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		start:          time.Now(),
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	if rw.bytesWritten == 0 && len(b) > 0 {
		rw.firstByte = time.Since(rw.start)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	// SkipPaths are path prefixes that are never logged
	SkipPaths       []string
	LogHealthChecks bool
	// LogThumbnails controls logging of /api/thumbnail requests, which a
	// gallery view issues by the hundred.
	LogThumbnails bool
}

// DefaultLoggingConfig skips the scrape endpoint, probes and thumbnails.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{SkipPaths: []string{"/metrics"}}
}

var healthCheckPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// Logger returns middleware that writes one W3C access log line per
// request. Server errors are logged at warning level.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	logging.Println(w3cFields)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			entry := newAccessEntry(r, wrapped, time.Now().UTC())
			if entry.status >= http.StatusInternalServerError {
				logging.Warn("%s", entry)
				return
			}
			logging.Println(entry.String())
		})
	}
}

// accessEntry is one access log line. Request fields are sanitized.
type accessEntry struct {
	at        time.Time
	clientIP  string
	method    string
	uriStem   string
	uriQuery  string
	status    int
	bytes     int64
	taken     time.Duration
	firstByte time.Duration
	userAgent string
	referer   string
}

func newAccessEntry(r *http.Request, rw *responseWriter, now time.Time) accessEntry {
	return accessEntry{
		at:        now,
		clientIP:  sanitizeLogField(getClientIP(r)),
		method:    sanitizeLogField(r.Method),
		uriStem:   sanitizeLogField(r.URL.Path),
		uriQuery:  orDash(sanitizeLogField(r.URL.RawQuery)),
		status:    rw.statusCode,
		bytes:     rw.bytesWritten,
		taken:     time.Since(rw.start),
		firstByte: rw.firstByte,
		userAgent: orDash(escapeW3CField(sanitizeLogField(r.Header.Get("User-Agent")))),
		referer:   orDash(escapeW3CField(sanitizeLogField(r.Header.Get("Referer")))),
	}
}

// String formats the entry in the order of w3cFields. Durations are in
// milliseconds.
func (e accessEntry) String() string {
	return fmt.Sprintf("%s %s %s %s %s %s %d %d %d %d %s %s",
		e.at.Format("2006-01-02"),
		e.at.Format("15:04:05"),
		e.clientIP,
		e.method,
		e.uriStem,
		e.uriQuery,
		e.status,
		e.bytes,
		e.taken.Milliseconds(),
		e.firstByte.Milliseconds(),
		e.userAgent,
		e.referer,
	)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// sanitizeLogField removes control characters that could forge log lines
// or inject terminal escapes. Newlines become spaces; tabs are kept.
func sanitizeLogField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteRune(' ')
		case r == '\t':
			b.WriteRune(r)
		case r < 0x20:
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func shouldSkip(path string, config LoggingConfig) bool {
	for _, skipPath := range config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	if !config.LogHealthChecks && healthCheckPaths[path] {
		return true
	}
	return !config.LogThumbnails && strings.HasPrefix(path, "/api/thumbnail/")
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// escapeW3CField quotes values containing blanks or quotes, doubling the
// quotes inside.
func escapeW3CField(s string) string {
	if strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
