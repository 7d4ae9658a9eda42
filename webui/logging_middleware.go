// Package webui provides the embedded web application for the ADEI Explorer.
// This file contains the LoggingMiddleware molecule for HTTP request logging.
package webui

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"adei_backend/logging"
	"adei_backend/metrics"
)

// LoggingMiddleware is a molecule that logs all HTTP requests with
// timestamp, method, path, status code, and duration, and feeds the
// Prometheus HTTP counters.
//
// It composes:
//   - HTTP ResponseWriter wrapper (to capture status code)
//   - Time measurement for duration
//   - RequestLogger for output
//
// Thread-safe for concurrent HTTP requests.
type LoggingMiddleware struct {
	logger RequestLogger

	// skipPaths are paths to skip logging (e.g., health checks)
	skipPaths map[string]bool
}

// RequestLogger interface for logging HTTP requests
type RequestLogger interface {
	LogRequest(entry RequestLogEntry)
}

// RequestLogEntry contains all information about a logged HTTP request
type RequestLogEntry struct {
	// Timestamp when the request started
	Timestamp time.Time

	// Method is the HTTP method (GET, POST, etc.)
	Method string

	// Path is the URL path
	Path string

	// StatusCode is the HTTP response status code
	StatusCode int

	// Duration is how long the request took
	Duration time.Duration

	// RemoteAddr is the client's address
	RemoteAddr string

	// UserAgent is the client's user agent string
	UserAgent string

	// ContentLength is the response size in bytes
	ContentLength int64
}

// ZapRequestLogger logs requests through the application logger.
type ZapRequestLogger struct {
	Log *logging.Logger
}

// LogRequest writes one structured entry per request.
func (z *ZapRequestLogger) LogRequest(entry RequestLogEntry) {
	z.Log.Infow("http request",
		"method", entry.Method,
		"path", entry.Path,
		"status", entry.StatusCode,
		"duration_ms", entry.Duration.Milliseconds(),
		"remote_addr", entry.RemoteAddr,
		"bytes", entry.ContentLength,
	)
}

// NoopRequestLogger discards all log entries (for tests or when an
// external access log is in place).
type NoopRequestLogger struct{}

// LogRequest does nothing
func (n *NoopRequestLogger) LogRequest(entry RequestLogEntry) {}

// LoggingMiddlewareConfig holds configuration for the LoggingMiddleware
type LoggingMiddlewareConfig struct {
	// Logger for request logging (default: NoopRequestLogger)
	Logger RequestLogger

	// SkipPaths are paths to skip logging (default: none)
	SkipPaths []string
}

// NewLoggingMiddleware creates a LoggingMiddleware that writes through the
// given application logger and skips nothing.
func NewLoggingMiddleware(log *logging.Logger) *LoggingMiddleware {
	return NewLoggingMiddlewareWithConfig(LoggingMiddlewareConfig{
		Logger: &ZapRequestLogger{Log: log},
	})
}

// NewLoggingMiddlewareWithConfig creates a new LoggingMiddleware with custom configuration.
func NewLoggingMiddlewareWithConfig(config LoggingMiddlewareConfig) *LoggingMiddleware {
	if config.Logger == nil {
		config.Logger = &NoopRequestLogger{}
	}

	skipPaths := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	return &LoggingMiddleware{
		logger:    config.Logger,
		skipPaths: skipPaths,
	}
}

// Handler wraps an http.Handler with request logging and HTTP metrics.
// Requests to skip paths bypass both.
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()

		wrapped := &responseWriterWrapper{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		status := strconv.Itoa(wrapped.statusCode)
		endpoint := metricEndpoint(r.URL.Path)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, float64(duration.Milliseconds()))

		m.logger.LogRequest(RequestLogEntry{
			Timestamp:     start,
			Method:        r.Method,
			Path:          r.URL.Path,
			StatusCode:    wrapped.statusCode,
			Duration:      duration,
			RemoteAddr:    getClientIP(r),
			UserAgent:     r.UserAgent(),
			ContentLength: wrapped.bytesWritten,
		})
	})
}

// HandlerFunc wraps an http.HandlerFunc with request logging.
func (m *LoggingMiddleware) HandlerFunc(next http.HandlerFunc) http.Handler {
	return m.Handler(next)
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

// WriteHeader captures the status code
func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.statusCode = statusCode
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

// Write captures the bytes written and ensures header is written
func (w *responseWriterWrapper) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += int64(n)
	return n, err
}

// Flush implements http.Flusher if the underlying writer supports it
func (w *responseWriterWrapper) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// metricEndpoint collapses static asset paths into one label so the
// Prometheus endpoint label stays low-cardinality.
func metricEndpoint(path string) string {
	if strings.HasPrefix(path, "/static/") {
		return "/static"
	}
	return path
}

// getClientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers first for proxied requests.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Use the first IP in the list
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Strip the port so rate limit buckets key on the address alone
	addr := r.RemoteAddr
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}
