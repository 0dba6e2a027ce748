// Package middleware wraps the GraphQL endpoint with request logging, database
// sessions, CORS, metrics and tracing.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"modelgraph/internal/logging"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader carries the request correlation ID in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

// LoggingMiddleware gives every request a correlation ID and a request-scoped
// logger, and writes one access line when the handler returns. The start of a
// request is only logged at debug level.
func LoggingMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := requestID(r)
			w.Header().Set(RequestIDHeader, id)

			reqLogger := logger.WithRequestID(id).WithFields(slog.String("component", "http"))
			ctx := logging.WithRequestIDContext(logging.WithLogger(r.Context(), reqLogger), id)
			trace.SpanFromContext(ctx).SetAttributes(attribute.String("http.request_id", id))

			reqLogger.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
			)

			rec := &statusRecorder{ResponseWriter: w}
			began := time.Now()
			next.ServeHTTP(rec, r.WithContext(ctx))
			elapsed := time.Since(began)

			reqLogger.Log(ctx, rec.level(), "request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.Status()),
				slog.Int64("bytes", rec.bytes),
				slog.Int64("duration_ms", elapsed.Milliseconds()),
			)
		})
	}
}

// requestID reuses the caller's ID when it is short and plain enough to be
// written into a log line as-is. Anything else gets a fresh UUID.
func requestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" && len(id) <= maxRequestIDLen && plainToken(id) {
		return id
	}
	return uuid.NewString()
}

func plainToken(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.' || c == ':':
		default:
			return false
		}
	}
	return true
}

// statusRecorder remembers the first status code and counts body bytes.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status != 0 {
		return
	}
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.WriteHeader(http.StatusOK)
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// Status is the code sent to the client. A handler that never wrote gets 200.
func (rec *statusRecorder) Status() int {
	if rec.status == 0 {
		return http.StatusOK
	}
	return rec.status
}

func (rec *statusRecorder) level() slog.Level {
	switch status := rec.Status(); {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
