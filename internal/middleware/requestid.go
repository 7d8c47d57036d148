package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// requestIDHeader is read from and echoed to the client so batch ingest
// callers can correlate a payload submission with its log entries.
const requestIDHeader = "X-Request-ID"

// maxRequestIDLength caps caller-supplied ids; ingest ids come from
// scraper jobs and should stay log-friendly.
const maxRequestIDLength = 64

// RequestID tags every request with a correlation id. A caller-supplied id
// is honored when it fits the length cap; anything else is replaced with a
// fresh UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(requestIDHeader)
		if rid == "" || len(rid) > maxRequestIDLength {
			rid = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey, rid)
		w.Header().Set(requestIDHeader, rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the correlation id set by RequestID, or ""
// outside an HTTP request.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
