package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatal("request id missing from context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Fatalf("response header %q does not match context value %q", got, seen)
	}
}

func TestRequestIDPreservesIncoming(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "client-supplied-id" {
		t.Fatalf("context id = %q, want the incoming header value", seen)
	}
}

func TestRequestIDReplacesOversizedIncoming(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	oversized := strings.Repeat("x", maxRequestIDLength+1)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", oversized)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen == oversized || seen == "" {
		t.Fatalf("oversized incoming id must be replaced, got %q", seen)
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Fatalf("response header %q does not match context value %q", got, seen)
	}
}
