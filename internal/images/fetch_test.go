package images

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var testJPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func serveImage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(testJPEG)
}

func testFetcher(cfg FetcherConfig) *Fetcher {
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return NewFetcher(cfg, zerolog.Nop())
}

func TestFetchSentinelBypassesNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected network call to %s", r.URL)
	}))
	defer server.Close()

	f := testFetcher(FetcherConfig{BaseURL: server.URL})

	data, err := f.Fetch(context.Background(), "test:anything")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !bytes.Equal(data, SyntheticImage("anything")) {
		t.Fatal("sentinel fetch is not deterministic")
	}
}

func TestFetchPrimarySendsBrowserHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != defaultUserAgent {
			t.Errorf("User-Agent mismatch: %q", ua)
		}
		if ref := r.Header.Get("Referer"); ref != "https://www.example.com/" {
			t.Errorf("Referer mismatch: %q", ref)
		}
		serveImage(w)
	}))
	defer server.Close()

	f := testFetcher(FetcherConfig{BaseURL: server.URL, Referer: "https://www.example.com/"})

	data, err := f.Fetch(context.Background(), "house/1/lot.jpg")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !bytes.Equal(data, testJPEG) {
		t.Fatal("unexpected image bytes")
	}
}

func TestFetchFallsBackToAlternateBaseURL(t *testing.T) {
	var primaryCalls atomic.Int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryCalls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer primary.Close()

	alternate := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveImage(w)
	}))
	defer alternate.Close()

	f := testFetcher(FetcherConfig{
		BaseURL:           primary.URL,
		AlternateBaseURLs: []string{alternate.URL},
	})

	data, err := f.Fetch(context.Background(), "house/1/lot.jpg")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !bytes.Equal(data, testJPEG) {
		t.Fatal("unexpected image bytes")
	}
	if primaryCalls.Load() != 1 {
		t.Fatalf("primary should be tried exactly once, got %d", primaryCalls.Load())
	}
}

func TestFetchNonImageContentTypeMovesToNextStrategy(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>captcha wall</html>"))
	}))
	defer primary.Close()

	alternate := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveImage(w)
	}))
	defer alternate.Close()

	f := testFetcher(FetcherConfig{
		BaseURL:           primary.URL,
		AlternateBaseURLs: []string{alternate.URL},
	})

	data, err := f.Fetch(context.Background(), "house/1/lot.jpg")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !bytes.Equal(data, testJPEG) {
		t.Fatal("unexpected image bytes")
	}
}

func TestFetchHostHeaderVariant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Host == "media.example.com" {
			serveImage(w)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	f := testFetcher(FetcherConfig{
		BaseURL:            server.URL,
		HostHeaderVariants: []string{"media.example.com"},
	})

	data, err := f.Fetch(context.Background(), "house/1/lot.jpg")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !bytes.Equal(data, testJPEG) {
		t.Fatal("unexpected image bytes")
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// Drop the connection to simulate a transport failure.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("server does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("hijack: %v", err)
			}
			_ = conn.Close()
			return
		}
		serveImage(w)
	}))
	defer server.Close()

	f := testFetcher(FetcherConfig{BaseURL: server.URL, MaxAttempts: 3})

	data, err := f.Fetch(context.Background(), "house/1/lot.jpg")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !bytes.Equal(data, testJPEG) {
		t.Fatal("unexpected image bytes")
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestFetchDoesNotRetryPermanentFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := testFetcher(FetcherConfig{BaseURL: server.URL, MaxAttempts: 3})

	_, err := f.Fetch(context.Background(), "house/1/missing.jpg")
	if err == nil {
		t.Fatal("expected fetch failure, got nil")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Kind != FetchNotFound {
		t.Fatalf("kind mismatch: got %q want %q", fe.Kind, FetchNotFound)
	}
	if calls.Load() != 1 {
		t.Fatalf("permanent failure must not be retried, got %d calls", calls.Load())
	}
}

func TestFetchBlockedEverywhereReportsBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	f := testFetcher(FetcherConfig{
		BaseURL:            server.URL,
		HostHeaderVariants: []string{"cdn.example.com"},
	})

	_, err := f.Fetch(context.Background(), "house/1/lot.jpg")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Kind != FetchBlocked {
		t.Fatalf("kind mismatch: got %q want %q", fe.Kind, FetchBlocked)
	}
}

func TestDirectIPStrategiesAppended(t *testing.T) {
	f := testFetcher(FetcherConfig{BaseURL: "https://images.example.com/housePhotos/"})
	f.originHost = "images.example.com"
	f.originIP = "203.0.113.7"

	strategies := f.strategies("house/1/lot.jpg")
	if len(strategies) < 3 {
		t.Fatalf("expected direct-IP strategies appended, got %d strategies", len(strategies))
	}

	direct := strategies[len(strategies)-2]
	if direct.label != "direct-ip-http" {
		t.Fatalf("label = %q, want direct-ip-http", direct.label)
	}
	if direct.url != "http://203.0.113.7/housePhotos/house/1/lot.jpg" {
		t.Fatalf("url = %q", direct.url)
	}
	if direct.host != "images.example.com" {
		t.Fatalf("host = %q, want the origin domain pinned", direct.host)
	}
	if direct.client != nil {
		t.Fatal("plain HTTP strategy must use the default client")
	}

	secure := strategies[len(strategies)-1]
	if secure.label != "direct-ip-https" {
		t.Fatalf("label = %q, want direct-ip-https", secure.label)
	}
	if secure.url != "https://203.0.113.7/housePhotos/house/1/lot.jpg" {
		t.Fatalf("url = %q", secure.url)
	}
	if secure.host != "images.example.com" {
		t.Fatalf("host = %q, want the origin domain pinned", secure.host)
	}
	if secure.client != f.insecure {
		t.Fatal("HTTPS-by-IP strategy must use the insecure client")
	}
}

func TestFetchDirectIPPinsHostHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Host != "images.example.com" {
			t.Errorf("Host = %q, want the pinned origin domain", r.Host)
		}
		serveImage(w)
	}))
	defer server.Close()

	// A primary origin that refuses connections immediately.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	closedAddr := ln.Addr().String()
	_ = ln.Close()

	f := testFetcher(FetcherConfig{BaseURL: "http://" + closedAddr + "/housePhotos/"})
	f.originHost = "images.example.com"
	f.originIP = strings.TrimPrefix(server.URL, "http://")

	data, err := f.Fetch(context.Background(), "house/1/lot.jpg")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !bytes.Equal(data, testJPEG) {
		t.Fatal("unexpected image bytes")
	}
}

func TestFetchAbsoluteURLSkipsAlternates(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveImage(w)
	}))
	defer target.Close()

	alternate := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("alternate must not be called for absolute references")
	}))
	defer alternate.Close()

	f := testFetcher(FetcherConfig{
		BaseURL:           "http://unused.example.com/housePhotos/",
		AlternateBaseURLs: []string{alternate.URL},
	})

	data, err := f.Fetch(context.Background(), target.URL+"/house/1/lot.jpg")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !bytes.Equal(data, testJPEG) {
		t.Fatal("unexpected image bytes")
	}
}
