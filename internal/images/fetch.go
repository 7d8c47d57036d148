package images

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// FetcherConfig controls the download strategy chain. The zero value is not
// usable; NewFetcher applies defaults for unset durations and counts.
type FetcherConfig struct {
	// BaseURL is joined with relative photo references.
	BaseURL string
	// AlternateBaseURLs are tried in order when the primary URL fails.
	AlternateBaseURLs []string
	// HostHeaderVariants are Host header values probed against the primary
	// URL to reach alternate origins behind the same edge.
	HostHeaderVariants []string
	// Referer is sent with every request alongside browser-mimicking headers.
	Referer string
	// EnableDirectIP adds strategies that contact the origin by resolved IP
	// with the Host header pinned to the original domain.
	EnableDirectIP bool

	// Timeout bounds each individual network attempt. Default 30s.
	Timeout time.Duration
	// MaxAttempts bounds how often the whole strategy chain is retried when
	// a transient failure occurred. Default 3.
	MaxAttempts int
	// InitialBackoff and MaxBackoff shape the exponential delay between
	// chain retries. Defaults 2s and 10s.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	UserAgent string
}

// Fetcher turns a photo reference into raw image bytes. It tries the primary
// base URL first, then the configured fallback strategies, classifying every
// response; only transient failures cause the chain to be retried. The
// fetcher performs no disk writes and never substitutes placeholder content;
// callers decide what a failed fetch means.
type Fetcher struct {
	cfg        FetcherConfig
	client     *http.Client
	insecure   *http.Client
	originHost string
	originIP   string
	logger     zerolog.Logger
}

// NewFetcher constructs a Fetcher. When direct-IP strategies are enabled the
// origin host is resolved once here; resolution failure only disables those
// strategies.
func NewFetcher(cfg FetcherConfig, logger zerolog.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 2 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	f := &Fetcher{
		cfg:    cfg,
		client: &http.Client{},
		insecure: &http.Client{
			Transport: &http.Transport{
				// Certificate names never match an IP-literal request.
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		logger: logger,
	}

	if cfg.EnableDirectIP {
		f.resolveOrigin()
	}
	return f
}

func (f *Fetcher) resolveOrigin() {
	parsed, err := url.Parse(f.cfg.BaseURL)
	if err != nil || parsed.Hostname() == "" {
		f.logger.Warn().Str("base_url", f.cfg.BaseURL).Msg("images: cannot derive origin host, direct-IP strategies disabled")
		return
	}
	f.originHost = parsed.Hostname()

	addrs, err := net.LookupIP(f.originHost)
	if err != nil || len(addrs) == 0 {
		f.logger.Warn().Err(err).Str("host", f.originHost).Msg("images: origin IP resolution failed, direct-IP strategies disabled")
		return
	}
	for _, addr := range addrs {
		if v4 := addr.To4(); v4 != nil {
			f.originIP = v4.String()
			break
		}
	}
	if f.originIP == "" {
		f.originIP = addrs[0].String()
	}
	f.logger.Debug().Str("host", f.originHost).Str("ip", f.originIP).Msg("images: resolved origin")
}

// fetchStrategy is one way of reaching the image bytes.
type fetchStrategy struct {
	label  string
	url    string
	host   string
	client *http.Client
}

// Fetch downloads the image behind photoPath. A reference starting with
// TestSentinelPrefix yields a deterministic synthetic image without any
// network traffic.
func (f *Fetcher) Fetch(ctx context.Context, photoPath string) ([]byte, error) {
	if strings.HasPrefix(photoPath, TestSentinelPrefix) {
		return SyntheticImage(strings.TrimPrefix(photoPath, TestSentinelPrefix)), nil
	}
	if strings.TrimSpace(photoPath) == "" {
		return nil, &FetchError{Kind: FetchNotFound, Err: errors.New("empty photo reference")}
	}

	strategies := f.strategies(photoPath)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.cfg.InitialBackoff
	bo.MaxInterval = f.cfg.MaxBackoff
	bo.MaxElapsedTime = 0

	var data []byte
	operation := func() error {
		var err error
		data, err = f.tryStrategies(ctx, strategies)
		if err == nil {
			return nil
		}
		var fe *FetchError
		if errors.As(err, &fe) && !fe.Transient() {
			return backoff.Permanent(err)
		}
		return err
	}

	retries := uint64(f.cfg.MaxAttempts - 1)
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, retries), ctx)); err != nil {
		return nil, err
	}
	return data, nil
}

// strategies builds the ordered attempt list for one photo reference.
// Alternate base URLs only make sense for relative references; Host header
// and direct-IP variants always target the primary URL.
func (f *Fetcher) strategies(photoPath string) []fetchStrategy {
	absolute := strings.HasPrefix(photoPath, "http://") || strings.HasPrefix(photoPath, "https://")

	primary := photoPath
	if !absolute {
		primary = joinURL(f.cfg.BaseURL, photoPath)
	}

	strategies := []fetchStrategy{{label: "primary", url: primary}}

	if !absolute {
		for _, alt := range f.cfg.AlternateBaseURLs {
			strategies = append(strategies, fetchStrategy{label: "alternate", url: joinURL(alt, photoPath)})
		}
	}

	for _, host := range f.cfg.HostHeaderVariants {
		strategies = append(strategies, fetchStrategy{label: "host-variant", url: primary, host: host})
	}

	if f.originIP != "" {
		if parsed, err := url.Parse(primary); err == nil {
			parsed.Host = f.originIP
			parsed.Scheme = "http"
			strategies = append(strategies, fetchStrategy{label: "direct-ip-http", url: parsed.String(), host: f.originHost})
			parsed.Scheme = "https"
			strategies = append(strategies, fetchStrategy{label: "direct-ip-https", url: parsed.String(), host: f.originHost, client: f.insecure})
		}
	}

	return strategies
}

// tryStrategies walks the chain once. A transient failure anywhere in the
// chain makes the whole pass retryable even if a later strategy failed
// permanently.
func (f *Fetcher) tryStrategies(ctx context.Context, strategies []fetchStrategy) ([]byte, error) {
	var lastErr error
	var transient error
	for _, strat := range strategies {
		data, err := f.attempt(ctx, strat)
		if err == nil {
			return data, nil
		}
		f.logger.Debug().Err(err).Str("strategy", strat.label).Msg("images: fetch attempt failed")
		lastErr = err
		var fe *FetchError
		if transient == nil && errors.As(err, &fe) && fe.Transient() {
			transient = err
		}
		if ctx.Err() != nil {
			break
		}
	}
	if transient != nil {
		return nil, transient
	}
	return nil, lastErr
}

// attempt performs one HTTP GET and classifies the outcome. Success requires
// a 2xx status and an image Content-Type; everything else is a FetchError.
func (f *Fetcher) attempt(ctx context.Context, strat fetchStrategy) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strat.url, nil)
	if err != nil {
		return nil, &FetchError{Kind: FetchNotFound, URL: strat.url, Err: err}
	}
	f.setBrowserHeaders(req)
	if strat.host != "" {
		req.Host = strat.host
	}

	client := strat.client
	if client == nil {
		client = f.client
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: classifyTransportError(err), URL: strat.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &FetchError{Kind: FetchNotFound, URL: strat.url, Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Kind: FetchBlocked, URL: strat.url, Status: resp.StatusCode}
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "image") {
		return nil, &FetchError{Kind: FetchBlocked, URL: strat.url, Status: resp.StatusCode,
			Err: fmt.Errorf("unexpected content type %q", ct)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: classifyTransportError(err), URL: strat.url, Err: err}
	}
	return data, nil
}

func (f *Fetcher) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if f.cfg.Referer != "" {
		req.Header.Set("Referer", f.cfg.Referer)
	}
}

func classifyTransportError(err error) FetchFailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FetchTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FetchTimeout
	}
	return FetchTransport
}

func joinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
