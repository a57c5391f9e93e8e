package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/WessleyAI/termscape/engine/domain"
	"github.com/WessleyAI/termscape/pkg/fn"
	"github.com/WessleyAI/termscape/pkg/resilience"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is sent with every corpus request.
const DefaultUserAgent = "termscape/1.0 (+https://github.com/WessleyAI/termscape)"

// ErrBodyTooLarge is returned when a corpus exceeds FetcherOpts.MaxBytes.
var ErrBodyTooLarge = errors.New("corpus body too large")

// TextSource provides raw corpus text.
type TextSource interface {
	Fetch(ctx context.Context, rawURL string) fn.Result[string]
}

// FetcherOpts configures a Fetcher.
type FetcherOpts struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	// Interval is the minimum spacing between requests; Burst allows short
	// bursts above it.
	Interval time.Duration
	Burst    int
	Retry    fn.RetryOpts
	Breaker  resilience.BreakerOpts
	Logger   *slog.Logger
	// AllowLocal permits bare paths and file:// URLs. Leave it off when
	// URLs come from untrusted clients.
	AllowLocal bool
	// OnFetch, if set, observes every finished fetch with its outcome
	// ("ok", "http_error", "error", "circuit_open") and duration.
	OnFetch func(outcome string, d time.Duration)
}

// DefaultFetcherOpts provides sensible defaults.
var DefaultFetcherOpts = FetcherOpts{
	Timeout:   30 * time.Second,
	MaxBytes:  16 << 20,
	UserAgent: DefaultUserAgent,
	Interval:  200 * time.Millisecond,
	Burst:     5,
	Retry:     fn.DefaultRetry,
	Breaker:   resilience.DefaultBreakerOpts,
}

// Fetcher retrieves corpora over HTTP(S) and, when allowed, from local files.
type Fetcher struct {
	opts        FetcherOpts
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	breaker     *resilience.Breaker
	log         *slog.Logger
}

// NewFetcher creates a Fetcher. A nil client gets one with opts.Timeout.
func NewFetcher(opts FetcherOpts, client *http.Client) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetcherOpts.Timeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultFetcherOpts.MaxBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Burst <= 0 {
		opts.Burst = DefaultFetcherOpts.Burst
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultFetcherOpts.Retry
	}
	opts.Retry.ShouldRetry = retryable
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}
	breakerOpts := opts.Breaker
	breakerOpts.OnStateChange = func(from, to resilience.State) {
		log.Warn("corpus: breaker state change", "from", from.String(), "to", to.String())
	}
	return &Fetcher{
		opts:        opts,
		httpClient:  client,
		rateLimiter: rate.NewLimiter(limit, opts.Burst),
		breaker:     resilience.NewBreaker(breakerOpts),
		log:         log,
	}
}

// Fetch returns the text behind rawURL. Every failure wraps
// domain.ErrFetchFailure.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) fn.Result[string] {
	start := time.Now()
	u, err := url.Parse(rawURL)
	if err != nil || rawURL == "" {
		return f.done(rawURL, start, fn.Err[string](&domain.FetchError{URL: rawURL, Err: fmt.Errorf("parse url: %w", domain.ErrInvalidArgument)}))
	}

	if u.Scheme == "" || u.Scheme == "file" {
		if !f.opts.AllowLocal {
			return f.done(rawURL, start, fn.Err[string](&domain.FetchError{URL: rawURL, Err: fmt.Errorf("local corpus not allowed: %w", domain.ErrInvalidArgument)}))
		}
		path := u.Path
		if u.Scheme == "" {
			path = rawURL
		}
		return f.done(rawURL, start, readLocal(rawURL, path, f.opts.MaxBytes))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return f.done(rawURL, start, fn.Err[string](&domain.FetchError{URL: rawURL, Err: fmt.Errorf("unsupported scheme %q: %w", u.Scheme, domain.ErrInvalidArgument)}))
	}

	result := resilience.CallResult(f.breaker, ctx, func(ctx context.Context) fn.Result[string] {
		return fn.Retry(ctx, f.opts.Retry, func(ctx context.Context) fn.Result[string] {
			return f.get(ctx, rawURL)
		})
	})
	if errors.Is(result.Error(), resilience.ErrCircuitOpen) {
		result = fn.Err[string](&domain.FetchError{URL: rawURL, Err: resilience.ErrCircuitOpen})
	}
	return f.done(rawURL, start, result)
}

func (f *Fetcher) done(rawURL string, start time.Time, r fn.Result[string]) fn.Result[string] {
	d := time.Since(start)
	outcome := "ok"
	if err := r.Error(); err != nil {
		var fe *domain.FetchError
		switch {
		case errors.Is(err, resilience.ErrCircuitOpen):
			outcome = "circuit_open"
		case errors.As(err, &fe) && fe.StatusCode != 0:
			outcome = "http_error"
		default:
			outcome = "error"
		}
		if !errors.Is(err, domain.ErrFetchFailure) {
			r = fn.Err[string](&domain.FetchError{URL: rawURL, Err: err})
		}
		f.log.Error("corpus: fetch failed", "url", rawURL, "error", r.Error(), "duration", d)
	} else {
		f.log.Info("corpus: fetched", "url", rawURL, "bytes", len(r.UnwrapOr("")), "duration", d)
	}
	if f.opts.OnFetch != nil {
		f.opts.OnFetch(outcome, d)
	}
	return r
}

func (f *Fetcher) get(ctx context.Context, rawURL string) fn.Result[string] {
	if err := f.rateLimiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return fn.Err[string](&domain.FetchError{URL: rawURL, Err: err})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fn.Err[string](&domain.FetchError{URL: rawURL, Err: err})
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/plain, text/html;q=0.9, */*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fn.Err[string](&domain.FetchError{URL: rawURL, Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fn.Err[string](&domain.FetchError{URL: rawURL, StatusCode: resp.StatusCode})
	}

	body, err := readCapped(resp.Body, f.opts.MaxBytes)
	if err != nil {
		return fn.Err[string](&domain.FetchError{URL: rawURL, Err: err})
	}

	if isHTML(resp.Header.Get("Content-Type")) {
		text, err := ExtractText(strings.NewReader(body))
		if err != nil {
			return fn.Err[string](&domain.FetchError{URL: rawURL, Err: fmt.Errorf("extract html: %w", err)})
		}
		return fn.Ok(text)
	}
	return fn.Ok(body)
}

func readLocal(rawURL, path string, maxBytes int64) fn.Result[string] {
	fh, err := os.Open(path)
	if err != nil {
		return fn.Err[string](&domain.FetchError{URL: rawURL, Err: err})
	}
	defer fh.Close()
	body, err := readCapped(fh, maxBytes)
	if err != nil {
		return fn.Err[string](&domain.FetchError{URL: rawURL, Err: err})
	}
	if strings.HasSuffix(path, ".html") || strings.HasSuffix(path, ".htm") {
		text, err := ExtractText(strings.NewReader(body))
		if err != nil {
			return fn.Err[string](&domain.FetchError{URL: rawURL, Err: err})
		}
		return fn.Ok(text)
	}
	return fn.Ok(body)
}

func readCapped(r io.Reader, maxBytes int64) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(body)) > maxBytes {
		return "", fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, maxBytes)
	}
	return string(body), nil
}

func isHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

// retryable keeps retries to transient failures: transport errors, 429 and 5xx.
func retryable(err error) bool {
	if errors.Is(err, ErrBodyTooLarge) || errors.Is(err, context.Canceled) {
		return false
	}
	var fe *domain.FetchError
	if errors.As(err, &fe) {
		return fe.Retryable()
	}
	return true
}
