// Package fetch retrieves remote pages politely. Requests to one origin are
// spaced by a minimum delay, carry an identifying User-Agent, honor an
// advisory robots.txt check, and retry transient failures with constant
// backoff.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 5 << 20

var (
	// ErrShortBody marks a response below the block-page threshold.
	ErrShortBody = errors.New("fetch: response body below block-page threshold")

	// ErrRobotsDisallowed marks a host whose robots.txt disallows all crawling.
	ErrRobotsDisallowed = errors.New("fetch: robots.txt disallows crawling")
)

// Options configures a Fetcher.
type Options struct {
	UserAgent      string
	RequestTimeout time.Duration
	RateLimitDelay time.Duration

	// MaxRetries is the total number of attempts per URL.
	MaxRetries int

	RetryDelay    time.Duration
	MinBodyBytes  int
	RespectRobots bool
	Logger        *slog.Logger
}

// FetchError reports a fetch that failed after all attempts.
type FetchError struct {
	URL      string
	Attempts int
	Status   int // last HTTP status seen, 0 if none
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: %v (status %d, %d attempts)", e.URL, e.Err, e.Status, e.Attempts)
	}
	return fmt.Sprintf("fetching %s: %v (%d attempts)", e.URL, e.Err, e.Attempts)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher downloads pages with per-origin pacing and bounded retries.
// It is safe for concurrent use.
type Fetcher struct {
	opts   Options
	client *http.Client
	logger *slog.Logger
	robots *robotsCache

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds a Fetcher from options. Zero durations fall back to sane
// defaults so a partially filled Options still behaves.
func New(opts Options) *Fetcher {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.RateLimitDelay <= 0 {
		opts.RateLimitDelay = 2 * time.Second
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	client := &http.Client{Timeout: opts.RequestTimeout}
	return &Fetcher{
		opts:     opts,
		client:   client,
		logger:   opts.Logger,
		robots:   newRobotsCache(client, opts.UserAgent, opts.Logger),
		limiters: make(map[string]*rate.Limiter),
	}
}

// limiter returns the rate limiter for one origin, creating it on first use.
// Burst 1 means requests to the same host are strictly serialized at the
// configured interval.
func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Every(f.opts.RateLimitDelay), 1)
		f.limiters[host] = lim
	}
	return lim
}

// Fetch retrieves rawURL and returns the body. Transient failures (network
// errors, non-200 statuses, block-page-sized bodies) are retried up to
// MaxRetries total attempts with a constant delay between them. A robots.txt
// blanket disallow fails immediately without touching the page.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: fmt.Errorf("parsing url: %w", err)}
	}

	if f.opts.RespectRobots && !f.robots.Allowed(ctx, u) {
		return "", &FetchError{URL: rawURL, Err: ErrRobotsDisallowed}
	}

	var (
		body       string
		lastStatus int
		attempts   int
	)

	op := func() error {
		attempts++
		if err := f.limiter(u.Host).Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		b, status, err := f.doRequest(ctx, rawURL)
		lastStatus = status
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			f.logger.Debug("fetch attempt failed",
				"url", rawURL, "attempt", attempts, "status", status, "error", err)
			return err
		}
		body = b
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(f.opts.RetryDelay),
			uint64(f.opts.MaxRetries-1)),
		ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", &FetchError{URL: rawURL, Attempts: attempts, Status: lastStatus, Err: err}
	}

	f.logger.Debug("fetched", "url", rawURL, "bytes", len(body), "attempts", attempts)
	return body, nil
}

func (f *Fetcher) doRequest(ctx context.Context, rawURL string) (string, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.opts.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("reading body: %w", err)
	}
	if len(data) < f.opts.MinBodyBytes {
		return "", resp.StatusCode, fmt.Errorf("%w (%d bytes)", ErrShortBody, len(data))
	}
	return string(data), resp.StatusCode, nil
}
