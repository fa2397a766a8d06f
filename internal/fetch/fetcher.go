package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/ppiankov/animequote/internal/util"
)

const (
	defaultMaxBytes  = 5_000_000
	defaultTimeout   = 10 * time.Second
	baseRetryBackoff = 500 * time.Millisecond
	maxRetryBackoff  = 8 * time.Second
)

// fetchSleepFunc is the sleep function used between retries (injectable for tests)
var fetchSleepFunc = time.Sleep

// Waiter blocks until a request to rawURL may proceed
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Options configures a Fetcher
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	MaxBytes   int64
	Retries    int // Extra attempts for GetWithRetry on 429/5xx/transport errors
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
	Limiter    Waiter // Optional per-host rate limiter
}

// Fetcher performs bounded GET requests against upstream APIs and web pages
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	retries    int
	limiter    Waiter
}

// New creates a Fetcher with the given options
func New(opts Options) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: opts.UserAgent,
		maxBytes:  maxBytes,
		retries:   opts.Retries,
		limiter:   opts.Limiter,
	}
}

// Response is a successful (2xx) upstream response
type Response struct {
	Body        []byte
	StatusCode  int
	ContentType string
	FinalURL    string
}

// StatusError reports a non-2xx upstream response
type StatusError struct {
	StatusCode int
	Status     string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.StatusCode, e.Status)
}

// Retryable reports whether the status is worth another attempt
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout || e.StatusCode >= 500
}

// Get performs a single GET request. Non-2xx responses return a *StatusError.
func (f *Fetcher) Get(ctx context.Context, rawURL string, header http.Header) (*Response, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if f.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		Body:        body,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// GetWithRetry performs Get with jittered exponential backoff on retryable failures.
// Retry-After (seconds form) is honoured when the upstream sends it.
func (f *Fetcher) GetWithRetry(ctx context.Context, rawURL string, header http.Header) (*Response, error) {
	backoff := baseRetryBackoff
	var lastErr error

	for attempt := 0; attempt <= f.retries; attempt++ {
		resp, err := f.Get(ctx, rawURL, header)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil || !isRetryable(err) || attempt == f.retries {
			break
		}

		delay := backoff + time.Duration(rand.Int63n(int64(backoff/2)+1))
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
			delay = statusErr.RetryAfter
		}
		if delay > maxRetryBackoff {
			delay = maxRetryBackoff
		}
		fetchSleepFunc(delay)

		backoff *= 2
		if backoff > maxRetryBackoff {
			backoff = maxRetryBackoff
		}
	}

	return nil, lastErr
}

func isRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	// Transport failures (timeouts, resets) are retried; request construction errors are not
	return !errors.Is(err, context.Canceled)
}

// parseRetryAfter parses a Retry-After header expressed in seconds
func parseRetryAfter(value string) time.Duration {
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
