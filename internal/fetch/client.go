// Package fetch downloads listing and case pages.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

const (
	DefaultMaxBodyBytes = 10 << 20
	DefaultMaxRetries   = 3
	DefaultBaseBackoff  = time.Second
	DefaultMaxBackoff   = 30 * time.Second
)

// Options tune a Client. Zero fields take the defaults; a negative
// MaxRetries disables retrying.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	MaxBodyBytes int64
}

func (o Options) withDefaults() Options {
	switch {
	case o.MaxRetries == 0:
		o.MaxRetries = DefaultMaxRetries
	case o.MaxRetries < 0:
		o.MaxRetries = 0
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = DefaultBaseBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = DefaultMaxBackoff
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return o
}

// Client is a plain HTTP GET client with a browser User-Agent.
type Client struct {
	opts       Options
	httpClient *http.Client
	backoff    func(attempt int) time.Duration
	log        *slog.Logger
}

func NewClient(opts Options, log *slog.Logger) *Client {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	opts = opts.withDefaults()
	return &Client{
		opts: opts,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		backoff: func(attempt int) time.Duration {
			return Backoff(attempt, opts.BaseBackoff, opts.MaxBackoff)
		},
		log: log,
	}
}

// MaxRetries returns how many times a retryable failure is retried.
func (c *Client) MaxRetries() int { return c.opts.MaxRetries }

// Get returns the body of url. 429 and 5xx responses are *RetryableError.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}
	return body, nil
}

// GetWithRetry retries retryable failures up to MaxRetries times.
func (c *Client) GetWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff(attempt - 1)
			c.log.Warn("retrying fetch", "url", url, "attempt", attempt, "backoff", wait, "error", lastErr)
			if err := Sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
		body, err := c.Get(ctx, url)
		if err == nil {
			return body, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d retries: %w", c.opts.MaxRetries, lastErr)
}

// Backoff returns the wait before retry attempt n (0-indexed): base doubled
// per attempt and capped at ceiling, plus up to 50% jitter.
func Backoff(attempt int, base, ceiling time.Duration) time.Duration {
	d := ceiling
	if attempt < 30 {
		if b := base << uint(attempt); b > 0 && b < ceiling {
			d = b
		}
	}
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int64N(half))
	}
	return d
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	URL        string
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d) for %s: %s", e.StatusCode, e.URL, truncate(e.Message, 200))
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
