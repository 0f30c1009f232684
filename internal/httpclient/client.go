// Package httpclient provides the HTTP GET client used for direct sources
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 2 * time.Minute

	// MaxResponseSize is the default maximum allowed response size (100MB)
	MaxResponseSize = 100 * 1024 * 1024

	// UserAgent is the user agent string for HTTP requests
	UserAgent = "rulegrab/1.0"

	defaultRetryInterval = 500 * time.Millisecond
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

// Client is an interface for HTTP operations
type Client interface {
	// Get performs an HTTP GET request and returns the response body
	Get(ctx context.Context, url string) ([]byte, error)
}

// DefaultClient is the default HTTP client implementation
type DefaultClient struct {
	client          *http.Client
	maxResponseSize int64
	retries         uint
	retryInterval   time.Duration
	userAgent       string
}

// Option configures a DefaultClient
type Option func(*DefaultClient)

// WithRetries sets how many times a failed GET is retried. Only transport
// errors, 429 and 5xx responses are retried. Zero means a single attempt.
func WithRetries(n uint) Option {
	return func(c *DefaultClient) {
		c.retries = n
	}
}

// WithRetryInterval sets the initial backoff interval between retries
func WithRetryInterval(d time.Duration) Option {
	return func(c *DefaultClient) {
		if d > 0 {
			c.retryInterval = d
		}
	}
}

// WithMaxResponseSize caps the accepted body size in bytes
func WithMaxResponseSize(n int64) Option {
	return func(c *DefaultClient) {
		if n > 0 {
			c.maxResponseSize = n
		}
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *DefaultClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTransport sets the round tripper used for every request
func WithTransport(rt http.RoundTripper) Option {
	return func(c *DefaultClient) {
		if rt != nil {
			c.client.Transport = rt
		}
	}
}

// NewDefaultClient creates a new default HTTP client with the specified timeout
// If timeout is 0, uses DefaultTimeout
func NewDefaultClient(timeout time.Duration, opts ...Option) *DefaultClient {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c := &DefaultClient{
		client: &http.Client{
			Timeout: timeout,
		},
		maxResponseSize: MaxResponseSize,
		retryInterval:   defaultRetryInterval,
		userAgent:       UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an HTTP GET request, retrying transient failures when
// configured. The returned error is a *TransportError, *HTTPError or
// *ReadBodyError.
func (c *DefaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval

	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		return c.get(ctx, url)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.retries+1),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Debug("Retrying HTTP request", "url", url, "error", err, "backoff", next)
		}),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		if !isTyped(err) {
			// context ended between attempts
			err = &TransportError{URL: url, Err: err}
		}
		return nil, err
	}
	return body, nil
}

func (c *DefaultClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(&TransportError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)})
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		terr := &TransportError{URL: url, Err: fmt.Errorf("failed to execute request: %w", err)}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(terr)
		}
		return nil, terr
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		herr := NewHTTPError(resp.StatusCode, url, resp.Status)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, herr
		}
		return nil, backoff.Permanent(herr)
	}

	if resp.ContentLength > c.maxResponseSize {
		return nil, backoff.Permanent(&ReadBodyError{URL: url, Err: fmt.Errorf(
			"response size %d bytes exceeds maximum allowed size of %d bytes (%.2f MB)",
			resp.ContentLength, c.maxResponseSize, float64(c.maxResponseSize)/(1024*1024))})
	}

	// +1 to detect if limit exceeded
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize+1))
	if err != nil {
		return nil, &ReadBodyError{URL: url, Err: err}
	}
	if int64(len(body)) > c.maxResponseSize {
		return nil, backoff.Permanent(&ReadBodyError{URL: url, Err: fmt.Errorf(
			"response size exceeds maximum allowed size of %d bytes (%.2f MB)",
			c.maxResponseSize, float64(c.maxResponseSize)/(1024*1024))})
	}

	return body, nil
}

func isTyped(err error) bool {
	var (
		terr *TransportError
		herr *HTTPError
		rerr *ReadBodyError
	)
	return errors.As(err, &terr) || errors.As(err, &herr) || errors.As(err, &rerr)
}
