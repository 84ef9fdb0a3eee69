// Package upstream provides the typed, resilient HTTP client for the
// media-library server. It owns URL construction, per-call timeouts,
// bounded retry with exponential backoff for idempotent GETs, and a
// process-wide circuit breaker shared by all concurrent handlers.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/shelfgate/shelfgate/internal/gateway"
)

const (
	defaultTimeout         = 10 * time.Second
	defaultMaxRetries      = 3
	defaultRetryDelay      = 500 * time.Millisecond
	maxRetryDelay          = 10 * time.Second
	retryBackoffFactor     = 2
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second
)

// Config carries the already-validated client settings.
type Config struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration // per-call timeout for API requests
	MaxRetries      int           // total attempts for idempotent GETs
	RetryDelay      time.Duration // initial backoff delay
	BreakerFailures uint32        // consecutive failures before the breaker opens
	BreakerCooldown time.Duration // open → half-open cool-down
}

// Client talks to the upstream server. One instance is constructed at boot
// and shared read-only by all handlers; the circuit breaker holds the only
// mutable shared state.
type Client struct {
	baseURL    string
	apiKey     string
	api        *http.Client
	stream     *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	maxRetries int
	retryDelay time.Duration
}

// New creates a client for the given upstream configuration.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = defaultBreakerFailures
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = defaultBreakerCooldown
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "upstream",
		MaxRequests: 1, // half-open admits a single trial call
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		api:        &http.Client{Timeout: cfg.Timeout},
		// The stream client must not carry an overall timeout: it would
		// cut off large file bodies mid-transfer. Headers still time out.
		stream: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: cfg.Timeout},
		},
		breaker:    breaker,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// BreakerState reports the current circuit breaker state for health checks.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Status fetches the upstream status document.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	const op = "upstream.Status"
	var out StatusResponse
	if err := c.getJSON(ctx, op, c.url("/status", nil), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListLibraries fetches all upstream libraries.
func (c *Client) ListLibraries(ctx context.Context) ([]Library, error) {
	const op = "upstream.ListLibraries"
	var out LibrariesResponse
	if err := c.getJSON(ctx, op, c.url("/api/libraries", nil), &out); err != nil {
		return nil, err
	}
	return out.Libraries, nil
}

// ListSeries fetches one page of series in a library.
func (c *Client) ListSeries(ctx context.Context, libraryID string, page, limit int) (*SeriesPage, error) {
	const op = "upstream.ListSeries"
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	var out SeriesPage
	if err := c.getJSON(ctx, op, c.url("/api/libraries/"+url.PathEscape(libraryID)+"/series", q), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListItems fetches one page of items in a library.
func (c *Client) ListItems(ctx context.Context, libraryID string, page, limit int) (*ItemsPage, error) {
	const op = "upstream.ListItems"
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	var out ItemsPage
	if err := c.getJSON(ctx, op, c.url("/api/libraries/"+url.PathEscape(libraryID)+"/items", q), &out); err != nil {
		return nil, err
	}
	if err := requireItemIDs(op, out.Results); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetItem fetches a single expanded item. A 404 maps to KindNotFound.
func (c *Client) GetItem(ctx context.Context, itemID string) (*Item, error) {
	const op = "upstream.GetItem"
	q := url.Values{}
	q.Set("expanded", "1")
	var out Item
	if err := c.getJSON(ctx, op, c.url("/api/items/"+url.PathEscape(itemID), q), &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, gateway.Errorf(gateway.KindInternal, op, "item payload missing id")
	}
	return &out, nil
}

// CoverOptions selects cover rendering parameters forwarded upstream.
type CoverOptions struct {
	Width  int
	Height int
	Format string
}

// CoverURL builds the upstream cover URL for an item. No request is made.
func (c *Client) CoverURL(itemID string, opts CoverOptions) string {
	q := url.Values{}
	if opts.Width > 0 {
		q.Set("width", strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		q.Set("height", strconv.Itoa(opts.Height))
	}
	if opts.Format != "" {
		q.Set("format", opts.Format)
	}
	return c.url("/api/items/"+url.PathEscape(itemID)+"/cover", q)
}

// FileStream is an open upstream file response. The caller owns Body.
type FileStream struct {
	Body          io.ReadCloser
	StatusCode    int
	ContentType   string
	ContentLength int64
	ContentRange  string
	AcceptRanges  string
}

// OpenFile opens an upstream file download, forwarding an optional Range
// header. The response body is streamed, never buffered; streams are not
// retried because bytes may already be in flight.
func (c *Client) OpenFile(ctx context.Context, itemID, ino, rangeHeader string) (*FileStream, error) {
	const op = "upstream.OpenFile"
	u := c.url("/api/items/"+url.PathEscape(itemID)+"/file/"+url.PathEscape(ino), nil)
	return c.openStream(ctx, op, u, rangeHeader)
}

// OpenCover opens an upstream cover image stream for proxying.
func (c *Client) OpenCover(ctx context.Context, itemID string, opts CoverOptions) (*FileStream, error) {
	const op = "upstream.OpenCover"
	return c.openStream(ctx, op, c.CoverURL(itemID, opts), "")
}

func (c *Client) openStream(ctx context.Context, op, u, rangeHeader string) (*FileStream, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		c.authorize(req)
		if rangeHeader != "" {
			req.Header.Set("Range", rangeHeader)
		}
		resp, err := c.stream.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, &ServerError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		return nil, wrapTransportErr(op, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, gateway.Errorf(gateway.KindNotFound, op, "%s not found", u)
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent:
		resp.Body.Close()
		return nil, gateway.Errorf(gateway.KindUpstream, op, "unexpected status %d", resp.StatusCode)
	}

	return &FileStream{
		Body:          resp.Body,
		StatusCode:    resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		ContentRange:  resp.Header.Get("Content-Range"),
		AcceptRanges:  resp.Header.Get("Accept-Ranges"),
	}, nil
}

// getJSON performs a retried GET and decodes the body leniently.
func (c *Client) getJSON(ctx context.Context, op, url string, out any) error {
	resp, err := c.doGet(ctx, url)
	if err != nil {
		return wrapTransportErr(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return gateway.Errorf(gateway.KindNotFound, op, "not found")
	case resp.StatusCode != http.StatusOK:
		return gateway.Errorf(gateway.KindUpstream, op, "unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return gateway.E(gateway.KindInternal, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// doGet runs one GET through the circuit breaker with bounded exponential
// backoff. Only idempotent GETs go through this path, so retrying on
// connection failures, timeouts, 429 and 5xx is safe.
func (c *Client) doGet(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelayFor(c.retryDelay, attempt)):
			}
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, err
			}
			c.authorize(req)
			resp, err := c.api.Do(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				resp.Body.Close()
				return nil, ErrRateLimited
			}
			if resp.StatusCode >= 500 {
				resp.Body.Close()
				return nil, &ServerError{StatusCode: resp.StatusCode}
			}
			return resp, nil
		})
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, lastErr
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func retryDelayFor(initial time.Duration, attempt int) time.Duration {
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= time.Duration(retryBackoffFactor)
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func isRetryable(err error) bool {
	// An open breaker must fail fast, not spin in the retry loop.
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func wrapTransportErr(op string, err error) error {
	return gateway.E(gateway.KindUpstream, op, err)
}

func requireItemIDs(op string, items []Item) error {
	for i := range items {
		if items[i].ID == "" {
			return gateway.Errorf(gateway.KindInternal, op, "item payload missing id")
		}
	}
	return nil
}
