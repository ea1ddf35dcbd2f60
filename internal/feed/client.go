// Package feed talks to the disclosure feed: an HTTP endpoint returning the
// latest independent-expenditure filings as a JSON attribute-bag array. The
// client retries transient failures on a fixed cadence; the normalizer turns
// surviving payloads into typed records.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrUnavailable is returned by Fetch once the retry budget is exhausted.
// The run cannot proceed without feed data, so callers abort on it.
var ErrUnavailable = errors.New("feed unavailable")

// The feed sits behind an anti-scraping layer that rejects default Go
// user agents, so every request carries a plain browser identity.
const (
	userAgent    = "Mozilla/5.0 (Windows; U; Windows NT 5.1; en-US; rv:1.9.0.7) Gecko/2009021910 Firefox/3.0.7"
	acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// Config locates the feed and bounds the retry loop. Credentials arrive
// here explicitly; the client never reads the environment itself.
type Config struct {
	Endpoint string
	APIKey   string
	Attempts int
	Delay    time.Duration
}

// Client fetches the current feed snapshot.
type Client struct {
	endpoint string
	apiKey   string
	attempts int
	delay    time.Duration
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger used for per-attempt diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient constructs a feed client. Zero Attempts or Delay fall back to
// 10 attempts one second apart.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		attempts: cfg.Attempts,
		delay:    cfg.Delay,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   slog.Default(),
	}
	if c.attempts <= 0 {
		c.attempts = 10
	}
	if c.delay <= 0 {
		c.delay = time.Second
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Fetch retrieves and parses the current snapshot, retrying each failure
// after a fixed delay until the attempt budget runs out. There is no
// backoff: the feed either recovers within a few seconds or the run is
// better off failing fast so the scheduler can try again later.
func (c *Client) Fetch(ctx context.Context) ([]Entry, error) {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		entries, err := c.fetchOnce(ctx)
		if err == nil {
			return entries, nil
		}
		lastErr = err
		c.logger.Warn("feed fetch attempt failed",
			"attempt", attempt, "of", c.attempts, "error", err)

		if attempt == c.attempts {
			break
		}
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, c.attempts, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	q := req.URL.Query()
	q.Set("method", "independentExpend")
	q.Set("apikey", c.apiKey)
	q.Set("output", "json")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed response: %w", err)
	}
	entries, err := parsePayload(body)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// parsePayload decodes the feed envelope. Both the response object and the
// expenditure array must be present: the feed reports errors as 200s with a
// different body shape, and those must count as failed attempts rather than
// an empty day.
func parsePayload(body []byte) ([]Entry, error) {
	var p struct {
		Response *struct {
			IndExp json.RawMessage `json:"indexp"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("parse feed payload: %w", err)
	}
	if p.Response == nil || p.Response.IndExp == nil {
		return nil, errors.New("feed payload missing response.indexp")
	}

	var envelopes []struct {
		Attributes Entry `json:"@attributes"`
	}
	if err := json.Unmarshal(p.Response.IndExp, &envelopes); err != nil {
		return nil, fmt.Errorf("parse feed entries: %w", err)
	}
	entries := make([]Entry, 0, len(envelopes))
	for _, env := range envelopes {
		entries = append(entries, env.Attributes)
	}
	return entries, nil
}
