package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusConfig locates the status-creation API. The token arrives here
// explicitly; the client never reads the environment itself.
type StatusConfig struct {
	Endpoint string
	Token    string
}

// StatusClient posts summaries to an HTTP status-creation API: a single
// JSON call accepting {"text": ...} with a bearer token, answering with
// the created status ID.
type StatusClient struct {
	endpoint string
	token    string
	http     *http.Client
}

var _ Notifier = (*StatusClient)(nil)

// StatusOption configures a StatusClient.
type StatusOption func(*StatusClient)

// WithStatusHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithStatusHTTPClient(h *http.Client) StatusOption {
	return func(c *StatusClient) { c.http = h }
}

func NewStatusClient(cfg StatusConfig, opts ...StatusOption) *StatusClient {
	c := &StatusClient{
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *StatusClient) Post(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("encode status: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("post status: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("read status response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status api returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	// The channel confirmed creation; an unreadable ID is logged upstream
	// as an empty one, not treated as a failed delivery.
	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	_ = json.Unmarshal(body, &out)
	return out.Data.ID, nil
}
