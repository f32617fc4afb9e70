// Package fetch is the single boundary to the external marketplaces. It
// performs plain HTTP GETs with fixed per-site headers and hands back the
// body text regardless of HTTP status, so callers can recognize block and
// captcha pages by content rather than status alone.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Headers map[string]string

type Result struct {
	Body       string
	StatusCode int
}

type Fetcher interface {
	Fetch(ctx context.Context, url string, headers Headers) (*Result, error)
}

var _ Fetcher = (*Client)(nil)

type Client struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewClient(httpClient *http.Client, userAgent string, timeout time.Duration) *Client {
	return &Client{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Fetch returns the response body for any valid HTTP response, including
// 4xx/5xx. An error is returned only for transport-level failures (DNS,
// timeout, connection reset).
func (c *Client) Fetch(ctx context.Context, url string, headers Headers) (*Result, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Result{Body: string(body), StatusCode: resp.StatusCode}, nil
}
