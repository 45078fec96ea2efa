package dtcapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dtcinsights/dtc-insights/pkg/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
	apiKeyHeader   = "X-API-Key"
)

// Options configures a Client.
type Options struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
}

// Client calls the DTC REST API that fronts the telemetry warehouse.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	maxAttempts int
	baseBackoff time.Duration
	metrics     *metrics.Upstream
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewClient builds an API client. Retries apply to GET requests only.
func NewClient(opts Options, m *metrics.Upstream, logger *slog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("dtc api base url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("parse dtc api base url: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &Client{
		baseURL:     base,
		apiKey:      strings.TrimSpace(opts.APIKey),
		httpClient:  &http.Client{Timeout: timeout},
		maxAttempts: attempts,
		baseBackoff: opts.BaseBackoff,
		metrics:     m,
		logger:      logger.With("component", "dtcapi.client"),
		sleep:       sleepContext,
	}, nil
}

// getJSON issues a GET with the given query and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			c.metrics.Retry(endpoint)
			if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
				return fmt.Errorf("%s request cancelled: %w", endpoint, err)
			}
		}
		body, err := c.do(ctx, endpoint, http.MethodGet, target, nil)
		if err == nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("decode %s response: %w", endpoint, err)
			}
			return nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
		c.logger.Warn("upstream request failed, retrying", "endpoint", endpoint, "attempt", attempt, "error", err)
	}
	return lastErr
}

// postJSON sends payload as JSON and decodes the response into out. It is
// never retried.
func (c *Client) postJSON(ctx context.Context, endpoint, path string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", endpoint, err)
	}
	body, err := c.do(ctx, endpoint, http.MethodPost, c.baseURL+path, raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint, method, target string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.Observe(endpoint, 0, time.Since(started))
		return nil, &transportError{endpoint: endpoint, err: err}
	}
	defer resp.Body.Close()
	c.metrics.Observe(endpoint, resp.StatusCode, time.Since(started))

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newAPIError(endpoint, resp.StatusCode, snippet)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	c.logger.Debug("upstream request done", "endpoint", endpoint, "status", resp.StatusCode, "elapsed_ms", time.Since(started).Milliseconds())
	return body, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	if c.baseBackoff <= 0 {
		return 0
	}
	return c.baseBackoff * time.Duration(1<<(attempt-2))
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	var tErr *transportError
	return errors.As(err, &tErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
