package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	apiKeyHeader   = "subscription-key"
	maxErrorBody   = 512
	defaultBackoff = 200 * time.Millisecond
)

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

type ClientConfig struct {
	BaseURL    string
	APIKey     string
	Retries    int
	Backoff    time.Duration
	HTTPClient *http.Client
}

// Client talks to the aggregated pricing API.
type Client struct {
	baseURL string
	apiKey  string
	retries int
	backoff time.Duration
	http    *http.Client
}

func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid upstream base url %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		retries: retries,
		backoff: backoff,
		http:    httpClient,
	}, nil
}

// Get issues a GET against path and returns the response body. Transport errors, 5xx and 429
// are retried with exponential backoff; the caller bounds the total time through ctx.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	logger := zerolog.Ctx(ctx)
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := c.backoff * time.Duration(1<<(attempt-1))
			logger.Debug().
				Err(lastErr).
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Dur("wait", wait).
				Msg("retrying upstream request")

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("upstream request cancelled: %w", ctx.Err())
			case <-time.After(wait):
			}
		}

		body, err := c.do(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !isRetryable(err) || ctx.Err() != nil {
			break
		}
	}

	return nil, lastErr
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	return body, nil
}

func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.retryable()
	}
	return true
}
