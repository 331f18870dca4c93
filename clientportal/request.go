package clientportal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/etnz/rebalance"
)

// APIError is a non successful gateway response.
type APIError struct {
	StatusCode int
	Path       string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway %s: %d %s: %s", e.Path, e.StatusCode, http.StatusText(e.StatusCode), bytes.TrimSpace(e.Body))
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Unwrap makes retryable errors match rebalance.ErrUnavailable.
func (e *APIError) Unwrap() error {
	if e.IsRetryable() {
		return rebalance.ErrUnavailable
	}
	return nil
}

// do performs a single request. Transport failures are reported as
// rebalance.ErrUnavailable.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, query url.Values, payload any) ([]byte, error) {
	addr := c.baseURL + path
	if len(query) > 0 {
		addr += "?" + query.Encode()
	}
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, addr, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s: %v", rebalance.ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", rebalance.ErrUnavailable, path, err)
	}
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("gateway call")
	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Path: path, Body: data}
	}
	return data, nil
}

// read performs an idempotent request, retrying transient failures with
// exponential backoff.
func (c *Client) read(ctx context.Context, hc *http.Client, method, path string, query url.Values, payload any) ([]byte, error) {
	op := func() ([]byte, error) {
		data, err := c.do(ctx, hc, method, path, query, payload)
		if err != nil && !errors.Is(err, rebalance.ErrUnavailable) {
			return nil, backoff.Permanent(err)
		}
		return data, err
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, c.maxRetries), ctx)
	return backoff.RetryNotifyWithData(op, policy, func(err error, d time.Duration) {
		c.log.Warn().Err(err).Str("path", path).Dur("retry_in", d).Msg("gateway unavailable, retrying")
	})
}

// get reads path and decodes the JSON answer into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	data, err := c.read(ctx, c.httpClient, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return unmarshal(path, data, out)
}

// lookup is get through the lookup cache.
func (c *Client) lookup(ctx context.Context, path string, query url.Values, out any) error {
	data, err := c.read(ctx, c.lookups, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return unmarshal(path, data, out)
}

// search posts a read-only query, retried like a get.
func (c *Client) search(ctx context.Context, path string, payload, out any) error {
	data, err := c.read(ctx, c.httpClient, http.MethodPost, path, nil, payload)
	if err != nil {
		return err
	}
	return unmarshal(path, data, out)
}

// send performs a state changing request once. It is never retried.
func (c *Client) send(ctx context.Context, method, path string, payload, out any) error {
	data, err := c.do(ctx, c.httpClient, method, path, nil, payload)
	if err != nil {
		return err
	}
	return unmarshal(path, data, out)
}

func unmarshal(path string, data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
