// Package remote is the typed client for the wallet coordination service.
// Every response arrives wrapped in a {data, error, isSuccess} envelope;
// list endpoints page with offset/limit query parameters and callers loop
// while a full page comes back.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opencustody/walletsync/config"
)

// PageSize is the fixed page size for every paginated endpoint. A short
// page is the end-of-collection sentinel.
const PageSize = 30

const (
	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
)

type Client struct {
	logger    *logrus.Logger
	client    *http.Client
	baseURL   string
	authToken string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		logger: logrus.WithField("module", "remote").Logger,
		client: &http.Client{
			Timeout: cfg.Remote.Timeout,
		},
		baseURL: cfg.Remote.Server,
	}
}

// SetAuthToken installs the session bearer token. Session bootstrap itself
// happens outside this package.
func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

type envelope struct {
	Data      json.RawMessage `json:"data"`
	Error     *remoteError    `json:"error"`
	IsSuccess bool            `json:"isSuccess"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, headers map[string]string, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("fail to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("fail to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fail to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("fail to read response body: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("fail to decode response envelope, status %d: %w", resp.StatusCode, err)
	}
	if !env.IsSuccess {
		if env.Error != nil {
			return env.Error.toTyped()
		}
		return fmt.Errorf("request %s %s failed with status %d", method, path, resp.StatusCode)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("fail to decode response data: %w", err)
		}
	}
	return nil
}

// get retries transient failures with exponential backoff; only reads are
// retried, mutations go through exactly once.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": backoff.String(),
				"path":    path,
			}).Debug("Retrying request")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		err := c.do(ctx, http.MethodGet, path, query, nil, nil, out)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err
		c.logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
			"path":    path,
		}).Warn("Request failed, will retry")
	}
	return fmt.Errorf("request failed after retries: %w", lastErr)
}

func (c *Client) post(ctx context.Context, path string, headers map[string]string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, headers, body, out)
}

func (c *Client) put(ctx context.Context, path string, headers map[string]string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, headers, body, out)
}

func (c *Client) delete(ctx context.Context, path string, headers map[string]string, body any) error {
	return c.do(ctx, http.MethodDelete, path, nil, headers, body, nil)
}

func pageQuery(offset, limit int) url.Values {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	return q
}
