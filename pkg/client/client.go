package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sawa-platform/sawa/pkg/api"
)

// DefaultTimeout is the per-request deadline when none is configured.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 1 << 20

// TokenSource supplies the current access token. It is consulted on every
// request so a token replaced by login, refresh or logout takes effect
// immediately.
type TokenSource interface {
	AccessToken() string
}

// Client is the SAWA API client.
type Client struct {
	endpoints  api.Endpoints
	tokens     TokenSource
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request deadline. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new API client. tokens may be nil for unauthenticated use.
func New(endpoints api.Endpoints, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		endpoints:  endpoints,
		tokens:     tokens,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoints returns the URL builder the client targets.
func (c *Client) Endpoints() api.Endpoints {
	return c.endpoints
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out, true)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out, true)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any, auth bool) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	target := c.endpoints.URL(path)
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.tokens != nil {
		if tok := c.tokens.AccessToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			"request_id", requestID, "method", method, "path", path, "error", err)
		return &NetworkError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	c.logger.Debug("api request",
		"request_id", requestID, "method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("Status %d", resp.StatusCode)}
		}
		return newHTTPError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Method: method, URL: target, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
