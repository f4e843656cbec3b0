// Package api is the single choke point for outbound HTTP calls to the pods
// backend. It attaches the bearer token, normalizes failures into *Error and
// handles an expired session centrally.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// TokenStore is the part of the token storage the client needs.
type TokenStore interface {
	Load() (string, error)
	Clear() error
}

// Client talks to the pods REST surface.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	validate   *validator.Validate

	mu             sync.RWMutex
	onUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUnauthorizedHandler sets the hook that runs after a 401.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// New creates a Client for baseURL. timeout bounds every request.
func New(baseURL string, timeout time.Duration, tokens TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		validate:   validator.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetUnauthorizedHandler replaces the hook that runs after a 401. It exists
// for wiring where the handler's owner is built after the client.
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	token, err := c.tokens.Load()
	if err != nil {
		return ""
	}
	return token
}

// expire clears the stored token and runs the unauthorized hook.
func (c *Client) expire(ctx context.Context) {
	if err := c.tokens.Clear(); err != nil {
		slog.ErrorContext(ctx, "Failed to clear expired token", "error", err)
	}
	c.mu.RLock()
	hook := c.onUnauthorized
	c.mu.RUnlock()
	if hook != nil {
		hook()
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) put(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPut, path, in, out)
}

func (c *Client) patch(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPatch, path, in, out)
}

func (c *Client) delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

// check validates a request DTO before it goes on the wire.
func (c *Client) check(req any) error {
	if err := c.validate.Struct(req); err != nil {
		return validationError(err)
	}
	return nil
}

// do performs one request. A 401 on a request that carried a token expires
// the session; a 401 without a token (e.g. bad credentials) is an ordinary error.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return transportError(err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return transportError(err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	token := c.token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "API request failed", "event", "api_transport_error", "method", method, "path", path, "request_id", requestID, "error", err)
		return transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read API response", "method", method, "path", path, "request_id", requestID, "error", err)
		return transportError(err)
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		slog.WarnContext(ctx, "Session rejected by backend, clearing token", "event", "api_session_expired", "path", path, "request_id", requestID)
		c.expire(ctx)
		return ErrSessionExpired
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := normalizeError(resp.StatusCode, data)
		slog.ErrorContext(ctx, "API request returned an error", "event", "api_error", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID, "message", apiErr.Message)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		slog.ErrorContext(ctx, "Failed to decode API response", "method", method, "path", path, "request_id", requestID, "error", err)
		return &Error{Status: resp.StatusCode, Message: MsgUnexpected, Err: err}
	}
	return nil
}

// Page selects a page of a list endpoint. Zero values use the server defaults.
type Page struct {
	Page  int
	Limit int
}

func (p Page) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	return v
}
