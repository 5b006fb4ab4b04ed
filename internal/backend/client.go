// Package backend talks to the FastAPI service that owns the catalogue,
// accounts, addresses, orders and payment intents.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/freshcart/storefront/internal/infrastructure/logger"
)

// Config configures the backend client.
type Config struct {
	BaseURL    string
	APIPrefix  string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	MaxDelay   time.Duration
	// RateLimit caps outgoing requests per second, retries included; zero
	// disables the limit. RateBurst defaults to 1.
	RateLimit float64
	RateBurst int
}

// Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cfg        Config
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Request describes one backend call. Body is sent as JSON, Form as
// application/x-www-form-urlencoded; at most one of them should be set.
// An empty Token falls back to the one attached with WithToken.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Form   url.Values
	Token  string
}

// Response is a successful backend answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func New(cfg Config, l *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend: base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend: invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.RetryDelay {
		cfg.MaxDelay = cfg.RetryDelay
	}
	if l == nil {
		l = zap.NewNop()
	}

	base := strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.Trim(cfg.APIPrefix, "/")
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(base, "/"),
		cfg:        cfg,
		logger:     l.Named("backend"),
	}
	if cfg.RateLimit > 0 {
		if cfg.RateBurst <= 0 {
			cfg.RateBurst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	return c, nil
}

// Do executes req, retrying transport failures, 429 and 5xx answers with
// exponential backoff. Any other non-2xx status is returned as *APIError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var (
		payload     []byte
		contentType string
	)
	switch {
	case req.Form != nil:
		payload = []byte(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.Body != nil:
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("backend: marshal request body: %w", err)
		}
		payload = b
		contentType = "application/json"
	}

	token := req.Token
	if token == "" {
		token = TokenFrom(ctx)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.RetryDelay
	policy.MaxInterval = c.cfg.MaxDelay
	policy.MaxElapsedTime = 0

	var (
		resp    *Response
		attempt int
	)
	op := func() error {
		attempt++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(fmt.Errorf("%w: rate limit: %v", ErrUnavailable, err))
			}
		}
		r, err := c.send(ctx, req.Method, target, payload, contentType, token)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.logger.Warn("backend request failed",
				zap.String("method", req.Method),
				zap.String("path", req.Path),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if r.StatusCode >= 200 && r.StatusCode < 300 {
			resp = r
			return nil
		}
		apiErr := newAPIError(r.StatusCode, r.Body)
		if retryableStatus(r.StatusCode) {
			c.logger.Warn("backend answered with retryable status",
				zap.String("method", req.Method),
				zap.String("path", req.Path),
				zap.Int("status", r.StatusCode),
				zap.Int("attempt", attempt))
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.cfg.MaxRetries)), ctx))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, target string, payload []byte, contentType, token string) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if id := logger.RequestID(ctx); id != "" {
		httpReq.Header.Set(logger.RequestIDHeader, id)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	b, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: b}, nil
}

// GetJSON performs a GET and decodes the JSON answer into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, token string, out any) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query, Token: token})
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// SendJSON performs a write request with a JSON body and decodes the answer into out (may be nil).
func (c *Client) SendJSON(ctx context.Context, method, path, token string, body, out any) error {
	resp, err := c.Do(ctx, Request{Method: method, Path: path, Body: body, Token: token})
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// PostForm posts an url-encoded form and decodes the JSON answer into out.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Form: form})
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func decode(resp *Response, out any) error {
	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("backend: decode response: %w", err)
	}
	return nil
}
