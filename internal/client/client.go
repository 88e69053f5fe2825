package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jingweijiang/annotation-api-test/internal/auth"
)

const (
	requestIDHeader = "X-Request-ID"
	maxLoggedBody   = 1000
)

var retryStatuses = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

var sensitiveHeaders = map[string]struct{}{
	"authorization": {},
	"x-api-key":     {},
}

// Stats summarises the requests issued by a Client.
type Stats struct {
	Requests          int
	TotalResponseTime time.Duration
}

// AverageResponseTime is zero when no request has completed.
func (s Stats) AverageResponseTime() time.Duration {
	if s.Requests == 0 {
		return 0
	}
	return s.TotalResponseTime / time.Duration(s.Requests)
}

// Client issues API requests. Header mutators are not synchronised with
// in-flight requests; configure the client before sharing it.
type Client struct {
	http    *resty.Client
	logger  *zap.Logger
	limiter rateLimiter

	mu    sync.Mutex
	stats Stats
}

// New builds a Client from cfg.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.MaxBackoff < cfg.Backoff {
		cfg.MaxBackoff = max(cfg.Backoff, defaultMaxBackoff)
	}
	if cfg.Version == "" {
		cfg.Version = defaultVersion
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.Backoff).
		SetRetryMaxWaitTime(cfg.MaxBackoff).
		AddRetryCondition(shouldRetry).
		SetHeaders(map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
			"User-Agent":   "api-test-harness/" + cfg.Version,
		}).
		SetHeaders(cfg.Headers)

	if !cfg.VerifySSL {
		httpClient.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // opt-in for test environments with self-signed certs
	}

	c := &Client{
		http:    httpClient,
		logger:  logger,
		limiter: newTokenBucketLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
	if cfg.Auth != nil {
		c.SetAuth(cfg.Auth)
	}

	httpClient.OnBeforeRequest(c.beforeRequest)
	httpClient.OnAfterResponse(c.afterResponse)
	return c
}

func shouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return false
	}
	_, ok := retryStatuses[resp.StatusCode()]
	return ok
}

// SetAuth applies the handler's headers to every subsequent request.
func (c *Client) SetAuth(handler auth.Handler) {
	c.http.SetHeaders(handler.Headers())
}

// SetAuthToken sets the Authorization header; tokenType defaults to Bearer.
func (c *Client) SetAuthToken(token, tokenType string) {
	if tokenType == "" {
		tokenType = "Bearer"
	}
	c.http.SetHeader("Authorization", tokenType+" "+token)
}

// SetHeader adds a default header sent with every request.
func (c *Client) SetHeader(key, value string) {
	c.http.SetHeader(key, value)
}

// RemoveHeader drops a default header.
func (c *Client) RemoveHeader(key string) {
	c.http.Header.Del(key)
}

// BaseURL returns the URL relative endpoints are resolved against.
func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

// Get sends a GET request to endpoint.
func (c *Client) Get(ctx context.Context, endpoint string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, endpoint, nil, nil)
}

// Post sends body as JSON.
func (c *Client) Post(ctx context.Context, endpoint string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, endpoint, body, nil)
}

// Put sends body as JSON.
func (c *Client) Put(ctx context.Context, endpoint string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPut, endpoint, body, nil)
}

// Patch sends body as JSON.
func (c *Client) Patch(ctx context.Context, endpoint string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, endpoint, body, nil)
}

// Delete sends a DELETE request to endpoint.
func (c *Client) Delete(ctx context.Context, endpoint string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// Do sends one request. Relative endpoints are joined to the base URL,
// absolute ones are used as is. Non-2xx statuses are not errors; inspect the
// returned Response.
func (c *Client) Do(ctx context.Context, method, endpoint string, body any, headers map[string]string) (*Response, error) {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}

	url := endpoint
	if !isAbsolute(endpoint) {
		url = "/" + strings.TrimLeft(endpoint, "/")
	}

	start := time.Now()
	resp, err := req.Execute(method, url)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Error("request failed",
			zap.String("method", method),
			zap.String("url", url),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}

	c.record(elapsed)
	return newResponse(resp, elapsed), nil
}

// Stats returns a snapshot of the request counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Client) record(elapsed time.Duration) {
	c.mu.Lock()
	c.stats.Requests++
	c.stats.TotalResponseTime += elapsed
	c.mu.Unlock()
}

func (c *Client) beforeRequest(_ *resty.Client, req *resty.Request) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	if strings.TrimSpace(req.Header.Get(requestIDHeader)) == "" {
		req.SetHeader(requestIDHeader, uuid.NewString())
	}

	c.logger.Info("request",
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.String("request_id", req.Header.Get(requestIDHeader)),
	)
	if ce := c.logger.Check(zap.DebugLevel, "request headers"); ce != nil {
		ce.Write(zap.Any("headers", safeHeaders(req.Header)))
	}
	return nil
}

func (c *Client) afterResponse(_ *resty.Client, resp *resty.Response) error {
	c.logger.Info("response",
		zap.String("method", resp.Request.Method),
		zap.String("url", resp.Request.URL),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("duration", resp.Time()),
		zap.Int("attempt", resp.Request.Attempt),
		zap.String("request_id", resp.Request.Header.Get(requestIDHeader)),
	)
	if ce := c.logger.Check(zap.DebugLevel, "response body"); ce != nil {
		ce.Write(zap.String("body", truncate(resp.String(), maxLoggedBody)))
	}
	return nil
}

func safeHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key := range h {
		if _, ok := sensitiveHeaders[strings.ToLower(key)]; ok {
			continue
		}
		out[key] = h.Get(key)
	}
	return out
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "... (truncated)"
}

func isAbsolute(endpoint string) bool {
	return strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
}
