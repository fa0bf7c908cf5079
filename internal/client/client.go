// Package client talks to the claims/verification service.
//
// Three endpoints are used, all resolved against the configured base URL:
//
//	GET  /claims        the worklist
//	GET  /claims/{id}   one claim
//	POST /verify/{id}   run the external audit pipeline
//
// Every call is attempted exactly once; failures are returned as
// *TransportError and never retried.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/ppiankov/claimaudit/internal/audit"
	"github.com/ppiankov/claimaudit/internal/cache"
	"github.com/ppiankov/claimaudit/internal/model"
)

// Client is the claims service client
type Client struct {
	baseURL       *url.URL
	httpClient    *http.Client
	userAgent     string
	maxBytes      int64
	timeout       time.Duration
	verifyTimeout time.Duration
	cache         cache.Cache
	cacheTTL      time.Duration
	breaker       *gobreaker.CircuitBreaker // nil when disabled
	throttle      *throttle
	logger        *logrus.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithLogger sets the logger used for breaker and cache diagnostics
func WithLogger(l *logrus.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the HTTP client (tests, custom transports)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCache replaces the read cache
func WithCache(cc cache.Cache) Option {
	return func(c *Client) { c.cache = cc }
}

// New creates a client from configuration
func New(cfg *model.Config, opts ...Option) (*Client, error) {
	if err := model.ValidateBaseURL(cfg.Service.BaseURL); err != nil {
		return nil, err
	}
	base, err := url.Parse(cfg.Service.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	c := &Client{
		baseURL:       base,
		httpClient:    newHTTPClient(cfg.Service.HTTPProxy, cfg.Service.HTTPSProxy, cfg.Service.NoProxy),
		userAgent:     cfg.Service.UserAgent,
		maxBytes:      cfg.Service.MaxBodyBytes,
		timeout:       cfg.Service.Timeout,
		verifyTimeout: cfg.Service.VerifyTimeout,
		cacheTTL:      cfg.Cache.TTL,
		throttle:      newThrottle(cfg.RateLimiting.ReadsPerSecond, cfg.RateLimiting.VerifyPerSecond, cfg.RateLimiting.BurstSize),
		logger:        logrus.StandardLogger(),
	}
	if cfg.Cache.Enabled {
		c.cache = cache.NewMemoryCache(cfg.Cache.TTL, time.Minute)
	} else {
		c.cache = cache.Noop{}
	}

	for _, opt := range opts {
		opt(c)
	}

	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(cfg.Breaker, c.logger)
	}
	return c, nil
}

func newBreaker(cfg model.BreakerConfig, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "claims-service",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests || counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker changed state")
		},
		IsSuccessful: func(err error) bool {
			return !countsAsFailure(err)
		},
	})
}

// BaseURL returns the configured service address
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListClaims fetches the worklist in service order
func (c *Client) ListClaims(ctx context.Context) ([]model.Claim, error) {
	var claims []model.Claim
	if cache.GetJSON(c.cache, cache.ClaimsKey(), &claims) {
		c.logger.Debug("Claim list served from cache")
		return claims, nil
	}

	op := "load claims"
	body, err := c.call(ctx, http.MethodGet, classRead, op, c.endpoint("claims"))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &claims); err != nil {
		return nil, &TransportError{Op: op, URL: c.endpoint("claims"), Err: fmt.Errorf("decode response: %w", err)}
	}
	if claims == nil {
		claims = []model.Claim{}
	}

	if err := cache.SetJSON(c.cache, cache.ClaimsKey(), claims, c.cacheTTL); err != nil {
		c.logger.WithError(err).Warn("Failed to cache claim list")
	}
	return claims, nil
}

// GetClaim fetches one claim. A 404 yields an error matching ErrNotFound.
func (c *Client) GetClaim(ctx context.Context, id int64) (*model.Claim, error) {
	var claim model.Claim
	if cache.GetJSON(c.cache, cache.ClaimKey(id), &claim) {
		return &claim, nil
	}

	op := "load claim " + strconv.FormatInt(id, 10)
	endpoint := c.endpoint("claims", strconv.FormatInt(id, 10))
	body, err := c.call(ctx, http.MethodGet, classRead, op, endpoint)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &claim); err != nil {
		return nil, &TransportError{Op: op, URL: endpoint, Err: fmt.Errorf("decode response: %w", err)}
	}

	if err := cache.SetJSON(c.cache, cache.ClaimKey(id), claim, c.cacheTTL); err != nil {
		c.logger.WithError(err).Warn("Failed to cache claim")
	}
	return &claim, nil
}

// Verify runs the external audit for a claim and returns the decoded body.
// The body is returned as-is for audit.Classify; only a request failure or
// a body that is not JSON is an error.
func (c *Client) Verify(ctx context.Context, id int64) (audit.Payload, error) {
	ctx, cancel := context.WithTimeout(ctx, c.verifyTimeout)
	defer cancel()

	op := "verify claim " + strconv.FormatInt(id, 10)
	endpoint := c.endpoint("verify", strconv.FormatInt(id, 10))
	body, err := c.call(ctx, http.MethodPost, classVerify, op, endpoint)
	if err != nil {
		return nil, err
	}

	payload, err := audit.DecodePayload(body)
	if err != nil {
		return nil, &TransportError{Op: op, URL: endpoint, Err: err}
	}

	// The audit may have changed what the store reports for this claim
	_ = c.cache.Delete(cache.ClaimKey(id))
	_ = c.cache.Delete(cache.ClaimsKey())

	return payload, nil
}

// endpoint resolves path segments against the base URL
func (c *Client) endpoint(segments ...string) string {
	return c.baseURL.JoinPath(segments...).String()
}

// call rate limits, then performs one request through the breaker
func (c *Client) call(ctx context.Context, method string, class opClass, op, endpoint string) ([]byte, error) {
	if err := c.throttle.Wait(ctx, class); err != nil {
		return nil, &TransportError{Op: op, URL: endpoint, Err: err}
	}

	if c.breaker == nil {
		return c.roundTrip(ctx, method, op, endpoint)
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, method, op, endpoint)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &TransportError{Op: op, URL: endpoint, Err: ErrUnavailable}
	}
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

// roundTrip performs a single HTTP exchange; no request body is sent
func (c *Client) roundTrip(ctx context.Context, method, op, endpoint string) ([]byte, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Op: op, URL: endpoint, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, URL: endpoint, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.WithFields(logrus.Fields{
		"method":   method,
		"url":      endpoint,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("Claims service call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, statusError(op, endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, &TransportError{Op: op, URL: endpoint, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}
