// Package client is the JSON transport to the VeriBits API.
//
// It knows about base URLs, headers and credentials but never interprets the
// response envelope; that is the dispatcher's job.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	consts "github.com/khanhnv2901/veribits-cli/internal/shared/constants"
)

// Config configures a Client.
type Config struct {
	BaseURL     string
	Timeout     time.Duration // zero means no client-side timeout
	UserAgent   string
	Credentials Credentials
	Logger      *zap.Logger
	HTTPClient  *http.Client
}

// Request is one call to a tool endpoint.
type Request struct {
	Method   string
	Endpoint string
	Auth     AuthScheme
	Body     any
}

// Response is the raw outcome of a call that reached the server.
type Response struct {
	StatusCode int
	Body       []byte
	RequestID  string
	Duration   time.Duration
}

// Client sends tool requests to the backend.
type Client struct {
	http    *resty.Client
	baseURL string
	creds   Credentials
	logger  *zap.Logger
}

// New builds a Client from cfg.
func New(cfg Config) *Client {
	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = consts.DefaultBaseURL
	}
	rc.SetBaseURL(baseURL)

	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = consts.DefaultUserAgent
	}
	rc.SetHeader("User-Agent", ua)
	rc.SetHeader("Accept", "application/json")

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		http:    rc,
		baseURL: baseURL,
		creds:   cfg.Credentials,
		logger:  logger,
	}
}

// BaseURL returns the normalized API location.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Credentials returns the default credentials.
func (c *Client) Credentials() Credentials {
	return c.creds
}

// Do sends req and returns the server's response. Only transport failures
// (DNS, connect, TLS, cancellation, timeout) are returned as errors; HTTP error
// statuses are returned as a Response.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	payload, err := json.Marshal(req.Body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	creds := c.creds
	if override, ok := CredentialsFromContext(ctx); ok {
		creds = override.Merge(c.creds)
	}

	r := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(consts.HeaderRequestID, requestID).
		SetHeaders(req.Auth.Headers(creds))
	if method != http.MethodGet {
		r.SetBody(payload)
	}

	start := time.Now()
	resp, err := r.Execute(method, req.Endpoint)
	duration := time.Since(start)
	if err != nil {
		c.logger.Debug("api_request_failed",
			zap.String("request_id", requestID),
			zap.String("endpoint", req.Endpoint),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	c.logger.Debug("api_request",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("endpoint", req.Endpoint),
		zap.String("auth", req.Auth.String()),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("duration", duration),
	)

	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		RequestID:  requestID,
		Duration:   duration,
	}, nil
}
