// Package analytics is the client for the influencer-analytics query API.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 16 << 20

var analyticsTracer = otel.Tracer("nova/analytics")

// Client posts queries to the single analytics endpoint.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	timeout     time.Duration
	logger      *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit bounds outgoing requests per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond > 0 {
			if burst < 1 {
				burst = 1
			}
			c.rateLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for endpoint. Every call is bounded by timeout.
func NewClient(endpoint string, timeout time.Duration, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("analytics endpoint is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		endpoint:    endpoint,
		httpClient:  &http.Client{Transport: http.DefaultTransport},
		rateLimiter: rate.NewLimiter(rate.Inf, 1),
		timeout:     timeout,
		logger:      log.New(os.Stdout, "analytics ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Query validates req, posts it and returns the raw JSON response body.
// Transport failures, timeouts and non-2xx answers return *UnavailableError;
// validation failures return *RequestError without touching the network.
func (c *Client) Query(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Filters == nil {
		req.Filters = map[string]any{}
	}

	name := req.Name()
	ctx, span := analyticsTracer.Start(ctx, "analytics.query")
	defer span.End()
	span.SetAttributes(
		attribute.String("analytics.source", string(req.Source)),
		attribute.String("analytics.view", string(req.View)),
	)

	start := time.Now()
	body, status, err := c.do(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "analytics query failed")
		c.logger.Printf("event=analytics_query source=%s status=error http_status=%d elapsed=%s err=%v", name, status, time.Since(start), err)
	} else {
		c.logger.Printf("event=analytics_query source=%s status=ok bytes=%d elapsed=%s", name, len(body), time.Since(start))
	}
	recordQueryMetrics(ctx, req, outcome, time.Since(start))
	return body, err
}

func (c *Client) do(ctx context.Context, req Request) (json.RawMessage, int, error) {
	name := req.Name()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, 0, &UnavailableError{Source: name, Message: "rate limiter wait aborted", Cause: err}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal analytics request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build analytics request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		msg := "request failed"
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			msg = fmt.Sprintf("timed out after %s", c.timeout)
		}
		return nil, 0, &UnavailableError{Source: name, Message: msg, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, &UnavailableError{Source: name, StatusCode: resp.StatusCode, Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &UnavailableError{Source: name, StatusCode: resp.StatusCode, Message: snippet(body)}
	}

	if !json.Valid(body) {
		return nil, resp.StatusCode, &UnavailableError{Source: name, StatusCode: resp.StatusCode, Message: "response is not valid JSON"}
	}

	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
		return nil, resp.StatusCode, &UnavailableError{Source: name, StatusCode: resp.StatusCode, Message: envelope.Error}
	}

	return json.RawMessage(body), resp.StatusCode, nil
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len([]rune(s)) > max {
		return string([]rune(s)[:max]) + "…"
	}
	return s
}
