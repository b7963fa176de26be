// Package provider is the outbound HTTP layer shared by every external provider client:
// throttling, timing metrics, error classification and URL redaction live here.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type Options struct {
	Name              string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
}

type Client struct {
	name    string
	http    *resty.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Client{
		name: opts.Name,
		http: resty.New().
			SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
			SetTimeout(opts.Timeout).
			SetHeader("Accept", "application/json"),
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With(slog.String("provider", opts.Name)),
	}
}

func (c *Client) Name() string { return c.name }

// Do waits for the rate limiter, executes the request built by configure and classifies
// the outcome. Transport failures and non-2xx statuses come back as *types.TransportError.
func (c *Client) Do(ctx context.Context, operation, method, path string, configure func(*resty.Request)) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &types.TransportError{Provider: c.name, Operation: operation, Err: err}
	}

	req := c.http.R().SetContext(ctx)
	if configure != nil {
		configure(req)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	elapsed := time.Since(start)

	attrs := metric.WithAttributes(
		attribute.String("provider", c.name),
		attribute.String("operation", operation),
	)
	m := metrics.Get()
	m.ProviderCallDurationSeconds.Record(ctx, elapsed.Seconds(), attrs)

	l := c.logger.With(slog.String("operation", operation), slog.Duration("latency", elapsed))
	if resp != nil && resp.RawResponse != nil && resp.RawResponse.Request != nil {
		l = l.With(slog.String("url", RedactURL(resp.RawResponse.Request.URL.String())))
	}

	if err != nil {
		m.ProviderErrorsTotal.Add(ctx, 1, attrs)
		l.WarnContext(ctx, "Provider call failed", slog.Any("error", err))
		return nil, &types.TransportError{Provider: c.name, Operation: operation, Err: err}
	}
	if !resp.IsSuccess() {
		m.ProviderErrorsTotal.Add(ctx, 1, attrs)
		l.WarnContext(ctx, "Provider returned non-success status", slog.Int("status", resp.StatusCode()))
		return resp, &types.TransportError{
			Provider:  c.name,
			Operation: operation,
			Status:    resp.StatusCode(),
			Err:       errors.New(resp.Status()),
		}
	}

	l.DebugContext(ctx, "Provider call completed", slog.Int("status", resp.StatusCode()))
	return resp, nil
}

// DoJSON is Do followed by decoding the response body into out, whatever content type
// the provider labels it with.
func (c *Client) DoJSON(ctx context.Context, operation, method, path string, configure func(*resty.Request), out any) error {
	resp, err := c.Do(ctx, operation, method, path, configure)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", c.name, operation, err)
	}
	return nil
}

var sensitiveParams = []string{"apikey", "api_key", "key", "client_secret", "client_id", "token", "access_token"}

// RedactURL masks credential-bearing query parameters so the URL can be logged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[unparseable url]"
	}
	u.User = nil
	q := u.Query()
	for name := range q {
		for _, s := range sensitiveParams {
			if strings.EqualFold(name, s) {
				q.Set(name, "REDACTED")
			}
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
