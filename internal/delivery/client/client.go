// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

// Package client is the HTTP plumbing shared by every endpoint wrapper.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/manyiweb/api-delivery/internal/delivery/metrics"
	"github.com/manyiweb/api-delivery/pkg/logger"
	"github.com/manyiweb/api-delivery/pkg/resilience"
	"github.com/manyiweb/api-delivery/pkg/tracing"
)

// TraceHeader carries the per-request trace id.
const TraceHeader = "X-Trace-Id"

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
	TraceID    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("POST %s: unexpected status %d (trace %s): %s", e.Endpoint, e.StatusCode, e.TraceID, truncate(e.Body, 512))
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Retry      resilience.Policy
	HTTPClient *http.Client
	Tracer     *tracing.Manager
	Metrics    *metrics.Collector
	Logger     *zap.Logger
}

// Client posts to the services below one base URL. It is safe for
// concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	retrier *resilience.Retrier
	tracer  *tracing.Manager
	metrics *metrics.Collector
	logger  *zap.Logger
}

// New validates opts and builds a Client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}

	lg := opts.Logger
	if lg == nil {
		lg = logger.GetLogger()
	}

	policy := opts.Retry
	if policy.Attempts == 0 {
		policy = resilience.DefaultPolicy()
	}
	retrier, err := resilience.NewRetrier(policy,
		resilience.WithRetryIf(retryable),
		resilience.WithOnRetry(func(retry int, err error, delay time.Duration) {
			lg.Warn("Request failed, retrying",
				zap.Int("attempt", retry),
				zap.Int("max_attempts", policy.Attempts),
				zap.Duration("delay", delay),
				zap.Error(err))
		}),
		resilience.WithOnGiveUp(func(err error, attempts int) {
			lg.Error("Request failed", zap.Int("attempts", attempts), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	tracer := opts.Tracer
	if tracer == nil {
		if tracer, err = tracing.NewManager(context.Background(), tracing.DefaultConfig()); err != nil {
			return nil, err
		}
	}

	return &Client{
		base:    base,
		http:    hc,
		retrier: retrier,
		tracer:  tracer,
		metrics: opts.Metrics,
		logger:  lg,
	}, nil
}

// BaseURL returns the base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.base.String() }

// URL resolves endpoint against the base URL.
func (c *Client) URL(endpoint string) string {
	return c.base.String() + "/" + strings.TrimLeft(endpoint, "/")
}

// RequestOption adjusts a single request.
type RequestOption func(*requestConfig)

type requestConfig struct {
	header  http.Header
	traceID string
}

// WithBearer sets the Authorization header.
func WithBearer(token string) RequestOption {
	return func(rc *requestConfig) {
		if token != "" {
			rc.header.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithHeader sets an arbitrary header.
func WithHeader(key, value string) RequestOption {
	return func(rc *requestConfig) { rc.header.Set(key, value) }
}

// WithTraceID reuses a caller supplied trace id.
func WithTraceID(id string) RequestOption {
	return func(rc *requestConfig) { rc.traceID = id }
}

// PostForm posts form as application/x-www-form-urlencoded.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values, opts ...RequestOption) (*Response, error) {
	body := []byte(form.Encode())
	return c.post(ctx, endpoint, "application/x-www-form-urlencoded", body, opts)
}

// PostJSON posts body encoded as JSON. HTML characters are not escaped.
func (c *Client) PostJSON(ctx context.Context, endpoint string, body any, opts ...RequestOption) (*Response, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return nil, fmt.Errorf("encode request for %s: %w", endpoint, err)
	}
	return c.post(ctx, endpoint, "application/json", buf.Bytes(), opts)
}

// post sends the request under the retry policy. Transport errors and
// non-2xx statuses are both retried. One trace id covers all attempts.
func (c *Client) post(ctx context.Context, endpoint, contentType string, body []byte, opts []RequestOption) (*Response, error) {
	rc := &requestConfig{header: http.Header{}}
	for _, opt := range opts {
		opt(rc)
	}
	if rc.traceID == "" {
		rc.traceID = uuid.NewString()
	}

	ctx, span := c.tracer.StartClientSpan(ctx, "POST "+endpoint,
		attribute.String("http.request.method", http.MethodPost),
		attribute.String("url.path", endpoint),
		attribute.String("delivery.trace_id", rc.traceID),
	)
	defer span.End()

	start := time.Now()
	attempt := 0
	resp, err := resilience.Retry(ctx, c.retrier, func(ctx context.Context) (*Response, error) {
		attempt++
		return c.do(ctx, endpoint, contentType, body, rc, attempt)
	})
	elapsed := time.Since(start)

	outcome := metrics.OutcomeSuccess
	var se *StatusError
	switch {
	case errors.As(err, &se):
		outcome = metrics.OutcomeFailure
		span.SetAttributes(attribute.Int("http.response.status_code", se.StatusCode))
	case err != nil:
		outcome = metrics.OutcomeError
	default:
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	}
	c.metrics.ObserveRequest(endpoint, outcome, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	resp.Elapsed = elapsed
	return resp, nil
}

func (c *Client) do(ctx context.Context, endpoint, contentType string, body []byte, rc *requestConfig, attempt int) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(endpoint), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", endpoint, err)
	}
	for k, vs := range rc.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(TraceHeader, rc.traceID)
	c.tracer.InjectHTTPHeaders(ctx, req.Header)

	c.logger.Info("POST",
		zap.String("endpoint", endpoint),
		zap.String("trace_id", rc.traceID),
		zap.Int("attempt", attempt))

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Request error", zap.String("endpoint", endpoint), zap.String("trace_id", rc.traceID), zap.Error(err))
		return nil, fmt.Errorf("POST %s: %w", endpoint, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response of %s: %w", endpoint, err)
	}
	c.logger.Info("Request time",
		zap.String("endpoint", endpoint),
		zap.String("trace_id", rc.traceID),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		se := &StatusError{Endpoint: endpoint, StatusCode: httpResp.StatusCode, Body: string(raw), TraceID: rc.traceID}
		c.logger.Error("HTTP status error", zap.String("trace_id", rc.traceID), zap.Int("status", se.StatusCode))
		return nil, se
	}

	return &Response{
		Endpoint:   endpoint,
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       raw,
		TraceID:    rc.traceID,
	}, nil
}

// retryable accepts per-request timeouts on top of the default decision.
// A timeout of the caller's ctx never gets here: Retry checks ctx first.
func retryable(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return resilience.IsRetryable(err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
