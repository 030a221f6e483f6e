// Package httpx is the small JSON-over-HTTP client shared by the API
// packages. Each remote API gets one Client carrying its base URL, fixed
// headers, timeout and optional rate limit / retry policy.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTimeout applies when New is given a zero timeout.
const DefaultTimeout = 30 * time.Second

// StatusError is returned by Get/Post when the server answers non-2xx.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.Code)
	}
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

// RetryPolicy re-issues a request while RetryOn(status) holds.
// Transport errors are never retried.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	RetryOn  func(status int) bool
}

// Retry5xx is the policy used for flaky balance endpoints.
var Retry5xx = RetryPolicy{
	Attempts: 3,
	Delay:    time.Second,
	RetryOn:  func(status int) bool { return status >= 500 && status < 600 },
}

// Response is a fully-read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Client issues JSON requests against one base URL.
type Client struct {
	BaseURL string
	Header  http.Header

	http    *http.Client
	limiter *rate.Limiter
	retry   RetryPolicy
	sleep   func(context.Context, time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.Header.Set(key, value) }
}

// WithRateLimit throttles the client to rps requests per second (burst 1).
// A non-positive rps leaves the client unthrottled.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithRetry installs a retry policy.
func WithRetry(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client. timeout 0 means DefaultTimeout.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Header:  make(http.Header),
		http:    &http.Client{Timeout: timeout},
		sleep:   sleepCtx,
	}
	c.Header.Set("Accept", "application/json")
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetBaseURL points the client elsewhere (tests, alternate clusters).
func (c *Client) SetBaseURL(u string) { c.BaseURL = strings.TrimRight(u, "/") }

// Do sends one request and returns the response whatever its status.
// path may be relative to BaseURL or an absolute http(s) URL. body, when
// non-nil, is JSON-encoded. extra headers override the client defaults.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any, extra http.Header) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		if raw, ok := body.(json.RawMessage); ok {
			payload = raw
		} else if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	attempts := c.retry.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var resp *Response
	for attempt := 1; attempt <= attempts; attempt++ {
		var err error
		resp, err = c.once(ctx, method, c.resolve(path), query, payload, extra)
		if err != nil {
			return nil, err
		}
		if c.retry.RetryOn == nil || !c.retry.RetryOn(resp.Status) || attempt == attempts {
			break
		}
		slog.Debug("httpx: retrying", "path", path, "status", resp.Status, "attempt", attempt)
		if err := c.sleep(ctx, c.retry.Delay); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// Get issues a GET and decodes a 2xx JSON body into out (if non-nil).
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, http.MethodGet, path, query, nil, nil, out)
}

// Post issues a POST with a JSON body and decodes a 2xx JSON body into out.
func (c *Client) Post(ctx context.Context, path string, query url.Values, body, out any) error {
	return c.call(ctx, http.MethodPost, path, query, body, nil, out)
}

// PostWithHeaders is Post with per-request headers.
func (c *Client) PostWithHeaders(ctx context.Context, path string, body any, extra http.Header, out any) error {
	return c.call(ctx, http.MethodPost, path, nil, body, extra, out)
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body any, extra http.Header, out any) error {
	resp, err := c.Do(ctx, method, path, query, body, extra)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &StatusError{Code: resp.Status, Body: string(resp.Body)}
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) once(ctx context.Context, method, target string, query url.Values, payload []byte, extra http.Header) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		q := req.URL.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
	for k, vs := range c.Header {
		req.Header[k] = vs
	}
	for k, vs := range extra {
		req.Header[k] = vs
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{Status: res.StatusCode, Header: res.Header, Body: data}, nil
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + path
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
