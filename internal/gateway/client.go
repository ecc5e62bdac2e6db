package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lox/aqidash/internal/httputil"
	"github.com/lox/aqidash/internal/metrics"
	"github.com/lox/aqidash/internal/models"
)

const (
	xsrfCookie = "XSRF-TOKEN"
	xsrfHeader = "X-XSRF-TOKEN"
)

// Call describes one completed request for auditing.
type Call struct {
	Endpoint   string
	Method     string
	StartedAt  time.Time
	Duration   time.Duration
	HTTPStatus int
	Body       []byte
	Err        error
}

// Auditor receives a record of every call the client makes.
type Auditor interface {
	RecordCall(Call)
}

// Client talks to the air quality analytics API. Metric operations never retry.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auditor    Auditor
}

type Option func(*Client)

// WithHTTPClient overrides the default session client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAuditor records each call.
func WithAuditor(a Auditor) Option {
	return func(c *Client) {
		c.auditor = a
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httputil.NewSessionClient(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs a request and returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.xsrfToken(req.URL); token != "" {
		req.Header.Set(xsrfHeader, token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &NetworkError{Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, respBody, classifyStatus(resp.StatusCode, respBody)
	}
	return resp.StatusCode, respBody, nil
}

// xsrfToken returns the decoded anti-forgery cookie, or "" when absent.
func (c *Client) xsrfToken(u *url.URL) string {
	if c.httpClient.Jar == nil {
		return ""
	}
	for _, ck := range c.httpClient.Jar.Cookies(u) {
		if ck.Name != xsrfCookie {
			continue
		}
		if v, err := url.QueryUnescape(ck.Value); err == nil {
			return v
		}
		return ck.Value
	}
	return ""
}

// call performs a request and unwraps the {data, status} envelope.
func call[T any](ctx context.Context, c *Client, method string, ep Endpoint, body any) (T, error) {
	var zero T
	start := time.Now()

	status, raw, err := c.do(ctx, method, ep.Path, body)
	var out T
	if err == nil {
		out, err = decodeEnvelope[T](status, raw, ep)
	}

	elapsed := time.Since(start)
	metrics.GatewayCallsTotal.WithLabelValues(ep.Path, statusLabel(err)).Inc()
	metrics.GatewayLatency.WithLabelValues(ep.Path).Observe(elapsed.Seconds())
	if c.auditor != nil {
		c.auditor.RecordCall(Call{
			Endpoint:   ep.Path,
			Method:     method,
			StartedAt:  start,
			Duration:   elapsed,
			HTTPStatus: status,
			Body:       raw,
			Err:        err,
		})
	}

	if err != nil {
		log.Printf("gateway: %s %s failed (status %d): %v", method, ep.Path, status, err)
		return zero, err
	}
	return out, nil
}

func decodeEnvelope[T any](status int, raw []byte, ep Endpoint) (T, error) {
	var zero T
	var env models.Envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, &ServerError{Status: status, Message: fmt.Sprintf("Failed to fetch %s: decode response: %v", ep.Name, err)}
	}
	if env.Data == nil {
		return zero, &ServerError{Status: status, Message: fmt.Sprintf("Failed to fetch %s", ep.Name)}
	}
	return *env.Data, nil
}
