// Package backend talks to the external REST service that owns maps,
// points, beacons and users. Every request carries the function key as the
// code query parameter and successful responses wrap their payload in a
// {"data": ...} envelope.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrMalformedPayload means the backend answered 2xx with a body that does
// not match the expected envelope.
var ErrMalformedPayload = errors.New("backend: malformed payload")

const maxBodyBytes = 8 << 20

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Client is safe for concurrent use.
type Client struct {
	baseURL     *url.URL
	functionKey string
	httpClient  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// New returns a Client for the backend at baseURL.
func New(baseURL, functionKey string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend: base url %q is not absolute", baseURL)
	}
	c := &Client{
		baseURL:     u,
		functionKey: functionKey,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL returns the backend address of path with query and the function key.
// path is in escaped form, so segments built with url.PathEscape keep
// their reserved characters. A code parameter in query is replaced.
func (c *Client) URL(path string, query url.Values) string {
	u := *c.baseURL
	raw := strings.TrimRight(c.baseURL.EscapedPath(), "/") + "/" + strings.TrimLeft(path, "/")
	if p, err := url.PathUnescape(raw); err == nil {
		u.Path, u.RawPath = p, raw
	} else {
		u.Path, u.RawPath = raw, ""
	}

	q := url.Values{}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	q.Del("code")
	if c.functionKey != "" {
		q.Set("code", c.functionKey)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Forward sends a raw request to the backend. Only the Content-Type and
// Accept headers of header are passed on. The caller closes the response body.
func (c *Client) Forward(ctx context.Context, method, path string, query url.Values, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path, query), body)
	if err != nil {
		return nil, fmt.Errorf("backend: build %s %s: %w", method, path, err)
	}
	for _, h := range []string{"Content-Type", "Accept"} {
		if v := header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Str("module", "backend").Str("request_id", reqID).
			Str("method", method).Str("path", path).Err(err).Msg("backend request failed")
		return nil, fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	log.Debug().Str("module", "backend").Str("request_id", reqID).
		Str("method", method).Str("path", path).Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).Msg("backend request")
	return resp, nil
}

// do sends in as JSON and decodes the reply into out. A nil out only checks
// the status.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	header := http.Header{}
	header.Set("Accept", "application/json")
	if in != nil {
		buf, err := sonic.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
		header.Set("Content-Type", "application/json")
	}

	resp, err := c.Forward(ctx, method, path, query, body, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("backend: read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedPayload, method, path, err)
	}
	return nil
}

type envelope[T any] struct {
	Data *T `json:"data"`
}

// fetch performs a request whose reply is {"data": T}.
func fetch[T any](ctx context.Context, c *Client, method, path string, query url.Values, in any) (T, error) {
	var env envelope[T]
	var zero T
	if err := c.do(ctx, method, path, query, in, &env); err != nil {
		return zero, err
	}
	if env.Data == nil {
		return zero, fmt.Errorf("%w: %s %s: missing data", ErrMalformedPayload, method, path)
	}
	return *env.Data, nil
}
