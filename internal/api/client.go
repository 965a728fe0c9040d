package api

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

	"github.com/roach88/petitions/internal/petition"
)

// DefaultTimeout bounds every request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// AuthHeader carries the session token on authorized requests.
const AuthHeader = "X-Authorization"

const (
	maxErrorBody = 4 << 10
	maxImageBody = 16 << 20
	maxJSONBody  = 4 << 20
)

// Client talks to the petitions REST API.
//
// Client holds no session state: every call needing authorization takes the
// caller's petition.Session explicitly.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the API rooted at baseURL
// (e.g. "http://localhost:4941/api/v1").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one API call.
type request struct {
	method      string
	path        string
	query       url.Values
	session     petition.Session
	body        io.Reader
	contentType string
}

// do sends req and returns the response for a 2xx status.
// Non-2xx responses are drained, closed and returned as *Error.
// The caller must close the returned body.
func (c *Client) do(ctx context.Context, req request) (*http.Response, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, req.body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", req.method, req.path, err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.session.Token != "" {
		httpReq.Header.Set(AuthHeader, req.session.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Debug("api request failed", "method", req.method, "path", req.path, "error", err)
		return nil, &TransportError{Method: req.method, Path: req.path, Err: err}
	}
	c.logger.Debug("api request",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{
			Method:  req.method,
			Path:    req.path,
			Status:  resp.StatusCode,
			Message: reasonOrBody(resp.Status, resp.StatusCode, body),
		}
	}
	return resp, nil
}

// doJSON sends in (when non-nil) as JSON and decodes the response into out
// (when non-nil). An empty response body leaves out untouched.
func (c *Client) doJSON(ctx context.Context, method, path string, sess petition.Session, query url.Values, in, out any) error {
	req := request{method: method, path: path, query: query, session: sess}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		req.body = bytes.NewReader(payload)
		req.contentType = "application/json"
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// Image is raw image content with its MIME type.
type Image struct {
	Data        []byte
	ContentType string
}

func (c *Client) getImage(ctx context.Context, path string) (Image, error) {
	resp, err := c.do(ctx, request{method: http.MethodGet, path: path})
	if err != nil {
		return Image{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBody))
	if err != nil {
		return Image{}, &TransportError{Method: http.MethodGet, Path: path, Err: err}
	}
	return Image{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

func (c *Client) putImage(ctx context.Context, sess petition.Session, path string, img Image) error {
	resp, err := c.do(ctx, request{
		method:      http.MethodPut,
		path:        path,
		session:     sess,
		body:        bytes.NewReader(img.Data),
		contentType: img.ContentType,
	})
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
