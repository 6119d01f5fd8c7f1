// Package gateway is the HTTP client for a remote composition service.
//
// Composition calls (CaptureFrame, ComposeStrip) are load-bearing and
// surface retryable errors so callers can retry without losing captured
// photos. Template mirroring is best-effort: the local store is the
// source of truth, and mirror failures are logged and otherwise ignored.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds a single gateway request.
const DefaultTimeout = 30 * time.Second

// RetryableError marks a failure the caller may retry with the same
// inputs. Captured photos are never consumed by a failed call.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string { return fmt.Sprintf("gateway %s: %v", e.Op, e.Err) }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a retryable gateway failure.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// CaptureFrameRequest composites one photo with a frame remotely.
// Image payloads travel as raw PNG bytes (base64 in JSON).
type CaptureFrameRequest struct {
	Photo    []byte  `json:"photo"`
	Frame    []byte  `json:"frame,omitempty"`
	Exposure float64 `json:"exposure"`
	Mirror   bool    `json:"mirror"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

// ComposeStripRequest assembles the final strip from composited
// photos. ExposureValues carries the per-photo exposure each entry was
// captured at, in capture order.
type ComposeStripRequest struct {
	Photos         [][]byte  `json:"photos"`
	ExposureValues []float64 `json:"exposureValues"`
}

// imageResponse is the common reply shape for composition endpoints.
type imageResponse struct {
	Image []byte `json:"image"`
}

// UploadStripResponse reports where the uploaded strip landed.
type UploadStripResponse struct {
	URL string `json:"url"`
}

// Template is the mirrored template record.
type Template struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	FrameCount int      `json:"frameCount"`
	FrameRefs  []string `json:"frameRefs"`
}

// Client talks to the composition service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger used for best-effort mirror failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gateway: invalid base url %q", baseURL)
	}
	c := &Client{
		baseURL: u.String(),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CaptureFrame composites a single photo with its frame remotely and
// returns the resulting PNG. Failures are retryable.
func (c *Client) CaptureFrame(ctx context.Context, req CaptureFrameRequest) ([]byte, error) {
	var resp imageResponse
	if err := c.postJSON(ctx, "/api/compose/frame", req, &resp); err != nil {
		return nil, &RetryableError{Op: "capture frame", Err: err}
	}
	return resp.Image, nil
}

// ComposeStrip assembles the strip remotely and returns the PNG.
// Failures are retryable; the caller keeps its photos.
func (c *Client) ComposeStrip(ctx context.Context, req ComposeStripRequest) ([]byte, error) {
	var resp imageResponse
	if err := c.postJSON(ctx, "/api/compose", req, &resp); err != nil {
		return nil, &RetryableError{Op: "compose strip", Err: err}
	}
	return resp.Image, nil
}

// UploadStrip sends the final strip PNG and returns its hosted URL.
func (c *Client) UploadStrip(ctx context.Context, png []byte) (string, error) {
	var resp UploadStripResponse
	body := struct {
		Image []byte `json:"image"`
	}{Image: png}
	if err := c.postJSON(ctx, "/api/strips", body, &resp); err != nil {
		return "", &RetryableError{Op: "upload strip", Err: err}
	}
	return resp.URL, nil
}

// ListTemplates fetches the remote template mirror. Best-effort: on
// failure it logs and returns an empty list with no error.
func (c *Client) ListTemplates(ctx context.Context) []Template {
	var out []Template
	if err := c.getJSON(ctx, "/api/templates", &out); err != nil {
		c.logger.Warn("template mirror list failed", "error", err)
		return nil
	}
	return out
}

// CreateTemplate mirrors a template creation. Best-effort.
func (c *Client) CreateTemplate(ctx context.Context, t Template) {
	if err := c.postJSON(ctx, "/api/templates", t, nil); err != nil {
		c.logger.Warn("template mirror create failed", "template", t.ID, "error", err)
	}
}

// DeleteTemplate mirrors a template deletion. Best-effort.
func (c *Client) DeleteTemplate(ctx context.Context, id string) {
	if err := c.do(ctx, http.MethodDelete, "/api/templates/"+url.PathEscape(id), nil, nil); err != nil {
		c.logger.Warn("template mirror delete failed", "template", id, "error", err)
	}
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
