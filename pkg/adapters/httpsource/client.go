// Package httpsource fetches recordings from a tapeplay server over HTTP.
package httpsource

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/user/tapeplay/pkg/ports"
)

// DefaultTimeout bounds a single HTTP request.
const DefaultTimeout = 30 * time.Second

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client calls the server's file API.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// NewClient creates a Client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	c := &Client{
		base:    u,
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Files implements ports.Catalog.
func (c *Client) Files(ctx context.Context) ([]string, error) {
	var body struct {
		Files []string `json:"files"`
	}
	if err := c.get(ctx, "/api/files", nil, &body); err != nil {
		return nil, err
	}
	return body.Files, nil
}

// Info implements ports.Catalog.
func (c *Client) Info(ctx context.Context, name string) (ports.FileInfo, error) {
	var info ports.FileInfo
	err := c.get(ctx, "/api/files/"+url.PathEscape(name), nil, &info)
	return info, err
}

// Chunk fetches one chunk synchronously.
func (c *Client) Chunk(ctx context.Context, name string, req ports.ChunkRequest) (ports.ChunkDelivery, error) {
	q := url.Values{}
	q.Set("start", strconv.Itoa(req.StartRow))
	q.Set("count", strconv.Itoa(req.Count))
	q.Set("reset", strconv.FormatBool(req.Reset))

	var d ports.ChunkDelivery
	if err := c.get(ctx, "/api/files/"+url.PathEscape(name)+"/chunks", q, &d); err != nil {
		return ports.ChunkDelivery{}, err
	}
	return d, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.base.String() + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br, gzip")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := decompress(resp)
	if err != nil {
		return fmt.Errorf("decompress response from %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(body, 4096))
		_ = json.Unmarshal(data, &e)
		return &StatusError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

// decompress wraps the body according to Content-Encoding. Setting
// Accept-Encoding by hand turns off the transport's own gzip handling.
func decompress(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "gzip":
		return gzip.NewReader(resp.Body)
	default:
		return resp.Body, nil
	}
}

var _ ports.Catalog = (*Client)(nil)
