package rest

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/drover/pkg/domain/types"
)

// Client issues authenticated HTTP calls against one backend. It applies
// the backend's base header set, maps non-2xx responses to tagged errors,
// decodes JSON bodies and tolerates empty (204) responses.
type Client struct {
	httpClient *http.Client
	token      string
	accept     string
}

// Option configures a Client.
type Option func(*Client)

// WithAccept sets the Accept header sent with every request.
func WithAccept(mediaType string) Option {
	return func(c *Client) {
		c.accept = mediaType
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithInsecureSkipVerify disables TLS certificate verification, for
// self-hosted instances with self-signed certificates.
func WithInsecureSkipVerify() Option {
	return func(c *Client) {
		c.httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
}

// New creates a Client holding the bearer token used on every request.
func New(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			// Large artifact uploads need generous room.
			Timeout: 5 * time.Minute,
		},
		token: token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request describes one HTTP call. Header entries are merged over the
// client's base header set and win on conflict.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   io.Reader
}

// Do executes the request and decodes a JSON response body into out when
// out is non-nil. It returns the HTTP status code. A 204 or empty body
// leaves out untouched. Non-2xx responses become errors tagged with
// types.TagHTTP (plus types.TagNotFound for 404) carrying the status and
// raw body text.
func (c *Client) Do(ctx context.Context, req Request, out any) (int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, req.Body)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to build request", goerr.V("url", req.URL))
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	if c.accept != "" {
		httpReq.Header.Set("Accept", c.accept)
	}
	for key, values := range req.Header {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, goerr.Wrap(err, "request failed",
			goerr.V("method", req.Method), goerr.V("url", req.URL))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, statusError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, goerr.Wrap(err, "failed to read response body",
			goerr.V("url", req.URL))
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return resp.StatusCode, nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, goerr.Wrap(err, "malformed response body",
			goerr.T(types.TagMalformedResponse),
			goerr.V("url", req.URL), goerr.V("status", resp.StatusCode))
	}

	return resp.StatusCode, nil
}

// JSON marshals payload (when non-nil) and executes a JSON request.
func (c *Client) JSON(ctx context.Context, method, url string, payload, out any) (int, error) {
	req := Request{Method: method, URL: url}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return 0, goerr.Wrap(err, "failed to marshal request payload")
		}
		req.Body = bytes.NewReader(body)
		req.Header = http.Header{"Content-Type": []string{"application/json"}}
	}
	return c.Do(ctx, req, out)
}

func statusError(resp *http.Response) error {
	text := resp.Status
	if body, err := io.ReadAll(resp.Body); err == nil && len(body) > 0 {
		text = string(body)
	}

	opts := []goerr.Option{
		goerr.T(types.TagHTTP),
		goerr.V("status", resp.StatusCode),
		goerr.V("status_text", resp.Status),
		goerr.V("body", text),
	}
	if resp.StatusCode == http.StatusNotFound {
		opts = append(opts, goerr.T(types.TagNotFound))
	}

	return goerr.New("unexpected response: "+resp.Status, opts...)
}
