// Package http implements the request orchestrator: it runs each logical
// call through the interceptor chain, attaches per-call interceptors before
// dispatch and detaches them after settlement, and maps error responses into
// the japi error taxonomy. The underlying transport is retryablehttp.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/meridianhq/japi-client/internal/constants"
	"github.com/meridianhq/japi-client/pkg/japi"
)

// Client executes requests against the platform API through the interceptor
// chain. Multiple calls may be in flight concurrently; the chain guards its
// own state, and each call only removes the transient handles it registered.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
	chain      *japi.InterceptorChain
	logger     japi.Logger
	userAgent  string
	debug      bool
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets the logger for the client.
func WithLogger(logger japi.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryConfig enables transport-level retries for transient failures.
// This retries network errors and 5xx/429 responses; it is unrelated to the
// 401 refresh-and-retry policy, which lives in the interceptor chain.
func WithRetryConfig(retryMax int, retryWaitMin, retryWaitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = retryWaitMin
		c.httpClient.RetryWaitMax = retryWaitMax
	}
}

// WithHTTPClient replaces the underlying standard HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient = httpClient
	}
}

// NewClient creates a new orchestrator bound to the given interceptor chain.
func NewClient(baseURL string, chain *japi.InterceptorChain, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout

	client := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: retryClient,
		chain:      chain,
		userAgent:  constants.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Chain returns the interceptor chain this client dispatches through.
func (c *Client) Chain() *japi.InterceptorChain {
	return c.chain
}

// Do executes a single logical call. Per-call interceptors carried on the
// request are registered first and their handles removed after the call
// settles, success or failure, so they never leak into subsequent calls.
// A per-call interceptor whose key is already installed (a default) reuses
// the existing entry without taking ownership, so defaults survive
// settlement.
func (c *Client) Do(ctx context.Context, req *japi.Request) (*japi.Response, error) {
	handles := make([]japi.Handle, 0, len(req.RequestInterceptors)+len(req.ResponseInterceptors))

	for _, interceptor := range req.RequestInterceptors {
		if handle, created := c.chain.InstallRequestInterceptor(interceptor); created {
			handles = append(handles, handle)
		}
	}

	for _, interceptor := range req.ResponseInterceptors {
		if handle, created := c.chain.InstallResponseInterceptor(interceptor); created {
			handles = append(handles, handle)
		}
	}

	// Transient interceptors are not transport options; strip them before
	// dispatch.
	req.RequestInterceptors = nil
	req.ResponseInterceptors = nil

	defer func() {
		for _, handle := range handles {
			c.chain.Remove(handle)
		}
	}()

	return c.dispatch(ctx, req)
}

// Replay re-dispatches a request through the full chain without touching
// transient registration. The refresh-and-retry handler uses it while the
// original call is still open, so the original call's transient interceptors
// apply to the replay as well.
func (c *Client) Replay(ctx context.Context, req *japi.Request) (*japi.Response, error) {
	return c.dispatch(ctx, req)
}

func (c *Client) dispatch(ctx context.Context, req *japi.Request) (*japi.Response, error) {
	err := c.chain.ExecuteRequestInterceptors(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return c.recover(ctx, req, nil, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return c.recover(ctx, req, resp, japi.ParseResponseError(resp.StatusCode, resp.Body))
	}

	err = c.chain.ExecuteResponseInterceptors(ctx, req, resp)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// recover gives the paired error handlers a chance to turn a failure into a
// response (the refresh-and-retry path). A recovered response has already
// been through the full chain via Replay, so it is returned as is.
func (c *Client) recover(ctx context.Context, req *japi.Request, resp *japi.Response, cause error) (*japi.Response, error) {
	recovered, err := c.chain.ExecuteErrorInterceptors(ctx, req, resp, cause)
	if recovered != nil {
		return recovered, nil
	}

	return nil, err
}

func (c *Client) roundTrip(ctx context.Context, req *japi.Request) (*japi.Response, error) {
	fullURL := c.baseURL + "/" + strings.TrimPrefix(req.Path, "/")
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for name, values := range req.Headers {
		for _, value := range values {
			httpReq.Header.Add(name, value)
		}
	}

	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("API Request", map[string]interface{}{
			"method": req.Method,
			"path":   req.Path,
		})
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	defer func() {
		_ = httpResp.Body.Close()
	}()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("API Response", map[string]interface{}{
			"method":      req.Method,
			"path":        req.Path,
			"status_code": httpResp.StatusCode,
		})
	}

	return &japi.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}

func encodeBody(body interface{}) ([]byte, error) {
	switch value := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return value, nil
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}

		return encoded, nil
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*japi.Response, error) {
	return c.Do(ctx, &japi.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
	})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*japi.Response, error) {
	return c.Do(ctx, &japi.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*japi.Response, error) {
	return c.Do(ctx, &japi.Request{
		Method: http.MethodPatch,
		Path:   path,
		Body:   body,
	})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*japi.Response, error) {
	return c.Do(ctx, &japi.Request{
		Method: http.MethodDelete,
		Path:   path,
	})
}
