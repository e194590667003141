package japi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/meridianhq/japi-client/internal/constants"
)

// Request represents an HTTP request that can be intercepted.
type Request struct {
	Method   string
	Path     string
	Query    url.Values
	Headers  http.Header
	Body     interface{}
	Metadata map[string]interface{}

	// RequestInterceptors and ResponseInterceptors are per-call
	// interceptors. The orchestrator registers them before dispatch and
	// removes them after the call settles; they are not transport options
	// and are stripped from the request before it reaches the wire.
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
}

// MetadataAuthRequest marks a request as an auth-endpoint call. Such
// requests carry their own Authorization header and are never retried by the
// refresh-and-retry policy.
const MetadataAuthRequest = "authRequest"

// SetMetadata records a metadata value, allocating the map on first use.
func (r *Request) SetMetadata(key string, value interface{}) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]interface{})
	}

	r.Metadata[key] = value
}

// MetadataBool reports whether a metadata flag is set to true.
func (r *Request) MetadataBool(key string) bool {
	if r.Metadata == nil {
		return false
	}

	value, ok := r.Metadata[key].(bool)

	return ok && value
}

// Response represents an HTTP response that can be intercepted.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte

	// Formatted holds auxiliary data attached by response interceptors
	// (e.g., the flattened user resource). The raw Body is never modified.
	Formatted map[string]interface{}
}

// RequestInterceptor transforms an outgoing request. Key identifies the
// interceptor's logical type: registering two interceptors with the same key
// on the same chain installs only the first.
type RequestInterceptor interface {
	Key() string
	InterceptRequest(ctx context.Context, req *Request) error
}

// ResponseInterceptor transforms an incoming response. InterceptError is the
// paired error handler, invoked when the call failed; returning a non-nil
// Response recovers the call, returning a non-nil error replaces the current
// failure (the causally final error wins).
type ResponseInterceptor interface {
	Key() string
	InterceptResponse(ctx context.Context, req *Request, resp *Response) error
	InterceptError(ctx context.Context, req *Request, resp *Response, cause error) (*Response, error)
}

type requestInterceptorFunc struct {
	key string
	fn  func(ctx context.Context, req *Request) error
}

func (i *requestInterceptorFunc) Key() string { return i.key }

func (i *requestInterceptorFunc) InterceptRequest(ctx context.Context, req *Request) error {
	return i.fn(ctx, req)
}

// RequestInterceptorFunc adapts a function to the RequestInterceptor
// interface under the given identity key.
func RequestInterceptorFunc(key string, fn func(ctx context.Context, req *Request) error) RequestInterceptor {
	return &requestInterceptorFunc{key: key, fn: fn}
}

type responseInterceptorFunc struct {
	key   string
	fn    func(ctx context.Context, req *Request, resp *Response) error
	errFn func(ctx context.Context, req *Request, resp *Response, cause error) (*Response, error)
}

func (i *responseInterceptorFunc) Key() string { return i.key }

func (i *responseInterceptorFunc) InterceptResponse(ctx context.Context, req *Request, resp *Response) error {
	if i.fn == nil {
		return nil
	}

	return i.fn(ctx, req, resp)
}

func (i *responseInterceptorFunc) InterceptError(ctx context.Context, req *Request, resp *Response, cause error) (*Response, error) {
	if i.errFn == nil {
		return nil, cause
	}

	return i.errFn(ctx, req, resp, cause)
}

// ResponseInterceptorFunc adapts a function to the ResponseInterceptor
// interface under the given identity key. The error handler passes failures
// through unchanged.
func ResponseInterceptorFunc(key string, fn func(ctx context.Context, req *Request, resp *Response) error) ResponseInterceptor {
	return &responseInterceptorFunc{key: key, fn: fn}
}

// ErrorInterceptorFunc adapts an error handler to the ResponseInterceptor
// interface under the given identity key. The response pass is a no-op.
func ErrorInterceptorFunc(key string, errFn func(ctx context.Context, req *Request, resp *Response, cause error) (*Response, error)) ResponseInterceptor {
	return &responseInterceptorFunc{key: key, errFn: errFn}
}

// InterceptorKind distinguishes the request-side chain from the
// response-side chain.
type InterceptorKind int

const (
	// KindRequest identifies the request-side chain.
	KindRequest InterceptorKind = iota
	// KindResponse identifies the response-side chain.
	KindResponse
)

// Handle identifies one installed interceptor. It is returned on
// registration and used only for removal.
type Handle struct {
	Kind InterceptorKind
	ID   uint64
}

type requestEntry struct {
	handle      Handle
	interceptor RequestInterceptor
}

type responseEntry struct {
	handle      Handle
	interceptor ResponseInterceptor
}

// InterceptorChain manages the two ordered interceptor chains and their
// registry maps. Registration is idempotent per identity key and kind;
// removal by handle ejects exactly the matching entry. The registry map and
// the chain stay in 1:1 correspondence under all add/remove sequences.
//
// All methods are safe for concurrent use. Execution iterates a snapshot
// taken under the lock, so interceptors may add or remove entries (the
// refresh-and-retry handler replays through the chain) without deadlocking.
type InterceptorChain struct {
	mu           sync.Mutex
	nextID       uint64
	requestKeys  map[string]Handle
	responseKeys map[string]Handle
	request      []requestEntry
	response     []responseEntry
}

// NewInterceptorChain creates an empty interceptor chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{
		requestKeys:  make(map[string]Handle),
		responseKeys: make(map[string]Handle),
	}
}

// AddRequestInterceptor installs a request interceptor and returns its
// handle. If an interceptor with the same key is already installed, the
// existing handle is returned and the chain is left untouched.
func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) Handle {
	handle, _ := c.InstallRequestInterceptor(interceptor)

	return handle
}

// InstallRequestInterceptor installs a request interceptor and additionally
// reports whether a new entry was created. Callers that must not eject an
// entry they merely deduplicated against (per-call registration) use the
// created flag to decide ownership.
func (c *InterceptorChain) InstallRequestInterceptor(interceptor RequestInterceptor) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if handle, ok := c.requestKeys[interceptor.Key()]; ok {
		return handle, false
	}

	c.nextID++
	handle := Handle{Kind: KindRequest, ID: c.nextID}
	c.requestKeys[interceptor.Key()] = handle
	c.request = append(c.request, requestEntry{handle: handle, interceptor: interceptor})

	return handle, true
}

// AddResponseInterceptor installs a response interceptor and returns its
// handle, with the same idempotence guarantee as AddRequestInterceptor.
func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) Handle {
	handle, _ := c.InstallResponseInterceptor(interceptor)

	return handle
}

// InstallResponseInterceptor installs a response interceptor and additionally
// reports whether a new entry was created.
func (c *InterceptorChain) InstallResponseInterceptor(interceptor ResponseInterceptor) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if handle, ok := c.responseKeys[interceptor.Key()]; ok {
		return handle, false
	}

	c.nextID++
	handle := Handle{Kind: KindResponse, ID: c.nextID}
	c.responseKeys[interceptor.Key()] = handle
	c.response = append(c.response, responseEntry{handle: handle, interceptor: interceptor})

	return handle, true
}

// Remove ejects the interceptor identified by handle from its chain and
// registry map. It reports whether an entry was removed; removing an unknown
// or already-removed handle is a no-op.
func (c *InterceptorChain) Remove(handle Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch handle.Kind {
	case KindRequest:
		for i, entry := range c.request {
			if entry.handle == handle {
				delete(c.requestKeys, entry.interceptor.Key())
				c.request = append(c.request[:i], c.request[i+1:]...)

				return true
			}
		}
	case KindResponse:
		for i, entry := range c.response {
			if entry.handle == handle {
				delete(c.responseKeys, entry.interceptor.Key())
				c.response = append(c.response[:i], c.response[i+1:]...)

				return true
			}
		}
	}

	return false
}

// Len returns the number of installed interceptors of the given kind.
func (c *InterceptorChain) Len(kind InterceptorKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if kind == KindRequest {
		return len(c.request)
	}

	return len(c.response)
}

// Keys returns the identity keys installed for the given kind, in
// registration order.
func (c *InterceptorChain) Keys(kind InterceptorKind) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var keys []string

	if kind == KindRequest {
		for _, entry := range c.request {
			keys = append(keys, entry.interceptor.Key())
		}
	} else {
		for _, entry := range c.response {
			keys = append(keys, entry.interceptor.Key())
		}
	}

	return keys
}

func (c *InterceptorChain) requestSnapshot() []requestEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make([]requestEntry, len(c.request))
	copy(snapshot, c.request)

	return snapshot
}

func (c *InterceptorChain) responseSnapshot() []responseEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make([]responseEntry, len(c.response))
	copy(snapshot, c.response)

	return snapshot
}

// ExecuteRequestInterceptors runs all request interceptors in registration
// order.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *Request) error {
	for _, entry := range c.requestSnapshot() {
		err := entry.interceptor.InterceptRequest(ctx, req)
		if err != nil {
			return fmt.Errorf("request interceptor %q failed: %w", entry.interceptor.Key(), err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors runs all response interceptors in registration
// order.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *Request, resp *Response) error {
	for _, entry := range c.responseSnapshot() {
		err := entry.interceptor.InterceptResponse(ctx, req, resp)
		if err != nil {
			return fmt.Errorf("response interceptor %q failed: %w", entry.interceptor.Key(), err)
		}
	}

	return nil
}

// ExecuteErrorInterceptors runs the paired error handlers in registration
// order. The first handler to return a recovered response short-circuits the
// pass; a handler returning a non-nil error replaces the current failure.
func (c *InterceptorChain) ExecuteErrorInterceptors(ctx context.Context, req *Request, resp *Response, cause error) (*Response, error) {
	for _, entry := range c.responseSnapshot() {
		recovered, err := entry.interceptor.InterceptError(ctx, req, resp, cause)
		if recovered != nil {
			return recovered, nil
		}

		if err != nil {
			cause = err
		}
	}

	return nil, cause
}

// Built-in interceptors

// Identity keys for the built-in interceptors.
const (
	// KeyCredentials identifies the credential injection interceptor.
	KeyCredentials = "credentials"
	// KeyContentType identifies the content-type normalization interceptor.
	KeyContentType = "content-type"
	// KeyUserFormat identifies the user-resource formatting interceptor.
	KeyUserFormat = "user-format"
)

type credentialInterceptor struct {
	store  CredentialStore
	apiKey string
}

func (i *credentialInterceptor) Key() string { return KeyCredentials }

func (i *credentialInterceptor) InterceptRequest(_ context.Context, req *Request) error {
	if req.Headers == nil {
		req.Headers = make(http.Header)
	}

	if i.apiKey != "" && req.Headers.Get(constants.HeaderAPIKey) == "" {
		req.Headers.Set(constants.HeaderAPIKey, i.apiKey)
	}

	// Auth-endpoint calls carry their own bearer credential.
	if req.Headers.Get(constants.HeaderAuthorization) != "" {
		return nil
	}

	if token, ok := i.store.AccessToken(); ok {
		req.Headers.Set(constants.HeaderAuthorization, "Bearer "+token)
	}

	return nil
}

// CredentialInterceptor injects the stored access token as a bearer
// credential and the configured API key, leaving any explicit Authorization
// header untouched.
func CredentialInterceptor(store CredentialStore, apiKey string) RequestInterceptor {
	return &credentialInterceptor{store: store, apiKey: apiKey}
}

type contentTypeInterceptor struct{}

func (contentTypeInterceptor) Key() string { return KeyContentType }

func (contentTypeInterceptor) InterceptRequest(_ context.Context, req *Request) error {
	if req.Headers == nil {
		req.Headers = make(http.Header)
	}

	if req.Body != nil && req.Headers.Get("Content-Type") == "" {
		req.Headers.Set("Content-Type", constants.MediaTypeJSONAPI)
	}

	if req.Headers.Get("Accept") == "" {
		req.Headers.Set("Accept", constants.MediaTypeJSONAPI)
	}

	return nil
}

// ContentTypeInterceptor normalizes Content-Type and Accept headers to the
// JSON:API media type when the caller did not set them.
func ContentTypeInterceptor() RequestInterceptor {
	return contentTypeInterceptor{}
}

type userFormatInterceptor struct{}

func (userFormatInterceptor) Key() string { return KeyUserFormat }

func (userFormatInterceptor) InterceptResponse(_ context.Context, _ *Request, resp *Response) error {
	var doc struct {
		Data struct {
			ID         string                 `json:"id"`
			Type       string                 `json:"type"`
			Attributes map[string]interface{} `json:"attributes"`
		} `json:"data"`
	}

	err := json.Unmarshal(resp.Body, &doc)
	if err != nil {
		return fmt.Errorf("parsing user resource: %w", err)
	}

	flattened := make(map[string]interface{}, len(doc.Data.Attributes)+2)
	for key, value := range doc.Data.Attributes {
		flattened[key] = value
	}

	flattened["id"] = doc.Data.ID
	flattened["type"] = doc.Data.Type

	resp.Formatted = flattened

	return nil
}

func (userFormatInterceptor) InterceptError(_ context.Context, _ *Request, _ *Response, cause error) (*Response, error) {
	return nil, cause
}

// UserFormatInterceptor flattens a JSON:API user document into
// {id, type, ...attributes} and attaches it as Response.Formatted.
func UserFormatInterceptor() ResponseInterceptor {
	return userFormatInterceptor{}
}

// LoggingInterceptor logs outgoing requests.
func LoggingInterceptor(logger Logger) RequestInterceptor {
	return RequestInterceptorFunc("logging", func(_ context.Context, req *Request) error {
		logger.Debug("API Request", map[string]interface{}{
			"method": req.Method,
			"path":   req.Path,
		})

		return nil
	})
}

// LoggingResponseInterceptor logs incoming responses.
func LoggingResponseInterceptor(logger Logger) ResponseInterceptor {
	return ResponseInterceptorFunc("logging", func(_ context.Context, req *Request, resp *Response) error {
		logger.Debug("API Response", map[string]interface{}{
			"method":      req.Method,
			"path":        req.Path,
			"status_code": resp.StatusCode,
		})

		return nil
	})
}

// HeaderInterceptor adds custom headers to requests.
func HeaderInterceptor(key string, headers map[string]string) RequestInterceptor {
	return RequestInterceptorFunc(key, func(_ context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		for name, value := range headers {
			req.Headers.Set(name, value)
		}

		return nil
	})
}
