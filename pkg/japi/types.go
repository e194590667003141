package japi

import (
	"context"
	"net/url"
	"time"
)

// Config represents client configuration for building a japi.Client.
//
// BaseURL is the only required field. Name scopes the credential store
// namespace so several clients can share one store without clobbering each
// other's tokens; it defaults to "japi". APIKey, when set, is sent on every
// request in addition to any bearer credential.
type Config struct {
	// BaseURL is the root of the platform API (e.g., "https://api.example.com").
	// The constructor normalizes it by trimming a trailing slash and adding
	// "https://" when no scheme is present.
	BaseURL string

	// APIKey is an optional static key sent in the X-Api-Key header.
	APIKey string

	// Name scopes the credential store namespace. Defaults to "japi".
	Name string

	// Logger is an optional structured logger used by the HTTP layer.
	Logger Logger

	// Debug enables request/response logging when a Logger is provided.
	Debug bool

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// RetryMax enables transport-level retries for transient failures
	// (>=500, 429, connection errors) when greater than zero. This is
	// distinct from the 401 refresh-and-retry policy, which is always on.
	RetryMax int
	// RetryWaitMin is the minimum backoff between transport retries.
	RetryWaitMin time.Duration
	// RetryWaitMax is the maximum backoff between transport retries.
	RetryWaitMax time.Duration
}

// Client is the facade over the platform API: thin CRUD verbs routed through
// the interceptor pipeline, plus session operations.
type Client interface {
	// Get issues a GET to path with optional query parameters.
	Get(ctx context.Context, path string, query url.Values) (*Response, error)
	// Create issues a POST to path with a JSON body.
	Create(ctx context.Context, path string, body interface{}) (*Response, error)
	// Update issues a PATCH to path with a JSON body.
	Update(ctx context.Context, path string, body interface{}) (*Response, error)
	// Delete issues a DELETE to path.
	Delete(ctx context.Context, path string) (*Response, error)

	// Do executes a raw request. Interceptors carried on the request are
	// attached for this call only and detached once it settles.
	Do(ctx context.Context, req *Request) (*Response, error)

	// Save persists a resource of the given type: PATCH <type>/<id> when
	// attributes carry a non-empty "id", POST <type> otherwise.
	Save(ctx context.Context, resourceType string, attributes map[string]interface{}) (*Response, error)

	// Login clears any stored credentials and authenticates with the
	// username/password grant, storing the returned token pair.
	Login(ctx context.Context, username, password string) error
	// RefreshTokens exchanges the stored refresh token for a new token pair.
	// Any renewal failure wipes all stored credentials.
	RefreshTokens(ctx context.Context) error
	// CurrentUser fetches the authenticated user, persists the flattened
	// form under the user storage key, and returns it.
	CurrentUser(ctx context.Context) (map[string]interface{}, error)
	// Logout discards the stored token pair and cached user.
	Logout()

	// Store exposes the credential store backing this client.
	Store() CredentialStore
	// Interceptors exposes the interceptor chain for advanced use.
	Interceptors() *InterceptorChain
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// ResourceObject is the JSON:API primary resource shape.
type ResourceObject struct {
	Type       string                 `json:"type"                 yaml:"type"`
	ID         string                 `json:"id,omitempty"         yaml:"id,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Document wraps a single resource object for the wire.
type Document struct {
	Data ResourceObject         `json:"data"           yaml:"data"`
	Meta map[string]interface{} `json:"meta,omitempty" yaml:"meta,omitempty"`
}
