// Package client provides the concrete japi.Client: default interceptor
// installation, CRUD helpers, and session operations delegated to the auth
// package.
package client

import (
	"context"
	"net/url"

	"github.com/meridianhq/japi-client/internal/auth"
	http_internal "github.com/meridianhq/japi-client/internal/http"
	"github.com/meridianhq/japi-client/pkg/japi"
)

// Client implements the japi.Client interface.
type Client struct {
	httpClient *http_internal.Client
	sessions   *auth.SessionManager
	store      japi.CredentialStore
	chain      *japi.InterceptorChain
	name       string
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *japi.Config) []http_internal.Option {
	var httpOpts []http_internal.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http_internal.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http_internal.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http_internal.WithUserAgent(config.UserAgent))
	}

	if config.RetryMax > 0 {
		httpOpts = append(httpOpts, http_internal.WithRetryConfig(config.RetryMax, config.RetryWaitMin, config.RetryWaitMax))
	}

	return httpOpts
}

// New creates a new platform API client over the given credential store.
// Construction installs the three default interceptors: credential
// injection and content-type normalization on the request side, and the
// refresh-and-retry handler on the response side. Default entries live for
// the life of the client and are never removed.
func New(config *japi.Config, store japi.CredentialStore) (*Client, error) {
	if config.BaseURL == "" {
		return nil, japi.ErrBaseURLRequired
	}

	if store == nil {
		return nil, japi.ErrStoreRequired
	}

	chain := japi.NewInterceptorChain()
	httpClient := http_internal.NewClient(config.BaseURL, chain, createHTTPClientOptions(config)...)
	sessions := auth.NewSessionManager(httpClient, store)

	chain.AddRequestInterceptor(japi.CredentialInterceptor(store, config.APIKey))
	chain.AddRequestInterceptor(japi.ContentTypeInterceptor())
	chain.AddResponseInterceptor(newAuthRetryInterceptor(sessions, httpClient))

	return &Client{
		httpClient: httpClient,
		sessions:   sessions,
		store:      store,
		chain:      chain,
		name:       config.Name,
	}, nil
}

// Get implements japi.Client.Get.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*japi.Response, error) {
	return c.httpClient.Get(ctx, path, query)
}

// Create implements japi.Client.Create.
func (c *Client) Create(ctx context.Context, path string, body interface{}) (*japi.Response, error) {
	return c.httpClient.Post(ctx, path, body)
}

// Update implements japi.Client.Update.
func (c *Client) Update(ctx context.Context, path string, body interface{}) (*japi.Response, error) {
	return c.httpClient.Patch(ctx, path, body)
}

// Delete implements japi.Client.Delete.
func (c *Client) Delete(ctx context.Context, path string) (*japi.Response, error) {
	return c.httpClient.Delete(ctx, path)
}

// Do implements japi.Client.Do.
func (c *Client) Do(ctx context.Context, req *japi.Request) (*japi.Response, error) {
	return c.httpClient.Do(ctx, req)
}

// Save persists a resource: PATCH <type>/<id> when attributes carry a
// non-empty "id" string, POST <type> otherwise. The id never rides along
// inside attributes on the wire.
func (c *Client) Save(ctx context.Context, resourceType string, attributes map[string]interface{}) (*japi.Response, error) {
	id, _ := attributes["id"].(string)

	attrs := make(map[string]interface{}, len(attributes))

	for key, value := range attributes {
		if key == "id" {
			continue
		}

		attrs[key] = value
	}

	doc := japi.Document{
		Data: japi.ResourceObject{
			Type:       resourceType,
			ID:         id,
			Attributes: attrs,
		},
	}

	if id != "" {
		return c.httpClient.Patch(ctx, resourceType+"/"+id, doc)
	}

	return c.httpClient.Post(ctx, resourceType, doc)
}

// Login implements japi.Client.Login.
func (c *Client) Login(ctx context.Context, username, password string) error {
	return c.sessions.Login(ctx, username, password)
}

// RefreshTokens implements japi.Client.RefreshTokens.
func (c *Client) RefreshTokens(ctx context.Context) error {
	return c.sessions.RefreshTokens(ctx)
}

// CurrentUser implements japi.Client.CurrentUser.
func (c *Client) CurrentUser(ctx context.Context) (map[string]interface{}, error) {
	return c.sessions.CurrentUser(ctx)
}

// Logout implements japi.Client.Logout.
func (c *Client) Logout() {
	c.store.ClearTokens()
}

// Store implements japi.Client.Store.
func (c *Client) Store() japi.CredentialStore {
	return c.store
}

// Interceptors implements japi.Client.Interceptors.
func (c *Client) Interceptors() *japi.InterceptorChain {
	return c.chain
}
