// Package auth implements the session lifecycle against the platform auth
// endpoint: password login, single-flight token renewal with a fail-closed
// credential wipe, and the authenticated-user fetch.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/meridianhq/japi-client/internal/constants"
	"github.com/meridianhq/japi-client/pkg/japi"
)

// Transport executes a request through the interceptor pipeline.
type Transport interface {
	Do(ctx context.Context, req *japi.Request) (*japi.Response, error)
}

// SessionManager owns the credential lifecycle for one client instance.
type SessionManager struct {
	transport Transport
	store     japi.CredentialStore

	mu      sync.Mutex
	renewal *renewalCall
}

// renewalCall is the shared single-flight slot: the first caller creates it
// and performs the renewal, concurrent callers wait on done and reuse err.
type renewalCall struct {
	done chan struct{}
	err  error
}

// NewSessionManager creates a session manager over the given transport and
// credential store.
func NewSessionManager(transport Transport, store japi.CredentialStore) *SessionManager {
	return &SessionManager{
		transport: transport,
		store:     store,
	}
}

// sessionDocument is the login request body.
type sessionDocument struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"attributes"`
	} `json:"data"`
}

// authResponse carries the token pair inside the response metadata.
type authResponse struct {
	Meta struct {
		JWT   string `json:"jwt"`
		Renew string `json:"renew"`
	} `json:"meta"`
}

// Login clears any existing credentials and authenticates with the password
// grant. The response must carry both an access token (meta.jwt) and a
// renewal token (meta.renew); missing either is ErrMalformedAuthResponse and
// leaves no tokens stored.
func (m *SessionManager) Login(ctx context.Context, username, password string) error {
	m.store.ClearTokens()

	var body sessionDocument

	body.Data.Type = constants.PathSessions
	body.Data.Attributes.Username = username
	body.Data.Attributes.Password = password

	req := &japi.Request{
		Method: http.MethodPost,
		Path:   constants.PathSessions,
		Body:   &body,
	}
	req.SetMetadata(japi.MetadataAuthRequest, true)

	resp, err := m.transport.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}

	return m.storeTokens(resp)
}

// RefreshTokens exchanges the stored refresh token for a new token pair.
// Concurrent callers share one in-flight renewal: the first caller performs
// it, the rest wait for its outcome. Any renewal failure wipes all stored
// credentials before the failure is returned.
func (m *SessionManager) RefreshTokens(ctx context.Context) error {
	m.mu.Lock()

	if call := m.renewal; call != nil {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	call := &renewalCall{done: make(chan struct{})}
	m.renewal = call
	m.mu.Unlock()

	call.err = m.renew(ctx)

	m.mu.Lock()
	m.renewal = nil
	m.mu.Unlock()

	close(call.done)

	return call.err
}

func (m *SessionManager) renew(ctx context.Context) error {
	refreshToken, ok := m.store.RefreshToken()
	if !ok || refreshToken == "" {
		return japi.ErrMissingRefreshToken
	}

	headers := make(http.Header)
	headers.Set(constants.HeaderAuthorization, "Bearer "+refreshToken)

	req := &japi.Request{
		Method:  http.MethodPost,
		Path:    constants.PathSessions,
		Headers: headers,
	}
	req.SetMetadata(japi.MetadataAuthRequest, true)

	resp, err := m.transport.Do(ctx, req)
	if err != nil {
		// Fail closed: a renewal problem invalidates the whole session.
		m.store.ClearTokens()

		return fmt.Errorf("renewing tokens: %w", err)
	}

	err = m.storeTokens(resp)
	if err != nil {
		m.store.ClearTokens()

		return err
	}

	return nil
}

func (m *SessionManager) storeTokens(resp *japi.Response) error {
	var doc authResponse

	err := json.Unmarshal(resp.Body, &doc)
	if err != nil {
		return fmt.Errorf("parsing auth response: %w", err)
	}

	if doc.Meta.JWT == "" || doc.Meta.Renew == "" {
		return japi.ErrMalformedAuthResponse
	}

	m.store.SetAccessToken(doc.Meta.JWT)
	m.store.SetRefreshToken(doc.Meta.Renew)

	return nil
}

// CurrentUser fetches the authenticated-user resource with a transient
// formatting interceptor, persists the flattened form under the user storage
// key, and returns it.
func (m *SessionManager) CurrentUser(ctx context.Context) (map[string]interface{}, error) {
	req := &japi.Request{
		Method:               http.MethodGet,
		Path:                 constants.PathCurrentUser,
		ResponseInterceptors: []japi.ResponseInterceptor{japi.UserFormatInterceptor()},
	}

	resp, err := m.transport.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetching current user: %w", err)
	}

	if resp.Formatted == nil {
		return nil, japi.ErrMissingUserPayload
	}

	encoded, err := json.Marshal(resp.Formatted)
	if err != nil {
		return nil, fmt.Errorf("encoding user resource: %w", err)
	}

	m.store.Set(japi.StorageKeyUser, string(encoded))

	return resp.Formatted, nil
}
