package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/meridianhq/japi-client/internal/auth"
	"github.com/meridianhq/japi-client/internal/constants"
	http_internal "github.com/meridianhq/japi-client/internal/http"
	"github.com/meridianhq/japi-client/pkg/japi"
)

// KeyAuthRetry identifies the refresh-and-retry interceptor.
const KeyAuthRetry = "auth-retry"

// metadataAuthRetried marks a request that already went through one
// renew-and-replay cycle, so a second 401 surfaces instead of looping.
const metadataAuthRetried = "authRetried"

// authRetryInterceptor turns an authentication failure into a single
// renew-and-replay cycle. Renewal is single-flight per client (the session
// manager serializes it), so concurrent 401s produce one renewal call on the
// wire. When renewal itself fails the session manager has already wiped the
// stored credentials and the renewal error is surfaced as the causally final
// diagnosis.
type authRetryInterceptor struct {
	sessions  *auth.SessionManager
	transport *http_internal.Client
}

func newAuthRetryInterceptor(sessions *auth.SessionManager, transport *http_internal.Client) *authRetryInterceptor {
	return &authRetryInterceptor{
		sessions:  sessions,
		transport: transport,
	}
}

func (i *authRetryInterceptor) Key() string { return KeyAuthRetry }

func (i *authRetryInterceptor) InterceptResponse(_ context.Context, _ *japi.Request, _ *japi.Response) error {
	return nil
}

func (i *authRetryInterceptor) InterceptError(ctx context.Context, req *japi.Request, resp *japi.Response, cause error) (*japi.Response, error) {
	if !unauthorized(resp, cause) {
		return nil, cause
	}

	// The renewal call itself must never trigger another renewal.
	if req.MetadataBool(japi.MetadataAuthRequest) || req.MetadataBool(metadataAuthRetried) {
		return nil, cause
	}

	err := i.sessions.RefreshTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("renewing session after authentication failure: %w", err)
	}

	req.SetMetadata(metadataAuthRetried, true)

	// Drop the stale bearer header so the credential interceptor injects
	// the fresh token on the replay.
	if req.Headers != nil {
		req.Headers.Del(constants.HeaderAuthorization)
	}

	return i.transport.Replay(ctx, req)
}

func unauthorized(resp *japi.Response, cause error) bool {
	if resp != nil && resp.StatusCode == http.StatusUnauthorized {
		return true
	}

	return japi.IsUnauthorized(cause)
}
