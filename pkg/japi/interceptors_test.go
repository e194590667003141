package japi_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhq/japi-client/pkg/japi"
)

var errBoom = errors.New("boom")

func TestInterceptorChain_ExecutionOrder(t *testing.T) {
	chain := japi.NewInterceptorChain()
	ctx := context.Background()

	var executionOrder []string

	chain.AddRequestInterceptor(japi.RequestInterceptorFunc("first", func(ctx context.Context, req *japi.Request) error {
		executionOrder = append(executionOrder, "first")
		return nil
	}))

	chain.AddRequestInterceptor(japi.RequestInterceptorFunc("second", func(ctx context.Context, req *japi.Request) error {
		executionOrder = append(executionOrder, "second")
		return nil
	}))

	req := &japi.Request{Method: "GET", Path: "documents"}

	err := chain.ExecuteRequestInterceptors(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, executionOrder)

	executionOrder = nil

	chain.AddResponseInterceptor(japi.ResponseInterceptorFunc("first", func(ctx context.Context, req *japi.Request, resp *japi.Response) error {
		executionOrder = append(executionOrder, "first")
		return nil
	}))

	chain.AddResponseInterceptor(japi.ResponseInterceptorFunc("second", func(ctx context.Context, req *japi.Request, resp *japi.Response) error {
		executionOrder = append(executionOrder, "second")
		return nil
	}))

	err = chain.ExecuteResponseInterceptors(ctx, req, &japi.Response{StatusCode: 200})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, executionOrder)
}

func TestInterceptorChain_IdempotentRegistration(t *testing.T) {
	chain := japi.NewInterceptorChain()

	noop := func(ctx context.Context, req *japi.Request) error { return nil }

	first := chain.AddRequestInterceptor(japi.RequestInterceptorFunc("auth", noop))
	second := chain.AddRequestInterceptor(japi.RequestInterceptorFunc("auth", noop))

	assert.Equal(t, first, second)
	assert.Equal(t, 1, chain.Len(japi.KindRequest))

	// The same key on the response side is a distinct entry.
	respHandle := chain.AddResponseInterceptor(japi.ResponseInterceptorFunc("auth", nil))
	assert.NotEqual(t, first, respHandle)
	assert.Equal(t, 1, chain.Len(japi.KindResponse))
}

func TestInterceptorChain_InstallReportsCreation(t *testing.T) {
	chain := japi.NewInterceptorChain()

	noop := func(ctx context.Context, req *japi.Request) error { return nil }

	first, created := chain.InstallRequestInterceptor(japi.RequestInterceptorFunc("auth", noop))
	assert.True(t, created)

	second, created := chain.InstallRequestInterceptor(japi.RequestInterceptorFunc("auth", noop))
	assert.False(t, created)
	assert.Equal(t, first, second)

	respFirst, created := chain.InstallResponseInterceptor(japi.ResponseInterceptorFunc("format", nil))
	assert.True(t, created)

	respSecond, created := chain.InstallResponseInterceptor(japi.ResponseInterceptorFunc("format", nil))
	assert.False(t, created)
	assert.Equal(t, respFirst, respSecond)
}

func TestInterceptorChain_RemoveIsPrecise(t *testing.T) {
	chain := japi.NewInterceptorChain()

	noop := func(ctx context.Context, req *japi.Request) error { return nil }

	a := chain.AddRequestInterceptor(japi.RequestInterceptorFunc("a", noop))
	b := chain.AddRequestInterceptor(japi.RequestInterceptorFunc("b", noop))
	c := chain.AddRequestInterceptor(japi.RequestInterceptorFunc("c", noop))

	require.True(t, chain.Remove(b))
	assert.Equal(t, []string{"a", "c"}, chain.Keys(japi.KindRequest))

	// Double removal is a no-op, not a corruption.
	assert.False(t, chain.Remove(b))
	assert.Equal(t, 2, chain.Len(japi.KindRequest))

	// Re-registering a removed key creates a fresh entry at the tail.
	b2 := chain.AddRequestInterceptor(japi.RequestInterceptorFunc("b", noop))
	assert.NotEqual(t, b, b2)
	assert.Equal(t, []string{"a", "c", "b"}, chain.Keys(japi.KindRequest))

	require.True(t, chain.Remove(a))
	require.True(t, chain.Remove(c))
	require.True(t, chain.Remove(b2))
	assert.Equal(t, 0, chain.Len(japi.KindRequest))
}

func TestInterceptorChain_MapAndChainStayInSync(t *testing.T) {
	chain := japi.NewInterceptorChain()

	noop := func(ctx context.Context, req *japi.Request) error { return nil }

	// Arbitrary add/remove sequence; after every step the key list must
	// match the chain length.
	handles := make(map[string]japi.Handle)

	for _, key := range []string{"a", "b", "c", "d"} {
		handles[key] = chain.AddRequestInterceptor(japi.RequestInterceptorFunc(key, noop))
		assert.Len(t, chain.Keys(japi.KindRequest), chain.Len(japi.KindRequest))
	}

	for _, key := range []string{"b", "d"} {
		require.True(t, chain.Remove(handles[key]))
		assert.Len(t, chain.Keys(japi.KindRequest), chain.Len(japi.KindRequest))
	}

	assert.Equal(t, []string{"a", "c"}, chain.Keys(japi.KindRequest))
}

func TestInterceptorChain_RequestInterceptorFailureStopsChain(t *testing.T) {
	chain := japi.NewInterceptorChain()
	ctx := context.Background()

	var reached bool

	chain.AddRequestInterceptor(japi.RequestInterceptorFunc("failing", func(ctx context.Context, req *japi.Request) error {
		return errBoom
	}))
	chain.AddRequestInterceptor(japi.RequestInterceptorFunc("after", func(ctx context.Context, req *japi.Request) error {
		reached = true
		return nil
	}))

	err := chain.ExecuteRequestInterceptors(ctx, &japi.Request{})
	require.Error(t, err)
	require.ErrorIs(t, err, errBoom)
	assert.False(t, reached)
}

func TestInterceptorChain_ErrorHandlers(t *testing.T) {
	t.Run("first recovery short-circuits", func(t *testing.T) {
		chain := japi.NewInterceptorChain()

		recovered := &japi.Response{StatusCode: 200}

		chain.AddResponseInterceptor(japi.ErrorInterceptorFunc("recover", func(ctx context.Context, req *japi.Request, resp *japi.Response, cause error) (*japi.Response, error) {
			return recovered, nil
		}))

		var reached bool

		chain.AddResponseInterceptor(japi.ErrorInterceptorFunc("after", func(ctx context.Context, req *japi.Request, resp *japi.Response, cause error) (*japi.Response, error) {
			reached = true
			return nil, cause
		}))

		resp, err := chain.ExecuteErrorInterceptors(context.Background(), &japi.Request{}, nil, errBoom)
		require.NoError(t, err)
		assert.Same(t, recovered, resp)
		assert.False(t, reached)
	})

	t.Run("handler may replace the failure", func(t *testing.T) {
		chain := japi.NewInterceptorChain()

		replacement := errors.New("causally final")

		chain.AddResponseInterceptor(japi.ErrorInterceptorFunc("replace", func(ctx context.Context, req *japi.Request, resp *japi.Response, cause error) (*japi.Response, error) {
			return nil, replacement
		}))

		resp, err := chain.ExecuteErrorInterceptors(context.Background(), &japi.Request{}, nil, errBoom)
		assert.Nil(t, resp)
		require.ErrorIs(t, err, replacement)
	})

	t.Run("pass-through keeps the original failure", func(t *testing.T) {
		chain := japi.NewInterceptorChain()

		chain.AddResponseInterceptor(japi.ResponseInterceptorFunc("noop", nil))

		resp, err := chain.ExecuteErrorInterceptors(context.Background(), &japi.Request{}, nil, errBoom)
		assert.Nil(t, resp)
		require.ErrorIs(t, err, errBoom)
	})
}

func TestCredentialInterceptor(t *testing.T) {
	t.Run("injects bearer token and api key", func(t *testing.T) {
		store := newFakeStore()
		store.SetAccessToken("token-123")

		interceptor := japi.CredentialInterceptor(store, "key-456")
		req := &japi.Request{Method: "GET", Path: "documents"}

		err := interceptor.InterceptRequest(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "Bearer token-123", req.Headers.Get("Authorization"))
		assert.Equal(t, "key-456", req.Headers.Get("X-Api-Key"))
	})

	t.Run("leaves explicit authorization untouched", func(t *testing.T) {
		store := newFakeStore()
		store.SetAccessToken("token-123")

		interceptor := japi.CredentialInterceptor(store, "")
		headers := make(http.Header)
		headers.Set("Authorization", "Bearer refresh-789")
		req := &japi.Request{Method: "POST", Path: "sessions", Headers: headers}

		err := interceptor.InterceptRequest(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "Bearer refresh-789", req.Headers.Get("Authorization"))
	})

	t.Run("no token stored leaves header unset", func(t *testing.T) {
		interceptor := japi.CredentialInterceptor(newFakeStore(), "")
		req := &japi.Request{Method: "GET", Path: "documents"}

		err := interceptor.InterceptRequest(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, req.Headers.Get("Authorization"))
	})
}

func TestContentTypeInterceptor(t *testing.T) {
	interceptor := japi.ContentTypeInterceptor()

	req := &japi.Request{Method: "POST", Path: "documents", Body: map[string]string{"title": "x"}}

	err := interceptor.InterceptRequest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.api+json", req.Headers.Get("Content-Type"))
	assert.Equal(t, "application/vnd.api+json", req.Headers.Get("Accept"))

	// Explicit content type wins.
	custom := &japi.Request{Method: "POST", Path: "uploads", Body: []byte("raw")}
	custom.Headers = make(http.Header)
	custom.Headers.Set("Content-Type", "application/octet-stream")

	err = interceptor.InterceptRequest(context.Background(), custom)
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", custom.Headers.Get("Content-Type"))
}

func TestUserFormatInterceptor(t *testing.T) {
	interceptor := japi.UserFormatInterceptor()

	resp := &japi.Response{
		StatusCode: 200,
		Body:       []byte(`{"data":{"id":"42","type":"users","attributes":{"username":"ada","email":"ada@example.com"}}}`),
	}

	err := interceptor.InterceptResponse(context.Background(), &japi.Request{}, resp)
	require.NoError(t, err)
	require.NotNil(t, resp.Formatted)
	assert.Equal(t, "42", resp.Formatted["id"])
	assert.Equal(t, "users", resp.Formatted["type"])
	assert.Equal(t, "ada", resp.Formatted["username"])
	assert.Equal(t, "ada@example.com", resp.Formatted["email"])

	// Malformed body fails the response pass.
	broken := &japi.Response{StatusCode: 200, Body: []byte("not json")}
	err = interceptor.InterceptResponse(context.Background(), &japi.Request{}, broken)
	require.Error(t, err)
}

// fakeStore is a minimal in-memory CredentialStore for interceptor tests.
type fakeStore struct {
	values map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (s *fakeStore) Get(key string) (string, bool) {
	value, ok := s.values[key]
	return value, ok
}

func (s *fakeStore) Set(key, value string) { s.values[key] = value }
func (s *fakeStore) Remove(key string)     { delete(s.values, key) }

func (s *fakeStore) ClearTokens() {
	delete(s.values, japi.StorageKeyAccessToken)
	delete(s.values, japi.StorageKeyRefreshToken)
	delete(s.values, japi.StorageKeyUser)
}

func (s *fakeStore) AccessToken() (string, bool)  { return s.Get(japi.StorageKeyAccessToken) }
func (s *fakeStore) SetAccessToken(token string)  { s.Set(japi.StorageKeyAccessToken, token) }
func (s *fakeStore) RefreshToken() (string, bool) { return s.Get(japi.StorageKeyRefreshToken) }
func (s *fakeStore) SetRefreshToken(token string) { s.Set(japi.StorageKeyRefreshToken, token) }
