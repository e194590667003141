package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	japihttp "github.com/meridianhq/japi-client/internal/http"
	"github.com/meridianhq/japi-client/pkg/japi"
)

var errDeliberate = errors.New("deliberate failure")

func TestClient_Do(t *testing.T) {
	t.Run("successful request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/documents", request.URL.Path)
			assert.Equal(t, "GET", request.Method)

			_ = json.NewEncoder(writer).Encode(map[string]string{"id": "5", "title": "x"})
		}))
		defer server.Close()

		client := japihttp.NewClient(server.URL, japi.NewInterceptorChain())

		resp, err := client.Do(context.Background(), &japi.Request{Method: "GET", Path: "documents"})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result map[string]string

		require.NoError(t, json.Unmarshal(resp.Body, &result))
		assert.Equal(t, "5", result["id"])
	})

	t.Run("request with query parameters", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "size=10", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := japihttp.NewClient(server.URL, japi.NewInterceptorChain())

		resp, err := client.Get(context.Background(), "documents", url.Values{"size": []string{"10"}})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("request with body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)

			var body map[string]string

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "x", body["title"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := japihttp.NewClient(server.URL, japi.NewInterceptorChain())

		resp, err := client.Post(context.Background(), "documents", map[string]string{"title": "x"})
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})

	t.Run("error response maps to ResponseError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			_, _ = writer.Write([]byte(`{"errors":[{"status":"404","title":"Not Found","detail":"no such document"}]}`))
		}))
		defer server.Close()

		client := japihttp.NewClient(server.URL, japi.NewInterceptorChain())

		resp, err := client.Get(context.Background(), "documents/nope", nil)
		assert.Nil(t, resp)
		require.Error(t, err)
		assert.True(t, japi.IsNotFound(err))

		respErr := &japi.ResponseError{}
		require.ErrorAs(t, err, &respErr)
		assert.Equal(t, "no such document", respErr.FirstError().Detail)
	})

	t.Run("request interceptors run before dispatch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "injected", request.Header.Get("X-Test"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		chain := japi.NewInterceptorChain()
		chain.AddRequestInterceptor(japi.HeaderInterceptor("test-header", map[string]string{"X-Test": "injected"}))

		client := japihttp.NewClient(server.URL, chain)

		_, err := client.Get(context.Background(), "documents", nil)
		require.NoError(t, err)
	})
}

func TestClient_TransientInterceptors(t *testing.T) {
	newServer := func(t *testing.T, status int) *httptest.Server {
		t.Helper()

		return httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(status)
			_, _ = writer.Write([]byte(`{}`))
		}))
	}

	t.Run("removed after success", func(t *testing.T) {
		server := newServer(t, http.StatusOK)
		defer server.Close()

		chain := japi.NewInterceptorChain()
		chain.AddRequestInterceptor(japi.ContentTypeInterceptor())

		client := japihttp.NewClient(server.URL, chain)

		var ran bool

		req := &japi.Request{
			Method: "GET",
			Path:   "documents",
			ResponseInterceptors: []japi.ResponseInterceptor{
				japi.ResponseInterceptorFunc("transient", func(ctx context.Context, req *japi.Request, resp *japi.Response) error {
					ran = true
					return nil
				}),
			},
		}

		_, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, ran)

		// Transient interceptor stripped from the request and gone from
		// the chain.
		assert.Nil(t, req.ResponseInterceptors)
		assert.Equal(t, 0, chain.Len(japi.KindResponse))
		assert.Equal(t, 1, chain.Len(japi.KindRequest))
	})

	t.Run("removed after a throwing transient interceptor", func(t *testing.T) {
		server := newServer(t, http.StatusOK)
		defer server.Close()

		chain := japi.NewInterceptorChain()
		chain.AddRequestInterceptor(japi.ContentTypeInterceptor())
		chain.AddRequestInterceptor(japi.HeaderInterceptor("defaults", map[string]string{"X-Default": "1"}))
		chain.AddResponseInterceptor(japi.ResponseInterceptorFunc("default-response", nil))

		client := japihttp.NewClient(server.URL, chain)

		req := &japi.Request{
			Method: "GET",
			Path:   "documents",
			ResponseInterceptors: []japi.ResponseInterceptor{
				japi.ResponseInterceptorFunc("exploding", func(ctx context.Context, req *japi.Request, resp *japi.Response) error {
					return errDeliberate
				}),
			},
		}

		_, err := client.Do(context.Background(), req)
		require.Error(t, err)
		require.ErrorIs(t, err, errDeliberate)

		// Only the three defaults remain.
		assert.Equal(t, []string{"content-type", "defaults"}, chain.Keys(japi.KindRequest))
		assert.Equal(t, []string{"default-response"}, chain.Keys(japi.KindResponse))
	})

	t.Run("sharing a default key leaves the default installed", func(t *testing.T) {
		server := newServer(t, http.StatusOK)
		defer server.Close()

		chain := japi.NewInterceptorChain()
		chain.AddRequestInterceptor(japi.ContentTypeInterceptor())

		client := japihttp.NewClient(server.URL, chain)

		req := &japi.Request{
			Method: "GET",
			Path:   "documents",
			RequestInterceptors: []japi.RequestInterceptor{
				japi.RequestInterceptorFunc("content-type", func(ctx context.Context, req *japi.Request) error {
					return nil
				}),
			},
		}

		_, err := client.Do(context.Background(), req)
		require.NoError(t, err)

		// The transient deduplicated against the default and never took
		// ownership of it.
		assert.Equal(t, []string{"content-type"}, chain.Keys(japi.KindRequest))

		// The default still works on a second call.
		_, err = client.Get(context.Background(), "documents", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, chain.Len(japi.KindRequest))
	})

	t.Run("removed after an error response", func(t *testing.T) {
		server := newServer(t, http.StatusInternalServerError)
		defer server.Close()

		chain := japi.NewInterceptorChain()
		client := japihttp.NewClient(server.URL, chain)

		req := &japi.Request{
			Method: "GET",
			Path:   "documents",
			RequestInterceptors: []japi.RequestInterceptor{
				japi.HeaderInterceptor("transient-header", map[string]string{"X-Once": "1"}),
			},
		}

		_, err := client.Do(context.Background(), req)
		require.Error(t, err)

		assert.Equal(t, 0, chain.Len(japi.KindRequest))
		assert.Equal(t, 0, chain.Len(japi.KindResponse))
	})
}

func TestClient_ErrorHandlerRecovery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	chain := japi.NewInterceptorChain()

	recovered := &japi.Response{StatusCode: 200, Body: []byte(`{"recovered":true}`)}

	chain.AddResponseInterceptor(japi.ErrorInterceptorFunc("recover", func(ctx context.Context, req *japi.Request, resp *japi.Response, cause error) (*japi.Response, error) {
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

		return recovered, nil
	}))

	client := japihttp.NewClient(server.URL, chain)

	resp, err := client.Get(context.Background(), "documents", nil)
	require.NoError(t, err)
	assert.Same(t, recovered, resp)
}
