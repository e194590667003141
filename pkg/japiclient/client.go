// Package japiclient provides the main entry point for creating platform API
// clients.
package japiclient

import (
	"fmt"
	"strings"

	"github.com/meridianhq/japi-client/internal/client"
	"github.com/meridianhq/japi-client/internal/constants"
	"github.com/meridianhq/japi-client/internal/store"
	"github.com/meridianhq/japi-client/pkg/japi"
)

// New creates a new platform API client backed by an in-memory credential
// store. The base URL is normalized by trimming a trailing slash and adding
// "https://" when no scheme is present; the client name defaults to "japi"
// and scopes the credential namespace.
func New(config *japi.Config) (japi.Client, error) {
	if config == nil {
		return nil, japi.ErrConfigRequired
	}

	normalize(config)

	return NewWithStore(config, store.NewMemory(config.Name))
}

// NewWithStore creates a new client over a caller-supplied credential store,
// e.g. a file store shared with a CLI or a NATS KV store shared between
// processes.
func NewWithStore(config *japi.Config, credStore japi.CredentialStore) (japi.Client, error) {
	if config == nil {
		return nil, japi.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, japi.ErrBaseURLRequired
	}

	if credStore == nil {
		return nil, japi.ErrStoreRequired
	}

	normalize(config)

	apiClient, err := client.New(config, credStore)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return apiClient, nil
}

func normalize(config *japi.Config) {
	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL != "" && !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	config.BaseURL = baseURL

	if config.Name == "" {
		config.Name = constants.DefaultClientName
	}
}
