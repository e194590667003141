// Package store provides CredentialStore implementations: an in-memory map,
// a YAML file store, and a NATS JetStream KV store. All of them namespace
// keys by client name so several clients can share one backend.
package store

import (
	"sync"

	"github.com/meridianhq/japi-client/pkg/japi"
)

// Memory is a mutex-guarded in-memory credential store. It is the default
// backend when no store is supplied at construction.
type Memory struct {
	mu     sync.RWMutex
	name   string
	values map[string]string
}

// NewMemory creates an in-memory store namespaced by the client name.
func NewMemory(name string) *Memory {
	return &Memory{
		name:   name,
		values: make(map[string]string),
	}
}

func (s *Memory) namespaced(key string) string {
	return s.name + ":" + key
}

// Get returns the value stored under key, if any.
func (s *Memory) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[s.namespaced(key)]

	return value, ok
}

// Set stores value under key.
func (s *Memory) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[s.namespaced(key)] = value
}

// Remove deletes the value stored under key.
func (s *Memory) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, s.namespaced(key))
}

// ClearTokens removes the token pair and the cached user.
func (s *Memory) ClearTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, s.namespaced(japi.StorageKeyAccessToken))
	delete(s.values, s.namespaced(japi.StorageKeyRefreshToken))
	delete(s.values, s.namespaced(japi.StorageKeyUser))
}

// AccessToken returns the stored access token, if any.
func (s *Memory) AccessToken() (string, bool) {
	return s.Get(japi.StorageKeyAccessToken)
}

// SetAccessToken stores the access token.
func (s *Memory) SetAccessToken(token string) {
	s.Set(japi.StorageKeyAccessToken, token)
}

// RefreshToken returns the stored refresh token, if any.
func (s *Memory) RefreshToken() (string, bool) {
	return s.Get(japi.StorageKeyRefreshToken)
}

// SetRefreshToken stores the refresh token.
func (s *Memory) SetRefreshToken(token string) {
	s.Set(japi.StorageKeyRefreshToken, token)
}
