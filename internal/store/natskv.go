package store

import (
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/meridianhq/japi-client/pkg/japi"
)

// Static errors for err113 compliance.
var (
	ErrNATSURLRequired    = errors.New("NATS URL is required")
	ErrNATSBucketRequired = errors.New("NATS bucket is required")
)

// NATSKVConfig configures the NATS JetStream KV credential store.
type NATSKVConfig struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Bucket is the KV bucket name. Created if it does not exist.
	Bucket string

	// Name scopes the credential namespace within the bucket.
	Name string

	// CredsFile is an optional NATS credentials file.
	CredsFile string
}

// NATSKV is a credential store backed by a NATS JetStream KeyValue bucket,
// for processes that share one session (e.g., workers behind one service
// account). NATS KV keys cannot contain ':', so the namespace separator is
// '.' here.
type NATSKV struct {
	conn   *nats.Conn
	kv     nats.KeyValue
	name   string
	logger japi.Logger
}

// NewNATSKV connects to NATS and opens (or creates) the configured bucket.
func NewNATSKV(config *NATSKVConfig, logger japi.Logger) (*NATSKV, error) {
	if config == nil || config.URL == "" {
		return nil, ErrNATSURLRequired
	}

	if config.Bucket == "" {
		return nil, ErrNATSBucketRequired
	}

	var opts []nats.Option
	if config.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(config.CredsFile))
	}

	conn, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("getting JetStream context: %w", err)
	}

	kv, err := js.KeyValue(config.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: config.Bucket})
	}

	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("opening KV bucket %q: %w", config.Bucket, err)
	}

	return &NATSKV{
		conn:   conn,
		kv:     kv,
		name:   config.Name,
		logger: logger,
	}, nil
}

// Close drains the underlying NATS connection.
func (s *NATSKV) Close() {
	s.conn.Close()
}

func (s *NATSKV) namespaced(key string) string {
	return s.name + "." + key
}

func (s *NATSKV) warn(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, map[string]interface{}{"error": err.Error()})
	}
}

// Get returns the value stored under key, if any.
func (s *NATSKV) Get(key string) (string, bool) {
	entry, err := s.kv.Get(s.namespaced(key))
	if err != nil {
		if !errors.Is(err, nats.ErrKeyNotFound) {
			s.warn("failed to read credential from NATS KV", err)
		}

		return "", false
	}

	return string(entry.Value()), true
}

// Set stores value under key.
func (s *NATSKV) Set(key, value string) {
	_, err := s.kv.PutString(s.namespaced(key), value)
	if err != nil {
		s.warn("failed to write credential to NATS KV", err)
	}
}

// Remove deletes the value stored under key.
func (s *NATSKV) Remove(key string) {
	err := s.kv.Delete(s.namespaced(key))
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		s.warn("failed to delete credential from NATS KV", err)
	}
}

// ClearTokens removes the token pair and the cached user.
func (s *NATSKV) ClearTokens() {
	s.Remove(japi.StorageKeyAccessToken)
	s.Remove(japi.StorageKeyRefreshToken)
	s.Remove(japi.StorageKeyUser)
}

// AccessToken returns the stored access token, if any.
func (s *NATSKV) AccessToken() (string, bool) {
	return s.Get(japi.StorageKeyAccessToken)
}

// SetAccessToken stores the access token.
func (s *NATSKV) SetAccessToken(token string) {
	s.Set(japi.StorageKeyAccessToken, token)
}

// RefreshToken returns the stored refresh token, if any.
func (s *NATSKV) RefreshToken() (string, bool) {
	return s.Get(japi.StorageKeyRefreshToken)
}

// SetRefreshToken stores the refresh token.
func (s *NATSKV) SetRefreshToken(token string) {
	s.Set(japi.StorageKeyRefreshToken, token)
}
