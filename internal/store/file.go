package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/meridianhq/japi-client/internal/constants"
	"github.com/meridianhq/japi-client/pkg/japi"
)

// File is a credential store persisted as a YAML file. Writes are full-file
// read-modify-write under a mutex, so one process can safely host several
// clients against the same file. Persistence failures are reported through
// the logger and never fail the request that triggered them.
type File struct {
	mu     sync.Mutex
	fs     afero.Fs
	path   string
	name   string
	logger japi.Logger
}

// NewFile creates a file-backed store at path on the given filesystem,
// namespaced by the client name. The logger may be nil.
func NewFile(fs afero.Fs, path, name string, logger japi.Logger) *File {
	return &File{
		fs:     fs,
		path:   path,
		name:   name,
		logger: logger,
	}
}

func (s *File) namespaced(key string) string {
	return s.name + ":" + key
}

func (s *File) load() map[string]string {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.warn("failed to read credential file", err)
		}

		return make(map[string]string)
	}

	values := make(map[string]string)

	err = yaml.Unmarshal(data, &values)
	if err != nil {
		s.warn("failed to parse credential file", err)

		return make(map[string]string)
	}

	return values
}

func (s *File) save(values map[string]string) {
	err := s.fs.MkdirAll(filepath.Dir(s.path), constants.ConfigDirPerm)
	if err != nil {
		s.warn("failed to create credential directory", err)

		return
	}

	data, err := yaml.Marshal(values)
	if err != nil {
		s.warn("failed to encode credentials", err)

		return
	}

	err = afero.WriteFile(s.fs, s.path, data, constants.ConfigFilePerm)
	if err != nil {
		s.warn("failed to persist credentials", err)
	}
}

func (s *File) warn(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, map[string]interface{}{"path": s.path, "error": err.Error()})

		return
	}

	fmt.Fprintf(os.Stderr, "Warning: %s: %v\n", msg, err)
}

// Get returns the value stored under key, if any.
func (s *File) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.load()[s.namespaced(key)]

	return value, ok
}

// Set stores value under key.
func (s *File) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.load()
	values[s.namespaced(key)] = value
	s.save(values)
}

// Remove deletes the value stored under key.
func (s *File) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.load()
	delete(values, s.namespaced(key))
	s.save(values)
}

// ClearTokens removes the token pair and the cached user.
func (s *File) ClearTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.load()
	delete(values, s.namespaced(japi.StorageKeyAccessToken))
	delete(values, s.namespaced(japi.StorageKeyRefreshToken))
	delete(values, s.namespaced(japi.StorageKeyUser))
	s.save(values)
}

// AccessToken returns the stored access token, if any.
func (s *File) AccessToken() (string, bool) {
	return s.Get(japi.StorageKeyAccessToken)
}

// SetAccessToken stores the access token.
func (s *File) SetAccessToken(token string) {
	s.Set(japi.StorageKeyAccessToken, token)
}

// RefreshToken returns the stored refresh token, if any.
func (s *File) RefreshToken() (string, bool) {
	return s.Get(japi.StorageKeyRefreshToken)
}

// SetRefreshToken stores the refresh token.
func (s *File) SetRefreshToken(token string) {
	s.Set(japi.StorageKeyRefreshToken, token)
}
