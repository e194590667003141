package japi

// Storage keys used by the client within its namespace.
const (
	// StorageKeyAccessToken holds the short-lived bearer credential.
	StorageKeyAccessToken = "accessToken"

	// StorageKeyRefreshToken holds the longer-lived renewal credential.
	StorageKeyRefreshToken = "refreshToken"

	// StorageKeyUser holds the serialized authenticated-user resource.
	StorageKeyUser = "user"
)

// CredentialStore persists the token pair and arbitrary named values for one
// client. Implementations namespace every key by the client name so several
// clients can share a backend. Implementations must be safe for concurrent
// use; the client reads and writes tokens from concurrent requests.
type CredentialStore interface {
	// Get returns the value stored under key, if any.
	Get(key string) (string, bool)
	// Set stores value under key.
	Set(key, value string)
	// Remove deletes the value stored under key, if any.
	Remove(key string)
	// ClearTokens removes the access token, refresh token, and cached user
	// in one sweep. Used on login and on renewal failure (fail-closed).
	ClearTokens()

	// AccessToken returns the stored access token, if any.
	AccessToken() (string, bool)
	// SetAccessToken stores the access token.
	SetAccessToken(token string)
	// RefreshToken returns the stored refresh token, if any.
	RefreshToken() (string, bool)
	// SetRefreshToken stores the refresh token.
	SetRefreshToken(token string)
}
