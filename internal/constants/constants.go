package constants

import "time"

// Client identity.
const (
	// DefaultClientName scopes the credential store namespace when the
	// config does not name the client.
	DefaultClientName = "japi"

	// DefaultUserAgent is sent when the config does not override it.
	DefaultUserAgent = "japi-client/1.0"
)

// API paths.
const (
	// PathSessions is the authentication endpoint, used for both the
	// password grant and token renewal.
	PathSessions = "sessions"

	// PathCurrentUser is the authenticated-user resource.
	PathCurrentUser = "users/me"
)

// Headers and media types.
const (
	// HeaderAuthorization carries the bearer credential.
	HeaderAuthorization = "Authorization"

	// HeaderAPIKey carries the optional static API key.
	HeaderAPIKey = "X-Api-Key"

	// MediaTypeJSONAPI is the JSON:API media type used for request and
	// response bodies.
	MediaTypeJSONAPI = "application/vnd.api+json"
)

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits for the optional transport-level retry.
const (
	// DefaultRetryWaitMin is the minimum wait between transport retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait between transport retries.
	DefaultRetryWaitMax = 10 * time.Second
)
