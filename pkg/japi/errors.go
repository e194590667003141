package japi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a single error object from the platform API.
type APIError struct {
	Status int    `json:"status,string,omitempty" yaml:"status,omitempty"`
	Title  string `json:"title"                   yaml:"title"`
	Detail string `json:"detail"                  yaml:"detail"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (status: %d)", e.Title, e.Detail, e.Status)
}

// ResponseError represents the error envelope returned by the API.
type ResponseError struct {
	StatusCode int        `json:"-"      yaml:"-"`
	Errors     []APIError `json:"errors" yaml:"errors"`
}

// Error implements the error interface for ResponseError.
func (e *ResponseError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}

	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	return fmt.Sprintf("multiple errors: %v", e.Errors)
}

// FirstError returns the first error object or nil.
func (e *ResponseError) FirstError() *APIError {
	if len(e.Errors) > 0 {
		return &e.Errors[0]
	}

	return nil
}

// Common static errors that can be wrapped with context.
var (
	ErrConfigRequired        = errors.New("config is required")
	ErrBaseURLRequired       = errors.New("base URL is required")
	ErrStoreRequired         = errors.New("credential store is required")
	ErrMalformedAuthResponse = errors.New("auth response missing token metadata")
	ErrMissingRefreshToken   = errors.New("no refresh token stored")
	ErrMissingUserPayload    = errors.New("user response carried no formatted payload")
)

// IsUnauthorized checks if the error is an authentication failure.
func IsUnauthorized(err error) bool {
	respErr := &ResponseError{}
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusUnauthorized
	}

	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized
	}

	return false
}

// IsNotFound checks if the error is a not-found failure.
func IsNotFound(err error) bool {
	respErr := &ResponseError{}
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusNotFound
	}

	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusNotFound
	}

	return false
}

// ParseResponseError builds a ResponseError from an error response body,
// falling back to the HTTP status text when the body is not a JSON:API error
// envelope.
func ParseResponseError(statusCode int, body []byte) *ResponseError {
	respErr := &ResponseError{StatusCode: statusCode}

	if len(body) > 0 {
		_ = json.Unmarshal(body, respErr)
	}

	if len(respErr.Errors) == 0 {
		respErr.Errors = []APIError{{
			Status: statusCode,
			Title:  http.StatusText(statusCode),
			Detail: string(body),
		}}
	}

	return respErr
}
