package errors

import (
	"fmt"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *SyncError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *SyncError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// FetchFailed creates a bootstrap fetch failure
func FetchFailed(url string, err error) *SyncError {
	return Wrap(err, ErrCodeFetchFailed, fmt.Sprintf("failed to fetch time slots from %s", url)).
		WithDetail("url", url)
}

// FetchStatus creates a bootstrap fetch failure for a non-OK HTTP response
func FetchStatus(url string, status int) *SyncError {
	return New(ErrCodeFetchFailed, fmt.Sprintf("HTTP error! status: %d", status)).
		WithDetail("url", url).
		WithDetail("status", status)
}

// NormalizeFailed creates an error for a raw slot that could not be normalized
func NormalizeFailed(id int, reason string) *SyncError {
	return New(ErrCodeNormalizeFailed, reason).
		WithDetail("id", id)
}

// EndpointInvalid creates an error for a push endpoint that cannot be opened
func EndpointInvalid(endpoint string, reason string) *SyncError {
	return New(ErrCodeEndpointInvalid, fmt.Sprintf("cannot open push channel %q: %s", endpoint, reason)).
		WithDetail("endpoint", endpoint)
}

// PayloadInvalid creates an error for a push frame that is not a valid update
func PayloadInvalid(err error) *SyncError {
	return Wrap(err, ErrCodePayloadInvalid, "invalid data received from server")
}

// MaxReconnectAttempts creates the terminal reconnection error
func MaxReconnectAttempts(attempts int) *SyncError {
	return New(ErrCodeMaxReconnectAttempts,
		fmt.Sprintf("max reconnection attempts (%d) reached", attempts)).
		WithDetail("attempts", attempts)
}
