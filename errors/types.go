package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode identifies a class of failure
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Bootstrap fetch errors
	ErrCodeFetchFailed     ErrorCode = "FETCH_FAILED"
	ErrCodeNormalizeFailed ErrorCode = "NORMALIZE_FAILED"

	// Push channel errors
	ErrCodeEndpointInvalid      ErrorCode = "ENDPOINT_INVALID"
	ErrCodePayloadInvalid       ErrorCode = "PAYLOAD_INVALID"
	ErrCodeMaxReconnectAttempts ErrorCode = "MAX_RECONNECT_ATTEMPTS"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// SyncError is a structured error carrying a code and optional context
type SyncError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *SyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *SyncError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *SyncError) WithDetail(key string, value interface{}) *SyncError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *SyncError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new SyncError
func New(code ErrorCode, message string) *SyncError {
	return &SyncError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a SyncError
func Wrap(err error, code ErrorCode, message string) *SyncError {
	return &SyncError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is reports whether err, or anything it wraps, is a SyncError with the given code
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the code of the outermost SyncError in err's chain
func GetCode(err error) ErrorCode {
	for err != nil {
		if syncErr, ok := err.(*SyncError); ok {
			return syncErr.Code
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = unwrapper.Unwrap()
	}
	return ""
}

// As returns the outermost SyncError in err's chain, if any
func As(err error) (*SyncError, bool) {
	for err != nil {
		if syncErr, ok := err.(*SyncError); ok {
			return syncErr, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}
