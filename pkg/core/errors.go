package core

import (
	"fmt"
	"net/url"
)

// Error represents an engine error.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Param   string    `json:"param,omitempty"`
	Code    string    `json:"code,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrDevice      ErrorType = "device_error"
	ErrUnsupported ErrorType = "unsupported_error"
	ErrValidation  ErrorType = "validation_error"
	ErrAPI         ErrorType = "api_error"
)

// NewDeviceError creates an audio or video device error.
func NewDeviceError(message string) *Error {
	return &Error{
		Type:    ErrDevice,
		Message: message,
	}
}

// NewUnsupportedError creates an error for an unavailable capability.
func NewUnsupportedError(message string) *Error {
	return &Error{
		Type:    ErrUnsupported,
		Message: message,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *Error {
	return &Error{
		Type:    ErrValidation,
		Message: message,
	}
}

// NewValidationErrorWithParam creates a validation error with a parameter.
func NewValidationErrorWithParam(message, param string) *Error {
	return &Error{
		Type:    ErrValidation,
		Message: message,
		Param:   param,
	}
}

// NewAPIError creates a generic remote API error.
func NewAPIError(message string) *Error {
	return &Error{
		Type:    ErrAPI,
		Message: message,
	}
}

// TransportError wraps a connection-level failure with the operation
// and endpoint that produced it.
type TransportError struct {
	Op  string
	URL string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s %s: %v", e.Op, redactURL(e.URL), e.Err)
}

// Unwrap returns the underlying error for error wrapping.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// redactURL strips credentials and query values before the URL lands in
// logs or error strings. Realtime endpoints carry the API key as a query
// parameter.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}
