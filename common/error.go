package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried by APIError.Code. They name the failure class so callers
// can branch without parsing messages.
const (
	CodeMisconfiguredRequiredField = "Misconfigured required field"
	CodeInvalidLookup              = "Invalid lookup"
	CodeInvalidInput               = "Invalid input"
	CodeRecordNotFound             = "Record not found"
	CodeMultipleRecordsFound       = "Multiple records found"
	CodeUpstream                   = "Upstream error"
)

type APIError struct {
	Status  int            `json:"-"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"error"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func (e APIError) Error() string {
	return e.Message
}

func Errf(status int, format string, args ...any) APIError {
	return APIError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// NewAPIError creates an APIError with status, message, and optional fields
func NewAPIError(status int, message string, fields map[string]any) APIError {
	return APIError{
		Status:  status,
		Message: message,
		Fields:  fields,
	}
}

// NewIntegrationError creates a coded APIError raised by a destination action.
func NewIntegrationError(message, code string, status int) APIError {
	return APIError{Status: status, Code: code, Message: message}
}

// HasCode reports whether err is an APIError carrying code.
func HasCode(err error, code string) bool {
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == code
}

// IsRetryable reports whether a failed delivery may succeed on a later attempt.
// Client-side API errors are terminal except for timeouts and rate limiting;
// anything that is not an APIError (transport, decode) is treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return true
	}

	switch {
	case apiErr.Status == http.StatusRequestTimeout,
		apiErr.Status == http.StatusTooManyRequests:
		return true
	case apiErr.Status >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}
