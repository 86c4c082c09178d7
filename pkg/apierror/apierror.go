package apierror

import (
	"fmt"
	"net/http"
)

// APIError is an error with the envelope code and status it should be
// rendered with.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	cause      error
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// Wrap keeps cause reachable through errors.Is and errors.As. Its text
// becomes the details unless details is set.
func Wrap(cause error, code string, message string, status int) *APIError {
	e := New(code, message, "", status)
	e.cause = cause
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

func MethodNotAllowed(method string) *APIError {
	return New("METHOD_NOT_ALLOWED", "method not allowed", method, http.StatusMethodNotAllowed)
}

func Upstream(cause error) *APIError {
	return Wrap(cause, "UPSTREAM_UNAVAILABLE", "Backend API is unavailable", http.StatusBadGateway)
}
