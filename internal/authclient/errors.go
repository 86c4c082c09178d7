package authclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrServerUnreachable = errors.New("No response from server - check if the backend is running")
	ErrSessionExpired    = errors.New("session expired")
	ErrMissingToken      = errors.New("login response did not include an access token")
)

// HTTPError is a non-2xx answer from the backend.
type HTTPError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func newHTTPError(status int, body []byte) *HTTPError {
	return &HTTPError{Status: status, Message: messageFrom(body), Body: body}
}

// messageFrom extracts the human readable message from the error shapes the
// backend and the portal envelope use.
func messageFrom(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(payload.Message); msg != "" {
		return msg
	}
	if len(payload.Error) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(payload.Error, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}

// withFallback fills the message of a backend rejection that carried none.
func withFallback(err error, fallback string) error {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Message == "" {
		copied := *httpErr
		copied.Message = fallback
		return &copied
	}
	return err
}

// Message returns the text a user should see for err.
func Message(err error, fallback string) string {
	var httpErr *HTTPError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrServerUnreachable):
		return ErrServerUnreachable.Error()
	case errors.Is(err, ErrSessionExpired):
		return "Your session has expired. Please sign in again."
	case errors.As(err, &httpErr) && httpErr.Message != "":
		return httpErr.Message
	default:
		return fallback
	}
}
