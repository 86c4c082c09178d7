package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"delivery-portal/internal/authz"
)

const (
	requestIDHeader = "X-Request-ID"

	// maxCapturedBody bounds how much of a failed proxied body is kept for
	// the log line.
	maxCapturedBody = 4 << 10
)

// errorBody is a minimal struct used to extract error details from JSON responses.
type errorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

// proxyErrorBody is the flat shape the API forwarder writes.
type proxyErrorBody struct {
	Error string `json:"error"`
}

func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, requestID)

		started := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(started).Milliseconds()

		attrs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", duration,
			"client_ip", r.RemoteAddr,
		}

		if role, err := r.Cookie(authz.RoleCookie); err == nil && role.Value != "" {
			attrs = append(attrs, "role", role.Value)
		}

		// Add query string for error responses to help reproduce issues.
		if wrapped.status >= 400 && r.URL.RawQuery != "" {
			attrs = append(attrs, "query", r.URL.RawQuery)
		}

		if location := wrapped.Header().Get("Location"); location != "" && wrapped.status >= 300 && wrapped.status < 400 {
			attrs = append(attrs, "location", location)
		}

		if wrapped.status >= 400 && wrapped.body.Len() > 0 {
			attrs = append(attrs, errorAttrs(wrapped.body.Bytes())...)
		}

		switch {
		case wrapped.status >= 500:
			slog.Error("request", attrs...)
		case wrapped.status >= 400:
			slog.Warn("request", attrs...)
		default:
			slog.Info("request", attrs...)
		}
	})
}

// errorAttrs pulls the failure reason out of an envelope or a forwarder
// error body. Anything else, such as a backend's own error page, is skipped.
func errorAttrs(body []byte) []any {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		attrs := []any{"error_code", parsed.Error.Code, "error_message", parsed.Error.Message}
		if parsed.Error.Details != "" {
			attrs = append(attrs, "error_details", parsed.Error.Details)
		}
		return attrs
	}

	var flat proxyErrorBody
	if err := json.Unmarshal(body, &flat); err == nil && flat.Error != "" {
		return []any{"error_message", flat.Error}
	}
	return nil
}

type responseWriter struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if rw.wroteHeader {
		return
	}
	rw.status = statusCode
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status >= 400 && rw.body.Len() < maxCapturedBody {
		rw.body.Write(b[:min(len(b), maxCapturedBody-rw.body.Len())])
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
