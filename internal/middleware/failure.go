package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"delivery-portal/internal/model"
)

const apiPrefix = "/api"

func isAPIPath(path string) bool {
	return path == apiPrefix || strings.HasPrefix(path, apiPrefix+"/")
}

// writeFailure answers in the shape the caller expects: {"error": message}
// under /api, the envelope everywhere else.
func writeFailure(w http.ResponseWriter, r *http.Request, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if isAPIPath(r.URL.Path) {
		_ = json.NewEncoder(w).Encode(model.ProxyError{Error: message})
		return
	}
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   &model.APIError{Code: code, Message: message},
	})
}
