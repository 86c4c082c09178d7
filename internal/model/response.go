package model

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type LoginResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"accessToken"`
}

type RegisterResponse struct {
	User User `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// ProxyError is the body written by the API forwarder when the backend
// cannot be reached.
type ProxyError struct {
	Error string `json:"error"`
}
