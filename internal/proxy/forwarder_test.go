package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  string `json:"query"`
	Body   string `json:"body"`
	Cookie string `json:"cookie"`
	Host   string `json:"host"`
	Auth   string `json:"auth"`
}

func newEchoBackend(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/orders/empty" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		body, _ := io.ReadAll(r.Body)
		http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: "rt-2", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(echo{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(body),
			Cookie: r.Header.Get("Cookie"),
			Host:   r.Host,
			Auth:   r.Header.Get("Authorization"),
		})
	}))
	t.Cleanup(server.Close)
	return server
}

type recordedRequest struct {
	method string
	status int
}

type fakeRecorder struct {
	requests []recordedRequest
}

func (f *fakeRecorder) RecordGuardDecision(string, bool) {}

func (f *fakeRecorder) RecordProxyRequest(method string, status int, _ time.Duration) {
	f.requests = append(f.requests, recordedRequest{method: method, status: status})
}

func TestForwarderPreservesRequest(t *testing.T) {
	backend := newEchoBackend(t)
	recorder := &fakeRecorder{}
	forwarder, err := New(Options{BackendURL: backend.URL + "/v1", Prefix: "/api", Metrics: recorder})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "http://portal.local/api/orders/7?expand=items&page=2", strings.NewReader(`{"status":"ready"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer abc")
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "rt-1"})
	rec := httptest.NewRecorder()

	forwarder.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var got echo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, http.MethodPut, got.Method)
	assert.Equal(t, "/v1/orders/7", got.Path)
	assert.Equal(t, "expand=items&page=2", got.Query)
	assert.JSONEq(t, `{"status":"ready"}`, got.Body)
	assert.Equal(t, "refreshToken=rt-1", got.Cookie)
	assert.Equal(t, "Bearer abc", got.Auth)
	assert.Equal(t, strings.TrimPrefix(backend.URL, "http://"), got.Host)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "refreshToken=rt-2")

	require.Len(t, recorder.requests, 1)
	assert.Equal(t, recordedRequest{method: http.MethodPut, status: http.StatusCreated}, recorder.requests[0])
}

func TestForwarderPassesNoContent(t *testing.T) {
	backend := newEchoBackend(t)
	forwarder, err := New(Options{BackendURL: backend.URL + "/v1", Prefix: "/api"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	forwarder.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/orders/empty", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestForwarderUnreachableBackend(t *testing.T) {
	backend := newEchoBackend(t)
	backendURL := backend.URL
	backend.Close()

	forwarder, err := New(Options{BackendURL: backendURL, Prefix: "/api"})
	require.NoError(t, err)

	tests := map[string]string{
		http.MethodGet:    "Failed to fetch data from API",
		http.MethodPost:   "Failed to send data to API",
		http.MethodPut:    "Failed to update data in API",
		http.MethodDelete: "Failed to delete data in API",
	}
	for method, message := range tests {
		t.Run(method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			forwarder.ServeHTTP(rec, httptest.NewRequest(method, "/api/orders", strings.NewReader("{}")))

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, `{"error":"`+message+`"}`, rec.Body.String())
		})
	}
}

func TestNewRejectsBadBackend(t *testing.T) {
	_, err := New(Options{BackendURL: "backend:8080"})
	assert.Error(t, err)
}
