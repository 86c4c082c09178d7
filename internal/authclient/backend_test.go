package authclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeBackend mimics the delivery API endpoints the portal depends on.
type fakeBackend struct {
	t      *testing.T
	server *httptest.Server

	mu           sync.Mutex
	validToken   string
	refreshFails bool
	role         string
	bodies       map[string][]byte

	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32
	unauthorized atomic.Int32

	// refreshGate, when set, makes the refresh handler wait until that many
	// protected requests were rejected.
	refreshGate atomic.Int32
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	b := &fakeBackend{t: t, role: "Customer", bodies: map[string][]byte{}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", b.login)
	mux.HandleFunc("POST /auth/refresh-token", b.refresh)
	mux.HandleFunc("GET /auth/validate", b.validate)
	mux.HandleFunc("POST /auth/logout", b.logout)
	mux.HandleFunc("POST /auth/register/customer", b.register)
	mux.HandleFunc("POST /auth/register/rider", b.register)
	mux.HandleFunc("/orders", b.orders)
	mux.HandleFunc("/always-unauthorized", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "nope"})
	})
	mux.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{})
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) URL() string {
	return b.server.URL
}

func (b *fakeBackend) expireToken() {
	b.mu.Lock()
	b.validToken = ""
	b.mu.Unlock()
}

func (b *fakeBackend) failRefresh() {
	b.mu.Lock()
	b.refreshFails = true
	b.mu.Unlock()
}

func (b *fakeBackend) body(path string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[path]
}

func (b *fakeBackend) issue() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "user-1",
		"role": b.role,
		"jti":  uuid.NewString(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("backend-secret"))
	require.NoError(b.t, err)
	b.validToken = signed
	return signed
}

func (b *fakeBackend) authorized(r *http.Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.validToken != "" && r.Header.Get("Authorization") == "Bearer "+b.validToken
}

func (b *fakeBackend) record(r *http.Request) []byte {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.bodies[r.URL.Path] = body
	b.mu.Unlock()
	return body
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.Unmarshal(b.record(r), &req)

	switch req.Password {
	case "secret":
	case "silent":
		writeJSON(w, http.StatusBadRequest, map[string]string{})
		return
	default:
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: "rt-1", Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken": b.issue(),
		"user": map[string]any{
			"id":       "user-1",
			"fullName": "Ada Customer",
			"email":    req.Email,
			"role":     b.role,
			"phone":    "+254700000000",
		},
	})
}

func (b *fakeBackend) refresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)

	if gate := b.refreshGate.Load(); gate > 0 {
		deadline := time.Now().Add(2 * time.Second)
		for b.unauthorized.Load() < gate && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		time.Sleep(50 * time.Millisecond)
	}

	b.mu.Lock()
	fails := b.refreshFails
	b.mu.Unlock()

	if fails {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Refresh token expired"})
		return
	}
	if cookie, err := r.Cookie("refreshToken"); err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Missing refresh token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": b.issue()})
}

func (b *fakeBackend) validate(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "jwt expired"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *fakeBackend) logout(w http.ResponseWriter, r *http.Request) {
	b.logoutCalls.Add(1)
	b.record(r)
	w.WriteHeader(http.StatusOK)
}

func (b *fakeBackend) register(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	_ = json.Unmarshal(b.record(r), &req)

	if req["email"] == "taken@example.com" {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Email already registered"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user": map[string]any{
			"id":       "user-2",
			"fullName": req["fullName"],
			"email":    req["email"],
			"role":     req["role"],
		},
	})
}

func (b *fakeBackend) orders(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		b.unauthorized.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "jwt expired"})
		return
	}
	body := b.record(r)
	writeJSON(w, http.StatusOK, map[string]string{"method": r.Method, "body": string(body)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type testStack struct {
	*Stack
	nav *RecordingNavigator
}

func newTestStack(t *testing.T, backend *fakeBackend) testStack {
	t.Helper()
	return newTestStackWithStorage(t, backend, nil)
}

func newTestStackWithStorage(t *testing.T, backend *fakeBackend, storage Storage) testStack {
	t.Helper()

	nav := &RecordingNavigator{}
	stack, err := NewStack(context.Background(), Options{
		PortalURL:      backend.URL(),
		APIBaseURL:     backend.URL(),
		Storage:        storage,
		Navigator:      nav,
		RefreshTimeout: 2 * time.Second,
		RequestTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return testStack{Stack: stack, nav: nav}
}

func signIn(t *testing.T, stack testStack) {
	t.Helper()
	_, err := stack.Session.SignIn(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)
}

func requireCleared(t *testing.T, stack testStack) {
	t.Helper()
	mirror, err := stack.Credentials.Mirror(context.Background())
	require.NoError(t, err)
	require.Empty(t, mirror.MemoryToken)
	require.Empty(t, mirror.StorageToken)
	require.Empty(t, mirror.CookieToken)
	require.Empty(t, mirror.CookieRole)
	require.Nil(t, mirror.StoredUser)
}
