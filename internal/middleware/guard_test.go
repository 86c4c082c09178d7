package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-portal/internal/authz"
)

type recordedDecision struct {
	reason  string
	allowed bool
}

type fakeRecorder struct {
	decisions []recordedDecision
}

func (f *fakeRecorder) RecordGuardDecision(reason string, allowed bool) {
	f.decisions = append(f.decisions, recordedDecision{reason: reason, allowed: allowed})
}

func (f *fakeRecorder) RecordProxyRequest(string, int, time.Duration) {}

func tokenWithRole(t *testing.T, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1", "role": role}).
		SignedString([]byte("unknown-to-the-portal"))
	require.NoError(t, err)
	return token
}

func serveGuarded(guard *Guard, path string, token string) *httptest.ResponseRecorder {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, _ := DecisionFromContext(r.Context())
		w.Header().Set("X-Role", string(decision.Role))
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: authz.TokenCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	guard.Handler(next).ServeHTTP(rec, req)
	return rec
}

func TestGuard(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		token    string
		status   int
		location string
	}{
		{name: "public without cookie", path: "/signin", status: http.StatusOK},
		{name: "public with garbage cookie", path: "/unauthorized", token: "garbage", status: http.StatusOK},
		{name: "missing cookie", path: "/dashboard", status: http.StatusTemporaryRedirect, location: "/signin"},
		{name: "malformed cookie", path: "/dashboard/rider", token: "not.a.jwt", status: http.StatusTemporaryRedirect, location: "/signin"},
		{name: "wrong role", path: "/dashboard/admin", token: tokenWithRole(t, "Rider"), status: http.StatusTemporaryRedirect, location: "/unauthorized"},
		{name: "matching role", path: "/dashboard/rider/deliveries", token: tokenWithRole(t, "rider"), status: http.StatusOK},
		{name: "restaurant admin", path: "/dashboard/restaurant", token: tokenWithRole(t, "RestaurantAdmin"), status: http.StatusOK},
		{name: "unrestricted page", path: "/dashboard", token: tokenWithRole(t, "Customer"), status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveGuarded(NewGuard(authz.DefaultPolicy(), nil), tt.path, tt.token)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}
}

func TestGuardExposesDecisionAndRecordsMetrics(t *testing.T) {
	recorder := &fakeRecorder{}
	guard := NewGuard(authz.DefaultPolicy(), recorder)

	rec := serveGuarded(guard, "/dashboard/rider", tokenWithRole(t, "Rider"))
	assert.Equal(t, "Rider", rec.Header().Get("X-Role"))

	serveGuarded(guard, "/dashboard/rider", "")

	require.Len(t, recorder.decisions, 2)
	assert.Equal(t, recordedDecision{reason: "authorized", allowed: true}, recorder.decisions[0])
	assert.Equal(t, recordedDecision{reason: "missing_token", allowed: false}, recorder.decisions[1])
}
