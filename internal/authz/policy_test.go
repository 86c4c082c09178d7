package authz

import (
	"encoding/base64"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, role string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "user-1",
		"role": role,
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole("rider")
	assert.True(t, ok)
	assert.Equal(t, RoleRider, role)

	role, ok = ParseRole(" RestaurantAdmin ")
	assert.True(t, ok)
	assert.Equal(t, RoleRestaurantAdmin, role)

	role, ok = ParseRole("Courier")
	assert.False(t, ok)
	assert.Equal(t, Role("Courier"), role)
	assert.False(t, role.Valid())
}

func TestHomePath(t *testing.T) {
	assert.Equal(t, "/dashboard", HomePath(RoleCustomer))
	assert.Equal(t, "/dashboard/restaurant", HomePath(RoleRestaurant))
	assert.Equal(t, "/dashboard/restaurant", HomePath(RoleRestaurantAdmin))
	assert.Equal(t, "/dashboard/rider", HomePath("rider"))
	assert.Equal(t, "/dashboard/admin", HomePath(RoleAdmin))
	assert.Equal(t, "/", HomePath("Courier"))
}

func TestPolicyPublicRoutesAlwaysAllow(t *testing.T) {
	policy := DefaultPolicy()

	for _, path := range []string{"/", "/signin", "/signin/reset", "/signup", "/unauthorized"} {
		for _, token := range []string{"", "garbage", signedToken(t, "Rider")} {
			decision := policy.Decide(path, token)
			assert.True(t, decision.Allow, "path %s token %q", path, token)
			assert.Equal(t, ReasonPublic, decision.Reason)
		}
	}
}

func TestPolicyRootIsExactMatch(t *testing.T) {
	policy := DefaultPolicy()
	assert.True(t, policy.IsPublic("/"))
	assert.False(t, policy.IsPublic("/dashboard"))
	assert.False(t, policy.IsPublic("/signinx"))
}

func TestPolicyMissingTokenRedirectsToSignIn(t *testing.T) {
	policy := DefaultPolicy()

	for _, path := range []string{"/dashboard", "/dashboard/admin", "/orders/42"} {
		decision := policy.Decide(path, "")
		assert.False(t, decision.Allow)
		assert.Equal(t, "/signin", decision.Redirect)
		assert.Equal(t, ReasonMissingToken, decision.Reason)
	}
}

func TestPolicyMalformedTokenRedirectsToSignIn(t *testing.T) {
	policy := DefaultPolicy()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

	malformed := []string{
		"not-a-token",
		"h.p.s",
		header + ".%%%.sig",
		header + "." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".sig",
	}

	for _, token := range malformed {
		decision := policy.Decide("/dashboard/rider", token)
		assert.False(t, decision.Allow, token)
		assert.Equal(t, "/signin", decision.Redirect, token)
		assert.Equal(t, ReasonMalformedToken, decision.Reason, token)
	}
}

func TestPolicyRoleGating(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name     string
		role     string
		path     string
		allow    bool
		redirect string
	}{
		{name: "rider on admin dashboard", role: "Rider", path: "/dashboard/admin", redirect: "/unauthorized"},
		{name: "admin on admin dashboard", role: "Admin", path: "/dashboard/admin", allow: true},
		{name: "restaurant admin on restaurant dashboard", role: "RestaurantAdmin", path: "/dashboard/restaurant/menu", allow: true},
		{name: "customer on rider area", role: "Customer", path: "/rider/orders", redirect: "/unauthorized"},
		{name: "lowercase rider claim", role: "rider", path: "/rider", allow: true},
		{name: "unrestricted path", role: "Customer", path: "/dashboard", allow: true},
		{name: "unknown role on restricted path", role: "Courier", path: "/dashboard/rider", redirect: "/unauthorized"},
		{name: "unknown role on unrestricted path", role: "Courier", path: "/orders", allow: true},
		{name: "segment boundary", role: "Customer", path: "/dashboard/administrator", allow: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := policy.Decide(tt.path, signedToken(t, tt.role))
			assert.Equal(t, tt.allow, decision.Allow)
			assert.Equal(t, tt.redirect, decision.Redirect)
		})
	}
}

func TestPolicyMostSpecificRuleWins(t *testing.T) {
	policy := Policy{
		Rules: []RouteRule{
			{Prefix: "/dashboard", Roles: []Role{RoleCustomer}},
			{Prefix: "/dashboard/admin", Roles: []Role{RoleAdmin}},
		},
	}

	assert.True(t, policy.Allows(RoleAdmin, "/dashboard/admin/users"))
	assert.False(t, policy.Allows(RoleCustomer, "/dashboard/admin/users"))
	assert.True(t, policy.Allows(RoleCustomer, "/dashboard/orders"))
}

func TestPolicyEmptyPathsFallBackToDefaults(t *testing.T) {
	policy := Policy{}
	decision := policy.Decide("/dashboard", "")
	assert.Equal(t, "/signin", decision.Redirect)
}

func TestParseRules(t *testing.T) {
	rules, err := ParseRules("/rider=rider; /dashboard/admin=Admin ;/dashboard/restaurant=Restaurant|RestaurantAdmin")
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "/dashboard/restaurant", rules[0].Prefix)
	assert.Equal(t, []Role{RoleRestaurant, RoleRestaurantAdmin}, rules[0].Roles)
	assert.Equal(t, []Role{RoleRider}, rules[2].Roles)

	rules, err = ParseRules("")
	require.NoError(t, err)
	assert.Nil(t, rules)

	_, err = ParseRules("/rider=Courier")
	assert.Error(t, err)
	_, err = ParseRules("rider=Rider")
	assert.Error(t, err)
	_, err = ParseRules("/rider=")
	assert.Error(t, err)
}
