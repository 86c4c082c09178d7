package authz

import (
	"fmt"
	"sort"
	"strings"
)

// Cookie names shared by the guard and the client that sets them.
const (
	TokenCookie = "accessToken"
	RoleCookie  = "userRole"
)

// RouteRule restricts every path under Prefix to the listed roles.
type RouteRule struct {
	Prefix string
	Roles  []Role
}

type Policy struct {
	SignInPath       string
	UnauthorizedPath string
	PublicRoutes     []string
	Rules            []RouteRule
}

type Reason string

const (
	ReasonPublic         Reason = "public"
	ReasonMissingToken   Reason = "missing_token"
	ReasonMalformedToken Reason = "malformed_token"
	ReasonForbiddenRole  Reason = "forbidden_role"
	ReasonAuthorized     Reason = "authorized"
)

type Decision struct {
	Allow    bool
	Redirect string
	Reason   Reason
	Role     Role
}

func DefaultPublicRoutes() []string {
	return []string{"/", "/signin", "/signup", "/unauthorized", "/health", "/favicon.ico"}
}

func DefaultRules() []RouteRule {
	return []RouteRule{
		{Prefix: "/dashboard/admin", Roles: []Role{RoleAdmin}},
		{Prefix: "/dashboard/restaurant", Roles: []Role{RoleRestaurant, RoleRestaurantAdmin}},
		{Prefix: "/dashboard/rider", Roles: []Role{RoleRider}},
		{Prefix: "/rider", Roles: []Role{RoleRider}},
		{Prefix: "/customer", Roles: []Role{RoleCustomer}},
	}
}

func DefaultPolicy() Policy {
	return Policy{
		SignInPath:       "/signin",
		UnauthorizedPath: "/unauthorized",
		PublicRoutes:     DefaultPublicRoutes(),
		Rules:            DefaultRules(),
	}
}

// IsPublic reports whether path is on the allow-list. The root entry "/"
// only matches exactly; every other entry also matches its sub-paths.
func (p Policy) IsPublic(path string) bool {
	for _, route := range p.PublicRoutes {
		if matchPrefix(path, route) {
			return true
		}
	}
	return false
}

// RequiredRoles returns the roles of the most specific rule covering path.
func (p Policy) RequiredRoles(path string) ([]Role, bool) {
	var (
		best  RouteRule
		found bool
	)
	for _, rule := range p.Rules {
		if !matchPrefix(path, rule.Prefix) {
			continue
		}
		if !found || len(rule.Prefix) > len(best.Prefix) {
			best = rule
			found = true
		}
	}
	return best.Roles, found
}

// Allows is the single role check used by every role-gated surface.
func (p Policy) Allows(role Role, path string) bool {
	required, restricted := p.RequiredRoles(path)
	if !restricted {
		return true
	}

	canonical, known := ParseRole(string(role))
	if !known {
		return false
	}

	for _, allowed := range required {
		if allowed == canonical {
			return true
		}
	}
	return false
}

// Decide runs the navigation algorithm for path given the token cookie value.
// It never fails: every undecodable token resolves to a sign-in redirect.
func (p Policy) Decide(path string, token string) Decision {
	if p.IsPublic(path) {
		return Decision{Allow: true, Reason: ReasonPublic}
	}

	if strings.TrimSpace(token) == "" {
		return Decision{Redirect: p.signIn(), Reason: ReasonMissingToken}
	}

	claims, err := DecodeClaims(token)
	if err != nil {
		return Decision{Redirect: p.signIn(), Reason: ReasonMalformedToken}
	}

	role, _ := ParseRole(claims.Role)
	if !p.Allows(role, path) {
		return Decision{Redirect: p.unauthorized(), Reason: ReasonForbiddenRole, Role: role}
	}

	return Decision{Allow: true, Reason: ReasonAuthorized, Role: role}
}

func (p Policy) signIn() string {
	if p.SignInPath == "" {
		return "/signin"
	}
	return p.SignInPath
}

func (p Policy) unauthorized() string {
	if p.UnauthorizedPath == "" {
		return "/unauthorized"
	}
	return p.UnauthorizedPath
}

// ParseRules reads rules in the form "/prefix=RoleA|RoleB;/other=RoleC".
func ParseRules(raw string) ([]RouteRule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var rules []RouteRule
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		prefix, rolesRaw, ok := strings.Cut(entry, "=")
		prefix = strings.TrimSpace(prefix)
		if !ok || !strings.HasPrefix(prefix, "/") {
			return nil, fmt.Errorf("invalid route rule %q", entry)
		}

		var roles []Role
		for _, name := range strings.Split(rolesRaw, "|") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			role, known := ParseRole(name)
			if !known {
				return nil, fmt.Errorf("unknown role %q in route rule %q", name, entry)
			}
			roles = append(roles, role)
		}
		if len(roles) == 0 {
			return nil, fmt.Errorf("route rule %q has no roles", entry)
		}

		rules = append(rules, RouteRule{Prefix: prefix, Roles: roles})
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return len(rules[i].Prefix) > len(rules[j].Prefix)
	})

	return rules, nil
}

func matchPrefix(path string, prefix string) bool {
	if prefix == "" {
		return false
	}
	if prefix == "/" {
		return path == "/"
	}

	prefix = strings.TrimSuffix(prefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
