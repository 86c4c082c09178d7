// Package authz holds the role model and the route authorization policy shared
// by the edge guard and the client session.
//
// Role claims are decoded without signature verification. The result is a
// navigation hint only; the backend re-checks every protected operation.
package authz

import "strings"

type Role string

const (
	RoleCustomer        Role = "Customer"
	RoleRestaurant      Role = "Restaurant"
	RoleRestaurantAdmin Role = "RestaurantAdmin"
	RoleRider           Role = "Rider"
	RoleAdmin           Role = "Admin"
)

var knownRoles = []Role{
	RoleCustomer,
	RoleRestaurant,
	RoleRestaurantAdmin,
	RoleRider,
	RoleAdmin,
}

// ParseRole maps a role string to its canonical form, ignoring case.
func ParseRole(raw string) (Role, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, role := range knownRoles {
		if strings.EqualFold(trimmed, string(role)) {
			return role, true
		}
	}
	return Role(trimmed), false
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

func (r Role) String() string {
	return string(r)
}

// HomePath is the dashboard a role lands on after an unauthorized navigation.
func HomePath(role Role) string {
	canonical, _ := ParseRole(string(role))
	switch canonical {
	case RoleCustomer:
		return "/dashboard"
	case RoleRestaurant, RoleRestaurantAdmin:
		return "/dashboard/restaurant"
	case RoleRider:
		return "/dashboard/rider"
	case RoleAdmin:
		return "/dashboard/admin"
	default:
		return "/"
	}
}
