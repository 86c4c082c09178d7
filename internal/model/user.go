package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"delivery-portal/internal/authz"
)

// User is the authenticated profile returned by the backend. Fields the
// portal does not know about are kept in Extra so a stored copy round-trips.
type User struct {
	ID       string
	FullName string
	Email    string
	Role     authz.Role
	Extra    map[string]json.RawMessage
}

var knownUserKeys = map[string]struct{}{
	"id":       {},
	"fullName": {},
	"email":    {},
	"role":     {},
}

func (u User) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Extra)+4)
	for key, value := range u.Extra {
		out[key] = value
	}
	out["id"] = u.ID
	out["fullName"] = u.FullName
	out["email"] = u.Email
	out["role"] = u.Role
	return json.Marshal(out)
}

func (u *User) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*u = User{}
	u.ID = scalarString(raw["id"])
	u.FullName = scalarString(raw["fullName"])
	u.Email = scalarString(raw["email"])
	u.Role = authz.Role(scalarString(raw["role"]))

	for key, value := range raw {
		if _, known := knownUserKeys[key]; known {
			continue
		}
		if u.Extra == nil {
			u.Extra = map[string]json.RawMessage{}
		}
		u.Extra[key] = value
	}

	return nil
}

// scalarString accepts both JSON strings and numbers; backends disagree on
// whether ids are numeric.
func scalarString(value json.RawMessage) string {
	value = bytes.TrimSpace(value)
	if len(value) == 0 || bytes.Equal(value, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return s
	}
	return strings.Trim(string(value), `"`)
}
