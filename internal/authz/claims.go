package authz

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMalformedToken = errors.New("malformed access token")

type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// DecodeClaims reads the payload segment of a compact token. Neither the
// header nor the signature is looked at.
func DecodeClaims(token string) (*Claims, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 || parts[1] == "" {
		return nil, ErrMalformedToken
	}

	payload, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	claims := &Claims{}
	if err := json.Unmarshal(payload, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	return claims, nil
}

// RoleFromToken returns the role claim of token in canonical form when known.
func RoleFromToken(token string) (Role, error) {
	claims, err := DecodeClaims(token)
	if err != nil {
		return "", err
	}

	role, _ := ParseRole(claims.Role)
	return role, nil
}
