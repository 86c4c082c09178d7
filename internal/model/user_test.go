package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-portal/internal/authz"
)

func TestUserKeepsUnknownFields(t *testing.T) {
	raw := `{"id":"1","fullName":"Ada","email":"a@b.com","role":"Rider","vehicleREG":"KA-01","rating":4.5}`

	var user User
	require.NoError(t, json.Unmarshal([]byte(raw), &user))
	assert.Equal(t, "1", user.ID)
	assert.Equal(t, authz.RoleRider, user.Role)
	assert.JSONEq(t, `"KA-01"`, string(user.Extra["vehicleREG"]))

	encoded, err := json.Marshal(user)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(encoded))
}

func TestUserAcceptsNumericID(t *testing.T) {
	var user User
	require.NoError(t, json.Unmarshal([]byte(`{"id":42,"role":"Admin"}`), &user))
	assert.Equal(t, "42", user.ID)
	assert.Empty(t, user.Extra)
}

func TestRegisterRiderRequestFlattens(t *testing.T) {
	encoded, err := json.Marshal(RegisterRiderRequest{
		RegisterCustomerRequest: RegisterCustomerRequest{FullName: "R", Email: "r@b.com", Password: "x", Role: "Rider"},
		VehicleREG:              "KA-01",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fullName":"R","email":"r@b.com","password":"x","role":"Rider","vehicleREG":"KA-01"}`, string(encoded))
}
