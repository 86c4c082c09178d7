package apierror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorText(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: missing", New("NOT_FOUND", "missing", "", http.StatusNotFound).Error())
	assert.Equal(t, "METHOD_NOT_ALLOWED: method not allowed (PATCH)", MethodNotAllowed(http.MethodPatch).Error())

	var nilErr *APIError
	assert.Empty(t, nilErr.Error())
	assert.NoError(t, nilErr.Unwrap())
}

func TestUpstreamKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Upstream(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus)
	assert.Equal(t, "dial tcp: connection refused", err.Details)

	var apiErr *APIError
	require.ErrorAs(t, error(err), &apiErr)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", apiErr.Code)
}
