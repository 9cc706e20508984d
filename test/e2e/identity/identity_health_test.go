package identity_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLivezEndpoint verifies the liveness check endpoint works on a fresh
// container.
func TestLivezEndpoint(t *testing.T) {
	baseURL, cleanup := setupIdentityContainer(t)
	defer cleanup()

	var health healthResponse
	status := getJSON(t, baseURL+"/livez", &health)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", health.Status)

	t.Logf("Livez endpoint is healthy")
}

// TestReadyzEndpoint verifies the readiness check includes a database ping.
func TestReadyzEndpoint(t *testing.T) {
	baseURL, cleanup := setupIdentityContainer(t)
	defer cleanup()

	var health healthResponse
	status := getJSON(t, baseURL+"/readyz", &health)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", health.Status)
	require.NotEmpty(t, health.Version)

	t.Logf("Readyz endpoint is healthy (version %s)", health.Version)
}
