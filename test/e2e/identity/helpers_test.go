package identity_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for identity service end-to-end
 * tests. This includes container setup, raw HTTP helpers, and assertions.
 */

const (
	testImageName = "nexhire-identity-test:latest"

	// 32+ bytes, required by the HS256 codec.
	testJWTSecret = "e2e-test-secret-0123456789abcdefghij"

	// With IDENTITY_TEST_MODE=true every verification code is this value,
	// so tests never need to intercept outbound email or SMS.
	testModeOTPCode = "000000"

	testPassword = "S3curepass"
)

// TestMain manages the test lifecycle, builds the Docker image once before
// all tests and cleans it up after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Identity Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Identity Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/identity/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// setupIdentityContainer starts the identity service in a container and
// returns the base URL. Rate limits are relaxed so rapid test requests
// don't trip the production limits.
func setupIdentityContainer(t *testing.T) (string, func()) {
	t.Helper()
	return startContainer(t, map[string]string{
		"IDENTITY_JWT_SECRET":    testJWTSecret,
		"IDENTITY_DATABASE_FILE": "/identity.db",
		"IDENTITY_PEPPER_FILE":   "/pepper",
		"IDENTITY_ISSUER":        "nexhire-identity",
		"IDENTITY_TEST_MODE":     "true",
		"ENV":                    "test",
		"LOG_LEVEL":              "info",
		"LOG_FORMAT":             "json",

		"RATELIMIT_STRICT_REQUESTS":   "1000",
		"RATELIMIT_STRICT_WINDOW_SEC": "60",
		"RATELIMIT_STRICT_BURST":      "1000",
		"RATELIMIT_MODERATE_REQUESTS": "1000",
		"RATELIMIT_MODERATE_BURST":    "1000",
	})
}

// setupIdentityContainerWithDefaultRateLimits starts the identity service
// with PRODUCTION rate limits. Only for tests that verify rate limiting
// actually works; everything else should use setupIdentityContainer().
func setupIdentityContainerWithDefaultRateLimits(t *testing.T) (string, func()) {
	t.Helper()
	return startContainer(t, map[string]string{
		"IDENTITY_JWT_SECRET":    testJWTSecret,
		"IDENTITY_DATABASE_FILE": "/identity.db",
		"IDENTITY_PEPPER_FILE":   "/pepper",
		"IDENTITY_ISSUER":        "nexhire-identity",
		"IDENTITY_TEST_MODE":     "true",
		"ENV":                    "test",
		"LOG_LEVEL":              "info",
		"LOG_FORMAT":             "json",
	})
}

func startContainer(t *testing.T, env map[string]string) (string, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, cleanup
}

// postJSON sends a JSON POST and decodes the JSON response into out (when
// out is non-nil). Returns the HTTP status code.
func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	return doJSON(t, url, body, out, "")
}

// postJSONAuth is postJSON with a bearer token attached.
func postJSONAuth(t *testing.T, url string, body any, out any, accessToken string) int {
	t.Helper()
	return doJSON(t, url, body, out, accessToken)
}

func doJSON(t *testing.T, url string, body any, out any, accessToken string) int {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if out != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, out), "response body: %s", raw)
	}
	return resp.StatusCode
}

// getJSON fetches a URL and decodes the JSON response into out.
func getJSON(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if out != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, out), "response body: %s", raw)
	}
	return resp.StatusCode
}

// Wire types mirrored from the HTTP layer. Only the fields the tests
// assert on.

type startResponse struct {
	PendingToken string `json:"pending_token"`
	Channel      string `json:"channel"`
	SentTo       string `json:"sent_to"`
	ExpiresIn    int64  `json:"expires_in"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// registerUser drives a full registration through the API and returns the
// issued token pair.
func registerUser(t *testing.T, baseURL, identifier, password string) tokenResponse {
	t.Helper()

	var start startResponse
	status := postJSON(t, baseURL+"/v1/register/start", map[string]any{
		"identifier":   identifier,
		"display_name": "E2E Tester",
		"password":     password,
		"role":         "candidate",
	}, &start)
	require.Equal(t, http.StatusAccepted, status)
	require.NotEmpty(t, start.PendingToken)

	var pair tokenResponse
	status = postJSON(t, baseURL+"/v1/register/verify", map[string]any{
		"identifier":    identifier,
		"pending_token": start.PendingToken,
		"code":          testModeOTPCode,
	}, &pair)
	require.Equal(t, http.StatusCreated, status)
	assertTokenResponse(t, pair)
	return pair
}

// assertTokenResponse verifies a token response has all required fields.
func assertTokenResponse(t *testing.T, pair tokenResponse) {
	t.Helper()
	require.NotEmpty(t, pair.AccessToken, "Access token should not be empty")
	require.NotEmpty(t, pair.RefreshToken, "Refresh token should not be empty")
	require.Equal(t, "Bearer", pair.TokenType, "Token type should be Bearer")
	require.Positive(t, pair.ExpiresIn, "expires_in should be set")
}
