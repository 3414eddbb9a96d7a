package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engram/pkg/auth"
)

func ownerCapturingHandler(t *testing.T, captured **auth.UserContext) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, err := auth.GetUserFromContext(r.Context())
		require.NoError(t, err)
		*captured = owner
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_ValidTokenResolvesOwner(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	t.Setenv("JWT_SECRET", "middleware-test-secret")

	generator, err := auth.NewJWTGenerator(auth.JWTGeneratorConfig{
		SigningMethod: "HS256",
		SecretKey:     "middleware-test-secret",
		Issuer:        "engram",
		Audience:      []string{"engram-api"},
		ExpiryTime:    time.Hour,
	})
	require.NoError(t, err)
	token, err := generator.GenerateToken("user-1", "user@example.com", []string{"authenticated"})
	require.NoError(t, err)

	var owner *auth.UserContext
	handler := Authenticate()(ownerCapturingHandler(t, &owner))

	req := httptest.NewRequest(http.MethodGet, "/api/v2/knowledge", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, owner)
	assert.Equal(t, "user-1", owner.UserID)
}

func TestAuthenticate_MissingHeaderRejected(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	t.Setenv("JWT_SECRET", "middleware-test-secret")

	handler := Authenticate()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without an owner identity")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v2/knowledge", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_MalformedHeaderRejected(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	t.Setenv("JWT_SECRET", "middleware-test-secret")

	handler := Authenticate()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without an owner identity")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v2/knowledge", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_GatewayPreAuthorizedInLambda(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "engram-api")

	var owner *auth.UserContext
	handler := Authenticate()(ownerCapturingHandler(t, &owner))

	req := httptest.NewRequest(http.MethodGet, "/api/v2/knowledge", nil)
	req.Header.Set("X-API-Gateway-Authorized", "true")
	req.Header.Set("X-User-ID", "user-9")
	req.Header.Set("X-User-Roles", "authenticated,admin")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, owner)
	assert.Equal(t, "user-9", owner.UserID)
	assert.Equal(t, []string{"authenticated", "admin"}, owner.Roles)
}

func TestAuthenticate_UnauthorizedWithoutGatewayMarkInLambda(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "engram-api")

	handler := Authenticate()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without an owner identity")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v2/knowledge", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClientIP_PrefersForwardedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:4242"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))
}
