package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterLoginMeLogout(t *testing.T) {
	env := setupRouter(t)
	c := newClient(t, env)

	resp := c.get("/api/v1/accounts/session")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"authenticated":false}`, string(resp.Data))

	resp = c.get("/api/v1/accounts/me")
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	registerAndLogin(t, c, "alice")

	resp = c.get("/api/v1/accounts/me")
	require.Equal(t, http.StatusOK, resp.Code)
	var me struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	decodeData(t, resp, &me)
	require.Equal(t, "alice", me.Username)
	require.Equal(t, "alice@example.com", me.Email)

	resp = c.send(http.MethodPost, "/api/v1/accounts/logout", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Empty(t, c.cookies["sessionid"])

	resp = c.get("/api/v1/accounts/me")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRegisterValidation(t *testing.T) {
	env := setupRouter(t)
	c := newClient(t, env)

	resp := c.send(http.MethodPost, "/api/v1/accounts/register", map[string]string{
		"username":  "bob",
		"email":     "bob@example.com",
		"password":  testPassword,
		"password2": testPassword + "x",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Fields["password"], "Passwords must match")

	registerAndLogin(t, c, "bob")
	other := newClient(t, env)
	resp = other.send(http.MethodPost, "/api/v1/accounts/register", map[string]string{
		"username":  "bob",
		"email":     "bob2@example.com",
		"password":  testPassword,
		"password2": testPassword,
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.NotEmpty(t, resp.Fields["username"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := setupRouter(t)
	c := newClient(t, env)
	registerAndLogin(t, c, "carol")

	other := newClient(t, env)
	resp := other.send(http.MethodPost, "/api/v1/accounts/login", map[string]string{
		"username": "carol",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Equal(t, "Invalid credentials", resp.Error.Message)
	require.Empty(t, other.cookies["sessionid"])
}

func TestCSRFEndpointAndEnforcement(t *testing.T) {
	env := setupRouter(t)
	c := newClient(t, env)

	resp := c.get("/api/v1/accounts/csrf")
	require.Equal(t, http.StatusOK, resp.Code)
	var out struct {
		Detail    string `json:"detail"`
		CSRFToken string `json:"csrfToken"`
	}
	decodeData(t, resp, &out)
	require.Equal(t, "CSRF cookie set", out.Detail)
	require.Equal(t, c.cookies["csrftoken"], out.CSRFToken)

	registerAndLogin(t, c, "dave")

	c.csrf = false
	resp = c.send(http.MethodPost, "/api/v1/documents/process-text", map[string]string{
		"text": "A long enough letter from the council.",
	})
	require.Equal(t, http.StatusForbidden, resp.Code)
	require.Equal(t, "csrf_failed", resp.Error.Code)

	// reads are not checked
	resp = c.get("/api/v1/accounts/me")
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestBearerTokenSkipsCSRF(t *testing.T) {
	env := setupRouter(t)
	c := newClient(t, env)
	registerAndLogin(t, c, "erin")

	_, token, err := env.auth.Login(context.Background(), "erin", testPassword)
	require.NoError(t, err)

	api := newClient(t, env)
	api.token = token
	resp := api.get("/api/v1/accounts/me")
	require.Equal(t, http.StatusOK, resp.Code)

	docID := processText(t, api)
	resp = api.send(http.MethodPost, "/api/v1/qa/ask", map[string]interface{}{
		"document_id": docID,
		"question":    "When is it due?",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	api.token = "not-a-token"
	resp = api.get("/api/v1/accounts/me")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestHealth(t *testing.T) {
	env := setupRouter(t)
	c := newClient(t, env)
	resp := c.get("/api/v1/health")
	require.Equal(t, http.StatusOK, resp.Code)
}
