package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/guidewisey/guidewise/internal/model"
	appErr "github.com/guidewisey/guidewise/internal/pkg/errors"
)

type fakeLoader map[string]*model.Session

func (f fakeLoader) Load(ctx context.Context, key string) (*model.Session, error) {
	if sess, ok := f[key]; ok {
		return sess, nil
	}
	return nil, appErr.ErrNotFound
}

type fakeParser struct{}

func (fakeParser) ParseToken(token string) (int64, error) {
	if token == "good" {
		return 9, nil
	}
	return 0, errors.New("bad token")
}

func newAuthEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	loader := fakeLoader{
		"user-sess": {Key: "user-sess", UserID: 5},
		"anon-sess": {Key: "anon-sess"},
	}
	r.Use(Session(loader, "sessionid"), Bearer(fakeParser{}), CSRF("csrftoken", "X-CSRFToken"))
	authed := r.Group("/", RequireUser())
	handler := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)}) }
	authed.GET("/me", handler)
	authed.POST("/ask", handler)
	r.POST("/login", handler)
	return r
}

func TestAuthAndCSRF(t *testing.T) {
	r := newAuthEngine()
	tests := []struct {
		name    string
		method  string
		path    string
		cookies map[string]string
		headers map[string]string
		code    int
	}{
		{name: "anonymous read rejected", method: http.MethodGet, path: "/me", code: http.StatusUnauthorized},
		{name: "anonymous session is not a user", method: http.MethodGet, path: "/me", cookies: map[string]string{"sessionid": "anon-sess"}, code: http.StatusUnauthorized},
		{name: "session read", method: http.MethodGet, path: "/me", cookies: map[string]string{"sessionid": "user-sess"}, code: http.StatusOK},
		{name: "unknown cookie ignored", method: http.MethodGet, path: "/me", cookies: map[string]string{"sessionid": "stale"}, code: http.StatusUnauthorized},
		{name: "session write without csrf", method: http.MethodPost, path: "/ask", cookies: map[string]string{"sessionid": "user-sess"}, code: http.StatusForbidden},
		{
			name: "session write with mismatched csrf", method: http.MethodPost, path: "/ask",
			cookies: map[string]string{"sessionid": "user-sess", "csrftoken": "abc"},
			headers: map[string]string{"X-CSRFToken": "xyz"},
			code:    http.StatusForbidden,
		},
		{
			name: "session write with csrf", method: http.MethodPost, path: "/ask",
			cookies: map[string]string{"sessionid": "user-sess", "csrftoken": "abc"},
			headers: map[string]string{"X-CSRFToken": "abc"},
			code:    http.StatusOK,
		},
		{name: "bearer write skips csrf", method: http.MethodPost, path: "/ask", headers: map[string]string{"Authorization": "Bearer good"}, code: http.StatusOK},
		{name: "bad bearer", method: http.MethodGet, path: "/me", headers: map[string]string{"Authorization": "Bearer nope"}, code: http.StatusUnauthorized},
		{name: "anonymous write skips csrf", method: http.MethodPost, path: "/login", code: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.cookies {
				req.AddCookie(&http.Cookie{Name: k, Value: v})
			}
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, tt.code, w.Code)
		})
	}
}

func TestCORSAllowlist(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com/"}, "X-CSRFToken"))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	require.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-CSRFToken")

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDEchoes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NotEmpty(t, w.Header().Get(HeaderRequestID))
}
