package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const csrfCookieMaxAge = 365 * 24 * time.Hour

type CookieConfig struct {
	SessionName string
	CSRFName    string
	Domain      string
	Secure      bool
	SameSite    string
}

func (cfg CookieConfig) sameSite() http.SameSite {
	switch strings.ToLower(cfg.SameSite) {
	case "none":
		return http.SameSiteNoneMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteLaxMode
	}
}

func (cfg CookieConfig) set(c *gin.Context, name, value string, maxAge time.Duration, httpOnly bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(maxAge / time.Second),
		Secure:   cfg.Secure,
		HttpOnly: httpOnly,
		SameSite: cfg.sameSite(),
	})
}

func (cfg CookieConfig) setSession(c *gin.Context, key string, ttl time.Duration) {
	cfg.set(c, cfg.SessionName, key, ttl, true)
}

func (cfg CookieConfig) clearSession(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.SessionName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   -1,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.sameSite(),
	})
}

// setCSRF issues the token readable by scripts so they can echo it back in
// the CSRF header.
func (cfg CookieConfig) setCSRF(c *gin.Context, token string) {
	cfg.set(c, cfg.CSRFName, token, csrfCookieMaxAge, false)
}
