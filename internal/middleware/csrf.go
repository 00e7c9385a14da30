package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guidewisey/guidewise/internal/pkg/errcode"
	"github.com/guidewisey/guidewise/internal/pkg/response"
)

// CSRF enforces the double-submit cookie on unsafe methods of requests
// authenticated by the session cookie. Bearer and anonymous requests pass.
func CSRF(cookieName, headerName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			c.Next()
			return
		}
		if viaSession, _ := c.Get(ContextSessionAuthKey); viaSession != true {
			c.Next()
			return
		}
		cookie, err := c.Cookie(cookieName)
		if err != nil || cookie == "" {
			response.Error(c, http.StatusForbidden, errcode.CSRFFailed, "CSRF Failed: CSRF cookie not set.")
			c.Abort()
			return
		}
		header := c.GetHeader(headerName)
		if header == "" || subtle.ConstantTimeCompare([]byte(header), []byte(cookie)) != 1 {
			response.Error(c, http.StatusForbidden, errcode.CSRFFailed, "CSRF Failed: CSRF token missing or incorrect.")
			c.Abort()
			return
		}
		c.Next()
	}
}
