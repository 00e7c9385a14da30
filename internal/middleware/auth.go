package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/guidewisey/guidewise/internal/model"
	"github.com/guidewisey/guidewise/internal/pkg/errcode"
	appErr "github.com/guidewisey/guidewise/internal/pkg/errors"
	"github.com/guidewisey/guidewise/internal/pkg/response"
)

const (
	ContextUserIDKey  = "user_id"
	ContextSessionKey = "session"
	// ContextSessionAuthKey marks requests whose user came from the session
	// cookie rather than a bearer token.
	ContextSessionAuthKey = "session_auth"
)

type SessionLoader interface {
	Load(ctx context.Context, key string) (*model.Session, error)
}

type TokenParser interface {
	ParseToken(token string) (int64, error)
}

// Session attaches the live session named by the cookie, if any. Unknown or
// expired cookies are ignored.
func Session(loader SessionLoader, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, err := c.Cookie(cookieName)
		if err != nil || key == "" {
			c.Next()
			return
		}
		sess, err := loader.Load(c.Request.Context(), key)
		if err != nil {
			if !appErr.IsNotFound(err) {
				logutil.GetLogger(c.Request.Context()).Error("load session failed", zap.Error(err))
			}
			c.Next()
			return
		}
		c.Set(ContextSessionKey, sess)
		if !sess.Anonymous() {
			c.Set(ContextUserIDKey, sess.UserID)
			c.Set(ContextSessionAuthKey, true)
		}
		c.Next()
	}
}

// Bearer authenticates "Authorization: Bearer <jwt>" requests. A present but
// invalid token is rejected.
func Bearer(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, http.StatusUnauthorized, errcode.Unauthorized, "invalid authorization")
			c.Abort()
			return
		}
		userID, err := parser.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, http.StatusUnauthorized, errcode.Unauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextUserIDKey, userID)
		c.Set(ContextSessionAuthKey, false)
		c.Next()
	}
}

func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) <= 0 {
			response.Error(c, http.StatusUnauthorized, errcode.Unauthorized, "authentication credentials were not provided")
			c.Abort()
			return
		}
		c.Next()
	}
}

func UserID(c *gin.Context) int64 {
	v, _ := c.Get(ContextUserIDKey)
	id, _ := v.(int64)
	return id
}

func CurrentSession(c *gin.Context) *model.Session {
	v, _ := c.Get(ContextSessionKey)
	sess, _ := v.(*model.Session)
	return sess
}
