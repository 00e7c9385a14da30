package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/guidewisey/guidewise/internal/middleware"
	"github.com/guidewisey/guidewise/internal/model"
	"github.com/guidewisey/guidewise/internal/pkg/errcode"
	"github.com/guidewisey/guidewise/internal/pkg/response"
	"github.com/guidewisey/guidewise/internal/service"
)

type AuthHandler struct {
	auth     *service.AuthService
	sessions *service.SessionService
	cookies  CookieConfig
}

func NewAuthHandler(auth *service.AuthService, sessions *service.SessionService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions, cookies: cookies}
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.Invalid, "invalid request")
		return
	}
	user, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Password2: req.Password2,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	h.ensureCSRF(c)
	response.Created(c, gin.H{"message": "User created", "id": user.ID})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.Invalid, "invalid request")
		return
	}
	user, token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, errcode.Unauthorized, "Invalid credentials")
		return
	}
	oldKey := ""
	if sess := middleware.CurrentSession(c); sess != nil {
		oldKey = sess.Key
	}
	sess, err := h.sessions.Rotate(c.Request.Context(), oldKey, user.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	h.cookies.setSession(c, sess.Key, h.sessions.TTL())
	// a fresh token after login, as the previous one may have been observed
	h.cookies.setCSRF(c, service.NewCSRFToken())
	logutil.GetLogger(c.Request.Context()).Info("user logged in", zap.Int64("user_id", user.ID))
	response.Success(c, gin.H{"message": "Logged in", "token": token, "user": toUserResponse(user)})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if sess := middleware.CurrentSession(c); sess != nil {
		if err := h.sessions.Destroy(c.Request.Context(), sess.Key); err != nil {
			handleError(c, err)
			return
		}
	}
	h.cookies.clearSession(c)
	response.Success(c, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.auth.GetUser(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, toUserResponse(user))
}

// Session reports the login state without failing for anonymous callers.
func (h *AuthHandler) Session(c *gin.Context) {
	userID := getUserID(c)
	if userID <= 0 {
		response.Success(c, gin.H{"authenticated": false})
		return
	}
	user, err := h.auth.GetUser(c.Request.Context(), userID)
	if err != nil {
		response.Success(c, gin.H{"authenticated": false})
		return
	}
	response.Success(c, gin.H{"authenticated": true, "user": toUserResponse(user)})
}

func (h *AuthHandler) CSRF(c *gin.Context) {
	token := h.ensureCSRF(c)
	response.Success(c, gin.H{"detail": "CSRF cookie set", "csrfToken": token})
}

func (h *AuthHandler) ensureCSRF(c *gin.Context) string {
	token, err := c.Cookie(h.cookies.CSRFName)
	if err != nil || token == "" {
		token = service.NewCSRFToken()
	}
	h.cookies.setCSRF(c, token)
	return token
}
