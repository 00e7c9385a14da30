package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/guidewisey/guidewise/internal/middleware"
	"github.com/guidewisey/guidewise/internal/service"
)

type RouterDeps struct {
	Auth      *AuthHandler
	Documents *DocumentHandler
	QA        *QAHandler
	Files     *FileHandler
	Health    *HealthHandler
	Sessions  *service.SessionService
	Tokens    middleware.TokenParser
	// SessionGate guards ingestion, keyed by the caller's session.
	SessionGate *service.Gate
	// DocumentGate guards questions, keyed by user and document.
	DocumentGate *service.Gate
	Cookies      CookieConfig
	CSRFHeader   string
	// RateLimit runs after identity resolution so buckets can key by user.
	RateLimit gin.HandlerFunc
}

// RegisterRoutes mounts the API on api. Identity middlewares run for every
// route so optional endpoints can still see the caller.
func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", deps.Health.Check)

	api.Use(
		middleware.Session(deps.Sessions, deps.Cookies.SessionName),
		middleware.Bearer(deps.Tokens),
		middleware.CSRF(deps.Cookies.CSRFName, deps.CSRFHeader),
	)
	if deps.RateLimit != nil {
		api.Use(deps.RateLimit)
	}

	accounts := api.Group("/accounts")
	accounts.POST("/register", deps.Auth.Register)
	accounts.POST("/login", deps.Auth.Login)
	accounts.GET("/session", deps.Auth.Session)
	accounts.GET("/csrf", deps.Auth.CSRF)

	authAccounts := accounts.Group("")
	authAccounts.Use(middleware.RequireUser())
	authAccounts.POST("/logout", deps.Auth.Logout)
	authAccounts.GET("/me", deps.Auth.Me)

	authGroup := api.Group("")
	authGroup.Use(middleware.RequireUser())

	sessionIdentity := SessionIdentity(deps.Sessions, deps.Cookies)
	authGroup.POST("/documents/process", WithQuestionLimit(deps.SessionGate, sessionIdentity, deps.Documents.Process))
	authGroup.POST("/documents/process-text", WithQuestionLimit(deps.SessionGate, sessionIdentity, deps.Documents.ProcessText))

	authGroup.POST("/files/upload", deps.Files.Upload)
	authGroup.POST("/files/presign", deps.Files.Presign)

	authGroup.POST("/qa/ask", WithQuestionLimit(deps.DocumentGate, BodyDocumentIdentity(), deps.QA.Ask))
	authGroup.GET("/qa/remaining", deps.QA.Remaining)
	authGroup.GET("/conversations/:document_id", deps.QA.History)

	authGroup.DELETE("/admin/documents/:id", deps.Documents.Delete)
}
