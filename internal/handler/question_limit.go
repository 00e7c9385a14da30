package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/guidewisey/guidewise/internal/middleware"
	appErr "github.com/guidewisey/guidewise/internal/pkg/errors"
	"github.com/guidewisey/guidewise/internal/service"
)

// GatedHandler runs after the question quota check with the resolved
// document and tracker.
type GatedHandler func(c *gin.Context, gate *service.GateResult)

// GateResolver extracts the identity and target document of a request.
type GateResolver func(c *gin.Context) (service.GateRequest, error)

// WithQuestionLimit resolves the request, enforces the quota and only then
// invokes next. Rejections never reach next.
func WithQuestionLimit(gate *service.Gate, resolve GateResolver, next GatedHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := resolve(c)
		if err != nil {
			handleError(c, err)
			return
		}
		res, err := gate.Resolve(c.Request.Context(), req)
		if err != nil {
			handleError(c, err)
			return
		}
		next(c, res)
	}
}

// SessionIdentity keys the gate by the caller's session, starting one when
// the caller has none.
func SessionIdentity(sessions *service.SessionService, cookies CookieConfig) GateResolver {
	return func(c *gin.Context) (service.GateRequest, error) {
		if sess := middleware.CurrentSession(c); sess != nil {
			return service.GateRequest{SessionKey: sess.Key, UserID: getUserID(c)}, nil
		}
		sess, err := sessions.Create(c.Request.Context(), getUserID(c))
		if err != nil {
			return service.GateRequest{}, err
		}
		cookies.setSession(c, sess.Key, sessions.TTL())
		c.Set(middleware.ContextSessionKey, sess)
		return service.GateRequest{SessionKey: sess.Key, UserID: getUserID(c)}, nil
	}
}

type documentRef struct {
	DocumentID flexID `json:"document_id"`
}

// BodyDocumentIdentity keys the gate by the authenticated user and the
// document_id of the JSON body. The body stays readable for the next handler.
func BodyDocumentIdentity() GateResolver {
	return func(c *gin.Context) (service.GateRequest, error) {
		var ref documentRef
		if err := c.ShouldBindBodyWith(&ref, binding.JSON); err != nil {
			return service.GateRequest{}, fmt.Errorf("%w: invalid request body", appErr.ErrInvalid)
		}
		return service.GateRequest{UserID: getUserID(c), DocumentID: int64(ref.DocumentID)}, nil
	}
}
