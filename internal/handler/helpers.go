package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/guidewisey/guidewise/internal/middleware"
	"github.com/guidewisey/guidewise/internal/pkg/errcode"
	appErr "github.com/guidewisey/guidewise/internal/pkg/errors"
	"github.com/guidewisey/guidewise/internal/pkg/response"
)

func getUserID(c *gin.Context) int64 {
	return middleware.UserID(c)
}

// flexID accepts a JSON number or a numeric string.
type flexID int64

func (f *flexID) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return err
	}
	*f = flexID(v)
	return nil
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// detail strips the sentinel prefix added by fmt.Errorf("%w: ...").
func detail(err, kind error, fallback string) string {
	msg := strings.TrimPrefix(err.Error(), kind.Error()+": ")
	if msg == err.Error() || msg == "" {
		return fallback
	}
	return msg
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get(middleware.ContextRequestIDKey)
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int64("user_id", getUserID(c)),
		zap.Error(err),
	)
	var fields appErr.FieldErrors
	switch {
	case errors.As(err, &fields):
		response.FieldError(c, http.StatusBadRequest, errcode.Invalid, "invalid request", fields)
	case errors.Is(err, appErr.ErrUnsupportedType):
		response.Error(c, http.StatusBadRequest, errcode.UnsupportedType, "Unsupported file type")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, errcode.Invalid, detail(err, appErr.ErrInvalid, "invalid request"))
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, errcode.Unauthorized, detail(err, appErr.ErrUnauthorized, "unauthorized"))
	case errors.Is(err, appErr.ErrQuotaExceeded):
		response.Error(c, http.StatusForbidden, errcode.QuotaExceeded, "Question limit reached")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, http.StatusForbidden, errcode.Forbidden, "forbidden")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusNotFound, errcode.NotFound, detail(err, appErr.ErrNotFound, "not found"))
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, http.StatusConflict, errcode.Conflict, "conflict")
	case errors.Is(err, appErr.ErrRetrieval):
		response.Error(c, http.StatusInternalServerError, errcode.RetrievalFailed, "S3 download failed: "+detail(err, appErr.ErrRetrieval, "unknown error"))
	case errors.Is(err, appErr.ErrExtraction):
		response.Error(c, http.StatusInternalServerError, errcode.ExtractFailed, "Text extraction failed")
	case errors.Is(err, appErr.ErrSummarization):
		response.Error(c, http.StatusInternalServerError, errcode.AIFailed, "AI explanation failed: "+detail(err, appErr.ErrSummarization, "unknown error"))
	case errors.Is(err, appErr.ErrAnswer):
		response.Error(c, http.StatusInternalServerError, errcode.AIFailed, "AI explanation failed: "+detail(err, appErr.ErrAnswer, "unknown error"))
	default:
		response.Error(c, http.StatusInternalServerError, errcode.Internal, "internal error")
	}
}
