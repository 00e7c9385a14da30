package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	appErr "github.com/guidewisey/guidewise/internal/pkg/errors"
	"github.com/guidewisey/guidewise/internal/pkg/response"
	"github.com/guidewisey/guidewise/internal/service"
)

type QAHandler struct {
	qa *service.QAService
}

func NewQAHandler(qa *service.QAService) *QAHandler {
	return &QAHandler{qa: qa}
}

type askRequest struct {
	DocumentID flexID `json:"document_id"`
	Question   string `json:"question"`
}

func (h *QAHandler) Ask(c *gin.Context, gate *service.GateResult) {
	var req askRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		handleError(c, fmt.Errorf("%w: invalid request body", appErr.ErrInvalid))
		return
	}
	res, err := h.qa.Ask(c.Request.Context(), gate, req.Question)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *QAHandler) Remaining(c *gin.Context) {
	raw := c.Query("document_id")
	if raw == "" {
		handleError(c, fmt.Errorf("%w: document_id is required", appErr.ErrInvalid))
		return
	}
	id, ok := parseID(raw)
	if !ok {
		handleError(c, fmt.Errorf("%w: document not found", appErr.ErrNotFound))
		return
	}
	left, err := h.qa.Remaining(c.Request.Context(), getUserID(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"remaining": left})
}

func (h *QAHandler) History(c *gin.Context) {
	id, ok := parseID(c.Param("document_id"))
	if !ok {
		handleError(c, fmt.Errorf("%w: document not found", appErr.ErrNotFound))
		return
	}
	items, err := h.qa.History(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, items)
}
