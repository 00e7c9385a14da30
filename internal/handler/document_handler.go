package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	appErr "github.com/guidewisey/guidewise/internal/pkg/errors"
	"github.com/guidewisey/guidewise/internal/pkg/response"
	"github.com/guidewisey/guidewise/internal/service"
)

type DocumentHandler struct {
	ingest    *service.IngestService
	documents *service.DocumentService
}

func NewDocumentHandler(ingest *service.IngestService, documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{ingest: ingest, documents: documents}
}

type processRequest struct {
	S3Key string `json:"s3_key"`
}

type processTextRequest struct {
	Text              string `json:"text"`
	PreferredLanguage string `json:"preferred_language"`
}

// Process ingests an object from the file store. The gate result is the
// caller's session anchor; ingestion does not consume quota.
func (h *DocumentHandler) Process(c *gin.Context, _ *service.GateResult) {
	var req processRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		handleError(c, fmt.Errorf("%w: invalid request body", appErr.ErrInvalid))
		return
	}
	doc, err := h.ingest.ProcessStorageKey(c.Request.Context(), req.S3Key)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) ProcessText(c *gin.Context, _ *service.GateResult) {
	var req processTextRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		handleError(c, fmt.Errorf("%w: invalid request body", appErr.ErrInvalid))
		return
	}
	doc, err := h.ingest.ProcessText(c.Request.Context(), req.Text, req.PreferredLanguage)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"document_id": doc.ID, "summary": doc.Summary})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		handleError(c, fmt.Errorf("%w: invalid document id", appErr.ErrInvalid))
		return
	}
	if err := h.documents.Delete(c.Request.Context(), getUserID(c), id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": id})
}
