package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/guidewisey/guidewise/internal/extract"
	"github.com/guidewisey/guidewise/internal/filestore"
	"github.com/guidewisey/guidewise/internal/pkg/errcode"
	"github.com/guidewisey/guidewise/internal/pkg/response"
)

const presignTTL = 15 * time.Minute

type FileHandler struct {
	store    filestore.Store
	maxBytes int64
}

type UploadResponse struct {
	S3Key       string `json:"s3_key"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

func NewFileHandler(store filestore.Store, maxBytes int64) *FileHandler {
	return &FileHandler{store: store, maxBytes: maxBytes}
}

// Upload stores a document and returns the key to pass to /documents/process.
func (h *FileHandler) Upload(c *gin.Context) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, errcode.InvalidFile, "file exceeds "+formatUploadLimit(h.maxBytes))
			return
		}
		response.Error(c, http.StatusBadRequest, errcode.InvalidFile, "file is required")
		return
	}
	if _, ok := extract.KindForKey(file.Filename); !ok {
		response.Error(c, http.StatusBadRequest, errcode.UnsupportedType, "Unsupported file type")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.InvalidFile, "failed to open file")
		return
	}
	defer opened.Close()
	contentType, err := sniffContentType(opened)
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.InvalidFile, "failed to read file")
		return
	}
	key := buildFileKey(getUserID(c), file.Filename)
	if err := h.store.Upload(c.Request.Context(), key, opened, file.Size); err != nil {
		logutil.GetLogger(c.Request.Context()).Error("upload file failed", zap.String("key", key), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, errcode.UploadFailed, "failed to upload file")
		return
	}
	response.Success(c, UploadResponse{
		S3Key:       key,
		Name:        file.Filename,
		ContentType: contentType,
		Size:        file.Size,
	})
}

type presignRequest struct {
	Filename string `json:"filename"`
}

// Presign hands out a direct upload URL when the store supports it.
func (h *FileHandler) Presign(c *gin.Context) {
	signer, ok := h.store.(filestore.Presigner)
	if !ok {
		response.Error(c, http.StatusNotFound, errcode.NotFound, "presigned upload is not available")
		return
	}
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Filename) == "" {
		response.Error(c, http.StatusBadRequest, errcode.Invalid, "filename is required")
		return
	}
	if _, ok := extract.KindForKey(req.Filename); !ok {
		response.Error(c, http.StatusBadRequest, errcode.UnsupportedType, "Unsupported file type")
		return
	}
	key := buildFileKey(getUserID(c), req.Filename)
	url, err := signer.PresignPut(c.Request.Context(), key, presignTTL)
	if err != nil {
		logutil.GetLogger(c.Request.Context()).Error("presign upload failed", zap.String("key", key), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, errcode.UploadFailed, "failed to presign upload")
		return
	}
	response.Success(c, gin.H{"s3_key": key, "url": url, "expires_in": int(presignTTL / time.Second)})
}

func sniffContentType(file multipart.File) (string, error) {
	buf := make([]byte, 512)
	read, err := file.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:read]), nil
}

func buildFileKey(userID int64, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	owner := "anonymous"
	if userID > 0 {
		owner = strconv.FormatInt(userID, 10)
	}
	return "uploads/" + owner + "/" + randomHex(8) + ext
}

func randomHex(size int) string {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(buf)
}

func formatUploadLimit(bytes int64) string {
	const mb = 1024 * 1024
	value := bytes / mb
	if value <= 0 {
		value = 1
	}
	return strconv.FormatInt(value, 10) + "MB"
}
