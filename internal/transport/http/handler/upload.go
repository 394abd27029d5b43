package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragchat/internal/app"
	"ragchat/internal/transport/http/response"
)

const maxUploadSize = 10 << 20 // per file

type UploadHandler struct {
	ingest *app.IngestService
}

func NewUploadHandler(ingest *app.IngestService) *UploadHandler {
	return &UploadHandler{ingest: ingest}
}

// UploadFile ingests every file of a multipart batch into the session index.
func (h *UploadHandler) UploadFile(c *gin.Context) {
	sessionID := c.PostForm("session_id")
	form, err := c.MultipartForm()
	if err != nil || sessionID == "" {
		response.Error(c, http.StatusBadRequest, "No files or session_id provided")
		return
	}

	var files []app.UploadFile
	for _, fh := range form.File["file"] {
		if fh.Filename == "" {
			continue
		}
		if fh.Size > maxUploadSize {
			response.Error(c, http.StatusBadRequest, fmt.Sprintf("file %q too large (max 10MB)", fh.Filename))
			return
		}
		src, openErr := fh.Open()
		if openErr != nil {
			response.Error(c, http.StatusInternalServerError, "failed to read uploaded file")
			return
		}
		data, readErr := io.ReadAll(src)
		_ = src.Close()
		if readErr != nil {
			response.Error(c, http.StatusInternalServerError, "failed to read uploaded file")
			return
		}
		files = append(files, app.UploadFile{Name: fh.Filename, Data: data})
	}

	result, err := h.ingest.UploadBatch(c.Request.Context(), sessionID, files)
	if err != nil {
		if errors.Is(err, app.ErrNoFiles) {
			response.Error(c, http.StatusBadRequest, "No files or session_id provided")
		} else {
			response.Error(c, http.StatusInternalServerError, "upload failed")
		}
		return
	}
	if result.Succeeded == 0 {
		response.Error(c, http.StatusBadRequest, "Error processing file")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%d file(s) uploaded and processed successfully", result.Succeeded),
		"results": result.Results,
	})
}
