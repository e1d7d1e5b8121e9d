package handler

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tarpaulin-lms/tarpaulin-api/internal/service"
	"github.com/tarpaulin-lms/tarpaulin-api/pkg/response"
)

// MediaHandler streams stored submission payloads.
type MediaHandler struct {
	submissions *service.SubmissionService
	logger      *zap.Logger
}

// NewMediaHandler constructs MediaHandler.
func NewMediaHandler(submissions *service.SubmissionService, logger *zap.Logger) *MediaHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaHandler{submissions: submissions, logger: logger}
}

// DownloadSubmission godoc
// @Summary Download a submission file
// @Tags Media
// @Produce octet-stream
// @Param token path string true "Submission file token"
// @Success 200 {file} binary
// @Router /media/submissions/{token} [get]
func (h *MediaHandler) DownloadSubmission(c *gin.Context) {
	download, err := h.submissions.FetchByToken(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.Reader.Close()

	c.Header("Content-Type", download.ContentType)
	if download.SizeBytes > 0 {
		c.Header("Content-Length", strconv.FormatInt(download.SizeBytes, 10))
	}
	c.Status(200)
	if _, err := io.Copy(c.Writer, download.Reader); err != nil {
		// headers already sent; log and let the client observe the short body
		h.logger.Warn("submission stream interrupted", zap.String("token", c.Param("token")), zap.Error(err))
	}
}
