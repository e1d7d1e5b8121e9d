package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tarpaulin-lms/tarpaulin-api/internal/middleware"
	"github.com/tarpaulin-lms/tarpaulin-api/internal/models"
	"github.com/tarpaulin-lms/tarpaulin-api/internal/service"
	appErrors "github.com/tarpaulin-lms/tarpaulin-api/pkg/errors"
	"github.com/tarpaulin-lms/tarpaulin-api/pkg/pagination"
	"github.com/tarpaulin-lms/tarpaulin-api/pkg/response"
)

// AssignmentHandler exposes assignment and submission endpoints.
type AssignmentHandler struct {
	assignments *service.AssignmentService
	submissions *service.SubmissionService
	tempDir     string
}

// NewAssignmentHandler constructs AssignmentHandler. tempDir is where
// uploaded submission files are staged before ingestion.
func NewAssignmentHandler(assignments *service.AssignmentService, submissions *service.SubmissionService, tempDir string) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, submissions: submissions, tempDir: tempDir}
}

// Create godoc
// @Summary Create assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.AssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	var req service.AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assignment, err := h.assignments.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Get godoc
// @Summary Get assignment detail
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	assignment, err := h.assignments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Update godoc
// @Summary Update assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body service.AssignmentRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [patch]
func (h *AssignmentHandler) Update(c *gin.Context) {
	var req service.AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assignment, err := h.assignments.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Delete godoc
// @Summary Delete assignment
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	if err := h.assignments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSubmissions godoc
// @Summary List submissions for an assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Param page query int false "Page"
// @Param studentId query string false "Filter by student"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/submissions [get]
func (h *AssignmentHandler) ListSubmissions(c *gin.Context) {
	filter := models.SubmissionFilter{
		AssignmentID: c.Param("id"),
		StudentID:    c.Query("studentId"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}

	page, err := h.submissions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	links := pagination.Links(page.Window, c.Request.URL.Path, c.Request.URL.Query())
	response.JSON(c, http.StatusOK, page.Submissions, service.PageMeta(page.Window), links)
}

// CreateSubmission godoc
// @Summary Upload a submission for an assignment
// @Tags Assignments
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Assignment ID"
// @Param file formData file true "Submission file"
// @Param timestamp formData string false "Submission timestamp (RFC 3339, defaults to now)"
// @Success 201 {object} response.Envelope
// @Router /assignments/{id}/submissions [post]
func (h *AssignmentHandler) CreateSubmission(c *gin.Context) {
	req := service.IngestSubmissionRequest{
		AssignmentID: c.Param("id"),
		Timestamp:    time.Now().UTC(),
	}
	if claims := middleware.CurrentClaims(c); claims != nil {
		req.StudentID = claims.UserID
	}
	if raw := c.PostForm("timestamp"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "timestamp must be RFC 3339"))
			return
		}
		req.Timestamp = ts
	}

	var upload service.SubmissionUpload
	file, err := c.FormFile("file")
	if err == nil {
		upload.ContentType = file.Header.Get("Content-Type")
		tempPath := filepath.Join(h.tempDir, fmt.Sprintf("upload-%s", uuid.NewString()))
		if err := c.SaveUploadedFile(file, tempPath); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to stage upload"))
			return
		}
		upload.TempPath = tempPath
	}

	id, err := h.submissions.Ingest(c.Request.Context(), upload, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": id})
}
