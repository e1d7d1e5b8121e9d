package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarpaulin-lms/tarpaulin-api/internal/middleware"
	"github.com/tarpaulin-lms/tarpaulin-api/internal/models"
	"github.com/tarpaulin-lms/tarpaulin-api/internal/service"
	"github.com/tarpaulin-lms/tarpaulin-api/pkg/blob"
)

const testAssignmentID = "0b1c2d3e-4f50-4617-8829-3a4b5c6d7e8f"

type submissionRepoStub struct {
	created []models.Submission
	total   int
	listed  []models.Submission
}

func (s *submissionRepoStub) Count(ctx context.Context, filter models.SubmissionFilter) (int, error) {
	return s.total, nil
}

func (s *submissionRepoStub) List(ctx context.Context, filter models.SubmissionFilter, limit, offset int) ([]models.Submission, error) {
	return s.listed, nil
}

func (s *submissionRepoStub) Create(ctx context.Context, submission *models.Submission) error {
	submission.ID = "new-submission"
	s.created = append(s.created, *submission)
	return nil
}

func (s *submissionRepoStub) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	return nil, sql.ErrNoRows
}

func newSubmissionTestStack(t *testing.T, repo *submissionRepoStub) (*AssignmentHandler, *MediaHandler) {
	t.Helper()
	store, err := blob.New(t.TempDir(), []string{"application/pdf"})
	require.NoError(t, err)
	assignRepo := &assignmentRepoStub{assignments: map[string]models.Assignment{
		testAssignmentID: {ID: testAssignmentID, CourseID: testCourseID, Title: "Final Project"},
	}}
	submissions := service.NewSubmissionService(repo, assignRepo, store, nil, nil, 10)
	assignments := service.NewAssignmentService(assignRepo, &courseRepoStub{}, nil, nil)
	return NewAssignmentHandler(assignments, submissions, t.TempDir()), NewMediaHandler(submissions, nil)
}

func multipartUpload(t *testing.T, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="submission.pdf"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestSubmissionUploadAndDownloadRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &submissionRepoStub{}
	assignHandler, mediaHandler := newSubmissionTestStack(t, repo)

	payload := []byte("%PDF-1.7 final project")
	body, contentType := multipartUpload(t, "application/pdf", payload)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/assignments/"+testAssignmentID+"/submissions", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: testAssignmentID}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-a", Role: models.RoleStudent})

	assignHandler.CreateSubmission(c)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, repo.created, 1)
	assert.Equal(t, "student-a", repo.created[0].StudentID)
	assert.Equal(t, int64(len(payload)), repo.created[0].SizeBytes)
	require.NotEmpty(t, repo.created[0].BlobToken)

	dw := httptest.NewRecorder()
	dc, _ := gin.CreateTestContext(dw)
	dreq, _ := http.NewRequest(http.MethodGet, "/media/submissions/"+repo.created[0].BlobToken, nil)
	dc.Request = dreq
	dc.Params = gin.Params{{Key: "token", Value: repo.created[0].BlobToken}}

	mediaHandler.DownloadSubmission(dc)
	require.Equal(t, http.StatusOK, dw.Code)
	assert.Equal(t, "application/pdf", dw.Header().Get("Content-Type"))
	got, err := io.ReadAll(dw.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSubmissionUploadRejectsUnsupportedType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &submissionRepoStub{}
	assignHandler, _ := newSubmissionTestStack(t, repo)

	body, contentType := multipartUpload(t, "application/x-msdownload", []byte("MZ"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/assignments/"+testAssignmentID+"/submissions", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: testAssignmentID}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-a", Role: models.RoleStudent})

	assignHandler.CreateSubmission(c)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Empty(t, repo.created)
}

func TestSubmissionUploadMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &submissionRepoStub{}
	assignHandler, _ := newSubmissionTestStack(t, repo)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("timestamp", time.Now().UTC().Format(time.RFC3339)))
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/assignments/"+testAssignmentID+"/submissions", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: testAssignmentID}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-a", Role: models.RoleStudent})

	assignHandler.CreateSubmission(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMediaHandlerUnknownToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mediaHandler := newSubmissionTestStack(t, &submissionRepoStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/media/submissions/ffffffffffffffffffffffffffffffff", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "token", Value: "ffffffffffffffffffffffffffffffff"}}

	mediaHandler.DownloadSubmission(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssignmentHandlerListSubmissions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &submissionRepoStub{
		total: 1,
		listed: []models.Submission{
			{ID: "s1", AssignmentID: testAssignmentID, StudentID: "student-a", BlobToken: "aabbccdd00112233aabbccdd00112233"},
		},
	}
	assignHandler, _ := newSubmissionTestStack(t, repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/assignments/"+testAssignmentID+"/submissions?page=1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: testAssignmentID}}

	assignHandler.ListSubmissions(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []struct {
			File string `json:"file"`
		} `json:"data"`
		Pagination *models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "/media/submissions/aabbccdd00112233aabbccdd00112233", envelope.Data[0].File)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}
