package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tarpaulin-lms/tarpaulin-api/internal/models"
	"github.com/tarpaulin-lms/tarpaulin-api/pkg/blob"
	appErrors "github.com/tarpaulin-lms/tarpaulin-api/pkg/errors"
	"github.com/tarpaulin-lms/tarpaulin-api/pkg/pagination"
)

type submissionRepository interface {
	Count(ctx context.Context, filter models.SubmissionFilter) (int, error)
	List(ctx context.Context, filter models.SubmissionFilter, limit, offset int) ([]models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	FindByID(ctx context.Context, id string) (*models.Submission, error)
}

type submissionAssignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

type blobStore interface {
	Put(ctx context.Context, r io.Reader, contentType string, meta blob.Metadata) (blob.PutResult, error)
	Get(token string) (io.ReadCloser, blob.Metadata, error)
}

// SubmissionUpload references the temporary artifact staged for one ingest
// request. The pipeline owns the artifact for the duration of the request
// and removes it on every exit path.
type SubmissionUpload struct {
	TempPath    string
	ContentType string
}

// IngestSubmissionRequest carries the metadata accompanying an upload.
type IngestSubmissionRequest struct {
	AssignmentID string
	StudentID    string
	Timestamp    time.Time
}

// SubmissionDownload bundles a payload stream with its stored metadata.
type SubmissionDownload struct {
	Reader      io.ReadCloser
	ContentType string
	SizeBytes   int64
}

// SubmissionPage bundles one page of submissions with its resolved window.
type SubmissionPage struct {
	Submissions []models.Submission `json:"submissions"`
	Window      pagination.Page     `json:"window"`
}

// SubmissionService orchestrates the upload pipeline: it streams staged
// uploads into the blob store, records queryable metadata referencing the
// blob, and serves stored payloads back out by token.
type SubmissionService struct {
	repo        submissionRepository
	assignments submissionAssignmentReader
	blobs       blobStore
	metrics     *MetricsService
	logger      *zap.Logger
	pageSize    int
}

// NewSubmissionService constructs SubmissionService.
func NewSubmissionService(repo submissionRepository, assignments submissionAssignmentReader, blobs blobStore, metrics *MetricsService, logger *zap.Logger, pageSize int) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	return &SubmissionService{repo: repo, assignments: assignments, blobs: blobs, metrics: metrics, logger: logger, pageSize: pageSize}
}

// Ingest persists one uploaded submission. The blob is written first and
// the metadata record second, so a stored record never references a
// partially written payload. The temporary artifact is removed whether the
// pipeline succeeds or fails; if the metadata write fails after the blob is
// durable, the orphaned blob is left in place (it is unreachable through
// metadata lookups) and the fault is surfaced to the caller.
func (s *SubmissionService) Ingest(ctx context.Context, upload SubmissionUpload, req IngestSubmissionRequest) (string, error) {
	if upload.TempPath != "" {
		defer func() {
			if err := os.Remove(upload.TempPath); err != nil && !os.IsNotExist(err) {
				s.logger.Warn("failed to remove temporary upload", zap.String("path", upload.TempPath), zap.Error(err))
			}
		}()
	}

	if missing := missingIngestFields(upload, req); len(missing) > 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")))
	}

	if _, err := s.assignments.FindByID(ctx, req.AssignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load assignment")
	}

	file, err := os.Open(upload.TempPath)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to open staged upload")
	}
	defer file.Close()

	result, err := s.blobs.Put(ctx, file, upload.ContentType, blob.Metadata{
		AssignmentID: req.AssignmentID,
		StudentID:    req.StudentID,
		Timestamp:    req.Timestamp,
	})
	if err != nil {
		return "", err
	}
	if s.metrics != nil {
		s.metrics.RecordBlobWrite(result.BytesWritten)
	}

	submission := &models.Submission{
		AssignmentID: req.AssignmentID,
		StudentID:    req.StudentID,
		Timestamp:    req.Timestamp,
		ContentType:  upload.ContentType,
		BlobToken:    result.Token,
		SizeBytes:    result.BytesWritten,
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		s.logger.Error("submission metadata write failed, blob orphaned",
			zap.String("blob_token", result.Token), zap.Error(err))
		return "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to record submission metadata")
	}

	return submission.ID, nil
}

// FetchByToken streams a stored submission payload. A missing blob maps to
// a not-found outcome; any other storage failure surfaces as a fault.
func (s *SubmissionService) FetchByToken(token string) (*SubmissionDownload, error) {
	reader, meta, err := s.blobs.Get(token)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission file not found")
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordBlobRead(meta.SizeBytes)
	}
	return &SubmissionDownload{Reader: reader, ContentType: meta.ContentType, SizeBytes: meta.SizeBytes}, nil
}

// List returns one page of submission metadata for an assignment,
// optionally narrowed to a single student.
func (s *SubmissionService) List(ctx context.Context, filter models.SubmissionFilter) (*SubmissionPage, error) {
	if filter.AssignmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing required fields: assignment_id")
	}
	if _, err := s.assignments.FindByID(ctx, filter.AssignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load assignment")
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to count submissions")
	}
	window := pagination.Compute(total, filter.Page, s.pageSize)
	limit, offset := window.Window()
	submissions, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list submissions")
	}
	for i := range submissions {
		submissions[i].FileURL = "/media/submissions/" + submissions[i].BlobToken
	}
	return &SubmissionPage{Submissions: submissions, Window: window}, nil
}

func missingIngestFields(upload SubmissionUpload, req IngestSubmissionRequest) []string {
	var missing []string
	if upload.TempPath == "" {
		missing = append(missing, "file")
	}
	if upload.ContentType == "" {
		missing = append(missing, "content_type")
	}
	if req.AssignmentID == "" {
		missing = append(missing, "assignment_id")
	}
	if req.StudentID == "" {
		missing = append(missing, "student_id")
	}
	if req.Timestamp.IsZero() {
		missing = append(missing, "timestamp")
	}
	return missing
}
