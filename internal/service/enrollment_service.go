package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tarpaulin-lms/tarpaulin-api/internal/models"
	appErrors "github.com/tarpaulin-lms/tarpaulin-api/pkg/errors"
)

type enrollmentRepository interface {
	Upsert(ctx context.Context, studentID, courseID string) error
	Remove(ctx context.Context, studentID, courseID string) error
	ListStudents(ctx context.Context, courseID string) ([]string, error)
	ListCourses(ctx context.Context, studentID string) ([]string, error)
}

type enrollmentCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// ReconcileEnrollmentRequest carries one batch of roster changes. Both
// lists are optional; an empty request is a valid no-op.
type ReconcileEnrollmentRequest struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

// EnrollmentService applies roster change batches against a course and
// reports course membership. Batches are idempotent: enrolling an already
// enrolled student or removing an absent one is a no-op.
type EnrollmentService struct {
	repo    enrollmentRepository
	courses enrollmentCourseReader
	logger  *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses enrollmentCourseReader, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, logger: logger}
}

// Reconcile applies a batch of additions and removals to a course roster.
// Additions are applied before removals, so a student named in both lists
// ends up unenrolled. Processing stops at the first storage failure, which
// may leave the batch partially applied; re-submitting the same batch is
// safe because every operation is idempotent.
func (s *EnrollmentService) Reconcile(ctx context.Context, courseID string, req ReconcileEnrollmentRequest) error {
	if _, err := uuid.Parse(courseID); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "course id is not a valid identifier")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load course")
	}

	for _, studentID := range req.Add {
		if err := s.repo.Upsert(ctx, studentID, courseID); err != nil {
			s.logger.Error("enrollment add failed",
				zap.String("course_id", courseID), zap.String("student_id", studentID), zap.Error(err))
			return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to enroll student")
		}
	}
	for _, studentID := range req.Remove {
		if err := s.repo.Remove(ctx, studentID, courseID); err != nil {
			s.logger.Error("enrollment remove failed",
				zap.String("course_id", courseID), zap.String("student_id", studentID), zap.Error(err))
			return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to unenroll student")
		}
	}
	return nil
}

// ListMembers returns the IDs of students enrolled in a course, in stable
// enrollment order. A course with no students yields an empty list.
func (s *EnrollmentService) ListMembers(ctx context.Context, courseID string) ([]string, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load course")
	}
	students, err := s.repo.ListStudents(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list enrolled students")
	}
	return students, nil
}

// ListCoursesForStudent returns the IDs of courses a student is enrolled in.
func (s *EnrollmentService) ListCoursesForStudent(ctx context.Context, studentID string) ([]string, error) {
	courses, err := s.repo.ListCourses(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list enrollments")
	}
	return courses, nil
}
