package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tarpaulin-lms/tarpaulin-api/internal/models"
	appErrors "github.com/tarpaulin-lms/tarpaulin-api/pkg/errors"
	"github.com/tarpaulin-lms/tarpaulin-api/pkg/pagination"
)

type courseRepository interface {
	Count(ctx context.Context, filter models.CourseFilter) (int, error)
	List(ctx context.Context, filter models.CourseFilter, limit, offset int) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	ListIDsByInstructor(ctx context.Context, instructorID string) ([]string, error)
}

// CourseRequest carries the full set of course fields. Both create and
// update take the complete document, as the collection schema requires
// every field.
type CourseRequest struct {
	Subject      string `json:"subject" validate:"required"`
	Number       int    `json:"number" validate:"required,gt=0"`
	Title        string `json:"title" validate:"required"`
	Term         string `json:"term" validate:"required"`
	InstructorID string `json:"instructor_id" validate:"required,uuid4"`
}

// CoursePage bundles one page of courses with its resolved window. It is
// also the shape stored in the list cache.
type CoursePage struct {
	Courses []models.Course `json:"courses"`
	Window  pagination.Page `json:"window"`
}

// CourseService orchestrates course CRUD and paginated listing.
type CourseService struct {
	repo      courseRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	pageSize  int
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, pageSize int) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	return &CourseService{repo: repo, cache: cache, validator: validate, logger: logger, pageSize: pageSize}
}

// List returns one page of courses matching the filter. The requested page
// is clamped to the collection bounds; two calls against a quiescent
// collection return identical results.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) (*CoursePage, error) {
	key := courseListCacheKey(filter, s.pageSize)
	var cached CoursePage
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to count courses")
	}
	window := pagination.Compute(total, filter.Page, s.pageSize)
	limit, offset := window.Window()
	courses, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list courses")
	}

	page := &CoursePage{Courses: courses, Window: window}
	s.cache.Set(ctx, key, page)
	return page, nil
}

// Create inserts a new course.
func (s *CourseService) Create(ctx context.Context, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{
		Subject:      req.Subject,
		Number:       req.Number,
		Title:        req.Title,
		Term:         req.Term,
		InstructorID: req.InstructorID,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to create course")
	}
	s.cache.Invalidate(ctx, "courses:*")
	return course, nil
}

// Get returns a single course by id.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load course")
	}
	return course, nil
}

// Update replaces the mutable fields of an existing course.
func (s *CourseService) Update(ctx context.Context, id string, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{
		ID:           id,
		Subject:      req.Subject,
		Number:       req.Number,
		Title:        req.Title,
		Term:         req.Term,
		InstructorID: req.InstructorID,
	}
	if err := s.repo.Update(ctx, course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to update course")
	}
	s.cache.Invalidate(ctx, "courses:*")
	return s.Get(ctx, id)
}

// Delete removes a course.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete course")
	}
	s.cache.Invalidate(ctx, "courses:*")
	return nil
}

func courseListCacheKey(filter models.CourseFilter, pageSize int) string {
	return fmt.Sprintf("courses:subject=%s:number=%d:term=%s:page=%d:size=%d",
		filter.Subject, filter.Number, filter.Term, filter.Page, pageSize)
}

// PageMeta converts a resolved window into response pagination metadata.
func PageMeta(p pagination.Page) *models.Pagination {
	return &models.Pagination{
		Page:       p.Page,
		TotalPages: p.TotalPages,
		PageSize:   p.PageSize,
		TotalCount: p.Count,
	}
}
