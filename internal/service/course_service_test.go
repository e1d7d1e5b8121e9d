package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarpaulin-lms/tarpaulin-api/internal/models"
	appErrors "github.com/tarpaulin-lms/tarpaulin-api/pkg/errors"
)

type mockCourseRepo struct {
	courses    map[string]models.Course
	total      int
	listCalls  []struct{ limit, offset int }
	lastFilter models.CourseFilter
}

func (m *mockCourseRepo) Count(ctx context.Context, filter models.CourseFilter) (int, error) {
	return m.total, nil
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter, limit, offset int) ([]models.Course, error) {
	m.listCalls = append(m.listCalls, struct{ limit, offset int }{limit, offset})
	m.lastFilter = filter
	return []models.Course{}, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.courses == nil {
		m.courses = make(map[string]models.Course)
	}
	if course.ID == "" {
		course.ID = "new-course"
	}
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	if _, ok := m.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.courses, id)
	return nil
}

func (m *mockCourseRepo) ListIDsByInstructor(ctx context.Context, instructorID string) ([]string, error) {
	return nil, nil
}

func TestCourseServiceListClampsOversizedPage(t *testing.T) {
	repo := &mockCourseRepo{total: 25}
	svc := NewCourseService(repo, nil, nil, nil, 10)

	page, err := svc.List(context.Background(), models.CourseFilter{Page: 99})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Window.Page)
	assert.Equal(t, 3, page.Window.TotalPages)
	require.Len(t, repo.listCalls, 1)
	assert.Equal(t, 10, repo.listCalls[0].limit)
	assert.Equal(t, 20, repo.listCalls[0].offset)
}

func TestCourseServiceListEmptyCollection(t *testing.T) {
	repo := &mockCourseRepo{total: 0}
	svc := NewCourseService(repo, nil, nil, nil, 10)

	page, err := svc.List(context.Background(), models.CourseFilter{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Window.Page)
	assert.Equal(t, 0, page.Window.TotalPages)
	assert.Empty(t, page.Courses)
}

func TestCourseServiceListPassesFilterThrough(t *testing.T) {
	repo := &mockCourseRepo{total: 5}
	svc := NewCourseService(repo, nil, nil, nil, 10)

	filter := models.CourseFilter{Subject: "CS", Term: "sp26", Page: 1}
	_, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, "CS", repo.lastFilter.Subject)
	assert.Equal(t, "sp26", repo.lastFilter.Term)
}

func TestCourseServiceCreateValidatesPayload(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, nil, nil, nil, 10)

	_, err := svc.Create(context.Background(), CourseRequest{Subject: "CS"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCourseServiceCreateAndGet(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := NewCourseService(repo, nil, nil, nil, 10)

	created, err := svc.Create(context.Background(), CourseRequest{
		Subject:      "CS",
		Number:       493,
		Title:        "Cloud Application Development",
		Term:         "sp26",
		InstructorID: "7f8e1d2c-3b4a-4c5d-9e6f-0a1b2c3d4e5f",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Subject, got.Subject)
	assert.Equal(t, created.Number, got.Number)
}

func TestCourseServiceGetUnknown(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, nil, nil, nil, 10)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCourseServiceUpdateUnknown(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, nil, nil, nil, 10)

	_, err := svc.Update(context.Background(), "missing", CourseRequest{
		Subject:      "CS",
		Number:       493,
		Title:        "Cloud Application Development",
		Term:         "sp26",
		InstructorID: "7f8e1d2c-3b4a-4c5d-9e6f-0a1b2c3d4e5f",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCourseServiceDeleteUnknown(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, nil, nil, nil, 10)

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
