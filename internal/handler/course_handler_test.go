package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarpaulin-lms/tarpaulin-api/internal/models"
	"github.com/tarpaulin-lms/tarpaulin-api/internal/service"
)

const testCourseID = "7f8e1d2c-3b4a-4c5d-9e6f-0a1b2c3d4e5f"

type courseRepoStub struct {
	courses map[string]models.Course
	total   int
	listed  []models.Course
}

func (s *courseRepoStub) Count(ctx context.Context, filter models.CourseFilter) (int, error) {
	return s.total, nil
}

func (s *courseRepoStub) List(ctx context.Context, filter models.CourseFilter, limit, offset int) ([]models.Course, error) {
	return s.listed, nil
}

func (s *courseRepoStub) Create(ctx context.Context, course *models.Course) error {
	if s.courses == nil {
		s.courses = make(map[string]models.Course)
	}
	if course.ID == "" {
		course.ID = "new-course"
	}
	s.courses[course.ID] = *course
	return nil
}

func (s *courseRepoStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := s.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (s *courseRepoStub) Update(ctx context.Context, course *models.Course) error {
	if _, ok := s.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	s.courses[course.ID] = *course
	return nil
}

func (s *courseRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.courses, id)
	return nil
}

func (s *courseRepoStub) ListIDsByInstructor(ctx context.Context, instructorID string) ([]string, error) {
	return nil, nil
}

type enrollmentRepoStub struct {
	students []string
	upserts  []string
	removes  []string
}

func (s *enrollmentRepoStub) Upsert(ctx context.Context, studentID, courseID string) error {
	s.upserts = append(s.upserts, studentID)
	return nil
}

func (s *enrollmentRepoStub) Remove(ctx context.Context, studentID, courseID string) error {
	s.removes = append(s.removes, studentID)
	return nil
}

func (s *enrollmentRepoStub) ListStudents(ctx context.Context, courseID string) ([]string, error) {
	if s.students == nil {
		return []string{}, nil
	}
	return s.students, nil
}

func (s *enrollmentRepoStub) ListCourses(ctx context.Context, studentID string) ([]string, error) {
	return nil, nil
}

type assignmentRepoStub struct {
	assignments map[string]models.Assignment
	byCourse    []string
}

func (s *assignmentRepoStub) Create(ctx context.Context, assignment *models.Assignment) error {
	if s.assignments == nil {
		s.assignments = make(map[string]models.Assignment)
	}
	if assignment.ID == "" {
		assignment.ID = "new-assignment"
	}
	s.assignments[assignment.ID] = *assignment
	return nil
}

func (s *assignmentRepoStub) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if a, ok := s.assignments[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (s *assignmentRepoStub) Update(ctx context.Context, assignment *models.Assignment) error {
	if _, ok := s.assignments[assignment.ID]; !ok {
		return sql.ErrNoRows
	}
	s.assignments[assignment.ID] = *assignment
	return nil
}

func (s *assignmentRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.assignments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.assignments, id)
	return nil
}

func (s *assignmentRepoStub) ListIDsByCourse(ctx context.Context, courseID string) ([]string, error) {
	if s.byCourse == nil {
		return []string{}, nil
	}
	return s.byCourse, nil
}

func newCourseTestHandler(courseRepo *courseRepoStub, enrollRepo *enrollmentRepoStub, assignRepo *assignmentRepoStub) *CourseHandler {
	courses := service.NewCourseService(courseRepo, nil, nil, nil, 10)
	enrollments := service.NewEnrollmentService(enrollRepo, courseRepo, nil)
	assignments := service.NewAssignmentService(assignRepo, courseRepo, nil, nil)
	return NewCourseHandler(courses, enrollments, assignments)
}

func TestCourseHandlerListIncludesPaginationAndLinks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &courseRepoStub{
		total:  25,
		listed: []models.Course{{ID: testCourseID, Subject: "CS", Number: 493}},
	}
	h := newCourseTestHandler(repo, &enrollmentRepoStub{}, &assignmentRepoStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/courses?page=1&subject=CS", nil)
	c.Request = req

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Pagination *models.Pagination `json:"pagination"`
		Links      map[string]string  `json:"links"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.Page)
	assert.Equal(t, 3, envelope.Pagination.TotalPages)
	assert.Equal(t, 25, envelope.Pagination.TotalCount)
	assert.Contains(t, envelope.Links["nextPage"], "page=2")
	assert.Contains(t, envelope.Links["nextPage"], "subject=CS")
	assert.Contains(t, envelope.Links, "lastPage")
	assert.NotContains(t, envelope.Links, "prevPage")
}

func TestCourseHandlerGetUnknownCourse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newCourseTestHandler(&courseRepoStub{}, &enrollmentRepoStub{}, &assignmentRepoStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/courses/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCourseHandlerUpdateEnrollment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	courseRepo := &courseRepoStub{courses: map[string]models.Course{
		testCourseID: {ID: testCourseID, Subject: "CS", Number: 493},
	}}
	enrollRepo := &enrollmentRepoStub{}
	h := newCourseTestHandler(courseRepo, enrollRepo, &assignmentRepoStub{})

	r := gin.New()
	r.POST("/courses/:id/students", h.UpdateEnrollment)

	body, _ := json.Marshal(service.ReconcileEnrollmentRequest{
		Add:    []string{"student-a"},
		Remove: []string{"student-b"},
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/courses/"+testCourseID+"/students", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"student-a"}, enrollRepo.upserts)
	assert.Equal(t, []string{"student-b"}, enrollRepo.removes)
}

func TestCourseHandlerUpdateEnrollmentInvalidCourseID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newCourseTestHandler(&courseRepoStub{}, &enrollmentRepoStub{}, &assignmentRepoStub{})

	body := []byte(`{"add":["student-a"]}`)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/courses/nope/students", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	h.UpdateEnrollment(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCourseHandlerListStudents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	courseRepo := &courseRepoStub{courses: map[string]models.Course{
		testCourseID: {ID: testCourseID},
	}}
	h := newCourseTestHandler(courseRepo, &enrollmentRepoStub{students: []string{"student-a", "student-b"}}, &assignmentRepoStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/courses/"+testCourseID+"/students", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: testCourseID}}

	h.ListStudents(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			Students []string `json:"students"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, []string{"student-a", "student-b"}, envelope.Data.Students)
}
