package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tarpaulin-lms/tarpaulin-api/internal/models"
)

// CourseRepository handles persistence of courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func courseFilterClause(filter models.CourseFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("subject = $%d", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.Number != 0 {
		conditions = append(conditions, fmt.Sprintf("number = $%d", len(args)+1))
		args = append(args, filter.Number)
	}
	if filter.Term != "" {
		conditions = append(conditions, fmt.Sprintf("term = $%d", len(args)+1))
		args = append(args, filter.Term)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Count returns the number of courses matching the filter.
func (r *CourseRepository) Count(ctx context.Context, filter models.CourseFilter) (int, error) {
	clause, args := courseFilterClause(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses"+clause, args...); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return total, nil
}

// List returns one page of courses matching the filter, ordered by the
// stable creation key so consecutive pages never skip or repeat rows.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter, limit, offset int) ([]models.Course, error) {
	clause, args := courseFilterClause(filter)
	query := fmt.Sprintf(`SELECT id, subject, number, title, term, instructor_id, created_at
        FROM courses%s ORDER BY created_at ASC, id ASC LIMIT %d OFFSET %d`, clause, limit, offset)

	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO courses (id, subject, number, title, term, instructor_id, created_at)
        VALUES (:id, :subject, :number, :title, :term, :instructor_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, subject, number, title, term, instructor_id, created_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// Update overwrites the mutable fields of an existing course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	const query = `UPDATE courses SET subject = $2, number = $3, title = $4, term = $5, instructor_id = $6 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, course.ID, course.Subject, course.Number, course.Title, course.Term, course.InstructorID)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a course by ID.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListIDsByInstructor returns ids of all courses taught by the instructor.
func (r *CourseRepository) ListIDsByInstructor(ctx context.Context, instructorID string) ([]string, error) {
	ids := []string{}
	const query = `SELECT id FROM courses WHERE instructor_id = $1 ORDER BY created_at ASC, id ASC`
	if err := r.db.SelectContext(ctx, &ids, query, instructorID); err != nil {
		return nil, fmt.Errorf("list instructor courses: %w", err)
	}
	return ids, nil
}
