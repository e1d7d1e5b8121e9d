package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// EnrollmentRepository handles persistence of student-to-course enrollment
// edges. The (student_id, course_id) pair is unique at the schema level,
// which is what makes the add operation an idempotent upsert.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Upsert creates the enrollment edge when absent and leaves it untouched
// when present. Re-applying the same edge any number of times is a no-op.
func (r *EnrollmentRepository) Upsert(ctx context.Context, studentID, courseID string) error {
	const query = `INSERT INTO enrollments (student_id, course_id, enrolled_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (student_id, course_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, studentID, courseID, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert enrollment: %w", err)
	}
	return nil
}

// Remove deletes the enrollment edge if present. A missing edge is success,
// not an error.
func (r *EnrollmentRepository) Remove(ctx context.Context, studentID, courseID string) error {
	const query = `DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2`
	if _, err := r.db.ExecContext(ctx, query, studentID, courseID); err != nil {
		return fmt.Errorf("remove enrollment: %w", err)
	}
	return nil
}

// ListStudents returns the ids of every student enrolled in the course.
// Zero enrollments yield an empty slice.
func (r *EnrollmentRepository) ListStudents(ctx context.Context, courseID string) ([]string, error) {
	students := []string{}
	const query = `SELECT student_id FROM enrollments WHERE course_id = $1 ORDER BY enrolled_at ASC, student_id ASC`
	if err := r.db.SelectContext(ctx, &students, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrolled students: %w", err)
	}
	return students, nil
}

// ListCourses returns the ids of every course the student is enrolled in.
func (r *EnrollmentRepository) ListCourses(ctx context.Context, studentID string) ([]string, error) {
	courses := []string{}
	const query = `SELECT course_id FROM enrollments WHERE student_id = $1 ORDER BY enrolled_at ASC, course_id ASC`
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list student courses: %w", err)
	}
	return courses, nil
}
