package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tarpaulin-lms/tarpaulin-api/internal/models"
)

// SubmissionRepository handles persistence of submission metadata records.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func submissionFilterClause(filter models.SubmissionFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.AssignmentID != "" {
		conditions = append(conditions, fmt.Sprintf("assignment_id = $%d", len(args)+1))
		args = append(args, filter.AssignmentID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Count returns the number of submissions matching the filter.
func (r *SubmissionRepository) Count(ctx context.Context, filter models.SubmissionFilter) (int, error) {
	clause, args := submissionFilterClause(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM submissions"+clause, args...); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return total, nil
}

// List returns one page of submissions in stable creation order.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter, limit, offset int) ([]models.Submission, error) {
	clause, args := submissionFilterClause(filter)
	query := fmt.Sprintf(`SELECT id, assignment_id, student_id, submitted_at, content_type, blob_token, size_bytes, created_at
        FROM submissions%s ORDER BY created_at ASC, id ASC LIMIT %d OFFSET %d`, clause, limit, offset)

	submissions := []models.Submission{}
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// Create persists a new submission metadata record.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO submissions (id, assignment_id, student_id, submitted_at, content_type, blob_token, size_bytes, created_at)
        VALUES (:id, :assignment_id, :student_id, :submitted_at, :content_type, :blob_token, :size_bytes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// FindByID returns a submission metadata record by its ID.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	const query = `SELECT id, assignment_id, student_id, submitted_at, content_type, blob_token, size_bytes, created_at
        FROM submissions WHERE id = $1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}
