package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments (student_id, course_id, enrolled_at)")).
		WithArgs("stu-1", "course-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), "stu-1", "course-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpsertExistingEdgeIsNoOp(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	// ON CONFLICT DO NOTHING reports zero affected rows; still a success.
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, course_id) DO NOTHING")).
		WithArgs("stu-1", "course-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Upsert(context.Background(), "stu-1", "course-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryRemoveAbsentEdgeIsNoOp(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2")).
		WithArgs("ghost", "course-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Remove(context.Background(), "ghost", "course-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListStudents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"student_id"}).AddRow("stu-1").AddRow("stu-2")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM enrollments WHERE course_id = $1")).
		WithArgs("course-1").
		WillReturnRows(rows)

	students, err := repo.ListStudents(context.Background(), "course-1")
	require.NoError(t, err)
	require.Equal(t, []string{"stu-1", "stu-2"}, students)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListStudentsEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM enrollments WHERE course_id = $1")).
		WithArgs("course-empty").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}))

	students, err := repo.ListStudents(context.Background(), "course-empty")
	require.NoError(t, err)
	require.NotNil(t, students)
	require.Empty(t, students)
	require.NoError(t, mock.ExpectationsWereMet())
}
