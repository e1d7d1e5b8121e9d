package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/tarpaulin-lms/tarpaulin-api/internal/models"
)

func TestCourseRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"id", "subject", "number", "title", "term", "instructor_id", "created_at"}).
		AddRow("course-1", "CS", 493, "Cloud Application Development", "sp26", "inst-1", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE subject = $1 AND term = $2 ORDER BY created_at ASC, id ASC LIMIT 10 OFFSET 20")).
		WithArgs("CS", "sp26").
		WillReturnRows(rows)

	courses, err := repo.List(context.Background(), models.CourseFilter{Subject: "CS", Term: "sp26"}, 10, 20)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Equal(t, "CS", courses[0].Subject)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListUnfiltered(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses ORDER BY created_at ASC, id ASC LIMIT 10 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject", "number", "title", "term", "instructor_id", "created_at"}))

	courses, err := repo.List(context.Background(), models.CourseFilter{}, 10, 0)
	require.NoError(t, err)
	require.Empty(t, courses)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCount(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE number = $1")).
		WithArgs(493).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

	total, err := repo.Count(context.Background(), models.CourseFilter{Number: 493})
	require.NoError(t, err)
	require.Equal(t, 25, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET")).
		WithArgs("missing", "CS", 493, "Title", "sp26", "inst-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Course{
		ID: "missing", Subject: "CS", Number: 493, Title: "Title", Term: "sp26", InstructorID: "inst-1",
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "course-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
