package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestTeacherRepositorySearchNormalisesText(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeacherRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("LOWER(full_name) LIKE $1 OR LOWER(email) LIKE $1")).
		WithArgs("%karimova%").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("teacher-1"))

	ids, err := repo.Search(context.Background(), "  Karimova ")
	require.NoError(t, err)
	require.Equal(t, []string{"teacher-1"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListByIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeacherRepository(db)

	teachers, err := repo.ListByIDs(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, teachers)

	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "rating", "active", "created_at", "updated_at"}).
		AddRow("teacher-1", "Aisha Karimova", "aisha@example.com", 4.8, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM teachers WHERE id IN ($1)")).
		WithArgs("teacher-1").
		WillReturnRows(rows)

	teachers, err = repo.ListByIDs(context.Background(), []string{"teacher-1"})
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	require.Equal(t, "Aisha Karimova", teachers[0].FullName)
	require.NoError(t, mock.ExpectationsWereMet())
}
