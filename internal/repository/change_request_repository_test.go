package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/talimhub/edu-admin-api/internal/models"
)

func requestRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "teacher_id", "slot_id", "change_type", "requested_changes", "original_data",
		"status", "requested_by", "admin_notes", "decided_by", "created_at", "decided_at"})
}

func TestChangeRequestRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO availability_change_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	request := &models.AvailabilityChangeRequest{
		TeacherID:        "teacher-1",
		ChangeType:       models.ChangeTypeCreate,
		RequestedChanges: []byte(`{"start_time":"09:00"}`),
		RequestedBy:      "teacher-1",
	}
	require.NoError(t, repo.Create(context.Background(), request))
	require.NotEmpty(t, request.ID)
	require.Equal(t, models.RequestStatusPending, request.Status)

	rows := requestRows().
		AddRow(request.ID, "teacher-1", nil, "CREATE", `{"start_time":"09:00"}`, nil,
			"PENDING", "teacher-1", nil, nil, time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, teacher_id, slot_id")).
		WithArgs(request.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), request.ID)
	require.NoError(t, err)
	require.Equal(t, models.ChangeTypeCreate, found.ChangeType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	rows := requestRows().
		AddRow("req-1", "teacher-1", nil, "CREATE", `{}`, nil, "PENDING", "teacher-1", nil, nil, time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("status IN ($1)")).
		WithArgs("PENDING", "teacher-1").
		WillReturnRows(rows)

	requests, err := repo.List(context.Background(), models.ChangeRequestFilter{
		Status:    []models.RequestStatus{models.RequestStatusPending},
		TeacherID: "teacher-1",
	})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	require.Equal(t, "req-1", requests[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryDecideWinsOnce(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE availability_change_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	params := DecideParams{
		ID:        "req-1",
		Status:    models.RequestStatusApproved,
		DecidedBy: "admin-1",
		DecidedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Decide(context.Background(), params))

	// A second decision matches no pending row.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE availability_change_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Decide(context.Background(), params)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryDecideWithNotes(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("admin_notes =")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	notes := "slot overlaps assembly"
	require.NoError(t, repo.Decide(context.Background(), DecideParams{
		ID:         "req-1",
		Status:     models.RequestStatusRejected,
		DecidedBy:  "admin-1",
		DecidedAt:  time.Now().UTC(),
		AdminNotes: &notes,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryReopen(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'PENDING', decided_by = NULL, decided_at = NULL")).
		WithArgs("req-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Reopen(context.Background(), "req-1"))

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'PENDING'")).
		WithArgs("req-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Reopen(context.Background(), "req-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
