package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/talimhub/edu-admin-api/internal/models"
	appErrors "github.com/talimhub/edu-admin-api/pkg/errors"
)

type stubBulkRepo struct {
	mu      sync.Mutex
	slots   map[string]string // slot id -> teacher id
	active  map[string]bool
	deleted []string
}

func newStubBulkRepo(slots map[string]string) *stubBulkRepo {
	return &stubBulkRepo{slots: slots, active: map[string]bool{}}
}

func (s *stubBulkRepo) SetActive(_ context.Context, id string, active bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	teacherID, ok := s.slots[id]
	if !ok {
		return "", sql.ErrNoRows
	}
	s.active[id] = active
	return teacherID, nil
}

func (s *stubBulkRepo) Delete(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	teacherID, ok := s.slots[id]
	if !ok {
		return "", sql.ErrNoRows
	}
	delete(s.slots, id)
	s.deleted = append(s.deleted, id)
	return teacherID, nil
}

type stubBulkDetector struct {
	mu          sync.Mutex
	detected    [][]string
	invalidated [][]string
	conflicts   []models.AvailabilityConflict
	err         error
}

func (s *stubBulkDetector) DetectForTeachers(_ context.Context, teacherIDs []string) ([]models.AvailabilityConflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detected = append(s.detected, teacherIDs)
	if s.err != nil {
		return nil, s.err
	}
	return s.conflicts, nil
}

func (s *stubBulkDetector) Invalidate(_ context.Context, teacherIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = append(s.invalidated, teacherIDs)
}

type stubAuditLogger struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (s *stubAuditLogger) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, log)
	return nil
}

func adminActor() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func teacherActor(teacherID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: teacherID, Role: models.RoleTeacher}
}

func TestBulkServiceSetActivePerItemIndependence(t *testing.T) {
	repo := newStubBulkRepo(map[string]string{
		"slot-1": "teacher-1",
		"slot-2": "teacher-2",
	})
	detector := &stubBulkDetector{}
	svc := NewBulkService(repo, detector, nil, 2, zap.NewNop())

	result, err := svc.SetActive(context.Background(), adminActor(), []string{"slot-1", "missing", "slot-2"}, false)
	require.NoError(t, err)
	require.Len(t, result.Items, 3)

	require.True(t, result.Items[0].Success)
	require.False(t, result.Items[1].Success)
	require.Equal(t, appErrors.ErrNotFound.Code, result.Items[1].ErrorCode)
	require.True(t, result.Items[2].Success)

	require.False(t, repo.active["slot-1"])
	require.False(t, repo.active["slot-2"])

	// One conflict pass covering every touched teacher, after the batch.
	require.Len(t, detector.detected, 1)
	require.Equal(t, []string{"teacher-1", "teacher-2"}, detector.detected[0])
}

func TestBulkServiceSetActiveIsIdempotent(t *testing.T) {
	repo := newStubBulkRepo(map[string]string{"slot-1": "teacher-1"})
	detector := &stubBulkDetector{}
	svc := NewBulkService(repo, detector, nil, 1, zap.NewNop())

	for i := 0; i < 2; i++ {
		result, err := svc.SetActive(context.Background(), adminActor(), []string{"slot-1"}, true)
		require.NoError(t, err)
		require.True(t, result.Items[0].Success)
	}
	require.True(t, repo.active["slot-1"])
}

func TestBulkServiceDelete(t *testing.T) {
	repo := newStubBulkRepo(map[string]string{
		"slot-1": "teacher-1",
		"slot-2": "teacher-1",
	})
	detector := &stubBulkDetector{}
	audit := &stubAuditLogger{}
	svc := NewBulkService(repo, detector, audit, 4, zap.NewNop())

	result, err := svc.Delete(context.Background(), adminActor(), []string{"slot-1", "slot-2", "slot-1"})
	require.NoError(t, err)
	// Duplicate ids collapse to one item each.
	require.Len(t, result.Items, 2)
	require.Len(t, repo.deleted, 2)
	require.Equal(t, []string{"teacher-1"}, detector.detected[0])

	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionBulkDelete, audit.logs[0].Action)
}

func TestBulkServiceEmptyBatchRejected(t *testing.T) {
	svc := NewBulkService(newStubBulkRepo(nil), &stubBulkDetector{}, nil, 1, zap.NewNop())

	_, err := svc.Delete(context.Background(), adminActor(), []string{"", ""})
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestBulkServiceRequiresAdmin(t *testing.T) {
	repo := newStubBulkRepo(map[string]string{"slot-1": "teacher-1"})
	svc := NewBulkService(repo, &stubBulkDetector{}, nil, 1, zap.NewNop())

	_, err := svc.SetActive(context.Background(), teacherActor("teacher-1"), []string{"slot-1"}, true)
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))

	_, err = svc.Delete(context.Background(), nil, []string{"slot-1"})
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))

	// The guard runs before any write.
	require.Empty(t, repo.deleted)
	require.Empty(t, repo.active)
}

func TestBulkServiceConflictScanFailureDoesNotFailBatch(t *testing.T) {
	repo := newStubBulkRepo(map[string]string{"slot-1": "teacher-1"})
	detector := &stubBulkDetector{err: errors.New("store unavailable")}
	svc := NewBulkService(repo, detector, nil, 1, zap.NewNop())

	result, err := svc.SetActive(context.Background(), adminActor(), []string{"slot-1"}, true)
	require.NoError(t, err)
	require.True(t, result.Items[0].Success)
	require.Empty(t, result.Conflicts)

	// Stale cache entries are dropped when the rescan could not run.
	require.Equal(t, [][]string{{"teacher-1"}}, detector.invalidated)
}

func TestBulkServiceReportsRefreshedConflicts(t *testing.T) {
	repo := newStubBulkRepo(map[string]string{"slot-1": "teacher-1"})
	detector := &stubBulkDetector{
		conflicts: []models.AvailabilityConflict{{TeacherID: "teacher-1", Pairs: []models.ConflictPair{{OverlapMinutes: 30}}}},
	}
	svc := NewBulkService(repo, detector, nil, 1, zap.NewNop())

	result, err := svc.SetActive(context.Background(), adminActor(), []string{"slot-1"}, true)
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	require.Equal(t, "teacher-1", result.Conflicts[0].TeacherID)
}
