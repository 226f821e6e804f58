package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/talimhub/edu-admin-api/internal/dto"
	"github.com/talimhub/edu-admin-api/internal/models"
	appErrors "github.com/talimhub/edu-admin-api/pkg/errors"
)

type stubSlotRepo struct {
	createFn   func(ctx context.Context, slot *models.AvailabilitySlot) error
	findByIDFn func(ctx context.Context, id string) (*models.AvailabilitySlot, error)
	updateFn   func(ctx context.Context, slot *models.AvailabilitySlot) error
	deleteFn   func(ctx context.Context, id string) (string, error)
	listFn     func(ctx context.Context, filter models.AvailabilityFilter) ([]models.AvailabilitySlot, error)
}

func (s *stubSlotRepo) Create(ctx context.Context, slot *models.AvailabilitySlot) error {
	return s.createFn(ctx, slot)
}

func (s *stubSlotRepo) FindByID(ctx context.Context, id string) (*models.AvailabilitySlot, error) {
	return s.findByIDFn(ctx, id)
}

func (s *stubSlotRepo) Update(ctx context.Context, slot *models.AvailabilitySlot) error {
	return s.updateFn(ctx, slot)
}

func (s *stubSlotRepo) Delete(ctx context.Context, id string) (string, error) {
	return s.deleteFn(ctx, id)
}

func (s *stubSlotRepo) List(ctx context.Context, filter models.AvailabilityFilter) ([]models.AvailabilitySlot, error) {
	return s.listFn(ctx, filter)
}

type stubTeacherDirectory struct {
	findByIDFn  func(ctx context.Context, id string) (*models.Teacher, error)
	listByIDsFn func(ctx context.Context, ids []string) ([]models.Teacher, error)
	searchFn    func(ctx context.Context, text string) ([]string, error)
}

func (s *stubTeacherDirectory) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	return s.findByIDFn(ctx, id)
}

func (s *stubTeacherDirectory) ListByIDs(ctx context.Context, ids []string) ([]models.Teacher, error) {
	return s.listByIDsFn(ctx, ids)
}

func (s *stubTeacherDirectory) Search(ctx context.Context, text string) ([]string, error) {
	return s.searchFn(ctx, text)
}

type stubInvalidator struct {
	calls [][]string
}

func (s *stubInvalidator) Invalidate(_ context.Context, teacherIDs ...string) {
	s.calls = append(s.calls, teacherIDs)
}

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func validCreateRequest() dto.CreateAvailabilityRequest {
	return dto.CreateAvailabilityRequest{
		TeacherID:   "teacher-1",
		DayOfWeek:   intPtr(1),
		StartTime:   "09:00",
		EndTime:     "10:30",
		MaxStudents: intPtr(8),
	}
}

func TestAvailabilityServiceCreate(t *testing.T) {
	var stored *models.AvailabilitySlot
	repo := &stubSlotRepo{
		createFn: func(_ context.Context, slot *models.AvailabilitySlot) error {
			slot.ID = "slot-1"
			stored = slot
			return nil
		},
	}
	invalidator := &stubInvalidator{}
	svc := NewAvailabilityService(repo, nil, invalidator, zap.NewNop())

	slot, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	require.Equal(t, "slot-1", slot.ID)
	require.True(t, slot.IsActive)
	require.Equal(t, stored.TeacherID, slot.TeacherID)
	require.Equal(t, [][]string{{"teacher-1"}}, invalidator.calls)
}

func TestAvailabilityServiceCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*dto.CreateAvailabilityRequest)
	}{
		{"missing teacher", func(r *dto.CreateAvailabilityRequest) { r.TeacherID = "" }},
		{"day too large", func(r *dto.CreateAvailabilityRequest) { r.DayOfWeek = intPtr(7) }},
		{"negative day", func(r *dto.CreateAvailabilityRequest) { r.DayOfWeek = intPtr(-1) }},
		{"unpadded start", func(r *dto.CreateAvailabilityRequest) { r.StartTime = "9:30" }},
		{"garbage end", func(r *dto.CreateAvailabilityRequest) { r.EndTime = "25:00" }},
		{"start after end", func(r *dto.CreateAvailabilityRequest) { r.StartTime = "11:00"; r.EndTime = "10:00" }},
		{"equal start end", func(r *dto.CreateAvailabilityRequest) { r.StartTime = "10:00"; r.EndTime = "10:00" }},
		{"zero capacity", func(r *dto.CreateAvailabilityRequest) { r.MaxStudents = intPtr(0) }},
		{"capacity above limit", func(r *dto.CreateAvailabilityRequest) { r.MaxStudents = intPtr(51) }},
	}

	repo := &stubSlotRepo{
		createFn: func(context.Context, *models.AvailabilitySlot) error {
			t.Fatal("store must not be touched for invalid payloads")
			return nil
		},
	}
	svc := NewAvailabilityService(repo, nil, nil, zap.NewNop())

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateRequest()
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), req)
			require.Error(t, err)
			require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
		})
	}
}

func TestAvailabilityServiceUpdateMergesAndRevalidates(t *testing.T) {
	current := &models.AvailabilitySlot{
		ID: "slot-1", TeacherID: "teacher-1", DayOfWeek: 2,
		StartTime: "09:00", EndTime: "10:00", MaxStudents: 5, IsActive: true,
	}
	repo := &stubSlotRepo{
		findByIDFn: func(_ context.Context, id string) (*models.AvailabilitySlot, error) {
			require.Equal(t, "slot-1", id)
			snapshot := *current
			return &snapshot, nil
		},
		updateFn: func(_ context.Context, slot *models.AvailabilitySlot) error {
			require.Equal(t, "11:00", slot.EndTime)
			require.Equal(t, "09:00", slot.StartTime)
			return nil
		},
	}
	svc := NewAvailabilityService(repo, nil, nil, zap.NewNop())

	updated, err := svc.Update(context.Background(), "slot-1", dto.UpdateAvailabilityRequest{EndTime: strPtr("11:00")})
	require.NoError(t, err)
	require.Equal(t, "11:00", updated.EndTime)
	require.Equal(t, 5, updated.MaxStudents)

	// A partial update that breaks the window invariant never reaches the store.
	repo.updateFn = func(context.Context, *models.AvailabilitySlot) error {
		t.Fatal("invalid merged slot must not be persisted")
		return nil
	}
	_, err = svc.Update(context.Background(), "slot-1", dto.UpdateAvailabilityRequest{EndTime: strPtr("08:00")})
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestAvailabilityServiceDeleteNotFound(t *testing.T) {
	repo := &stubSlotRepo{
		deleteFn: func(context.Context, string) (string, error) {
			return "", sql.ErrNoRows
		},
	}
	svc := NewAvailabilityService(repo, nil, nil, zap.NewNop())

	err := svc.Delete(context.Background(), "missing")
	require.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestAvailabilityServiceListSearchFiltersByDirectory(t *testing.T) {
	repo := &stubSlotRepo{
		listFn: func(context.Context, models.AvailabilityFilter) ([]models.AvailabilitySlot, error) {
			return []models.AvailabilitySlot{
				{ID: "a", TeacherID: "teacher-1"},
				{ID: "b", TeacherID: "teacher-2"},
			}, nil
		},
	}
	directory := &stubTeacherDirectory{
		searchFn: func(_ context.Context, text string) ([]string, error) {
			require.Equal(t, "smith", text)
			return []string{"teacher-2"}, nil
		},
	}
	svc := NewAvailabilityService(repo, directory, nil, zap.NewNop())

	slots, err := svc.List(context.Background(), models.AvailabilityFilter{Search: "smith"})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.Equal(t, "b", slots[0].ID)
}

func TestAvailabilityServiceListWithTeachersDegradesOnDirectoryError(t *testing.T) {
	repo := &stubSlotRepo{
		listFn: func(context.Context, models.AvailabilityFilter) ([]models.AvailabilitySlot, error) {
			return []models.AvailabilitySlot{{ID: "a", TeacherID: "teacher-1"}}, nil
		},
	}
	directory := &stubTeacherDirectory{
		listByIDsFn: func(context.Context, []string) ([]models.Teacher, error) {
			return nil, sql.ErrConnDone
		},
	}
	svc := NewAvailabilityService(repo, directory, nil, zap.NewNop())

	views, err := svc.ListWithTeachers(context.Background(), models.AvailabilityFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Nil(t, views[0].Teacher)
}

func TestAvailabilityServiceListWithTeachersEmbedsDirectory(t *testing.T) {
	repo := &stubSlotRepo{
		listFn: func(context.Context, models.AvailabilityFilter) ([]models.AvailabilitySlot, error) {
			return []models.AvailabilitySlot{
				{ID: "a", TeacherID: "teacher-1"},
				{ID: "b", TeacherID: "teacher-1"},
			}, nil
		},
	}
	directory := &stubTeacherDirectory{
		listByIDsFn: func(_ context.Context, ids []string) ([]models.Teacher, error) {
			require.Equal(t, []string{"teacher-1"}, ids)
			return []models.Teacher{{ID: "teacher-1", FullName: "Aisha Karimova", Email: "aisha@example.com"}}, nil
		},
	}
	svc := NewAvailabilityService(repo, directory, nil, zap.NewNop())

	views, err := svc.ListWithTeachers(context.Background(), models.AvailabilityFilter{})
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.NotNil(t, views[0].Teacher)
	require.Equal(t, "Aisha Karimova", views[0].Teacher.Name)
}
