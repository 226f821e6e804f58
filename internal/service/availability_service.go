package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/talimhub/edu-admin-api/internal/dto"
	"github.com/talimhub/edu-admin-api/internal/models"
	appErrors "github.com/talimhub/edu-admin-api/pkg/errors"
)

type availabilityRepository interface {
	Create(ctx context.Context, slot *models.AvailabilitySlot) error
	FindByID(ctx context.Context, id string) (*models.AvailabilitySlot, error)
	Update(ctx context.Context, slot *models.AvailabilitySlot) error
	Delete(ctx context.Context, id string) (string, error)
	List(ctx context.Context, filter models.AvailabilityFilter) ([]models.AvailabilitySlot, error)
}

type teacherDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Teacher, error)
	Search(ctx context.Context, text string) ([]string, error)
}

type conflictInvalidator interface {
	Invalidate(ctx context.Context, teacherIDs ...string)
}

// AvailabilityService owns availability slot records: every write validates
// the slot invariants first, and every committed write invalidates the
// owning teacher's cached conflicts.
type AvailabilityService struct {
	repo      availabilityRepository
	directory teacherDirectory
	conflicts conflictInvalidator
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(repo availabilityRepository, directory teacherDirectory, conflicts conflictInvalidator, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		repo:      repo,
		directory: directory,
		conflicts: conflicts,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Create validates and persists a new slot.
func (s *AvailabilityService) Create(ctx context.Context, req dto.CreateAvailabilityRequest) (*models.AvailabilitySlot, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "missing required fields")
	}
	slot, err := slotFromCreateRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability slot")
	}
	s.invalidateConflicts(ctx, slot.TeacherID)
	return &slot, nil
}

// Get returns a single slot by id.
func (s *AvailabilityService) Get(ctx context.Context, id string) (*models.AvailabilitySlot, error) {
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability slot")
	}
	return slot, nil
}

// Update merges the submitted fields over the current record, re-validates
// the merged slot and persists it.
func (s *AvailabilityService) Update(ctx context.Context, id string, req dto.UpdateAvailabilityRequest) (*models.AvailabilitySlot, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := mergeSlot(*current, req)
	if err := validateSlot(merged); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &merged); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability slot")
	}
	s.invalidateConflicts(ctx, merged.TeacherID)
	return &merged, nil
}

// Delete removes a slot.
func (s *AvailabilityService) Delete(ctx context.Context, id string) error {
	teacherID, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability slot")
	}
	s.invalidateConflicts(ctx, teacherID)
	return nil
}

// List returns slots matching the filter. A non-empty Search restricts the
// result to teachers whose name or email matches the text.
func (s *AvailabilityService) List(ctx context.Context, filter models.AvailabilityFilter) ([]models.AvailabilitySlot, error) {
	var searchIDs map[string]struct{}
	if filter.Search != "" {
		ids, err := s.directory.Search(ctx, filter.Search)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search teacher directory")
		}
		if len(ids) == 0 {
			return []models.AvailabilitySlot{}, nil
		}
		searchIDs = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			searchIDs[id] = struct{}{}
		}
	}

	slots, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability slots")
	}
	if searchIDs == nil {
		return slots, nil
	}

	matched := make([]models.AvailabilitySlot, 0, len(slots))
	for _, slot := range slots {
		if _, ok := searchIDs[slot.TeacherID]; ok {
			matched = append(matched, slot)
		}
	}
	return matched, nil
}

// ListWithTeachers lists slots and embeds directory records for display.
// Directory failures degrade to bare slots rather than failing the listing.
func (s *AvailabilityService) ListWithTeachers(ctx context.Context, filter models.AvailabilityFilter) ([]models.AvailabilitySlotView, error) {
	slots, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	views := make([]models.AvailabilitySlotView, len(slots))
	for i, slot := range slots {
		views[i] = models.AvailabilitySlotView{AvailabilitySlot: slot}
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0, len(slots))
	for _, slot := range slots {
		if _, ok := seen[slot.TeacherID]; !ok {
			seen[slot.TeacherID] = struct{}{}
			ids = append(ids, slot.TeacherID)
		}
	}
	teachers, err := s.directory.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("teacher enrichment failed, returning bare slots", zap.Error(err))
		return views, nil
	}

	refs := make(map[string]models.TeacherRef, len(teachers))
	for _, teacher := range teachers {
		refs[teacher.ID] = teacher.Ref()
	}
	for i := range views {
		if ref, ok := refs[views[i].TeacherID]; ok {
			r := ref
			views[i].Teacher = &r
		}
	}
	return views, nil
}

func (s *AvailabilityService) invalidateConflicts(ctx context.Context, teacherID string) {
	if s.conflicts == nil {
		return
	}
	s.conflicts.Invalidate(ctx, teacherID)
}

// slotFromCreateRequest builds and validates a slot from a create payload.
func slotFromCreateRequest(req dto.CreateAvailabilityRequest) (models.AvailabilitySlot, error) {
	if req.DayOfWeek == nil {
		return models.AvailabilitySlot{}, appErrors.Clone(appErrors.ErrValidation, "day_of_week is required")
	}
	if req.MaxStudents == nil {
		return models.AvailabilitySlot{}, appErrors.Clone(appErrors.ErrValidation, "max_students is required")
	}
	slot := models.AvailabilitySlot{
		TeacherID:   req.TeacherID,
		DayOfWeek:   *req.DayOfWeek,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		MaxStudents: *req.MaxStudents,
		IsActive:    true,
	}
	if req.IsActive != nil {
		slot.IsActive = *req.IsActive
	}
	if err := validateSlot(slot); err != nil {
		return models.AvailabilitySlot{}, err
	}
	return slot, nil
}

// mergeSlot overlays the submitted partial update onto the current record.
func mergeSlot(current models.AvailabilitySlot, req dto.UpdateAvailabilityRequest) models.AvailabilitySlot {
	if req.DayOfWeek != nil {
		current.DayOfWeek = *req.DayOfWeek
	}
	if req.StartTime != nil {
		current.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		current.EndTime = *req.EndTime
	}
	if req.MaxStudents != nil {
		current.MaxStudents = *req.MaxStudents
	}
	if req.IsActive != nil {
		current.IsActive = *req.IsActive
	}
	return current
}

// validateSlot enforces the slot invariants, naming the offending field.
func validateSlot(slot models.AvailabilitySlot) error {
	if slot.TeacherID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "teacher_id is required")
	}
	if slot.DayOfWeek < models.MinDayOfWeek || slot.DayOfWeek > models.MaxDayOfWeek {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("day_of_week must be between %d and %d", models.MinDayOfWeek, models.MaxDayOfWeek))
	}
	start, err := models.MinuteOfDay(slot.StartTime)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("start_time: %v", err))
	}
	end, err := models.MinuteOfDay(slot.EndTime)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("end_time: %v", err))
	}
	if start >= end {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	if slot.MaxStudents < models.MinSlotCapacity || slot.MaxStudents > models.MaxSlotCapacity {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("max_students must be between %d and %d", models.MinSlotCapacity, models.MaxSlotCapacity))
	}
	return nil
}
