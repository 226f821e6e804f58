package dto

import "github.com/talimhub/edu-admin-api/internal/models"

// CreateAvailabilityRequest payload for creating a slot (directly as admin or
// as a teacher-submitted change request).
type CreateAvailabilityRequest struct {
	TeacherID   string `json:"teacher_id" validate:"required"`
	DayOfWeek   *int   `json:"day_of_week" validate:"required"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
	MaxStudents *int   `json:"max_students" validate:"required"`
	IsActive    *bool  `json:"is_active"`
}

// UpdateAvailabilityRequest carries a partial slot update; nil fields keep
// their current values.
type UpdateAvailabilityRequest struct {
	DayOfWeek   *int    `json:"day_of_week"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	MaxStudents *int    `json:"max_students"`
	IsActive    *bool   `json:"is_active"`
}

// BulkSetActiveRequest targets many slots with one activation flag.
type BulkSetActiveRequest struct {
	IDs    []string `json:"ids" validate:"required,min=1"`
	Active *bool    `json:"active" validate:"required"`
}

// BulkDeleteRequest targets many slots for deletion.
type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// SubmitOutcome is the result of routing a mutation through the approval
// workflow: either the applied slot (admin pass-through) or the pending
// request (teacher submission). Delete pass-throughs carry neither.
type SubmitOutcome struct {
	Slot    *models.AvailabilitySlot          `json:"slot,omitempty"`
	Request *models.AvailabilityChangeRequest `json:"request,omitempty"`
}

// Pending reports whether the mutation was captured for approval instead of
// applied.
func (o SubmitOutcome) Pending() bool {
	return o.Request != nil
}
