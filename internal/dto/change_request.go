package dto

import "github.com/talimhub/edu-admin-api/internal/models"

// RejectChangeRequest carries the optional admin explanation for a rejection.
type RejectChangeRequest struct {
	Notes string `json:"notes"`
}

// ChangeRequestQuery mirrors supported listing filters.
type ChangeRequestQuery struct {
	Status     []models.RequestStatus
	TeacherID  string
	ChangeType models.ChangeType
}
