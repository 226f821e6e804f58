package models

import "time"

// ChangeType enumerates the mutations a change request can carry.
type ChangeType string

const (
	ChangeTypeCreate ChangeType = "CREATE"
	ChangeTypeUpdate ChangeType = "UPDATE"
	ChangeTypeDelete ChangeType = "DELETE"
)

// RequestStatus captures workflow states for availability change requests.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// AvailabilityChangeRequest stores a teacher-submitted slot mutation awaiting
// admin review. Pending is the only non-terminal state.
type AvailabilityChangeRequest struct {
	ID               string        `db:"id" json:"id"`
	TeacherID        string        `db:"teacher_id" json:"teacher_id"`
	SlotID           *string       `db:"slot_id" json:"slot_id,omitempty"`
	ChangeType       ChangeType    `db:"change_type" json:"change_type"`
	RequestedChanges []byte        `db:"requested_changes" json:"requested_changes,omitempty"`
	OriginalData     []byte        `db:"original_data" json:"original_data,omitempty"`
	Status           RequestStatus `db:"status" json:"status"`
	RequestedBy      string        `db:"requested_by" json:"requested_by"`
	AdminNotes       *string       `db:"admin_notes" json:"admin_notes,omitempty"`
	DecidedBy        *string       `db:"decided_by" json:"decided_by,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	DecidedAt        *time.Time    `db:"decided_at" json:"decided_at,omitempty"`
}

// ChangeRequestFilter constrains change-request listing queries.
type ChangeRequestFilter struct {
	Status      []RequestStatus
	TeacherID   string
	RequestedBy string
	ChangeType  ChangeType
	Limit       int
	Offset      int
}
