package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionSlotCreate     = "SLOT_CREATE"
	AuditActionSlotUpdate     = "SLOT_UPDATE"
	AuditActionSlotDelete     = "SLOT_DELETE"
	AuditActionBulkSetActive  = "SLOT_BULK_SET_ACTIVE"
	AuditActionBulkDelete     = "SLOT_BULK_DELETE"
	AuditActionRequestSubmit  = "CHANGE_REQUEST_SUBMIT"
	AuditActionRequestApprove = "CHANGE_REQUEST_APPROVE"
	AuditActionRequestReject  = "CHANGE_REQUEST_REJECT"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
