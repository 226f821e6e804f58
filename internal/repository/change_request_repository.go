package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/talimhub/edu-admin-api/internal/models"
)

// ChangeRequestRepository persists availability change requests.
type ChangeRequestRepository struct {
	db *sqlx.DB
}

// NewChangeRequestRepository constructs the repository.
func NewChangeRequestRepository(db *sqlx.DB) *ChangeRequestRepository {
	return &ChangeRequestRepository{db: db}
}

const requestColumns = `id, teacher_id, slot_id, change_type, requested_changes, original_data,
       status, requested_by, admin_notes, decided_by, created_at, decided_at`

// Create inserts a new pending change request.
func (r *ChangeRequestRepository) Create(ctx context.Context, request *models.AvailabilityChangeRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.RequestStatusPending
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO availability_change_requests
	(id, teacher_id, slot_id, change_type, requested_changes, original_data, status, requested_by, admin_notes, decided_by, created_at, decided_at)
	VALUES (:id, :teacher_id, :slot_id, :change_type, :requested_changes, :original_data, :status, :requested_by, :admin_notes, :decided_by, :created_at, :decided_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create change request: %w", err)
	}
	return nil
}

// GetByID fetches a change request by identifier.
func (r *ChangeRequestRepository) GetByID(ctx context.Context, id string) (*models.AvailabilityChangeRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM availability_change_requests WHERE id = $1", requestColumns)
	var request models.AvailabilityChangeRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns change requests matching the filter (newest first).
func (r *ChangeRequestRepository) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.AvailabilityChangeRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 5)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM availability_change_requests", requestColumns))

	conditions := make([]string, 0, 4)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
	}
	if filter.ChangeType != "" {
		args = append(args, filter.ChangeType)
		conditions = append(conditions, fmt.Sprintf("change_type = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC, id")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.AvailabilityChangeRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	return requests, nil
}

// DecideParams groups the columns written by a review decision.
type DecideParams struct {
	ID         string
	Status     models.RequestStatus
	DecidedBy  string
	DecidedAt  time.Time
	AdminNotes *string
}

// Decide transitions a request out of PENDING with a compare-and-set guard.
// Returns sql.ErrNoRows when the request was already decided (or absent), so
// exactly one of two concurrent decisions can win.
func (r *ChangeRequestRepository) Decide(ctx context.Context, params DecideParams) error {
	setParts := []string{
		"status = :status",
		"decided_by = :decided_by",
		"decided_at = :decided_at",
	}
	if params.AdminNotes != nil {
		setParts = append(setParts, "admin_notes = :admin_notes")
	}
	query := fmt.Sprintf("UPDATE availability_change_requests SET %s WHERE id = :id AND status = '%s'",
		strings.Join(setParts, ", "),
		models.RequestStatusPending,
	)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":          params.ID,
		"status":      params.Status,
		"decided_by":  params.DecidedBy,
		"decided_at":  params.DecidedAt,
		"admin_notes": params.AdminNotes,
	})
	if err != nil {
		return fmt.Errorf("decide change request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check decide rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Reopen reverts an APPROVED request back to PENDING after a failed replay,
// clearing the decision stamp so an admin can retry or reject.
func (r *ChangeRequestRepository) Reopen(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE availability_change_requests
	SET status = '%s', decided_by = NULL, decided_at = NULL
	WHERE id = $1 AND status = '%s'`, models.RequestStatusPending, models.RequestStatusApproved)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("reopen change request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check reopen rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
