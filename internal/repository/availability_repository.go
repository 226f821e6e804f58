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

// AvailabilityRepository persists teacher availability slots.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

const slotColumns = "id, teacher_id, day_of_week, start_time, end_time, max_students, is_active, created_at, updated_at"

// Create inserts a new slot row, assigning id and timestamps.
func (r *AvailabilityRepository) Create(ctx context.Context, slot *models.AvailabilitySlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now

	const query = `INSERT INTO availability_slots
	(id, teacher_id, day_of_week, start_time, end_time, max_students, is_active, created_at, updated_at)
	VALUES (:id, :teacher_id, :day_of_week, :start_time, :end_time, :max_students, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create availability slot: %w", err)
	}
	return nil
}

// FindByID fetches a slot by identifier.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.AvailabilitySlot, error) {
	query := fmt.Sprintf("SELECT %s FROM availability_slots WHERE id = $1", slotColumns)
	var slot models.AvailabilitySlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// Update persists a full slot row and bumps updated_at. Returns
// sql.ErrNoRows when the slot no longer exists.
func (r *AvailabilityRepository) Update(ctx context.Context, slot *models.AvailabilitySlot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE availability_slots
	SET teacher_id = :teacher_id, day_of_week = :day_of_week, start_time = :start_time,
	    end_time = :end_time, max_students = :max_students, is_active = :is_active, updated_at = :updated_at
	WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, slot)
	if err != nil {
		return fmt.Errorf("update availability slot: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check slot update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a slot and reports the owning teacher. Returns
// sql.ErrNoRows when the slot is already gone.
func (r *AvailabilityRepository) Delete(ctx context.Context, id string) (string, error) {
	const query = `DELETE FROM availability_slots WHERE id = $1 RETURNING teacher_id`
	var teacherID string
	if err := r.db.GetContext(ctx, &teacherID, query, id); err != nil {
		return "", err
	}
	return teacherID, nil
}

// SetActive flips a slot's activation flag and reports the owning teacher.
// Setting the flag to its current value still succeeds. Returns
// sql.ErrNoRows when the slot does not exist.
func (r *AvailabilityRepository) SetActive(ctx context.Context, id string, active bool) (string, error) {
	const query = `UPDATE availability_slots SET is_active = $2, updated_at = $3 WHERE id = $1 RETURNING teacher_id`
	var teacherID string
	if err := r.db.GetContext(ctx, &teacherID, query, id, active, time.Now().UTC()); err != nil {
		return "", err
	}
	return teacherID, nil
}

// List returns slots matching the filter in the stable order
// teacher_id, day_of_week, start_time, id.
func (r *AvailabilityRepository) List(ctx context.Context, filter models.AvailabilityFilter) ([]models.AvailabilitySlot, error) {
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if filter.DayOfWeek != nil {
		args = append(args, *filter.DayOfWeek)
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}

	query := fmt.Sprintf("SELECT %s FROM availability_slots", slotColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY teacher_id, day_of_week, start_time, id"

	var slots []models.AvailabilitySlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list availability slots: %w", err)
	}
	return slots, nil
}

// ListActiveByTeachers returns active slots for the given teachers, or for
// all teachers when the id list is empty, in the stable list order.
func (r *AvailabilityRepository) ListActiveByTeachers(ctx context.Context, teacherIDs []string) ([]models.AvailabilitySlot, error) {
	query := fmt.Sprintf("SELECT %s FROM availability_slots WHERE is_active = TRUE", slotColumns)
	var args []interface{}

	if len(teacherIDs) > 0 {
		placeholders := make([]string, len(teacherIDs))
		for i, id := range teacherIDs {
			args = append(args, id)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		query += fmt.Sprintf(" AND teacher_id IN (%s)", strings.Join(placeholders, ","))
	}
	query += " ORDER BY teacher_id, day_of_week, start_time, id"

	var slots []models.AvailabilitySlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list active slots by teacher: %w", err)
	}
	return slots, nil
}
