package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/talimhub/edu-admin-api/internal/models"
)

// TeacherRepository reads the teacher directory. The roster is owned by
// another part of the platform; this repository is lookup-only.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

const teacherColumns = "id, full_name, email, rating, active, created_at, updated_at"

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE id = $1", teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ListByIDs returns the teachers matching the given ids.
func (r *TeacherRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Teacher, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE id IN (%s) ORDER BY id", teacherColumns, strings.Join(placeholders, ","))

	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, fmt.Errorf("list teachers by ids: %w", err)
	}
	return teachers, nil
}

// Search returns teacher ids whose name or email matches the given text.
func (r *TeacherRepository) Search(ctx context.Context, text string) ([]string, error) {
	search := "%" + strings.ToLower(strings.TrimSpace(text)) + "%"
	const query = `SELECT id FROM teachers WHERE LOWER(full_name) LIKE $1 OR LOWER(email) LIKE $1 ORDER BY id`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, search); err != nil {
		return nil, fmt.Errorf("search teachers: %w", err)
	}
	return ids, nil
}
