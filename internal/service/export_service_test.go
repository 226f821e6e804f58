package service

import (
	"bytes"
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/talimhub/edu-admin-api/internal/models"
	appErrors "github.com/talimhub/edu-admin-api/pkg/errors"
)

type stubExportSlots struct {
	slots []models.AvailabilitySlot
}

func (s *stubExportSlots) List(context.Context, models.AvailabilityFilter) ([]models.AvailabilitySlot, error) {
	return s.slots, nil
}

type stubExportTeachers struct {
	teacher *models.Teacher
	err     error
}

func (s *stubExportTeachers) FindByID(context.Context, string) (*models.Teacher, error) {
	return s.teacher, s.err
}

func exportFixtureSlots() []models.AvailabilitySlot {
	return []models.AvailabilitySlot{
		slotFor("a", "teacher-1", 1, "09:00", "10:30"),
		slotFor("b", "teacher-1", 1, "14:00", "15:00"),
		slotFor("c", "teacher-1", 3, "08:00", "09:00"),
	}
}

func TestExportServiceCSV(t *testing.T) {
	svc := NewExportService(
		&stubExportSlots{slots: exportFixtureSlots()},
		&stubExportTeachers{teacher: &models.Teacher{ID: "teacher-1", FullName: "Aisha Karimova"}},
		zap.NewNop(),
	)

	result, err := svc.ExportWeekly(context.Background(), "teacher-1", "csv")
	require.NoError(t, err)
	require.Equal(t, "text/csv", result.ContentType)
	require.Equal(t, "availability-teacher-1.csv", result.Filename)

	lines := bytes.Split(bytes.TrimSpace(result.Content), []byte("\n"))
	require.Len(t, lines, 4)
	require.Equal(t, "Day,Start,End,Capacity,Status", string(bytes.TrimSpace(lines[0])))
	require.Contains(t, string(lines[1]), "Monday")
	require.Contains(t, string(lines[3]), "Wednesday")
}

func TestExportServicePDF(t *testing.T) {
	svc := NewExportService(
		&stubExportSlots{slots: exportFixtureSlots()},
		&stubExportTeachers{teacher: &models.Teacher{ID: "teacher-1", FullName: "Aisha Karimova"}},
		zap.NewNop(),
	)

	result, err := svc.ExportWeekly(context.Background(), "teacher-1", "pdf")
	require.NoError(t, err)
	require.Equal(t, "application/pdf", result.ContentType)
	require.True(t, bytes.HasPrefix(result.Content, []byte("%PDF")))
}

func TestExportServiceUnknownFormat(t *testing.T) {
	svc := NewExportService(&stubExportSlots{}, &stubExportTeachers{}, zap.NewNop())

	_, err := svc.ExportWeekly(context.Background(), "teacher-1", "xlsx")
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestExportServiceUnknownTeacher(t *testing.T) {
	svc := NewExportService(&stubExportSlots{}, &stubExportTeachers{err: sql.ErrNoRows}, zap.NewNop())

	_, err := svc.ExportWeekly(context.Background(), "missing", "csv")
	require.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}
