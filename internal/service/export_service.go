package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/talimhub/edu-admin-api/internal/models"
	appErrors "github.com/talimhub/edu-admin-api/pkg/errors"
	"github.com/talimhub/edu-admin-api/pkg/export"
)

type exportSlotSource interface {
	List(ctx context.Context, filter models.AvailabilityFilter) ([]models.AvailabilitySlot, error)
}

type exportTeacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// ExportResult is a rendered schedule document.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders one teacher's weekly availability as CSV or PDF for
// the admin console's download action.
type ExportService struct {
	slots    exportSlotSource
	teachers exportTeacherLookup
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(slots exportSlotSource, teachers exportTeacherLookup, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		slots:    slots,
		teachers: teachers,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

var dayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

var scheduleHeaders = []string{"Day", "Start", "End", "Capacity", "Status"}

// ExportWeekly renders the teacher's slots in day order. Format is "csv" or
// "pdf".
func (s *ExportService) ExportWeekly(ctx context.Context, teacherID, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	slots, err := s.slots.List(ctx, models.AvailabilityFilter{TeacherID: teacherID})
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("Weekly availability - %s", teacher.FullName)
	base := fmt.Sprintf("availability-%s", teacherID)

	if format == "csv" {
		content, err := s.csv.Render(export.Dataset{Headers: scheduleHeaders, Rows: slotRows(slots)})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: base + ".csv"}, nil
	}

	content, err := s.pdf.RenderSections(scheduleHeaders[1:], slotSections(slots), title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
	}
	return &ExportResult{Content: content, ContentType: "application/pdf", Filename: base + ".pdf"}, nil
}

func slotRows(slots []models.AvailabilitySlot) []map[string]string {
	rows := make([]map[string]string, 0, len(slots))
	for _, slot := range slots {
		rows = append(rows, map[string]string{
			"Day":      dayName(slot.DayOfWeek),
			"Start":    slot.StartTime,
			"End":      slot.EndTime,
			"Capacity": strconv.Itoa(slot.MaxStudents),
			"Status":   slotStatus(slot),
		})
	}
	return rows
}

func slotSections(slots []models.AvailabilitySlot) []export.Section {
	var sections []export.Section
	currentDay := -1
	for _, slot := range slots {
		if slot.DayOfWeek != currentDay {
			currentDay = slot.DayOfWeek
			sections = append(sections, export.Section{Title: dayName(currentDay)})
		}
		section := &sections[len(sections)-1]
		section.Rows = append(section.Rows, map[string]string{
			"Start":    slot.StartTime,
			"End":      slot.EndTime,
			"Capacity": strconv.Itoa(slot.MaxStudents),
			"Status":   slotStatus(slot),
		})
	}
	return sections
}

func dayName(day int) string {
	if day < 0 || day >= len(dayNames) {
		return strconv.Itoa(day)
	}
	return dayNames[day]
}

func slotStatus(slot models.AvailabilitySlot) string {
	if slot.IsActive {
		return "active"
	}
	return "inactive"
}
