package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/talimhub/edu-admin-api/internal/models"
	appErrors "github.com/talimhub/edu-admin-api/pkg/errors"
	"github.com/talimhub/edu-admin-api/pkg/jobs"
)

type conflictSlotSource interface {
	ListActiveByTeachers(ctx context.Context, teacherIDs []string) ([]models.AvailabilitySlot, error)
}

// ConflictCache stores per-teacher conflict results on the read side.
type ConflictCache interface {
	Get(ctx context.Context, teacherID string) ([]models.AvailabilityConflict, bool)
	Set(ctx context.Context, teacherID string, conflicts []models.AvailabilityConflict)
	Invalidate(ctx context.Context, teacherIDs ...string)
}

type refreshQueue interface {
	TryEnqueue(job jobs.Job) bool
}

// ConflictService finds overlapping active slots per teacher and weekday. It
// only ever reads the slot store.
type ConflictService struct {
	slots   conflictSlotSource
	cache   ConflictCache
	refresh refreshQueue
	metrics *MetricsService
	logger  *zap.Logger
}

// ConflictServiceOption configures the service.
type ConflictServiceOption func(*ConflictService)

// WithConflictCache attaches a read-side cache.
func WithConflictCache(cache ConflictCache) ConflictServiceOption {
	return func(s *ConflictService) { s.cache = cache }
}

// WithConflictRefreshQueue attaches the background cache-warming queue.
func WithConflictRefreshQueue(queue refreshQueue) ConflictServiceOption {
	return func(s *ConflictService) { s.refresh = queue }
}

// WithConflictMetrics attaches scan instrumentation.
func WithConflictMetrics(metrics *MetricsService) ConflictServiceOption {
	return func(s *ConflictService) { s.metrics = metrics }
}

// NewConflictService constructs the service.
func NewConflictService(slots conflictSlotSource, logger *zap.Logger, opts ...ConflictServiceOption) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ConflictService{slots: slots, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Detect returns the conflicts for one teacher, or for all teachers when
// teacherID is empty. Single-teacher lookups are served from cache when warm.
func (s *ConflictService) Detect(ctx context.Context, teacherID string) ([]models.AvailabilityConflict, error) {
	if teacherID != "" && s.cache != nil {
		if conflicts, ok := s.cache.Get(ctx, teacherID); ok {
			return conflicts, nil
		}
	}

	var ids []string
	if teacherID != "" {
		ids = []string{teacherID}
	}
	conflicts, err := s.scan(ctx, ids)
	if err != nil {
		return nil, err
	}

	if teacherID != "" && s.cache != nil {
		s.cache.Set(ctx, teacherID, conflicts)
	}
	return conflicts, nil
}

// DetectForTeachers recomputes conflicts for the given teachers from a fresh
// store read, rewarming the cache for each of them. Bulk mutations call this
// once after all batch writes have completed.
func (s *ConflictService) DetectForTeachers(ctx context.Context, teacherIDs []string) ([]models.AvailabilityConflict, error) {
	if len(teacherIDs) == 0 {
		return []models.AvailabilityConflict{}, nil
	}
	conflicts, err := s.scan(ctx, teacherIDs)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		byTeacher := make(map[string][]models.AvailabilityConflict, len(conflicts))
		for _, conflict := range conflicts {
			byTeacher[conflict.TeacherID] = []models.AvailabilityConflict{conflict}
		}
		for _, id := range teacherIDs {
			group, ok := byTeacher[id]
			if !ok {
				group = []models.AvailabilityConflict{}
			}
			s.cache.Set(ctx, id, group)
		}
	}
	return conflicts, nil
}

// Invalidate drops cached conflicts for the given teachers and queues a
// background rewarm.
func (s *ConflictService) Invalidate(ctx context.Context, teacherIDs ...string) {
	if len(teacherIDs) == 0 {
		return
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, teacherIDs...)
	}
	if s.refresh != nil {
		for _, id := range teacherIDs {
			s.refresh.TryEnqueue(jobs.Job{Type: jobConflictRefresh, Payload: id})
		}
	}
}

const jobConflictRefresh = "conflict_refresh"

// AttachRefreshQueue wires the rewarm queue after construction. The queue's
// handler comes from this service, so it cannot exist before the service does.
func (s *ConflictService) AttachRefreshQueue(queue refreshQueue) {
	s.refresh = queue
}

// RefreshHandler returns the jobs handler that rewarms one teacher's cached
// conflicts.
func (s *ConflictService) RefreshHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		teacherID, ok := job.Payload.(string)
		if !ok || teacherID == "" {
			return nil
		}
		_, err := s.DetectForTeachers(ctx, []string{teacherID})
		return err
	}
}

func (s *ConflictService) scan(ctx context.Context, teacherIDs []string) ([]models.AvailabilityConflict, error) {
	start := time.Now()
	slots, err := s.slots.ListActiveByTeachers(ctx, teacherIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active slots")
	}

	conflicts := s.compute(slots)

	pairs := 0
	for _, conflict := range conflicts {
		pairs += len(conflict.Pairs)
	}
	if s.metrics != nil {
		s.metrics.ObserveConflictScan(time.Since(start), pairs)
	}
	return conflicts, nil
}

// compute walks the slots, already in stable (teacher, day, start, id) order,
// and compares every unordered pair within a (teacher, day) group once.
// Groups are small, so the quadratic pass is fine.
func (s *ConflictService) compute(slots []models.AvailabilitySlot) []models.AvailabilityConflict {
	type window struct {
		slot       models.AvailabilitySlot
		start, end int
	}

	conflicts := []models.AvailabilityConflict{}
	var current *models.AvailabilityConflict

	var group []window
	groupTeacher := ""
	groupDay := -1

	flush := func() {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				overlapStart := maxInt(a.start, b.start)
				overlapEnd := minInt(a.end, b.end)
				if overlapStart >= overlapEnd {
					continue
				}
				if current == nil || current.TeacherID != a.slot.TeacherID {
					conflicts = append(conflicts, models.AvailabilityConflict{TeacherID: a.slot.TeacherID})
					current = &conflicts[len(conflicts)-1]
				}
				current.Pairs = append(current.Pairs, models.ConflictPair{
					First:          a.slot,
					Second:         b.slot,
					OverlapMinutes: overlapEnd - overlapStart,
				})
			}
		}
		group = group[:0]
	}

	for _, slot := range slots {
		if slot.TeacherID != groupTeacher || slot.DayOfWeek != groupDay {
			flush()
			groupTeacher = slot.TeacherID
			groupDay = slot.DayOfWeek
		}
		start, end, err := slot.Window()
		if err != nil || start >= end {
			// Malformed rows should not exist past store validation; skip
			// them rather than failing the whole scan.
			s.logger.Warn("skipping malformed availability slot",
				zap.String("slot_id", slot.ID),
				zap.String("start", slot.StartTime),
				zap.String("end", slot.EndTime),
				zap.Error(err))
			continue
		}
		group = append(group, window{slot: slot, start: start, end: end})
	}
	flush()

	return conflicts
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
