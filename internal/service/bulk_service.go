package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/talimhub/edu-admin-api/internal/models"
	appErrors "github.com/talimhub/edu-admin-api/pkg/errors"
)

type bulkSlotRepository interface {
	SetActive(ctx context.Context, id string, active bool) (string, error)
	Delete(ctx context.Context, id string) (string, error)
}

type bulkConflictDetector interface {
	DetectForTeachers(ctx context.Context, teacherIDs []string) ([]models.AvailabilityConflict, error)
	Invalidate(ctx context.Context, teacherIDs ...string)
}

// BulkItemResult reports the outcome for one slot id in a bulk mutation.
type BulkItemResult struct {
	ID           string `json:"id"`
	Success      bool   `json:"success"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// BulkMutationResult pairs the per-item outcomes with the refreshed conflict
// set for every teacher a successful item touched.
type BulkMutationResult struct {
	Items     []BulkItemResult              `json:"items"`
	Conflicts []models.AvailabilityConflict `json:"conflicts"`
}

// BulkService applies activate/deactivate/delete operations across many
// slots with independent per-item outcomes. Items run on a bounded worker
// pool; conflict re-detection reads only after the whole batch finished.
type BulkService struct {
	repo      bulkSlotRepository
	conflicts bulkConflictDetector
	audit     auditLogger
	metrics   *MetricsService
	logger    *zap.Logger
	workers   int
}

// NewBulkService constructs the service.
func NewBulkService(repo bulkSlotRepository, conflicts bulkConflictDetector, audit auditLogger, workers int, logger *zap.Logger) *BulkService {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkService{repo: repo, conflicts: conflicts, audit: audit, workers: workers, logger: logger}
}

// WithBulkMetrics attaches batch instrumentation.
func (s *BulkService) WithBulkMetrics(metrics *MetricsService) *BulkService {
	s.metrics = metrics
	return s
}

// SetActive flips the activation flag on every targeted slot. Re-applying
// the current flag is a no-op success.
func (s *BulkService) SetActive(ctx context.Context, actor *models.JWTClaims, ids []string, active bool) (*BulkMutationResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	result, err := s.run(ctx, ids, func(ctx context.Context, id string) (string, error) {
		return s.repo.SetActive(ctx, id, active)
	})
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, actor, models.AuditActionBulkSetActive, ids, map[string]interface{}{"active": active})
	return result, nil
}

// Delete removes every targeted slot.
func (s *BulkService) Delete(ctx context.Context, actor *models.JWTClaims, ids []string) (*BulkMutationResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	result, err := s.run(ctx, ids, s.repo.Delete)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, actor, models.AuditActionBulkDelete, ids, nil)
	return result, nil
}

func (s *BulkService) run(ctx context.Context, ids []string, op func(ctx context.Context, id string) (string, error)) (*BulkMutationResult, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ids must not be empty")
	}

	results := make([]BulkItemResult, len(ids))
	teachers := make([]string, len(ids))

	indexes := make(chan int)
	var wg sync.WaitGroup
	workers := s.workers
	if workers > len(ids) {
		workers = len(ids)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				id := ids[i]
				teacherID, err := op(ctx, id)
				if err != nil {
					results[i] = itemFailure(id, err)
					continue
				}
				results[i] = BulkItemResult{ID: id, Success: true}
				teachers[i] = teacherID
			}
		}()
	}
	for i := range ids {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	touched := distinctNonEmpty(teachers)
	failures := 0
	for _, item := range results {
		if !item.Success {
			failures++
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveBulkBatch(len(ids), failures)
	}

	conflicts, err := s.conflicts.DetectForTeachers(ctx, touched)
	if err != nil {
		// The mutations are committed; surface them with a stale-conflict
		// warning instead of failing the whole batch.
		s.logger.Warn("conflict re-detection after bulk mutation failed", zap.Error(err))
		s.conflicts.Invalidate(ctx, touched...)
		conflicts = []models.AvailabilityConflict{}
	}

	return &BulkMutationResult{Items: results, Conflicts: conflicts}, nil
}

func itemFailure(id string, err error) BulkItemResult {
	if errors.Is(err, sql.ErrNoRows) {
		return BulkItemResult{
			ID:           id,
			ErrorCode:    appErrors.ErrNotFound.Code,
			ErrorMessage: "availability slot not found",
		}
	}
	appErr := appErrors.FromError(err)
	return BulkItemResult{ID: id, ErrorCode: appErr.Code, ErrorMessage: appErr.Message}
}

func (s *BulkService) emitAudit(ctx context.Context, actor *models.JWTClaims, action string, ids []string, detail map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload := map[string]interface{}{"ids": ids}
	for k, v := range detail {
		payload[k] = v
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}
	log := &models.AuditLog{
		Action:    action,
		Resource:  "availability_slot",
		NewValues: raw,
	}
	if actor != nil {
		userID := actor.UserID
		log.UserID = &userID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func requireAdmin(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return appErrors.ErrForbidden
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func distinctNonEmpty(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
