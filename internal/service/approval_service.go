package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/talimhub/edu-admin-api/internal/dto"
	"github.com/talimhub/edu-admin-api/internal/models"
	"github.com/talimhub/edu-admin-api/internal/repository"
	appErrors "github.com/talimhub/edu-admin-api/pkg/errors"
)

type slotStore interface {
	Create(ctx context.Context, req dto.CreateAvailabilityRequest) (*models.AvailabilitySlot, error)
	Get(ctx context.Context, id string) (*models.AvailabilitySlot, error)
	Update(ctx context.Context, id string, req dto.UpdateAvailabilityRequest) (*models.AvailabilitySlot, error)
	Delete(ctx context.Context, id string) error
}

type changeRequestStore interface {
	Create(ctx context.Context, request *models.AvailabilityChangeRequest) error
	GetByID(ctx context.Context, id string) (*models.AvailabilityChangeRequest, error)
	List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.AvailabilityChangeRequest, error)
	Decide(ctx context.Context, params repository.DecideParams) error
	Reopen(ctx context.Context, id string) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type conflictDetector interface {
	Detect(ctx context.Context, teacherID string) ([]models.AvailabilityConflict, error)
}

// ApprovalService gates slot mutations behind admin review. Admin actors
// pass straight through to the slot store; teacher actors get a pending
// change request that an admin later approves (replaying the captured
// mutation) or rejects.
type ApprovalService struct {
	slots     slotStore
	requests  changeRequestStore
	conflicts conflictDetector
	audit     auditLogger
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewApprovalService constructs the service.
func NewApprovalService(slots slotStore, requests changeRequestStore, conflicts conflictDetector, audit auditLogger, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{slots: slots, requests: requests, conflicts: conflicts, audit: audit, logger: logger}
}

// WithApprovalMetrics attaches decision instrumentation.
func (s *ApprovalService) WithApprovalMetrics(metrics *MetricsService) *ApprovalService {
	s.metrics = metrics
	return s
}

// SubmitCreate routes a slot creation through the approval workflow.
func (s *ApprovalService) SubmitCreate(ctx context.Context, actor *models.JWTClaims, req dto.CreateAvailabilityRequest) (*dto.SubmitOutcome, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	if actor.IsAdmin() {
		slot, err := s.slots.Create(ctx, req)
		if err != nil {
			return nil, err
		}
		s.refreshConflicts(ctx, slot.TeacherID)
		s.emitAudit(ctx, actor, models.AuditActionSlotCreate, slot.ID, nil, mustJSON(slot))
		return &dto.SubmitOutcome{Slot: slot}, nil
	}

	if err := requireOwnTeacher(actor, req.TeacherID); err != nil {
		return nil, err
	}
	// Reject malformed payloads at submission time; the store stays
	// untouched either way.
	if _, err := slotFromCreateRequest(req); err != nil {
		return nil, err
	}

	request := &models.AvailabilityChangeRequest{
		TeacherID:        req.TeacherID,
		ChangeType:       models.ChangeTypeCreate,
		RequestedChanges: mustJSON(req),
		RequestedBy:      actor.UserID,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create change request")
	}
	s.emitAudit(ctx, actor, models.AuditActionRequestSubmit, request.ID, nil, request.RequestedChanges)
	return &dto.SubmitOutcome{Request: request}, nil
}

// SubmitUpdate routes a slot update through the approval workflow.
func (s *ApprovalService) SubmitUpdate(ctx context.Context, actor *models.JWTClaims, slotID string, req dto.UpdateAvailabilityRequest) (*dto.SubmitOutcome, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	if actor.IsAdmin() {
		slot, err := s.slots.Update(ctx, slotID, req)
		if err != nil {
			return nil, err
		}
		s.refreshConflicts(ctx, slot.TeacherID)
		s.emitAudit(ctx, actor, models.AuditActionSlotUpdate, slot.ID, nil, mustJSON(slot))
		return &dto.SubmitOutcome{Slot: slot}, nil
	}

	current, err := s.slots.Get(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if err := requireOwnTeacher(actor, current.TeacherID); err != nil {
		return nil, err
	}
	if err := validateSlot(mergeSlot(*current, req)); err != nil {
		return nil, err
	}

	request := &models.AvailabilityChangeRequest{
		TeacherID:        current.TeacherID,
		SlotID:           &slotID,
		ChangeType:       models.ChangeTypeUpdate,
		RequestedChanges: mustJSON(req),
		OriginalData:     mustJSON(current),
		RequestedBy:      actor.UserID,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create change request")
	}
	s.emitAudit(ctx, actor, models.AuditActionRequestSubmit, request.ID, request.OriginalData, request.RequestedChanges)
	return &dto.SubmitOutcome{Request: request}, nil
}

// SubmitDelete routes a slot deletion through the approval workflow.
func (s *ApprovalService) SubmitDelete(ctx context.Context, actor *models.JWTClaims, slotID string) (*dto.SubmitOutcome, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	if actor.IsAdmin() {
		slot, err := s.slots.Get(ctx, slotID)
		if err != nil {
			return nil, err
		}
		if err := s.slots.Delete(ctx, slotID); err != nil {
			return nil, err
		}
		s.refreshConflicts(ctx, slot.TeacherID)
		s.emitAudit(ctx, actor, models.AuditActionSlotDelete, slotID, mustJSON(slot), nil)
		return &dto.SubmitOutcome{}, nil
	}

	current, err := s.slots.Get(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if err := requireOwnTeacher(actor, current.TeacherID); err != nil {
		return nil, err
	}

	request := &models.AvailabilityChangeRequest{
		TeacherID:    current.TeacherID,
		SlotID:       &slotID,
		ChangeType:   models.ChangeTypeDelete,
		OriginalData: mustJSON(current),
		RequestedBy:  actor.UserID,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create change request")
	}
	s.emitAudit(ctx, actor, models.AuditActionRequestSubmit, request.ID, request.OriginalData, nil)
	return &dto.SubmitOutcome{Request: request}, nil
}

// Approve replays a pending request's mutation and marks it approved. The
// status flips before the replay via a compare-and-set claim, so exactly one
// of two concurrent decisions wins; a failed replay reopens the request and
// surfaces CONFLICTED_APPROVAL.
func (s *ApprovalService) Approve(ctx context.Context, requestID string, actor *models.JWTClaims) (*models.AvailabilityChangeRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RequestStatusPending {
		return nil, appErrors.ErrAlreadyDecided
	}

	now := time.Now().UTC()
	err = s.requests.Decide(ctx, repository.DecideParams{
		ID:        request.ID,
		Status:    models.RequestStatusApproved,
		DecidedBy: actor.UserID,
		DecidedAt: now,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAlreadyDecided
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decide change request")
	}

	if replayErr := s.replay(ctx, request); replayErr != nil {
		if reopenErr := s.requests.Reopen(ctx, request.ID); reopenErr != nil {
			s.logger.Error("failed to reopen change request after replay failure",
				zap.String("request_id", request.ID), zap.Error(reopenErr))
		}
		s.observeDecision("conflicted")
		return nil, appErrors.Wrap(replayErr, appErrors.ErrConflictedApproval.Code,
			appErrors.ErrConflictedApproval.Status, appErrors.ErrConflictedApproval.Message)
	}

	request.Status = models.RequestStatusApproved
	request.DecidedBy = &actor.UserID
	request.DecidedAt = &now

	s.refreshConflicts(ctx, request.TeacherID)
	s.observeDecision("approved")
	s.emitAudit(ctx, actor, models.AuditActionRequestApprove, request.ID, request.OriginalData, request.RequestedChanges)
	return request, nil
}

// Reject marks a pending request rejected and stores the admin's notes. The
// slot store is never touched.
func (s *ApprovalService) Reject(ctx context.Context, requestID string, actor *models.JWTClaims, notes string) (*models.AvailabilityChangeRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RequestStatusPending {
		return nil, appErrors.ErrAlreadyDecided
	}

	now := time.Now().UTC()
	params := repository.DecideParams{
		ID:        request.ID,
		Status:    models.RequestStatusRejected,
		DecidedBy: actor.UserID,
		DecidedAt: now,
	}
	if notes != "" {
		params.AdminNotes = &notes
	}
	if err := s.requests.Decide(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAlreadyDecided
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decide change request")
	}

	request.Status = models.RequestStatusRejected
	request.DecidedBy = &actor.UserID
	request.DecidedAt = &now
	if notes != "" {
		request.AdminNotes = &notes
	}

	s.observeDecision("rejected")
	s.emitAudit(ctx, actor, models.AuditActionRequestReject, request.ID, request.OriginalData, nil)
	return request, nil
}

// List returns change requests visible to the actor: admins see everything,
// teachers only their own submissions.
func (s *ApprovalService) List(ctx context.Context, query dto.ChangeRequestQuery, actor *models.JWTClaims) ([]models.AvailabilityChangeRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.ChangeRequestFilter{
		Status:     query.Status,
		TeacherID:  query.TeacherID,
		ChangeType: query.ChangeType,
	}
	switch {
	case actor.IsAdmin():
		// full access
	case actor.Role == models.RoleTeacher:
		filter.RequestedBy = actor.UserID
	default:
		return nil, appErrors.ErrForbidden
	}
	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list change requests")
	}
	return requests, nil
}

// Get returns one change request enforcing the same visibility rules.
func (s *ApprovalService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.AvailabilityChangeRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && request.RequestedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return request, nil
}

func (s *ApprovalService) loadRequest(ctx context.Context, id string) (*models.AvailabilityChangeRequest, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load change request")
	}
	return request, nil
}

func (s *ApprovalService) replay(ctx context.Context, request *models.AvailabilityChangeRequest) error {
	switch request.ChangeType {
	case models.ChangeTypeCreate:
		var req dto.CreateAvailabilityRequest
		if err := json.Unmarshal(request.RequestedChanges, &req); err != nil {
			return err
		}
		_, err := s.slots.Create(ctx, req)
		return err
	case models.ChangeTypeUpdate:
		if request.SlotID == nil {
			return appErrors.Clone(appErrors.ErrValidation, "update request missing slot id")
		}
		var req dto.UpdateAvailabilityRequest
		if err := json.Unmarshal(request.RequestedChanges, &req); err != nil {
			return err
		}
		_, err := s.slots.Update(ctx, *request.SlotID, req)
		return err
	case models.ChangeTypeDelete:
		if request.SlotID == nil {
			return appErrors.Clone(appErrors.ErrValidation, "delete request missing slot id")
		}
		return s.slots.Delete(ctx, *request.SlotID)
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unsupported change type")
	}
}

func (s *ApprovalService) refreshConflicts(ctx context.Context, teacherID string) {
	if s.conflicts == nil {
		return
	}
	if _, err := s.conflicts.Detect(ctx, teacherID); err != nil {
		s.logger.Warn("conflict re-detection failed", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}

func (s *ApprovalService) observeDecision(outcome string) {
	if s.metrics != nil {
		s.metrics.IncApprovalDecision(outcome)
	}
}

func (s *ApprovalService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID string, oldValues, newValues []byte) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "availability",
		ResourceID: &resourceID,
		OldValues:  oldValues,
		NewValues:  newValues,
	}
	if actor != nil {
		userID := actor.UserID
		log.UserID = &userID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func requireOwnTeacher(actor *models.JWTClaims, teacherID string) error {
	if actor.Role != models.RoleTeacher {
		return appErrors.ErrForbidden
	}
	if actor.UserID != teacherID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot submit changes for another teacher")
	}
	return nil
}

func mustJSON(v interface{}) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return raw
}
