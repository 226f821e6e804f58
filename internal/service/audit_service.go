package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/talimhub/edu-admin-api/internal/models"
	"github.com/talimhub/edu-admin-api/pkg/jobs"
)

type auditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditService writes audit records through a background queue so the
// request path never blocks on the trail. Dropped or failed writes are
// logged, never surfaced to callers.
type AuditService struct {
	repo   auditStore
	queue  *jobs.Queue
	logger *zap.Logger
}

const jobAuditWrite = "audit_write"

// NewAuditService constructs the service and its queue.
func NewAuditService(repo auditStore, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AuditService{repo: repo, logger: logger}
	svc.queue = jobs.NewQueue("audit", svc.persist, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 64,
		Logger:     logger,
	})
	return svc
}

// Start begins queue consumption.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// CreateAuditLog enqueues an audit record. It never returns an error; a
// saturated queue sheds the record with a warning.
func (s *AuditService) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	if log == nil {
		return nil
	}
	if !s.queue.TryEnqueue(jobs.Job{Type: jobAuditWrite, Payload: log}) {
		s.logger.Warn("audit queue full, record dropped", zap.String("action", log.Action))
	}
	return nil
}

func (s *AuditService) persist(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok || log == nil {
		return nil
	}
	return s.repo.CreateAuditLog(ctx, log)
}
