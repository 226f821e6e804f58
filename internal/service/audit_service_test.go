package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/talimhub/edu-admin-api/internal/models"
)

func TestAuditServiceWritesAsynchronously(t *testing.T) {
	store := &stubAuditLogger{}
	svc := NewAuditService(store, zap.NewNop())
	svc.Start(context.Background())
	defer svc.Stop()

	require.NoError(t, svc.CreateAuditLog(context.Background(), &models.AuditLog{
		Action:   models.AuditActionSlotCreate,
		Resource: "availability",
	}))

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.logs) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestAuditServiceIgnoresNilRecords(t *testing.T) {
	store := &stubAuditLogger{}
	svc := NewAuditService(store, zap.NewNop())
	svc.Start(context.Background())
	defer svc.Stop()

	require.NoError(t, svc.CreateAuditLog(context.Background(), nil))
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, store.logs)
}
