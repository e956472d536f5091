package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-api/internal/models"
)

func TestAuditRepositoryHistoryOrdersByTimeThenInsertion(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAuditRepository(db)
	ctx := context.Background()

	when := time.Date(2026, time.March, 9, 8, 0, 0, 0, time.UTC)

	entries := []models.AuditEntry{
		{EntityType: models.AuditEntityRecord, EntityID: 5, Action: models.AuditActionCreate, ActorID: 1, CreatedAt: when},
		{EntityType: models.AuditEntityRecord, EntityID: 5, Action: models.AuditActionEdit, ActorID: 1, CreatedAt: when.Add(time.Minute)},
		{EntityType: models.AuditEntityRecord, EntityID: 5, Action: models.AuditActionEdit, ActorID: 2, CreatedAt: when.Add(time.Minute)},
		{EntityType: models.AuditEntitySession, EntityID: 5, Action: models.AuditActionCreate, ActorID: 1, CreatedAt: when},
	}
	for i := range entries {
		require.NoError(t, repo.Append(ctx, &entries[i]))
	}

	history, err := repo.History(ctx, models.AuditEntityRecord, 5)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, models.AuditActionCreate, history[0].Action)
	// Same timestamp resolves by insertion order.
	require.Equal(t, uint(1), history[1].ActorID)
	require.Equal(t, uint(2), history[2].ActorID)
}

func TestAuditRepositoryHistoryForEntitiesMergesChains(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAuditRepository(db)
	ctx := context.Background()

	when := time.Date(2026, time.March, 9, 8, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, &models.AuditEntry{EntityType: models.AuditEntityRecord, EntityID: 1, Action: models.AuditActionCreate, ActorID: 1, CreatedAt: when}))
	require.NoError(t, repo.Append(ctx, &models.AuditEntry{EntityType: models.AuditEntityRecord, EntityID: 2, Action: models.AuditActionEdit, ActorID: 1, CreatedAt: when.Add(time.Hour)}))
	require.NoError(t, repo.Append(ctx, &models.AuditEntry{EntityType: models.AuditEntityRecord, EntityID: 9, Action: models.AuditActionCreate, ActorID: 1, CreatedAt: when}))

	merged, err := repo.HistoryForEntities(ctx, models.AuditEntityRecord, []uint{1, 2})
	require.NoError(t, err)
	require.Len(t, merged, 2)
	require.Equal(t, uint(1), merged[0].EntityID)
	require.Equal(t, uint(2), merged[1].EntityID)

	empty, err := repo.HistoryForEntities(ctx, models.AuditEntityRecord, nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}
