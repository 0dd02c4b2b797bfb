package cron

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
)

func TestOutboxRetentionDrainsOldPublishedRowsInBatches(t *testing.T) {
	client := dbtest.Open(t)
	gdb := client.DB()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-2 * 24 * time.Hour)
	published := now.Add(-39 * 24 * time.Hour)

	rows := map[string]*models.OutboxEvent{
		"old-published":   {CreatedAt: old, PublishedAt: &published},
		"old-published-2": {CreatedAt: old, PublishedAt: &published},
		"old-published-3": {CreatedAt: old, PublishedAt: &old},
		"old-unpublished": {CreatedAt: old},
		"recent":          {CreatedAt: recent, PublishedAt: &recent},
	}
	for _, row := range rows {
		row.EventType = enums.EventOrderStatusChanged
		row.AggregateType = enums.AggregateOrder
		row.AggregateID = uuid.New()
		row.Payload = json.RawMessage(`{}`)
		require.NoError(t, gdb.Create(row).Error)
	}

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		Repository: outbox.NewRepository(gdb),
		BatchSize:  2,
		Now:        func() time.Time { return now },
	})
	require.NoError(t, err)
	assert.Equal(t, "outbox-retention", job.Name())
	require.NoError(t, job.Run(context.Background()))

	var remaining []models.OutboxEvent
	require.NoError(t, gdb.Find(&remaining).Error)
	ids := map[uuid.UUID]bool{}
	for _, r := range remaining {
		ids[r.ID] = true
	}
	assert.Len(t, remaining, 2)
	assert.False(t, ids[rows["old-published"].ID])
	assert.False(t, ids[rows["old-published-3"].ID])
	assert.True(t, ids[rows["old-unpublished"].ID])
	assert.True(t, ids[rows["recent"].ID])
}

func TestOutboxRetentionStopsOnCancel(t *testing.T) {
	client := dbtest.Open(t)
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		Repository: outbox.NewRepository(client.DB()),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, job.Run(ctx), context.Canceled)
}
