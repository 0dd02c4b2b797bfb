package cron

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftdesk-backend/internal/campaigns"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/payloads"
)

func TestGiftLinkReminderQueuesOncePerRecipient(t *testing.T) {
	client := dbtest.Open(t)
	gdb := client.DB()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time { v := now.Add(d); return &v }

	company := &models.Company{Name: "Acme", StoreIdentifier: "acme", Currency: "INR"}
	require.NoError(t, gdb.Create(company).Error)
	active := &models.Campaign{CompanyID: company.ID, Name: "Diwali", Status: enums.CampaignStatusActive, Budget: decimal.Zero, CreatedBy: uuid.New()}
	closed := &models.Campaign{CompanyID: company.ID, Name: "Old", Status: enums.CampaignStatusCompleted, Budget: decimal.Zero, CreatedBy: uuid.New()}
	require.NoError(t, gdb.Create(active).Error)
	require.NoError(t, gdb.Create(closed).Error)

	orderID := uuid.New()
	recipients := []*models.CampaignRecipient{
		{CampaignID: active.ID, Name: "Due A", Email: "a@acme.test", GiftLinkToken: "tok-a", LinkExpiresAt: at(10 * time.Hour)},
		{CampaignID: active.ID, Name: "Due B", Email: "b@acme.test", GiftLinkToken: "tok-b", LinkExpiresAt: at(47 * time.Hour)},
		{CampaignID: active.ID, Name: "Due C", Email: "c@acme.test", GiftLinkToken: "tok-c", LinkExpiresAt: at(30 * time.Hour)},
		{CampaignID: active.ID, Name: "Later", Email: "later@acme.test", GiftLinkToken: "tok-l", LinkExpiresAt: at(72 * time.Hour)},
		{CampaignID: active.ID, Name: "Lapsed", Email: "lapsed@acme.test", GiftLinkToken: "tok-x", LinkExpiresAt: at(-time.Hour)},
		{CampaignID: active.ID, Name: "Redeemed", Email: "r@acme.test", GiftLinkToken: "tok-r", LinkExpiresAt: at(time.Hour), OrderID: &orderID},
		{CampaignID: closed.ID, Name: "Closed", Email: "closed@acme.test", GiftLinkToken: "tok-z", LinkExpiresAt: at(time.Hour)},
	}
	for _, r := range recipients {
		require.NoError(t, gdb.Create(r).Error)
	}

	job, err := NewGiftLinkReminderJob(GiftLinkReminderJobParams{
		Logger:        logger.Nop(),
		DB:            client,
		Recipients:    campaigns.NewRepository(gdb),
		Outbox:        outbox.NewService(outbox.NewRepository(gdb), logger.Nop()),
		PublicBaseURL: "https://gifts.example.com",
		BatchSize:     2,
		Now:           func() time.Time { return now },
	})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, job.Run(ctx))
	require.NoError(t, job.Run(ctx))

	var events []models.OutboxEvent
	require.NoError(t, gdb.Where("event_type = ?", enums.EventGiftLinkExpiring).Find(&events).Error)
	require.Len(t, events, 3)

	byEmail := map[string]payloads.GiftLinkExpiringEvent{}
	for _, e := range events {
		var env outbox.PayloadEnvelope
		require.NoError(t, json.Unmarshal(e.Payload, &env))
		var p payloads.GiftLinkExpiringEvent
		require.NoError(t, json.Unmarshal(env.Data, &p))
		assert.Equal(t, e.AggregateID, p.RecipientID)
		byEmail[p.Email] = p
	}
	require.Contains(t, byEmail, "a@acme.test")
	require.Contains(t, byEmail, "b@acme.test")
	require.Contains(t, byEmail, "c@acme.test")
	assert.Equal(t, "https://gifts.example.com/gift/tok-a", byEmail["a@acme.test"].GiftURL)
	assert.Equal(t, "Diwali", byEmail["a@acme.test"].CampaignName)
	assert.True(t, byEmail["b@acme.test"].LinkExpiresAt.Equal(now.Add(47*time.Hour)))
}

func TestGiftLinkReminderRequiresBaseURL(t *testing.T) {
	client := dbtest.Open(t)
	_, err := NewGiftLinkReminderJob(GiftLinkReminderJobParams{
		Logger:     logger.Nop(),
		DB:         client,
		Recipients: campaigns.NewRepository(client.DB()),
		Outbox:     outbox.NewService(outbox.NewRepository(client.DB()), nil),
	})
	assert.Error(t, err)
}
