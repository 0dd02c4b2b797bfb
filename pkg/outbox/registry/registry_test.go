package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/payloads"
)

func newTestRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		GiftingTopic:      "gifting-topic",
		NotificationTopic: "notification-topic",
	})
	require.NoError(t, err)
	return reg
}

func envelopeFor(t *testing.T, data string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(data),
	})
	require.NoError(t, err)
	return raw
}

func row(eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, payload json.RawMessage) models.OutboxEvent {
	return models.OutboxEvent{EventType: eventType, AggregateType: aggregate, AggregateID: uuid.New(), Payload: payload}
}

func TestResolveDecodesTypedPayload(t *testing.T) {
	reg := newTestRegistry(t)
	orderID := uuid.New()

	resolved, err := reg.Resolve(row(enums.EventGiftRedeemed, enums.AggregateCampaignRecipient,
		envelopeFor(t, `{"order_id":"`+orderID.String()+`","email":"asha@acme.test"}`)))
	require.NoError(t, err)

	assert.Equal(t, "notification-topic", resolved.Descriptor.Topic)
	assert.Equal(t, ChannelNotification, resolved.Descriptor.Channel)
	payload, ok := resolved.Payload.(*payloads.GiftRedeemedEvent)
	require.True(t, ok, "got %T", resolved.Payload)
	assert.Equal(t, orderID, payload.OrderID)
	assert.Equal(t, "asha@acme.test", payload.Email)
	assert.NotEmpty(t, resolved.Envelope.EventID)
}

func TestResolveRoutesLedgerEventsToGifting(t *testing.T) {
	reg := newTestRegistry(t)

	resolved, err := reg.Resolve(row(enums.EventWalletCredited, enums.AggregateWalletTransaction,
		envelopeFor(t, `{"amount":"250.00","method":"upi","status":"completed"}`)))
	require.NoError(t, err)

	assert.Equal(t, "gifting-topic", resolved.Descriptor.Topic)
	payload := resolved.Payload.(*payloads.WalletCreditedEvent)
	assert.Equal(t, enums.PaymentMethodUPI, payload.Method)
	assert.Equal(t, "250", payload.Amount.String())
}

func TestResolveRejectsUndeliverableRows(t *testing.T) {
	reg := newTestRegistry(t)
	missingID := row(enums.EventGiftRedeemed, enums.AggregateCampaignRecipient, envelopeFor(t, `{}`))
	missingID.AggregateID = uuid.Nil

	cases := map[string]models.OutboxEvent{
		"unknown type":       row("campaign_archived", enums.AggregateCampaignRecipient, envelopeFor(t, `{}`)),
		"aggregate mismatch": row(enums.EventGiftRedeemed, enums.AggregateOrder, envelopeFor(t, `{}`)),
		"missing aggregate":  missingID,
		"null data":          row(enums.EventGiftRedeemed, enums.AggregateCampaignRecipient, envelopeFor(t, `null`)),
		"wrong shape":        row(enums.EventGiftRedeemed, enums.AggregateCampaignRecipient, envelopeFor(t, `{"order_id":42}`)),
		"not an envelope":    row(enums.EventGiftRedeemed, enums.AggregateCampaignRecipient, json.RawMessage(`"text"`)),
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			var nonRetry NonRetryableError
			assert.ErrorAs(t, err, &nonRetry)
		})
	}
}

func TestNewEventRegistryReportsEveryMissingTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notification topic is required")
	assert.Contains(t, err.Error(), "gifting topic is required")
}

func TestTopicsAreDistinctAndSorted(t *testing.T) {
	assert.Equal(t, []string{"gifting-topic", "notification-topic"}, newTestRegistry(t).Topics())

	shared, err := NewEventRegistry(config.PubSubConfig{GiftingTopic: "events", NotificationTopic: "events"})
	require.NoError(t, err)
	assert.Equal(t, []string{"events"}, shared.Topics())
}

func TestCatalogCoversEveryEventType(t *testing.T) {
	seen := map[enums.OutboxEventType]bool{}
	for _, e := range catalog {
		assert.False(t, seen[e.eventType], "duplicate catalog entry %s", e.eventType)
		seen[e.eventType] = true
		assert.NotEmpty(t, e.aggregateType)
		assert.NotNil(t, e.decode)
	}
	assert.Len(t, seen, 8)
}
