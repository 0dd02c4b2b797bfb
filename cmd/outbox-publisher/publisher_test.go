package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/registry"
)

const (
	notificationTopic = "giftdesk-notifications"
	giftingTopic      = "giftdesk-gifting"
)

func TestDrainBatchContinuesAfterTransientFailure(t *testing.T) {
	first := giftLinkIssuedRow(t, 0)
	second := giftLinkIssuedRow(t, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	topics := &fakeTopics{errs: []error{errors.New("deadline exceeded"), nil}}
	pub := newTestPublisher(t, repo, topics, 3)

	claimed, err := pub.drainBatch(context.Background())

	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, []uuid.UUID{first.ID}, repo.failed)
	assert.Equal(t, []uuid.UUID{second.ID}, repo.published)
	assert.Empty(t, repo.terminal)

	require.Len(t, topics.sent, 2)
	msg := topics.sent[1]
	assert.Equal(t, notificationTopic, msg.topic)
	assert.Equal(t, string(enums.EventGiftLinkIssued), msg.Attributes["event_type"])
	assert.Equal(t, string(enums.AggregateCampaignRecipient), msg.Attributes["aggregate_type"])
	assert.Equal(t, second.AggregateID.String(), msg.Attributes["aggregate_id"])
	assert.NotEmpty(t, msg.Attributes["event_id"])
	assert.JSONEq(t, string(second.Payload), string(msg.Data))
}

func TestDrainBatchRoutesWalletEventsToGiftingTopic(t *testing.T) {
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventWalletCredited,
		AggregateType: enums.AggregateWalletTransaction,
		AggregateID:   uuid.New(),
		Payload:       envelopeFor(t, payloads.WalletCreditedEvent{TransactionID: uuid.New(), UserID: uuid.New()}),
		CreatedAt:     time.Now().UTC(),
	}
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	topics := &fakeTopics{}
	pub := newTestPublisher(t, repo, topics, 3)

	_, err := pub.drainBatch(context.Background())

	require.NoError(t, err)
	require.Len(t, topics.sent, 1)
	assert.Equal(t, giftingTopic, topics.sent[0].topic)
	assert.Equal(t, []uuid.UUID{row.ID}, repo.published)
}

func TestDrainBatchParksUnresolvableRows(t *testing.T) {
	row := giftLinkIssuedRow(t, 0)
	row.AggregateType = enums.AggregateOrder
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	topics := &fakeTopics{}
	pub := newTestPublisher(t, repo, topics, 4)

	_, err := pub.drainBatch(context.Background())

	require.NoError(t, err)
	assert.Empty(t, topics.sent)
	require.Len(t, repo.terminal, 1)
	assert.Equal(t, row.ID, repo.terminal[0].id)
	assert.Equal(t, 4, repo.terminal[0].attempts)
	assert.Contains(t, repo.terminal[0].err.Error(), "aggregate mismatch")
}

func TestDrainBatchParksRowAtAttemptCeiling(t *testing.T) {
	row := giftLinkIssuedRow(t, 2)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	topics := &fakeTopics{errs: []error{errors.New("unavailable")}}
	pub := newTestPublisher(t, repo, topics, 3)

	_, err := pub.drainBatch(context.Background())

	require.NoError(t, err)
	assert.Empty(t, repo.failed)
	require.Len(t, repo.terminal, 1)
	assert.Contains(t, repo.terminal[0].err.Error(), "max publish attempts reached")
}

func TestDrainBatchParksRowWithoutTopicPublisher(t *testing.T) {
	row := giftLinkIssuedRow(t, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	pub := newTestPublisher(t, repo, nil, 3)
	pub.topics = func(string) topicPublisher { return nil }

	_, err := pub.drainBatch(context.Background())

	require.NoError(t, err)
	require.Len(t, repo.terminal, 1)
	var nonRetry registry.NonRetryableError
	assert.True(t, errors.As(repo.terminal[0].err, &nonRetry))
}

func TestDrainBatchReturnsBookkeepingErrors(t *testing.T) {
	repo := &fakeRepo{
		events:     []models.OutboxEvent{giftLinkIssuedRow(t, 0)},
		publishErr: errors.New("connection reset"),
	}
	pub := newTestPublisher(t, repo, &fakeTopics{}, 3)

	_, err := pub.drainBatch(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "mark published")
}

func TestDrainBatchReportsEmptyBatch(t *testing.T) {
	pub := newTestPublisher(t, &fakeRepo{}, &fakeTopics{}, 3)

	claimed, err := pub.drainBatch(context.Background())

	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestNewPublisherAppliesDefaults(t *testing.T) {
	pub, err := NewPublisher(PublisherParams{
		Config:     &config.Config{},
		Logger:     testLogger(),
		DB:         &fakeDB{},
		PubSub:     fakePubSub{},
		Repository: &fakeRepo{},
		Registry:   testRegistry(t),
	})

	require.NoError(t, err)
	assert.Equal(t, defaultBatchSize, pub.batchSize)
	assert.Equal(t, defaultMaxAttempts, pub.maxAttempts)
	assert.Equal(t, time.Duration(defaultPollMs)*time.Millisecond, pub.pollInterval)
}

func TestNewPublisherRequiresDependencies(t *testing.T) {
	_, err := NewPublisher(PublisherParams{Config: &config.Config{}, Logger: testLogger()})

	require.EqualError(t, err, "database client is required")
}

func TestRunFailsWhenDatabaseIsDown(t *testing.T) {
	pub := newTestPublisher(t, &fakeRepo{}, &fakeTopics{}, 3)
	pub.db = &fakeDB{pingErr: errors.New("refused")}

	err := pub.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database ping failed")
}

func TestRunStopsOnCancel(t *testing.T) {
	pub := newTestPublisher(t, &fakeRepo{}, &fakeTopics{}, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithJitterStaysInWindow(t *testing.T) {
	for i := 0; i < 50; i++ {
		got := withJitter(time.Second)
		assert.GreaterOrEqual(t, got, time.Second)
		assert.Less(t, got, time.Second+jitterWindow)
	}
	assert.Zero(t, withJitter(0))
}

func newTestPublisher(t *testing.T, repo *fakeRepo, topics *fakeTopics, maxAttempts int) *Publisher {
	t.Helper()
	params := PublisherParams{
		Config:     &config.Config{Outbox: config.OutboxConfig{BatchSize: 10, PollIntervalMS: 5, MaxAttempts: maxAttempts}},
		Logger:     testLogger(),
		DB:         &fakeDB{},
		PubSub:     fakePubSub{},
		Repository: repo,
		Registry:   testRegistry(t),
	}
	if topics != nil {
		params.Topics = topics.forTopic
	}
	pub, err := NewPublisher(params)
	require.NoError(t, err)
	return pub
}

func testRegistry(t *testing.T) *registry.EventRegistry {
	t.Helper()
	reg, err := registry.NewEventRegistry(config.PubSubConfig{
		GiftingTopic:      giftingTopic,
		NotificationTopic: notificationTopic,
	})
	require.NoError(t, err)
	return reg
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard})
}

func giftLinkIssuedRow(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventGiftLinkIssued,
		AggregateType: enums.AggregateCampaignRecipient,
		AggregateID:   uuid.New(),
		Payload: envelopeFor(t, payloads.GiftLinkIssuedEvent{
			RecipientID:  uuid.New(),
			CampaignID:   uuid.New(),
			CompanyID:    uuid.New(),
			CampaignName: "Diwali 2026",
			Email:        "asha@example.com",
			Name:         "Asha",
			GiftURL:      "https://gifts.example.com/g/abc",
		}),
		AttemptCount: attempts,
		CreatedAt:    time.Now().UTC(),
	}
}

func envelopeFor(t *testing.T, payload any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return raw
}

type fakeDB struct {
	pingErr error
}

func (f *fakeDB) Ping(context.Context) error { return f.pingErr }

func (f *fakeDB) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakePubSub struct{}

func (fakePubSub) Ping(context.Context) error            { return nil }
func (fakePubSub) Publisher(string) *gcppubsub.Publisher { return nil }

type terminalMark struct {
	id       uuid.UUID
	err      error
	attempts int
}

type fakeRepo struct {
	events     []models.OutboxEvent
	published  []uuid.UUID
	failed     []uuid.UUID
	terminal   []terminalMark
	publishErr error
}

func (f *fakeRepo) FetchUnpublishedForPublish(_ *gorm.DB, limit, _ int) ([]models.OutboxEvent, error) {
	if len(f.events) > limit {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, err error, attempts int) error {
	f.terminal = append(f.terminal, terminalMark{id: id, err: err, attempts: attempts})
	return nil
}

type sentMessage struct {
	*gcppubsub.Message
	topic string
}

// fakeTopics hands out publishers that fail with errs in call order.
type fakeTopics struct {
	errs []error
	sent []sentMessage
}

func (f *fakeTopics) forTopic(topic string) topicPublisher {
	return topicFunc(func(_ context.Context, msg *gcppubsub.Message) publishResult {
		var err error
		if len(f.sent) < len(f.errs) {
			err = f.errs[len(f.sent)]
		}
		f.sent = append(f.sent, sentMessage{Message: msg, topic: topic})
		return fakeResult{err: err}
	})
}

type topicFunc func(context.Context, *gcppubsub.Message) publishResult

func (fn topicFunc) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return fn(ctx, msg)
}

type fakeResult struct {
	err error
}

func (r fakeResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}
