package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type topicPublisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type PublisherParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         txRunner
	PubSub     pubSubClient
	Repository outboxRepository
	Registry   eventResolver
	// Topics overrides how a topic name becomes a publisher. Tests use it.
	Topics func(topic string) topicPublisher
}

// Publisher drains unpublished outbox rows onto their pubsub topics. Rows are
// locked with SKIP LOCKED so several publishers can run side by side.
type Publisher struct {
	logg         *logger.Logger
	db           txRunner
	pubsub       pubSubClient
	repo         outboxRepository
	registry     eventResolver
	topics       func(topic string) topicPublisher
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewPublisher(params PublisherParams) (*Publisher, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	topics := params.Topics
	if topics == nil {
		topics = func(topic string) topicPublisher {
			return wrapGCPPublisher(params.PubSub.Publisher(topic))
		}
	}

	cfg := params.Config.Outbox
	return &Publisher{
		logg:         params.Logger,
		db:           params.DB,
		pubsub:       params.PubSub,
		repo:         params.Repository,
		registry:     params.Registry,
		topics:       topics,
		batchSize:    positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval: time.Duration(positiveOr(cfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// Run polls until ctx is canceled. Batch errors back off exponentially up to
// maxBackoff; a full batch is followed immediately by the next one.
func (p *Publisher) Run(ctx context.Context) error {
	if err := pingDependency(ctx, p.logg, "database", p.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, p.logg, "pubsub", p.pubsub.Ping); err != nil {
		return err
	}

	backoff := p.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			p.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		processed, err := p.drainBatch(ctx)
		switch {
		case err != nil:
			p.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = min(backoff*2, maxBackoff)
			if err := sleepCtx(ctx, withJitter(backoff)); err != nil {
				return err
			}
		case processed:
			backoff = p.pollInterval
		default:
			backoff = p.pollInterval
			if err := sleepCtx(ctx, withJitter(p.pollInterval)); err != nil {
				return err
			}
		}
	}
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, ping func(context.Context) error) error {
	if err := ping(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

// drainBatch publishes one locked batch. It reports whether any row was
// claimed. A failing row never aborts the rest of the batch.
func (p *Publisher) drainBatch(ctx context.Context) (bool, error) {
	claimed := false
	err := p.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := p.repo.FetchUnpublishedForPublish(tx, p.batchSize, p.maxAttempts)
		if err != nil {
			return err
		}
		claimed = len(events) > 0
		for _, event := range events {
			if err := p.deliver(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

// deliver publishes a single row and records the outcome. Only bookkeeping
// failures are returned; publish failures are written onto the row.
func (p *Publisher) deliver(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	resolved, err := p.registry.Resolve(event)
	if err != nil {
		return p.park(ctx, tx, event, p.eventFields(event, nil), "unresolvable", err)
	}

	fields := p.eventFields(event, resolved)
	pubErr := p.publish(ctx, event, resolved)
	if pubErr == nil {
		if err := p.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		p.logg.Info(p.logg.WithFields(ctx, fields), "outbox event published")
		return nil
	}

	var nonRetry registry.NonRetryableError
	if errors.As(pubErr, &nonRetry) {
		return p.park(ctx, tx, event, fields, "non_retryable", pubErr)
	}

	attempt := event.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= p.maxAttempts {
		return p.park(ctx, tx, event, fields, "max_attempts", fmt.Errorf("max publish attempts reached: %w", pubErr))
	}

	p.logg.WarnErr(p.logg.WithFields(ctx, fields), "outbox publish failed", pubErr)
	if err := p.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return nil
}

// park takes a row out of rotation by raising its attempt count to the
// ceiling. The row and its last error stay in the table for inspection until
// retention removes it.
func (p *Publisher) park(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, fields map[string]any, reason string, cause error) error {
	fields["terminal_reason"] = reason
	p.logg.WarnErr(p.logg.WithFields(ctx, fields), "outbox event will not be retried", cause)
	if err := p.repo.MarkTerminalTx(tx, event.ID, cause, p.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := p.topics(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := pub.Publish(publishCtx, &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

func (p *Publisher) eventFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if resolved != nil {
		fields["topic"] = resolved.Descriptor.Topic
		if env := resolved.Envelope; env.EventID != "" {
			fields["event_id"] = env.EventID
			fields["occurred_at"] = env.OccurredAt.Format(time.RFC3339Nano)
		}
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

func wrapGCPPublisher(p *gcppubsub.Publisher) topicPublisher {
	if p == nil {
		return nil
	}
	return gcpPublisher{p}
}

type gcpPublisher struct {
	pub *gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.pub.Publish(ctx, msg)
}
