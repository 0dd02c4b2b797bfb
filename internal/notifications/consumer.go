// Package notifications turns domain events into emails.
package notifications

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/mailer"
	"github.com/angelmondragon/giftdesk-backend/pkg/metrics"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/registry"
)

const consumerName = "notification-worker"

type composer interface {
	Compose(ctx context.Context, payload any) ([]mailer.Message, error)
}

type ConsumerParams struct {
	Decoders *registry.DecoderRegistry
	Composer composer
	Sender   mailer.Sender
	Claims   *idempotency.Ledger
	Metrics  *metrics.NotificationMetrics
	Logger   *logger.Logger
}

// Consumer decodes events from a subscription, renders them and hands the
// messages to the sender. Each event is delivered at most once per TTL.
type Consumer struct {
	decoders *registry.DecoderRegistry
	composer composer
	sender   mailer.Sender
	claims   *idempotency.Ledger
	metrics  *metrics.NotificationMetrics
	logg     *logger.Logger
}

func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Decoders == nil {
		return nil, fmt.Errorf("decoder registry required")
	}
	if params.Composer == nil {
		return nil, fmt.Errorf("composer required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if params.Claims == nil {
		return nil, fmt.Errorf("claim ledger required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		decoders: params.Decoders,
		composer: params.Composer,
		sender:   params.Sender,
		claims:   params.Claims,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Run receives from sub until the context is canceled.
func (c *Consumer) Run(ctx context.Context, sub *pubsub.Subscriber) error {
	if sub == nil {
		return fmt.Errorf("subscription required")
	}
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes, msg.Data) == outcomeRetry {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeSkipped
	outcomeRetry
)

func (c *Consumer) process(ctx context.Context, messageID string, attrs map[string]string, data []byte) outcome {
	eventType := enums.OutboxEventType(attrs["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	envelope, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "notification.envelope_invalid", err)
		return c.finish(eventType, outcomeSkipped)
	}
	eventID := uuid.MustParse(envelope.EventID)
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		// Unknown types and malformed payloads never get better on redelivery.
		c.logg.WarnErr(logCtx, "notification.undecodable", err)
		return c.finish(eventType, outcomeSkipped)
	}

	claimed, err := c.claims.Claim(ctx, consumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "notification.claim_failed", err)
		return c.finish(eventType, outcomeRetry)
	}
	if !claimed {
		c.logg.Info(logCtx, "notification.duplicate")
		return c.finish(eventType, outcomeSkipped)
	}

	if err := c.deliver(ctx, logCtx, payload); err != nil {
		c.logg.Error(logCtx, "notification.delivery_failed", err)
		if relErr := c.claims.Release(ctx, consumerName, eventID); relErr != nil {
			c.logg.WarnErr(logCtx, "notification.claim_release_failed", relErr)
		}
		return c.finish(eventType, outcomeRetry)
	}
	return c.finish(eventType, outcomeDone)
}

func (c *Consumer) deliver(ctx, logCtx context.Context, payload any) error {
	messages, err := c.composer.Compose(ctx, payload)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		c.logg.Info(logCtx, "notification.no_recipients")
		return nil
	}
	for _, msg := range messages {
		if err := c.sender.Send(ctx, msg); err != nil {
			return fmt.Errorf("send to %s: %w", msg.To, err)
		}
	}
	c.logg.Info(c.logg.WithField(logCtx, "recipients", len(messages)), "notification.sent")
	return nil
}

func (c *Consumer) finish(eventType enums.OutboxEventType, o outcome) outcome {
	switch o {
	case outcomeDone:
		c.metrics.Processed(string(eventType), metrics.NotificationSent)
	case outcomeSkipped:
		c.metrics.Processed(string(eventType), metrics.NotificationSkipped)
	case outcomeRetry:
		c.metrics.Processed(string(eventType), metrics.NotificationRetried)
	}
	return o
}
