package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
)

// EventDescriptor is the publish-side view of a catalog entry.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Channel       Channel
	Topic         string
}

// ResolvedEvent is an outbox row that is ready to publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks rows that will fail the same way on every attempt.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// EventRegistry resolves outbox rows against the catalog and the configured
// topics.
type EventRegistry struct {
	descriptors map[enums.OutboxEventType]EventDescriptor
	decoders    map[enums.OutboxEventType]decoderFunc
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topics := map[Channel]string{
		ChannelNotification: cfg.NotificationTopic,
		ChannelGifting:      cfg.GiftingTopic,
	}
	var missing error
	for channel, topic := range topics {
		if topic == "" {
			missing = errors.Join(missing, fmt.Errorf("%s topic is required", channel))
		}
	}
	if missing != nil {
		return nil, missing
	}

	reg := &EventRegistry{
		descriptors: make(map[enums.OutboxEventType]EventDescriptor, len(catalog)),
		decoders:    make(map[enums.OutboxEventType]decoderFunc, len(catalog)),
	}
	for _, e := range catalog {
		reg.descriptors[e.eventType] = EventDescriptor{
			EventType:     e.eventType,
			AggregateType: e.aggregateType,
			Channel:       e.channel,
			Topic:         topics[e.channel],
		}
		reg.decoders[e.eventType] = e.decode
	}
	return reg, nil
}

// Topics lists the distinct topics the registry publishes to, sorted.
func (r *EventRegistry) Topics() []string {
	out := make([]string, 0, 2)
	for _, d := range r.descriptors {
		out = append(out, d.Topic)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Resolve checks the row against its catalog entry and decodes the payload.
// Every failure is non-retryable.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.descriptors[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(errors.New("missing aggregate_id"))
	}

	env, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	payload, err := r.decoders[event.EventType](env.Data)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
