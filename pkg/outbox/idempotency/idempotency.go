// Package idempotency keeps consumers from acting twice on a redelivered
// pubsub message.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/pkg/redis"
)

// Ledger records, per consumer, which outbox events have been claimed. A claim
// lives for the configured TTL and is keyed
// `gd:idempotency:event:<consumer>:<event_id>`.
type Ledger struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	now   func() time.Time
}

func NewLedger(store redis.IdempotencyStore, ttl time.Duration) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Ledger{store: store, ttl: ttl, now: time.Now}, nil
}

// Claim reserves eventID for consumer. It returns false when an earlier
// delivery already holds the claim.
func (l *Ledger) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := l.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	return l.store.SetNX(ctx, key, l.now().UTC().Format(time.RFC3339), l.ttl)
}

// Release drops a claim so the next redelivery is processed again.
func (l *Ledger) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := l.key(consumer, eventID)
	if err != nil {
		return err
	}
	return l.store.Del(ctx, key)
}

// ClaimedAt returns when the claim was taken, or the zero time if unclaimed.
func (l *Ledger) ClaimedAt(ctx context.Context, consumer string, eventID uuid.UUID) (time.Time, error) {
	key, err := l.key(consumer, eventID)
	if err != nil {
		return time.Time{}, err
	}
	raw, err := l.store.Get(ctx, key)
	if redis.IsMiss(err) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, raw)
}

func (l *Ledger) key(consumer string, eventID uuid.UUID) (string, error) {
	switch {
	case consumer == "":
		return "", errors.New("consumer name is required")
	case eventID == uuid.Nil:
		return "", errors.New("event id is required")
	}
	return l.store.IdempotencyKey("event:"+consumer, eventID.String()), nil
}
