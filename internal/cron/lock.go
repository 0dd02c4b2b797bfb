package cron

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Locker grants named locks that expire after ttl. release is nil when the
// lock was not granted.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, err error)
}

type lockStore interface {
	AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, owner string) error
}

// RedisLocker takes locks on behalf of one worker instance. A release only
// deletes a lock this instance still owns.
type RedisLocker struct {
	store  lockStore
	prefix string
	owner  string
}

func NewRedisLocker(store lockStore, prefix, owner string) (*RedisLocker, error) {
	switch {
	case store == nil:
		return nil, errors.New("cron: lock store required")
	case prefix == "":
		return nil, errors.New("cron: lock prefix required")
	case owner == "":
		return nil, errors.New("cron: lock owner required")
	}
	return &RedisLocker{store: store, prefix: prefix, owner: owner}, nil
}

func (l *RedisLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	key := l.prefix + ":" + name
	ok, err := l.store.AcquireLock(ctx, key, l.owner, ttl)
	if err != nil {
		return nil, fmt.Errorf("cron: lock %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	return func(ctx context.Context) error {
		if err := l.store.ReleaseLock(ctx, key, l.owner); err != nil {
			return fmt.Errorf("cron: unlock %s: %w", key, err)
		}
		return nil
	}, nil
}
