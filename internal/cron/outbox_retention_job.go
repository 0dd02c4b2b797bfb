package cron

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

const (
	defaultRetention      = 30 * 24 * time.Hour
	defaultRetentionBatch = 500
)

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository outboxPurger
	RetainDays int
	BatchSize  int
	Now        func() time.Time
}

// outboxRetentionJob prunes published outbox rows batch by batch.
type outboxRetentionJob struct {
	logg   *logger.Logger
	repo   outboxPurger
	retain time.Duration
	batch  int
	now    func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil || params.Repository == nil {
		return nil, errors.New("cron: outbox retention needs a logger and repository")
	}
	job := &outboxRetentionJob{
		logg:   params.Logger,
		repo:   params.Repository,
		retain: defaultRetention,
		batch:  defaultRetentionBatch,
		now:    time.Now,
	}
	if params.RetainDays > 0 {
		job.retain = time.Duration(params.RetainDays) * 24 * time.Hour
	}
	if params.BatchSize > 0 {
		job.batch = params.BatchSize
	}
	if params.Now != nil {
		job.now = params.Now
	}
	return job, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retain)
	var total int64
	batches := 0
	for ctx.Err() == nil {
		n, err := j.repo.DeletePublishedBefore(ctx, cutoff, j.batch)
		if err != nil {
			return err
		}
		total += n
		batches++
		if n < int64(j.batch) {
			break
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"deleted": total,
		"batches": batches,
	}), "cron.outbox_retention")
	return ctx.Err()
}
