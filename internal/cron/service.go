// Package cron schedules the worker's periodic jobs. Every job loops on its
// own interval and runs only on the replica that wins that job's lock.
package cron

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/metrics"
)

var errUnknownJob = errors.New("cron: unknown job")

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locker   Locker
	Metrics  *metrics.CronJobMetrics
	// Jitter delays each job's first run by up to this much.
	Jitter time.Duration
}

type Service struct {
	logg     *logger.Logger
	registry *Registry
	locker   Locker
	metrics  *metrics.CronJobMetrics
	jitter   time.Duration
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("cron: logger required")
	case params.Registry == nil:
		return nil, errors.New("cron: registry required")
	case params.Locker == nil:
		return nil, errors.New("cron: locker required")
	}
	return &Service{
		logg:     params.Logger,
		registry: params.Registry,
		locker:   params.Locker,
		metrics:  params.Metrics,
		jitter:   max(params.Jitter, 0),
		now:      time.Now,
	}, nil
}

// Run starts every scheduled job and blocks until ctx is done. Job failures
// are logged and retried on the next tick; they never stop the worker.
func (s *Service) Run(ctx context.Context) error {
	entries := s.registry.Entries()
	if len(entries) == 0 {
		return errors.New("cron: nothing scheduled")
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, entry := range entries {
		g.Go(func() error { return s.loop(ctx, entry) })
	}
	return g.Wait()
}

// RunOnce runs a single job by name under its lock, for manual triggers.
func (s *Service) RunOnce(ctx context.Context, name string) error {
	entry, ok := s.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("%w %q", errUnknownJob, name)
	}
	return s.tick(ctx, entry)
}

func (s *Service) loop(ctx context.Context, entry Entry) error {
	ctx = s.logg.WithFields(ctx, map[string]any{"job": entry.Name(), "every": entry.Every.String()})
	if s.jitter > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rand.N(s.jitter)):
		}
	}
	s.logg.Info(ctx, "cron.job_scheduled")

	ticker := time.NewTicker(entry.Every)
	defer ticker.Stop()
	for {
		if err := s.tick(ctx, entry); err != nil {
			s.logg.Error(ctx, "cron.job_failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// tick runs entry once if its lock is free. The lock lives for one interval
// and the run is cut off at the same deadline.
func (s *Service) tick(ctx context.Context, entry Entry) (err error) {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	release, err := s.locker.TryLock(ctx, entry.Name(), entry.Every)
	if err != nil {
		return err
	}
	if release == nil {
		s.metrics.Skipped(entry.Name())
		s.logg.Debug(ctx, "cron.lock_held_elsewhere")
		return nil
	}
	defer func() {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
			err = errors.Join(err, relErr)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, entry.Every)
	defer cancel()

	start := s.now()
	outcome, err := s.safeRun(runCtx, entry.Job)
	took := s.now().Sub(start)
	s.metrics.Finished(entry.Name(), outcome, took, s.now())
	if err != nil {
		return fmt.Errorf("%s: %w", entry.Name(), err)
	}
	s.logg.Info(s.logg.WithField(ctx, "duration_ms", took.Milliseconds()), "cron.job_completed")
	return nil
}

func (s *Service) safeRun(ctx context.Context, job Job) (outcome string, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = metrics.CronPanicked
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	if err := job.Run(ctx); err != nil {
		return metrics.CronFailed, err
	}
	return metrics.CronSucceeded, nil
}
