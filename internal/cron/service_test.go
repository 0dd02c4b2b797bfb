package cron

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/metrics"
)

// memLocker grants each name to one holder at a time.
type memLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	busy     map[string]bool
	ttls     map[string]time.Duration
	releases int
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]bool{}, busy: map[string]bool{}, ttls: map[string]time.Duration{}}
}

func (m *memLocker) TryLock(_ context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy[name] || m.held[name] {
		return nil, nil
	}
	m.held[name] = true
	m.ttls[name] = ttl
	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.held[name] = false
		m.releases++
		return nil
	}, nil
}

type testJob struct {
	name  string
	err   error
	panic bool
	runs  atomic.Int32
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs.Add(1)
	if t.panic {
		panic("nil map write")
	}
	return t.err
}

func newTestService(t *testing.T, locker Locker, reg prometheus.Registerer, jobs ...Job) *Service {
	t.Helper()
	registry := NewRegistry()
	for _, job := range jobs {
		require.NoError(t, registry.Add(job, time.Hour))
	}
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Locker:   locker,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	require.NoError(t, err)
	return svc
}

func TestTickRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	locker := newMemLocker()
	ok := &testJob{name: "gift-link-reminder"}
	failing := &testJob{name: "outbox-retention", err: errors.New("deadlock")}
	svc := newTestService(t, locker, reg, ok, failing)

	require.NoError(t, svc.RunOnce(context.Background(), "gift-link-reminder"))
	err := svc.RunOnce(context.Background(), "outbox-retention")
	require.ErrorContains(t, err, "outbox-retention: deadlock")

	assert.Equal(t, 2, locker.releases)
	assert.Equal(t, time.Hour, locker.ttls["gift-link-reminder"])
	assert.Equal(t, 1.0, cronRuns(t, reg, "gift-link-reminder", metrics.CronSucceeded))
	assert.Equal(t, 1.0, cronRuns(t, reg, "outbox-retention", metrics.CronFailed))
}

func TestTickSkipsWhenLockHeldElsewhere(t *testing.T) {
	reg := prometheus.NewRegistry()
	locker := newMemLocker()
	locker.busy["outbox-retention"] = true
	job := &testJob{name: "outbox-retention"}
	svc := newTestService(t, locker, reg, job)

	require.NoError(t, svc.RunOnce(context.Background(), "outbox-retention"))
	assert.Zero(t, job.runs.Load())
	assert.Equal(t, 1.0, cronRuns(t, reg, "outbox-retention", metrics.CronSkipped))
}

func TestTickRecoversPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	locker := newMemLocker()
	svc := newTestService(t, locker, reg, &testJob{name: "gift-link-reminder", panic: true})

	err := svc.RunOnce(context.Background(), "gift-link-reminder")
	require.ErrorContains(t, err, "panic: nil map write")
	assert.Equal(t, 1, locker.releases)
	assert.Equal(t, 1.0, cronRuns(t, reg, "gift-link-reminder", metrics.CronPanicked))
}

func TestRunOnceUnknownJob(t *testing.T) {
	svc := newTestService(t, newMemLocker(), nil, &testJob{name: "a"})

	assert.ErrorIs(t, svc.RunOnce(context.Background(), "b"), errUnknownJob)
}

func TestRunStartsEveryJobAndStopsOnCancel(t *testing.T) {
	a := &testJob{name: "a", err: errors.New("keeps failing")}
	b := &testJob{name: "b"}
	svc := newTestService(t, newMemLocker(), nil, a, b)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return a.runs.Load() == 1 && b.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunNeedsJobs(t *testing.T) {
	svc := newTestService(t, newMemLocker(), nil)

	assert.Error(t, svc.Run(context.Background()))
}

func TestNewServiceValidates(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: NewRegistry()})
	assert.Error(t, err)
}

func cronRuns(t *testing.T, reg *prometheus.Registry, job, outcome string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "giftdesk_cron_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["job"] == job && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
