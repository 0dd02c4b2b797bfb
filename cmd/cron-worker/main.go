package main

import (
	"flag"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/giftdesk-backend/internal/campaigns"
	"github.com/angelmondragon/giftdesk-backend/internal/cron"
	"github.com/angelmondragon/giftdesk-backend/pkg/bootstrap"
	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/db"
	"github.com/angelmondragon/giftdesk-backend/pkg/instance"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/metrics"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
)

func main() {
	once := flag.String("run", "", "run one job by name and exit")
	flag.Parse()

	proc := bootstrap.Start("cron-worker")
	cfg, logg := proc.Config, proc.Logger
	ctx, stop := proc.SignalContext()
	defer stop()

	dbClient := proc.Database(ctx)
	redisClient := proc.Redis(ctx)

	schedule, err := buildSchedule(cfg, logg, dbClient)
	proc.Must("cron schedule", err)

	locker, err := cron.NewRedisLocker(redisClient, lockPrefix(cfg), instance.GetID())
	proc.Must("cron locker", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: schedule,
		Locker:   locker,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Jitter:   cfg.Cron.Jitter,
	})
	proc.Must("cron service", err)

	if *once != "" {
		proc.Finish(ctx, service.RunOnce(logg.WithField(ctx, "job", *once), *once))
		return
	}
	logg.Info(ctx, "cron.worker_started")
	proc.Finish(ctx, service.Run(ctx))
}

func buildSchedule(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	gormDB := dbClient.DB()
	outboxRepo := outbox.NewRepository(gormDB)
	schedule := cron.NewRegistry()

	reminder, err := cron.NewGiftLinkReminderJob(cron.GiftLinkReminderJobParams{
		Logger:        logg,
		DB:            dbClient,
		Recipients:    campaigns.NewRepository(gormDB),
		Outbox:        outbox.NewService(outboxRepo, logg),
		PublicBaseURL: cfg.Gift.PublicBaseURL,
		Window:        cfg.Gift.ReminderWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("gift link reminder: %w", err)
	}
	if err := schedule.Add(reminder, cfg.Cron.ReminderInterval); err != nil {
		return nil, err
	}

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		RetainDays: cfg.Outbox.RetentionDays,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention: %w", err)
	}
	if err := schedule.Add(retention, cfg.Cron.RetentionInterval); err != nil {
		return nil, err
	}
	return schedule, nil
}

// lockPrefix keeps environments sharing one redis from blocking each other.
func lockPrefix(cfg *config.Config) string {
	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	return cfg.Cron.LockPrefix + ":" + env
}
