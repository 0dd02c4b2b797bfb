package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/giftdesk-backend/internal/notifications"
	"github.com/angelmondragon/giftdesk-backend/pkg/bootstrap"
	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/mailer"
	"github.com/angelmondragon/giftdesk-backend/pkg/metrics"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/registry"
	"github.com/angelmondragon/giftdesk-backend/pkg/pubsub"
)

func main() {
	proc := bootstrap.Start("notification-worker")
	cfg, logg := proc.Config, proc.Logger
	ctx, stop := proc.SignalContext()
	defer stop()

	dbClient := proc.Database(ctx)
	redisClient := proc.Redis(ctx)

	subscriptions := []string{cfg.PubSub.NotificationSubscription, cfg.PubSub.GiftingSubscription}
	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, []pubsub.Option{pubsub.RequireSubscriptions(subscriptions...)}, logg)
	proc.Must("pubsub", err)
	proc.OnClose("pubsub", pubsubClient.Close)

	sender, err := newSender(cfg)
	proc.Must("mail sender", err)
	if !cfg.FeatureFlags.EmailsEnabled {
		logg.Warn(ctx, "notifications.emails_disabled")
	}

	claims, err := idempotency.NewLedger(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	proc.Must("claim ledger", err)

	consumer, err := notifications.NewConsumer(notifications.ConsumerParams{
		Decoders: registry.NewDecoderRegistry(),
		Composer: notifications.NewComposer(notifications.NewDirectory(dbClient.DB())),
		Sender:   sender,
		Claims:   claims,
		Metrics:  metrics.NewNotificationMetrics(prometheus.DefaultRegisterer),
		Logger:   logg,
	})
	proc.Must("notification consumer", err)

	subs := make(map[string]*gcppubsub.Subscriber, len(subscriptions))
	for _, name := range subscriptions {
		subs[name] = pubsubClient.Subscription(name)
	}
	logg.Info(logg.WithField(ctx, "subscriptions", subscriptions), "notifications.worker_started")
	proc.Finish(ctx, receiveAll(ctx, consumer, subs, stop))
}

func newSender(cfg *config.Config) (mailer.Sender, error) {
	if !cfg.FeatureFlags.EmailsEnabled {
		return mailer.Noop{}, nil
	}
	return mailer.NewSendGrid(cfg.Sendgrid)
}

// receiveAll runs the consumer on every configured subscription. The first
// subscription to fail cancels the others.
func receiveAll(ctx context.Context, consumer *notifications.Consumer, subs map[string]*gcppubsub.Subscriber, cancel context.CancelFunc) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for name, sub := range subs {
		if name == "" || sub == nil {
			continue
		}
		wg.Go(func() {
			if err := consumer.Run(ctx, sub); err != nil && !errors.Is(err, context.Canceled) {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("subscription %s: %w", name, err))
				mu.Unlock()
				cancel()
			}
		})
	}
	wg.Wait()
	return errs
}
