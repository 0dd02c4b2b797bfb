package main

import (
	"github.com/angelmondragon/giftdesk-backend/pkg/bootstrap"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/registry"
	"github.com/angelmondragon/giftdesk-backend/pkg/pubsub"
)

func main() {
	proc := bootstrap.Start("outbox-publisher")
	cfg, logg := proc.Config, proc.Logger
	ctx, stop := proc.SignalContext()
	defer stop()

	dbClient := proc.Database(ctx)

	events, err := registry.NewEventRegistry(cfg.PubSub)
	proc.Must("event registry", err)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, []pubsub.Option{pubsub.RequireTopics(events.Topics()...)}, logg)
	proc.Must("pubsub", err)
	proc.OnClose("pubsub", pubsubClient.Close)

	publisher, err := NewPublisher(PublisherParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		PubSub:     pubsubClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Registry:   events,
	})
	proc.Must("outbox publisher", err)

	logg.Info(logg.WithField(ctx, "topics", events.Topics()), "outbox.publisher_started")
	proc.Finish(ctx, publisher.Run(ctx))
}
