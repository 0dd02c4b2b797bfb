package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/internal/campaigns"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/payloads"
)

const (
	defaultReminderWindow = 48 * time.Hour
	reminderBatchSize     = 200
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type expiringSource interface {
	ListExpiring(ctx context.Context, now time.Time, window time.Duration, limit int) ([]campaigns.ExpiringRecipient, error)
}

type onceEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type GiftLinkReminderJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Recipients    expiringSource
	Outbox        onceEmitter
	PublicBaseURL string
	Window        time.Duration
	BatchSize     int
	Now           func() time.Time
}

// NewGiftLinkReminderJob queues one gift_link_expiring event per unredeemed
// recipient whose link lapses within the window.
func NewGiftLinkReminderJob(params GiftLinkReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Recipients == nil {
		return nil, fmt.Errorf("recipient source required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox required")
	}
	if params.PublicBaseURL == "" {
		return nil, fmt.Errorf("public base url required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultReminderWindow
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = reminderBatchSize
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &giftLinkReminderJob{
		logg:    params.Logger,
		db:      params.DB,
		source:  params.Recipients,
		outbox:  params.Outbox,
		baseURL: params.PublicBaseURL,
		window:  window,
		batch:   batch,
		now:     now,
	}, nil
}

type giftLinkReminderJob struct {
	logg    *logger.Logger
	db      txRunner
	source  expiringSource
	outbox  onceEmitter
	baseURL string
	window  time.Duration
	batch   int
	now     func() time.Time
}

func (j *giftLinkReminderJob) Name() string { return "gift-link-reminder" }

// Run drains reminders batch by batch. Reminded recipients drop out of the
// next ListExpiring page, so a batch that queues nothing ends the run.
func (j *giftLinkReminderJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var (
		queued int
		errs   error
	)
	for {
		rows, err := j.source.ListExpiring(ctx, now, j.window, j.batch)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list expiring links: %w", err))
		}
		sent := 0
		for _, row := range rows {
			if err := j.remind(ctx, row); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("recipient %s: %w", row.ID, err))
				continue
			}
			sent++
		}
		queued += sent
		if len(rows) < j.batch || sent == 0 {
			break
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"window": j.window.String(),
		"queued": queued,
		"failed": len(multierr.Errors(errs)),
	}), "cron.gift_link_reminders")
	return errs
}

func (j *giftLinkReminderJob) remind(ctx context.Context, row campaigns.ExpiringRecipient) error {
	if row.LinkExpiresAt == nil {
		return nil
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventGiftLinkExpiring,
		AggregateType: enums.AggregateCampaignRecipient,
		AggregateID:   row.ID,
		Data: payloads.GiftLinkExpiringEvent{
			RecipientID:   row.ID,
			CampaignID:    row.CampaignID,
			CampaignName:  row.CampaignName,
			Email:         row.Email,
			Name:          row.Name,
			GiftURL:       campaigns.GiftURL(j.baseURL, row.GiftLinkToken),
			LinkExpiresAt: row.LinkExpiresAt.UTC(),
		},
	}
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.outbox.EmitIfNotExists(ctx, tx, event)
	})
}
