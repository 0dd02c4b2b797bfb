package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/db"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

// AutoApply brings the schema up to date at process start. It only runs
// outside production and when GIFTDESK_AUTO_MIGRATE is set; production
// schema changes go through cmd/migrate.
func AutoApply(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg.App.IsProd() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("migrate: sql handle: %w", err)
	}
	runner, err := NewRunner(sqlDB, "", logg)
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	pending, err := runner.HasPending(ctx)
	if err != nil {
		return fmt.Errorf("migrate: pending check: %w", err)
	}
	if !pending {
		logg.Debug(ctx, "migrate.autorun.up_to_date")
		return nil
	}

	start := time.Now()
	if err := runner.Up(ctx); err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "duration_ms", time.Since(start).Milliseconds()), "migrate.autorun.done")
	return nil
}
