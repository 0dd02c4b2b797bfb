package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/giftdesk-backend/api/responses"
	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/redis"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Giftdesk-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings postgres and redis. Either failing reports 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Giftdesk-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{"database": "ok", "redis": "ok"}
		var failed error
		if dbP == nil {
			checks["database"] = "missing"
			failed = pkgerrors.New(pkgerrors.CodeDependency, "database not configured")
		} else if err := dbP.Ping(ctx); err != nil {
			checks["database"] = "down"
			failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database ping failed")
		}
		if redisP == nil {
			checks["redis"] = "missing"
			failed = pkgerrors.New(pkgerrors.CodeDependency, "redis not configured")
		} else if err := redisP.Ping(ctx); err != nil {
			checks["redis"] = "down"
			failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis ping failed")
		}

		if failed != nil {
			logg.Error(logg.WithField(r.Context(), "checks", checks), "health.ready.failed", failed)
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": checks})
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
