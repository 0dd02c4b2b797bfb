package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/giftdesk-backend/api/routes"
	"github.com/angelmondragon/giftdesk-backend/internal/audit"
	"github.com/angelmondragon/giftdesk-backend/internal/auth"
	"github.com/angelmondragon/giftdesk-backend/internal/campaigns"
	"github.com/angelmondragon/giftdesk-backend/internal/companies"
	"github.com/angelmondragon/giftdesk-backend/internal/identity"
	"github.com/angelmondragon/giftdesk-backend/internal/invoices"
	"github.com/angelmondragon/giftdesk-backend/internal/orders"
	"github.com/angelmondragon/giftdesk-backend/internal/products"
	"github.com/angelmondragon/giftdesk-backend/internal/redemption"
	"github.com/angelmondragon/giftdesk-backend/internal/reports"
	"github.com/angelmondragon/giftdesk-backend/internal/users"
	"github.com/angelmondragon/giftdesk-backend/internal/vendors"
	"github.com/angelmondragon/giftdesk-backend/internal/wallets"
	"github.com/angelmondragon/giftdesk-backend/pkg/auth/session"
	"github.com/angelmondragon/giftdesk-backend/pkg/bootstrap"
	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/db"
	"github.com/angelmondragon/giftdesk-backend/pkg/env"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/metrics"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
	"github.com/angelmondragon/giftdesk-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	proc := bootstrap.Start("api")
	cfg, logg := proc.Config, proc.Logger
	ctx, stop := proc.SignalContext()
	defer stop()

	dbClient := proc.Database(ctx)
	redisClient := proc.Redis(ctx)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	proc.Must("session manager", err)

	var uploader companies.Uploader
	if cfg.GCS.BucketName != "" {
		gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		proc.Must("gcs", err)
		proc.OnClose("gcs", gcsClient.Close)
		uploader = gcsClient
	} else {
		logg.Warn(ctx, "companies.logo_uploads_disabled")
	}

	services, err := buildServices(cfg, logg, dbClient, sessionManager, uploader)
	proc.Must("services", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	addr := ":" + env.Get("PORT", cfg.App.Port)
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient,
			identity.NewResolver(cfg.JWT, sessionManager, users.NewRepository(dbClient.DB())),
			services,
			routes.Observability{
				Gatherer: registry,
				HTTP:     metrics.NewHTTPMetrics(registry),
				Gifting:  metrics.NewGiftingMetrics(registry),
			}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	proc.Finish(ctx, serve(logg.WithField(ctx, "addr", addr), logg, server))
}

// serve runs server until ctx is canceled, then drains in-flight requests.
func serve(ctx context.Context, logg *logger.Logger, server *http.Server) error {
	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "api.listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessions *session.Manager, uploader companies.Uploader) (routes.Services, error) {
	gormDB := dbClient.DB()
	recorder := audit.NewRecorder(gormDB, logg)
	emitter := outbox.NewService(outbox.NewRepository(gormDB), logg)

	userRepo := users.NewRepository(gormDB)
	companyRepo := companies.NewRepository(gormDB)
	productRepo := products.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)
	campaignRepo := campaigns.NewRepository(gormDB)

	var errs error
	collect := func(name string, err error) {
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	collect("auth", err)

	usersSvc, err := users.NewService(users.ServiceParams{
		Repo:      userRepo,
		DB:        dbClient,
		Outbox:    emitter,
		Companies: companyRepo,
		Audit:     recorder,
		Password:  cfg.Password,
	})
	collect("users", err)

	companiesSvc, err := companies.NewService(companies.ServiceParams{
		Repo:            companyRepo,
		Uploader:        uploader,
		Audit:           recorder,
		DefaultCurrency: cfg.Wallet.DefaultCurrency,
		MaxLogoBytes:    cfg.GCS.MaxLogoBytes,
	})
	collect("companies", err)

	productsSvc, err := products.NewService(productRepo, recorder, cfg.Wallet.DefaultCurrency)
	collect("products", err)

	ordersSvc, err := orders.NewService(orderRepo, dbClient, emitter, productRepo, recorder)
	collect("orders", err)

	campaignsSvc, err := campaigns.NewService(campaigns.ServiceParams{
		Repo:          campaignRepo,
		DB:            dbClient,
		Outbox:        emitter,
		Products:      productRepo,
		Audit:         recorder,
		LinkTTL:       cfg.Gift.LinkTTL,
		PublicBaseURL: cfg.Gift.PublicBaseURL,
	})
	collect("campaigns", err)

	redemptionSvc, err := redemption.NewService(redemption.ServiceParams{
		Repo:   redemption.NewRepository(gormDB),
		Tx:     dbClient,
		Outbox: emitter,
		Audit:  recorder,
	})
	collect("redemption", err)

	vendorsSvc, err := vendors.NewService(vendors.ServiceParams{
		Repo:   vendors.NewRepository(gormDB),
		DB:     dbClient,
		Orders: orderRepo,
		Outbox: emitter,
		Audit:  recorder,
	})
	collect("vendors", err)

	invoicesSvc, err := invoices.NewService(invoices.ServiceParams{
		Repo:      invoices.NewRepository(gormDB),
		DB:        dbClient,
		Orders:    orderRepo,
		Campaigns: campaignRepo,
		Outbox:    emitter,
		Audit:     recorder,
	})
	collect("invoices", err)

	walletsSvc, err := wallets.NewService(wallets.ServiceParams{
		Repo:            wallets.NewRepository(gormDB),
		DB:              dbClient,
		Outbox:          emitter,
		Audit:           recorder,
		Logger:          logg,
		DefaultCurrency: cfg.Wallet.DefaultCurrency,
	})
	collect("wallets", err)

	if errs != nil {
		return routes.Services{}, errs
	}
	return routes.Services{
		Auth:       authSvc,
		Users:      usersSvc,
		Companies:  companiesSvc,
		Products:   productsSvc,
		Orders:     ordersSvc,
		Campaigns:  campaignsSvc,
		Redemption: redemptionSvc,
		Vendors:    vendorsSvc,
		Invoices:   invoicesSvc,
		Wallets:    walletsSvc,
		Audit:      audit.NewService(gormDB),
		Reports:    reports.NewService(gormDB),
	}, nil
}
