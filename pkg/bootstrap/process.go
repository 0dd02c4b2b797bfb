// Package bootstrap is the start-up and shutdown sequence shared by the
// giftdesk binaries: env, config, logger, shared clients and ordered close.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/db"
	"github.com/angelmondragon/giftdesk-backend/pkg/instance"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/migrate"
	"github.com/angelmondragon/giftdesk-backend/pkg/redis"
)

type closer struct {
	name string
	fn   func() error
}

// Process is one running binary. Resources opened through it are closed in
// reverse order by Close, including on the fatal paths.
type Process struct {
	Name   string
	Config *config.Config
	Logger *logger.Logger

	closers []closer
	exit    func(int)
}

// Start loads .env when present, then config, and builds the configured
// logger. A config error ends the process.
func Start(name string) *Process {
	boot := logger.New(logger.Options{ServiceName: name})
	ctx := context.Background()
	if err := godotenv.Load(); err != nil {
		boot.Debug(ctx, "bootstrap.dotenv_absent")
	}
	cfg, err := config.Load()
	if err != nil {
		boot.Error(ctx, "bootstrap.config_invalid", err)
		os.Exit(1)
	}
	return New(name, cfg)
}

// New wraps an already loaded config.
func New(name string, cfg *config.Config) *Process {
	cfg.Service.Kind = name
	return &Process{
		Name:   name,
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: name,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
			Format:      cfg.App.LogFormat,
		}),
		exit: os.Exit,
	}
}

// OnClose registers fn to run during Close.
func (p *Process) OnClose(name string, fn func() error) {
	p.closers = append(p.closers, closer{name: name, fn: fn})
}

// Must ends the process when a required resource failed to come up.
func (p *Process) Must(resource string, err error) {
	if err == nil {
		return
	}
	ctx := p.Logger.WithField(context.Background(), "resource", resource)
	p.Logger.Error(ctx, "bootstrap.resource_failed", err)
	p.Close()
	p.exit(1)
}

// Database opens postgres and, outside production, applies pending
// migrations when auto-migrate is on.
func (p *Process) Database(ctx context.Context) *db.Client {
	client, err := db.New(ctx, p.Config.DB, p.Logger)
	p.Must("database", err)
	p.OnClose("database", client.Close)
	p.Must("migrations", migrate.AutoApply(ctx, p.Config, p.Logger, client))
	return client
}

func (p *Process) Redis(ctx context.Context) *redis.Client {
	client, err := redis.New(ctx, p.Config.Redis, p.Logger)
	p.Must("redis", err)
	p.OnClose("redis", client.Close)
	return client
}

// SignalContext is canceled on SIGINT or SIGTERM and carries the process
// log fields.
func (p *Process) SignalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = p.Logger.WithFields(ctx, map[string]any{
		"env":      p.Config.App.Env,
		"service":  p.Name,
		"instance": instance.GetID(),
	})
	return ctx, stop
}

// Close runs the registered closers newest first and logs every failure.
func (p *Process) Close() {
	var errs error
	for _, c := range slices.Backward(p.closers) {
		if err := c.fn(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	p.closers = nil
	if errs != nil {
		p.Logger.WarnErr(context.Background(), "bootstrap.close_failed", errs)
	}
}

// Finish closes resources and exits non-zero unless err is nil or a
// cancellation from shutdown.
func (p *Process) Finish(ctx context.Context, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		p.Logger.Error(ctx, "bootstrap.stopped_unexpectedly", err)
		p.Close()
		p.exit(1)
		return
	}
	p.Logger.Info(ctx, "bootstrap.shutdown")
	p.Close()
}
