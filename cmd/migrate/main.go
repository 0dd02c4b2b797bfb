package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/db"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/migrate"
)

const usage = `usage: migrate [-dir path] <command> [arg]

commands without a database:
  create <name>     write an empty migration stamped with the current time
  validate          lint migration names and goose markers

commands against GIFTDESK_DB_*:
  up | down | redo | reset | status
  version <YYYYMMDDHHMMSS>
`

func main() {
	dir := flag.String("dir", migrate.DefaultDir, "migrations directory; empty uses the set embedded in the binary")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command, args := flag.Arg(0), flag.Args()[1:]

	switch command {
	case "create":
		if len(args) != 1 {
			exitf("create needs a migration name")
		}
		path, err := migrate.CreateSQLMigration(*dir, args[0], time.Now())
		if err != nil {
			exitf("%v", err)
		}
		fmt.Println(path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			exitf("%v", err)
		}
		fmt.Println("migrations ok")
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		exitf("config: %v", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "command": command})

	if err := run(ctx, cfg, logg, *dir, command, args); err != nil {
		logg.Error(ctx, "migrate.failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, dir, command string, args []string) error {
	if command == "reset" && cfg.App.IsProd() {
		return fmt.Errorf("reset is disabled in %s", cfg.App.Env)
	}
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "migrate.db_close_failed", err)
		}
	}()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, dir, logg)
	if err != nil {
		return err
	}
	return runner.Run(ctx, command, args...)
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "migrate: "+format+"\n", args...)
	os.Exit(1)
}
