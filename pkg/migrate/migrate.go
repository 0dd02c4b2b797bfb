package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"

	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

// DefaultDir is where the SQL migrations live in the source tree.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var Embedded embed.FS

var errNoDB = errors.New("migrate: db is required")

// Runner applies goose migrations under a postgres session lock; concurrent
// runners against one database apply each migration once.
type Runner struct {
	provider *goose.Provider
	logg     *logger.Logger
}

// Source returns the embedded migrations when dir is empty and the
// directory on disk otherwise.
func Source(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(Embedded, "migrations")
	}
	return os.DirFS(dir), nil
}

func NewRunner(db *sql.DB, dir string, logg *logger.Logger) (*Runner, error) {
	if db == nil {
		return nil, errNoDB
	}
	fsys, err := Source(dir)
	if err != nil {
		return nil, fmt.Errorf("migrate: open source: %w", err)
	}
	locker, err := lock.NewPostgresSessionLocker()
	if err != nil {
		return nil, fmt.Errorf("migrate: session locker: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys, goose.WithSessionLocker(locker))
	if err != nil {
		return nil, fmt.Errorf("migrate: provider: %w", err)
	}
	return &Runner{provider: provider, logg: logg}, nil
}

// Run dispatches a CLI command: up, down, redo, reset, status or version.
// version takes the target as its single argument.
func (r *Runner) Run(ctx context.Context, command string, args ...string) error {
	switch command {
	case "up":
		return r.Up(ctx)
	case "down":
		return r.Down(ctx)
	case "redo":
		if err := r.Down(ctx); err != nil {
			return err
		}
		res, err := r.provider.UpByOne(ctx)
		return r.report(ctx, "up", []*goose.MigrationResult{res}, err)
	case "reset":
		res, err := r.provider.DownTo(ctx, 0)
		return r.report(ctx, "reset", res, err)
	case "status":
		return r.Status(ctx)
	case "version":
		if len(args) != 1 {
			return errors.New("migrate: version needs exactly one target")
		}
		target, err := ParseVersion(args[0])
		if err != nil {
			return err
		}
		return r.To(ctx, target)
	}
	return fmt.Errorf("migrate: unknown command %q", command)
}

func (r *Runner) Up(ctx context.Context) error {
	res, err := r.provider.Up(ctx)
	return r.report(ctx, "up", res, err)
}

func (r *Runner) Down(ctx context.Context) error {
	res, err := r.provider.Down(ctx)
	return r.report(ctx, "down", []*goose.MigrationResult{res}, err)
}

// To moves the schema up or down until target is the newest applied
// version.
func (r *Runner) To(ctx context.Context, target int64) error {
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("migrate: current version: %w", err)
	}
	var res []*goose.MigrationResult
	switch {
	case current == target:
		r.logg.Info(ctx, "migrate.version.current")
		return nil
	case current < target:
		res, err = r.provider.UpTo(ctx, target)
	default:
		res, err = r.provider.DownTo(ctx, target)
	}
	return r.report(ctx, "version", res, err)
}

func (r *Runner) Status(ctx context.Context) error {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("migrate: status: %w", err)
	}
	for _, st := range statuses {
		fields := map[string]any{
			"version": st.Source.Version,
			"file":    st.Source.Path,
			"state":   string(st.State),
		}
		if !st.AppliedAt.IsZero() {
			fields["applied_at"] = st.AppliedAt
		}
		r.logg.Info(r.logg.WithFields(ctx, fields), "migrate.status")
	}
	return nil
}

// HasPending reports whether any migration is waiting to be applied.
func (r *Runner) HasPending(ctx context.Context) (bool, error) {
	return r.provider.HasPending(ctx)
}

func (r *Runner) report(ctx context.Context, op string, results []*goose.MigrationResult, err error) error {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"op":          op,
			"version":     res.Source.Version,
			"file":        res.Source.Path,
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		}), "migrate.applied")
	}
	if errors.Is(err, goose.ErrNoNextVersion) || errors.Is(err, goose.ErrNoCurrentVersion) {
		r.logg.Info(ctx, "migrate."+op+".nothing_to_do")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate: %s: %w", op, err)
	}
	return nil
}

// ParseVersion reads a YYYYMMDDHHMMSS migration version.
func ParseVersion(raw string) (int64, error) {
	if len(raw) != len(versionLayout) {
		return 0, fmt.Errorf("migrate: version %q is not YYYYMMDDHHMMSS", raw)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("migrate: version %q is not YYYYMMDDHHMMSS", raw)
	}
	return v, nil
}
