package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

const versionLayout = "20060102150405"

const sqlTemplate = `-- +goose Up
-- +goose StatementBegin
SELECT 'up: %[1]s';
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
SELECT 'down: %[1]s';
-- +goose StatementEnd
`

// slug lowercases name and joins its alphanumeric runs with underscores.
func slug(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	return strings.Join(words, "_")
}

// CreateSQLMigration writes <dir>/<version>_<slug>.sql stamped with now and
// returns its path. It refuses to reuse a version already present in dir.
func CreateSQLMigration(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", errors.New("migrate: dir is required")
	}
	base := slug(name)
	if base == "" {
		return "", fmt.Errorf("migrate: name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("migrate: mkdir %q: %w", dir, err)
	}

	version := now.UTC().Format(versionLayout)
	taken, err := filepath.Glob(filepath.Join(dir, version+"_*.sql"))
	if err != nil {
		return "", err
	}
	if len(taken) > 0 {
		return "", fmt.Errorf("migrate: version %s already used by %s", version, filepath.Base(taken[0]))
	}

	path := filepath.Join(dir, version+"_"+base+".sql")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("migrate: create %q: %w", path, err)
	}
	if _, err := fmt.Fprintf(f, sqlTemplate, base); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("migrate: write %q: %w", path, err)
	}
	return path, f.Close()
}
