package migrate

import (
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"time"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir lints the migrations in dir, or the embedded set when dir is
// empty. Every problem found is reported, not only the first.
func ValidateDir(dir string) error {
	fsys, err := Source(dir)
	if err != nil {
		return err
	}
	return ValidateFS(fsys)
}

// ValidateFS lints every .sql file at the root of fsys.
func ValidateFS(fsys fs.FS) error {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("migrate: no .sql migrations found")
	}

	var errs error
	seen := make(map[string]string, len(names))
	for _, name := range names {
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: name must be YYYYMMDDHHMMSS_snake_case.sql", name))
			continue
		}
		if _, err := time.Parse(versionLayout, m[1]); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: version %s is not a timestamp", name, m[1]))
		}
		if prev, ok := seen[m[1]]; ok {
			errs = multierr.Append(errs, fmt.Errorf("%s: version %s already used by %s", name, m[1], prev))
		}
		seen[m[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		errs = multierr.Append(errs, lintAnnotations(name, string(body)))
	}
	return errs
}

// lintAnnotations checks the goose markers: one Up before one Down, and
// balanced StatementBegin/StatementEnd pairs.
func lintAnnotations(name, body string) error {
	up := strings.Index(body, "-- +goose Up")
	down := strings.Index(body, "-- +goose Down")
	switch {
	case up < 0:
		return fmt.Errorf("%s: missing -- +goose Up", name)
	case down < 0:
		return fmt.Errorf("%s: missing -- +goose Down", name)
	case down < up:
		return fmt.Errorf("%s: Down section precedes Up", name)
	case strings.Count(body, "-- +goose Up") > 1 || strings.Count(body, "-- +goose Down") > 1:
		return fmt.Errorf("%s: repeated Up or Down marker", name)
	}

	depth := 0
	for _, line := range strings.Split(body, "\n") {
		switch strings.TrimSpace(line) {
		case "-- +goose StatementBegin":
			depth++
		case "-- +goose StatementEnd":
			depth--
		}
		if depth < 0 || depth > 1 {
			return fmt.Errorf("%s: unbalanced StatementBegin/StatementEnd", name)
		}
	}
	if depth != 0 {
		return fmt.Errorf("%s: unterminated StatementBegin", name)
	}
	return nil
}
