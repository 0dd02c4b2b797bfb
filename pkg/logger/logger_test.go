package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	buf.Reset()
	return line
}

func TestContextFieldsAreEmitted(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Format: FormatJSON, Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-1")
	ctx = logg.WithActor(ctx, "user-1", "HR", "company-1")
	logg.Info(ctx, "campaign.launched")

	line := decodeLine(t, &buf)
	for key, want := range map[string]string{
		"request_id": "req-1",
		"user_id":    "user-1",
		"actor_role": "HR",
		"company_id": "company-1",
		"service":    "api",
		"severity":   "INFO",
	} {
		if line[key] != want {
			t.Fatalf("expected %s=%s, got %v", key, want, line[key])
		}
	}
}

func TestWithActorOmitsEmptyCompany(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf})

	logg.Info(logg.WithActor(context.Background(), "admin-1", "SUPER_ADMIN", ""), "reports.summary")

	if _, ok := decodeLine(t, &buf)["company_id"]; ok {
		t.Fatal("company_id should be omitted for platform admins")
	}
}

func TestWarnErrAttachesError(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Format: FormatJSON, Output: &buf})

	logg.WarnErr(context.Background(), "audit.record_failed", errors.New("boom"))

	line := decodeLine(t, &buf)
	if line["level"] != "warn" || line["severity"] != "WARNING" {
		t.Fatalf("expected warn level, got %v/%v", line["level"], line["severity"])
	}
	if line["error"] != "boom" {
		t.Fatalf("expected error boom, got %v", line["error"])
	}
	if _, ok := line["stack"]; ok {
		t.Fatal("warn lines carry no stack unless WarnStack is set")
	}
}

func TestErrorCarriesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	logg.Error(context.Background(), "invoice.persist_failed", errors.New("deadlock"))

	line := decodeLine(t, &buf)
	if line["severity"] != "ERROR" {
		t.Fatalf("expected ERROR severity, got %v", line["severity"])
	}
	if line["stack"] == nil {
		t.Fatal("expected stack on error lines")
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf})

	logg.Debug(context.Background(), "noise")

	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("") != zerolog.InfoLevel {
		t.Fatal("empty level should default to info")
	}
	if ParseLevel("DEBUG") != zerolog.DebugLevel {
		t.Fatal("expected debug")
	}
	if ParseLevel("nope") != zerolog.InfoLevel {
		t.Fatal("unknown level should default to info")
	}
}
