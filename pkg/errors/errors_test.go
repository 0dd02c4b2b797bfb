package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", detailsOK: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeWalksChain(t *testing.T) {
	inner := New(CodeConflict, "invoice already exists")
	wrapped := fmt.Errorf("generate: %w", inner)
	if !IsCode(wrapped, CodeConflict) {
		t.Fatal("expected conflict code through wrapping")
	}
	if IsCode(wrapped, CodeValidation) {
		t.Fatal("unexpected validation match")
	}
	if IsCode(nil, CodeConflict) {
		t.Fatal("nil error should not match")
	}
}

func TestReasonReadsDetails(t *testing.T) {
	err := New(CodeForbidden, "wrong tenant").WithDetails(map[string]any{"reason": "wrong_tenant"})
	if got := Reason(err); got != "wrong_tenant" {
		t.Fatalf("expected wrong_tenant, got %q", got)
	}
	if got := Reason(stdErrors.New("plain")); got != "" {
		t.Fatalf("expected empty reason, got %q", got)
	}
}

func TestValidationCarriesField(t *testing.T) {
	err := Validation("amount", "amount must be positive")
	details, ok := err.Details().(map[string]any)
	if !ok || details["field"] != "amount" {
		t.Fatalf("expected field detail, got %#v", err.Details())
	}
}

func TestDiagnoseExtractsPostgresDetail(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "invoices_number_key", TableName: "invoices"}
	err := Wrap(CodeConflict, fmt.Errorf("insert invoice: %w", pgErr), "invoice number taken")

	d := Diagnose(err)

	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if d.Postgres == nil || d.Postgres.Constraint != "invoices_number_key" {
		t.Fatalf("expected postgres constraint, got %#v", d.Postgres)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected three links in chain, got %v", d.Chain)
	}
	fields := d.Fields()
	if fields["pg_code"] != "23505" || fields["pg_table"] != "invoices" {
		t.Fatalf("unexpected fields %#v", fields)
	}
}

func TestDiagnosePlainError(t *testing.T) {
	d := Diagnose(stdErrors.New("boom"))
	if d.Postgres != nil {
		t.Fatal("plain error should carry no postgres detail")
	}
	if _, ok := d.Fields()["pg_code"]; ok {
		t.Fatal("pg_code should be absent")
	}
	if Diagnose(nil).Message != "" {
		t.Fatal("nil error should diagnose empty")
	}
}
