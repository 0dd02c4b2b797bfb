package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PostgresDetail is the subset of a driver error worth logging. Both pgx and
// lib/pq errors are recognized since goose and gorm sit on different drivers.
type PostgresDetail struct {
	Code       string `json:"code"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Diagnosis flattens an error chain for a 5xx log line.
type Diagnosis struct {
	Message  string          `json:"message"`
	Code     Code            `json:"code,omitempty"`
	Chain    []string        `json:"chain,omitempty"`
	Postgres *PostgresDetail `json:"postgres,omitempty"`
}

func Diagnose(err error) Diagnosis {
	if err == nil {
		return Diagnosis{}
	}

	d := Diagnosis{Message: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T", e))
	}
	d.Postgres = postgresDetail(err)
	return d
}

func postgresDetail(err error) *PostgresDetail {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &PostgresDetail{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PostgresDetail{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}

// Fields renders the diagnosis as logger fields.
func (d Diagnosis) Fields() map[string]any {
	fields := map[string]any{
		"error_code":  string(d.Code),
		"error_types": d.Chain,
	}
	if pg := d.Postgres; pg != nil {
		fields["pg_code"] = pg.Code
		if pg.Constraint != "" {
			fields["pg_constraint"] = pg.Constraint
		}
		if pg.Table != "" {
			fields["pg_table"] = pg.Table
		}
		if pg.Detail != "" {
			fields["pg_detail"] = pg.Detail
		}
	}
	return fields
}
