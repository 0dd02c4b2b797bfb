// Package recipients turns uploaded spreadsheets into gift recipient rows.
//
// Both CSV and XLSX follow the same header-driven rules: headers are matched
// case-insensitively after trimming, columns may appear in any order, and the
// name and email columns are mandatory. A blank name cell falls back to the
// email.
package recipients

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
)

// Format selects the parser for an upload.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// MaxRows caps a single import.
const MaxRows = 5000

// Row is one parsed recipient.
type Row struct {
	Name        string
	Email       string
	Designation *string
	Department  *string
	Phone       *string
}

// Result carries parsed rows and the number of data rows that were dropped
// (blank email or duplicate within the file).
type Result struct {
	Rows    []Row
	Skipped int
}

// ParseFormat maps a file extension or explicit format name.
func ParseFormat(value string) (Format, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.TrimPrefix(v, ".")
	switch v {
	case "csv", "text/csv":
		return FormatCSV, nil
	case "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX, nil
	}
	return "", pkgerrors.Validation("format", "file must be csv or xlsx")
}

// Parse dispatches to the parser for format.
func Parse(format Format, r io.Reader) (*Result, error) {
	switch format {
	case FormatCSV:
		return ParseCSV(r)
	case FormatXLSX:
		return ParseXLSX(r)
	}
	return nil, pkgerrors.Validation("format", "file must be csv or xlsx")
}

func ParseCSV(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is not valid csv")
		}
		records = append(records, rec)
		if len(records) > MaxRows+1 {
			return nil, pkgerrors.Validation("file", fmt.Sprintf("at most %d recipients per import", MaxRows))
		}
	}
	return fromRecords(records)
}

// ParseXLSX reads the first sheet of a workbook.
func ParseXLSX(r io.Reader) (*Result, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is not a valid xlsx workbook")
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, pkgerrors.Validation("file", "workbook has no sheets")
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read first sheet")
	}
	if len(rows) > MaxRows+1 {
		return nil, pkgerrors.Validation("file", fmt.Sprintf("at most %d recipients per import", MaxRows))
	}
	return fromRecords(rows)
}

type columns struct {
	name, email, designation, department, phone int
}

func headerIndex(header []string) (columns, error) {
	cols := columns{name: -1, email: -1, designation: -1, department: -1, phone: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "name":
			cols.name = i
		case "email":
			cols.email = i
		case "designation":
			cols.designation = i
		case "department":
			cols.department = i
		case "phone":
			cols.phone = i
		}
	}
	var missing []string
	if cols.name < 0 {
		missing = append(missing, "name")
	}
	if cols.email < 0 {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return cols, pkgerrors.Validation("file", "missing required column(s): "+strings.Join(missing, ", "))
	}
	return cols, nil
}

func fromRecords(records [][]string) (*Result, error) {
	if len(records) == 0 {
		return nil, pkgerrors.Validation("file", "file is empty")
	}
	cols, err := headerIndex(records[0])
	if err != nil {
		return nil, err
	}

	out := &Result{}
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		email := strings.ToLower(cell(rec, cols.email))
		if email == "" {
			out.Skipped++
			continue
		}
		if _, dup := seen[email]; dup {
			out.Skipped++
			continue
		}
		seen[email] = struct{}{}

		name := cell(rec, cols.name)
		if name == "" {
			name = email
		}
		out.Rows = append(out.Rows, Row{
			Name:        name,
			Email:       email,
			Designation: optional(rec, cols.designation),
			Department:  optional(rec, cols.department),
			Phone:       optional(rec, cols.phone),
		})
	}
	return out, nil
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func optional(rec []string, idx int) *string {
	v := cell(rec, idx)
	if v == "" {
		return nil
	}
	return &v
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
