package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	ir "github.com/reoring/saf/internal/ir"
)

// Value is one decoded positional field.
type Value struct {
	Type  ir.Type
	Str   string
	Int   int64
	Float float64
}

// Record is the typed result of decoding one section. Rows[i][j] is the
// value of column j of the i-th tokenized row.
type Record struct {
	Schema string
	Rows   [][]Value
	Lines  []int
}

// Len returns the number of decoded rows.
func (r Record) Len() int { return len(r.Rows) }

// Int returns the integer at (row, col).
func (r Record) Int(row, col int) int64 { return r.Rows[row][col].Int }

// Float returns the float at (row, col).
func (r Record) Float(row, col int) float64 { return r.Rows[row][col].Float }

// Str returns the string at (row, col).
func (r Record) Str(row, col int) string { return r.Rows[row][col].Str }

// Column collects column col of rows [from, Len()).
func (r Record) Column(from, col int) []float64 {
	if from >= len(r.Rows) {
		return []float64{}
	}
	out := make([]float64, 0, len(r.Rows)-from)
	for _, row := range r.Rows[from:] {
		out = append(out, row[col].Float)
	}
	return out
}

// DecodeOptions controls section decoding.
type DecodeOptions struct {
	// FailFast stops at the first issue instead of collecting every bad field.
	FailFast bool
	// IssueSink optionally receives each issue as it is produced.
	IssueSink func(SimpleIssue)
}

// Decode maps tokenized rows onto the positional schema s. A row-count
// mismatch stops decoding; column-count and field errors are collected per
// row unless FailFast is set. The record is only meaningful when no issues
// are returned.
func Decode(s ir.Schema, rows []Row, opt DecodeOptions) (Record, []SimpleIssue) {
	var issues []SimpleIssue
	report := func(si SimpleIssue) bool {
		si.Schema = s.Name
		if si.Params == nil {
			si.Params = map[string]any{}
		}
		si.Params["schema"] = s.Name
		issues = append(issues, si)
		if opt.IssueSink != nil {
			opt.IssueSink(si)
		}
		return opt.FailFast
	}

	if si, bad := checkRowCount(s, rows); bad {
		report(si)
		return Record{Schema: s.Name}, issues
	}

	rec := Record{Schema: s.Name, Rows: make([][]Value, len(rows)), Lines: make([]int, len(rows))}
	for i, row := range rows {
		rec.Lines[i] = row.Line
		layout, _ := s.RowAt(i)
		if layout.Join {
			v, si, ok := decodeJoined(layout.Columns[0], row)
			if !ok {
				si.Row = i
				if report(si) {
					return rec, issues
				}
				continue
			}
			rec.Rows[i] = []Value{v}
			continue
		}
		n := len(row.Tokens)
		if n != layout.Width() && (!layout.AllowExtra || n < layout.Width()) {
			stop := report(SimpleIssue{
				Code:    CodeSchemaMismatch,
				Row:     i,
				Column:  -1,
				Line:    row.Line,
				Message: fmt.Sprintf("row %d has %d columns, expected %d", i, n, layout.Width()),
				Params:  map[string]any{"expected_columns": layout.Width(), "actual_columns": n},
			})
			if stop {
				return rec, issues
			}
			continue
		}
		vals := make([]Value, layout.Width())
		for j, col := range layout.Columns {
			v, err := coerce(col.Type, row.Tokens[j])
			if err != nil {
				stop := report(fieldIssue(col, row, i, j, row.Tokens[j], err))
				if stop {
					return rec, issues
				}
				continue
			}
			vals[j] = v
		}
		rec.Rows[i] = vals
	}
	return rec, issues
}

func checkRowCount(s ir.Schema, rows []Row) (SimpleIssue, bool) {
	n := len(rows)
	line := 0
	if n > 0 {
		line = rows[n-1].Line
	}
	switch {
	case s.Exact() && n != s.MinRows():
		return SimpleIssue{
			Code:    CodeSchemaMismatch,
			Row:     -1,
			Column:  -1,
			Line:    line,
			Message: fmt.Sprintf("%s has %d rows, expected %d", s.Name, n, s.MinRows()),
			Params:  map[string]any{"expected_rows": s.MinRows(), "actual_rows": n},
		}, true
	case n < s.MinRows():
		return SimpleIssue{
			Code:    CodeSchemaMismatch,
			Row:     -1,
			Column:  -1,
			Line:    line,
			Message: fmt.Sprintf("%s has %d rows, expected at least %d", s.Name, n, s.MinRows()),
			Params:  map[string]any{"min_rows": s.MinRows(), "actual_rows": n},
		}, true
	}
	return SimpleIssue{}, false
}

var errMissingQuotes = errors.New("missing bounding quotes")

// decodeJoined joins all tokens with single spaces and strips exactly one
// bounding quote on each side.
func decodeJoined(col ir.Column, row Row) (Value, SimpleIssue, bool) {
	joined := strings.Join(row.Tokens, " ")
	if len(joined) >= 2 && joined[0] == '"' && joined[len(joined)-1] == '"' {
		return Value{Type: col.Type, Str: joined[1 : len(joined)-1]}, SimpleIssue{}, true
	}
	si := fieldIssue(col, row, 0, 0, joined, errMissingQuotes)
	return Value{}, si, false
}

func fieldIssue(col ir.Column, row Row, i, j int, tok string, err error) SimpleIssue {
	return SimpleIssue{
		Code:    CodeFieldDecode,
		Row:     i,
		Column:  j,
		Line:    row.Line,
		Token:   tok,
		Message: fmt.Sprintf("cannot decode %q as %s (%s)", tok, col.Type, col.Name),
		Params:  map[string]any{"expected_type": col.Type.String(), "token": tok, "field": col.Name},
		Cause:   err,
	}
}

func coerce(t ir.Type, tok string) (Value, error) {
	switch t {
	case ir.TypeInt:
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Int: n}, nil
	case ir.TypeFloat:
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Float: f}, nil
	default:
		return Value{Type: t, Str: tok}, nil
	}
}
