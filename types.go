package saf

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	ir "github.com/reoring/saf/internal/ir"
)

// Dialect selects how the <Statistics> secondary column and the <Data>
// columns are interpreted. It is never inferred from the input.
type Dialect int

const (
	DialectErrors        Dialect = iota // Data: value, error. Statistics secondary: error.
	DialectSignedWeights                // Data: positive, negative weight. Statistics secondary: negative weight.
	DialectValues                       // Data: value only. Statistics secondary: error.
)

// Dialects lists every dialect in declaration order.
var Dialects = []Dialect{DialectErrors, DialectSignedWeights, DialectValues}

// ErrUnknownDialect is wrapped by errors naming a dialect outside Dialects.
var ErrUnknownDialect = errors.New("unknown dialect")

func (d Dialect) valid() bool { return d >= DialectErrors && d <= DialectValues }

func (d Dialect) String() string {
	switch d {
	case DialectErrors:
		return "errors"
	case DialectSignedWeights:
		return "signed-weights"
	case DialectValues:
		return "values"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// ParseDialect maps a dialect name (as printed by String) to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	for _, d := range Dialects {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w %q (want one of errors, signed-weights, values)", ErrUnknownDialect, s)
}

// Role reports what the Statistics secondary column carries.
func (d Dialect) Role() SecondaryRole {
	if d == DialectSignedWeights {
		return SecondaryNegativeWeight
	}
	return SecondaryError
}

// Columns returns the number of tokens per <Data> row.
func (d Dialect) Columns() int {
	if d == DialectValues {
		return 1
	}
	return 2
}

func (d Dialect) schemas() (desc, stats, data ir.Schema) {
	desc = ir.Description()
	stats = ir.Statistics(d.Role().suffix())
	switch d {
	case DialectSignedWeights:
		data = ir.Data("value", "value_neg")
	case DialectValues:
		data = ir.Data("value")
	default:
		data = ir.Data("value", "error")
	}
	return desc, stats, data
}

// SecondaryRole names the meaning of the second Statistics column.
type SecondaryRole int

const (
	SecondaryError          SecondaryRole = iota // Paired value is an error.
	SecondaryNegativeWeight                      // Paired value is the negative-weight counterpart.
)

func (r SecondaryRole) suffix() string {
	if r == SecondaryNegativeWeight {
		return "neg"
	}
	return "err"
}

func (r SecondaryRole) String() string {
	if r == SecondaryNegativeWeight {
		return "negative_weight"
	}
	return "error"
}

// DecodeOpt bundles decoding options.
type DecodeOpt struct {
	// Dialect is the numeric layout of every entry in the input.
	Dialect Dialect
	// FailFast stops at the first failing entry and returns no histograms.
	// The default collects per-entry issues and returns every good entry.
	FailFast bool
	// MaxBytes caps the input size (0 = unlimited).
	MaxBytes int64
	// Logger receives per-entry debug records; nil is silent.
	Logger *slog.Logger
}
