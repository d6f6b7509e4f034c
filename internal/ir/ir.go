// Package ir defines the positional schema representation used by the
// section decoder. A schema is an ordered list of fixed rows followed by an
// optional repeated row; field identity is the (row, column) position only.
// This package is internal and not part of the public API.
package ir

// Type identifies the declared type of a column.
type Type int

const (
	TypeString       Type = iota // Token kept as-is.
	TypeQuotedString             // Whole row joined with spaces, quotes stripped.
	TypeInt                      // Base-10 signed integer.
	TypeFloat                    // 64-bit float.
)

// String returns the name used in issue params ("int", "float", ...).
func (t Type) String() string {
	switch t {
	case TypeQuotedString:
		return "quoted_string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	default:
		return "string"
	}
}

// Column is one positional field of a row.
type Column struct {
	Name string
	Type Type
}

// Row describes the expected token layout of one tokenized line.
type Row struct {
	Columns []Column
	// Join merges all tokens of the line into the single column (used by the
	// quoted histogram name). Rows with Join set must have exactly one column.
	Join bool
	// AllowExtra tolerates tokens beyond len(Columns); they are ignored.
	AllowExtra bool
}

// Width returns the number of declared columns.
func (r Row) Width() int { return len(r.Columns) }

// Schema is a positional section schema.
type Schema struct {
	Name  string // Section name, e.g. "Statistics".
	Fixed []Row  // Leading rows, matched one-to-one.
	// Repeat, when non-nil, matches every row after Fixed (zero or more).
	// When nil the section must contain exactly len(Fixed) rows.
	Repeat *Row
}

// MinRows returns the minimum number of rows the schema accepts.
func (s Schema) MinRows() int { return len(s.Fixed) }

// Exact reports whether the schema accepts exactly MinRows rows.
func (s Schema) Exact() bool { return s.Repeat == nil }

// RowAt returns the row layout for the i-th tokenized row, or false when the
// schema has no row at that index.
func (s Schema) RowAt(i int) (Row, bool) {
	if i < len(s.Fixed) {
		return s.Fixed[i], true
	}
	if s.Repeat != nil {
		return *s.Repeat, true
	}
	return Row{}, false
}

func floats(names ...string) []Column {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Type: TypeFloat}
	}
	return cols
}

// Description is the schema of the <Description> section: the quoted name,
// the binning row, then one region identifier per row.
func Description() Schema {
	return Schema{
		Name: "Description",
		Fixed: []Row{
			{Columns: []Column{{Name: "name", Type: TypeQuotedString}}, Join: true},
			{Columns: []Column{
				{Name: "nbins", Type: TypeInt},
				{Name: "xmin", Type: TypeFloat},
				{Name: "xmax", Type: TypeFloat},
			}},
		},
		Repeat: &Row{Columns: []Column{{Name: "region", Type: TypeString}}, AllowExtra: true},
	}
}

// Statistics is the schema of the <Statistics> section. secondary names the
// paired column ("err" or "neg") and only affects column names.
func Statistics(secondary string) Schema {
	pair := func(name string, t Type) Row {
		return Row{Columns: []Column{{Name: name, Type: t}, {Name: name + "_" + secondary, Type: t}}}
	}
	return Schema{
		Name: "Statistics",
		Fixed: []Row{
			pair("nevents", TypeInt),
			pair("nevents_w", TypeFloat),
			pair("nentries", TypeInt),
			pair("sum_w", TypeFloat),
			pair("sum_ww", TypeFloat),
			pair("sum_xw", TypeFloat),
			pair("sum_xxw", TypeFloat),
		},
	}
}

// Data is the schema of the <Data> section with the given column names, one
// float per column, repeated for every bin (underflow first).
func Data(columns ...string) Schema {
	return Schema{
		Name:   "Data",
		Repeat: &Row{Columns: floats(columns...)},
	}
}
