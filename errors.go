package saf

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	// File-level: nothing in the input is decodable.
	CodeMalformedInput = "malformed_input"
	CodeTruncated      = "truncated"
	CodeReadFailed     = "read_failed"
	// Entry-level: the entry is discarded, other entries are unaffected.
	CodeMissingSection     = "missing_section"
	CodeSchemaMismatch     = "schema_mismatch"
	CodeFieldDecode        = "field_decode"
	CodeInvariantViolation = "invariant_violation"
)

// Invariant kinds carried in Params["kind"] of invariant_violation issues.
const (
	InvariantBinCount       = "bin_count"
	InvariantRange          = "range"
	InvariantLength         = "length"
	InvariantParallelLength = "parallel_length"
)

// Issue represents a single decode failure with enough position to locate
// the offending line without re-reading the file.
type Issue struct {
	Path    string // Pointer such as /histo/1/Statistics/3/1.
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints.
	Cause   error  // Optional: underlying error.
	// Entry is the 0-based index of the <Histo> element, -1 for file-level issues.
	Entry int
	// Name is the histogram name when the Description decoded far enough.
	Name string
	// Section is "Description", "Statistics" or "Data" when applicable.
	Section string
	// Row and Column index the tokenized rows of Section (-1 when not applicable).
	Row    int
	Column int
	// Line is the 1-based line in the raw input (0 when unknown).
	Line int
	// InputFragment is the offending token, if any.
	InputFragment string
	// Params carries structured parameters (e.g., {"expected_rows":7, "actual_rows":6})
	// for i18n and reporting.
	Params map[string]any
}

// FileLevel reports whether the issue concerns the whole input.
func (it Issue) FileLevel() bool { return it.Entry < 0 }

// String renders the issue with its full position for human output.
func (it Issue) String() string {
	b := &strings.Builder{}
	if it.Line > 0 {
		fmt.Fprintf(b, "line %d: ", it.Line)
	}
	if it.Entry >= 0 {
		fmt.Fprintf(b, "entry %d", it.Entry)
		if it.Name != "" {
			fmt.Fprintf(b, " (%q)", it.Name)
		}
		b.WriteString(": ")
	}
	if it.Section != "" {
		b.WriteString(it.Section)
		if it.Row >= 0 {
			fmt.Fprintf(b, " row %d", it.Row)
		}
		if it.Column >= 0 {
			fmt.Fprintf(b, " column %d", it.Column)
		}
		b.WriteString(": ")
	}
	fmt.Fprintf(b, "%s: %s", it.Code, it.Message)
	return b.String()
}

// Issues is a collection of decode errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. field_decode at /histo/0/Statistics/2/0
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Entries returns the distinct entry indices that have issues, in order of
// first appearance. File-level issues are not included.
func (iss Issues) Entries() []int {
	var out []int
	seen := map[int]bool{}
	for _, it := range iss {
		if it.Entry < 0 || seen[it.Entry] {
			continue
		}
		seen[it.Entry] = true
		out = append(out, it.Entry)
	}
	return out
}

// HasCode reports whether any issue carries code.
func (iss Issues) HasCode(code string) bool {
	for _, it := range iss {
		if it.Code == code {
			return true
		}
	}
	return false
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}
