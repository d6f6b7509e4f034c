package engine

// Issue codes produced by the section decoder. They mirror the public
// saf.Code* constants.
const (
	CodeSchemaMismatch = "schema_mismatch"
	CodeFieldDecode    = "field_decode"
)

// SimpleIssue is a lightweight issue produced while decoding one section.
// Row and Column are -1 when the issue concerns the whole section or row.
type SimpleIssue struct {
	Code    string
	Schema  string
	Row     int
	Column  int
	Line    int
	Token   string
	Message string
	Params  map[string]any
	Cause   error
}
