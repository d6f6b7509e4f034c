package saf_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	saf "github.com/reoring/saf"
)

const statsZero = `0 0
0 0
0 0
0 0
0 0
0 0
0 0
`

func entry(desc, stats, data string) string {
	return "<Histo>\n<Description>\n" + desc + "</Description>\n<Statistics>\n" + stats +
		"</Statistics>\n<Data>\n" + data + "</Data>\n</Histo>\n"
}

func decode(t *testing.T, doc string, opt saf.DecodeOpt) ([]saf.Histogram, error) {
	t.Helper()
	return saf.Decode(context.Background(), saf.Bytes("test.saf", []byte(doc)), opt)
}

func TestDecode_EndToEndValues(t *testing.T) {
	doc := entry("\"H1\"\n2 0.0 2.0\nregion1\n", statsZero, "0.0\n1.0\n2.0\n0.0\n")
	hs, err := decode(t, doc, saf.DecodeOpt{Dialect: saf.DialectValues})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hs) != 1 {
		t.Fatalf("want 1 histogram, got %d", len(hs))
	}
	h := hs[0]
	if h.Name() != "H1" || h.NBins() != 2 || h.XMin() != 0 || h.XMax() != 2 {
		t.Fatalf("unexpected header: %q %d %v %v", h.Name(), h.NBins(), h.XMin(), h.XMax())
	}
	if !slices.Equal(h.Regions(), []string{"region1"}) {
		t.Fatalf("regions: %v", h.Regions())
	}
	if !slices.Equal(h.Values(), []float64{0, 1, 2, 0}) {
		t.Fatalf("values: %v", h.Values())
	}
	if h.Errors() != nil || h.ValuesNeg() != nil {
		t.Fatalf("values dialect must not carry parallel arrays")
	}
	if !slices.Equal(h.Bins(), []float64{1, 2}) || h.BinWidth() != 1 {
		t.Fatalf("bins %v width %v", h.Bins(), h.BinWidth())
	}
}

func TestDecode_ErrorsDialect(t *testing.T) {
	stats := "10 0\n9.5 0.5\n10 0\n9.5 0.5\n9.1 0.1\n4.5 0.2\n3.3 0.3\n"
	doc := entry("\"Transverse momentum\"\n2 0 10\n", stats, "0 0\n1 0.5\n2 0.7\n0 0\n")
	hs, err := decode(t, doc, saf.DecodeOpt{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h := hs[0]
	if h.Name() != "Transverse momentum" {
		t.Fatalf("name: %q", h.Name())
	}
	if len(h.Regions()) != 0 {
		t.Fatalf("regions should be empty: %v", h.Regions())
	}
	if !slices.Equal(h.Errors(), []float64{0, 0.5, 0.7, 0}) {
		t.Fatalf("errors: %v", h.Errors())
	}
	st := h.Statistics()
	if st.Role != saf.SecondaryError || st.NEvents.Primary != 10 || st.NEventsW.Secondary != 0.5 || st.SumXXW.Primary != 3.3 {
		t.Fatalf("statistics: %+v", st)
	}
}

func TestDecode_SignedWeightsDialect(t *testing.T) {
	doc := entry("\"w\"\n1 0 1\n", statsZero, "0 0\n3 -1\n0 0\n")
	hs, err := decode(t, doc, saf.DecodeOpt{Dialect: saf.DialectSignedWeights})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h := hs[0]
	if !slices.Equal(h.ValuesNeg(), []float64{0, -1, 0}) || h.Errors() != nil {
		t.Fatalf("values_neg %v errors %v", h.ValuesNeg(), h.Errors())
	}
	if h.Statistics().Role != saf.SecondaryNegativeWeight {
		t.Fatalf("role: %v", h.Statistics().Role)
	}
}

func TestDecode_DataLengthInvariant(t *testing.T) {
	cases := map[string]string{
		"nbins+1": "0\n1\n2\n",
		"nbins+3": "0\n1\n2\n3\n4\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			doc := entry("\"H\"\n2 0 2\n", statsZero, data)
			hs, err := decode(t, doc, saf.DecodeOpt{Dialect: saf.DialectValues})
			if len(hs) != 0 {
				t.Fatalf("entry should be discarded, got %d", len(hs))
			}
			iss, ok := saf.AsIssues(err)
			if !ok || len(iss) != 1 {
				t.Fatalf("want one issue, got %v", err)
			}
			it := iss[0]
			if it.Code != saf.CodeInvariantViolation || it.Params["kind"] != saf.InvariantLength {
				t.Fatalf("unexpected issue: %+v", it)
			}
			if it.Name != "H" || it.Section != "Data" || it.Entry != 0 {
				t.Fatalf("issue position: %+v", it)
			}
		})
	}
}

func TestDecode_HeaderInvariants(t *testing.T) {
	cases := []struct {
		name string
		row  string
		data string
		kind string
	}{
		{"zero bins", "0 0 1", "0\n0\n", saf.InvariantBinCount},
		{"empty range", "1 2 2", "0\n0\n0\n", saf.InvariantRange},
		{"nan bound", "1 NaN 2", "0\n0\n0\n", saf.InvariantRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := entry("\"H\"\n"+tc.row+"\n", statsZero, tc.data)
			_, err := decode(t, doc, saf.DecodeOpt{Dialect: saf.DialectValues})
			iss, _ := saf.AsIssues(err)
			found := false
			for _, it := range iss {
				if it.Code == saf.CodeInvariantViolation && it.Params["kind"] == tc.kind {
					found = true
					if it.Line != 4 {
						t.Fatalf("want line 4, got %d", it.Line)
					}
				}
			}
			if !found {
				t.Fatalf("want %s violation, got %v", tc.kind, iss)
			}
		})
	}
}

func TestDecode_StatisticsShape(t *testing.T) {
	cases := map[string]string{
		"six rows":     "0 0\n0 0\n0 0\n0 0\n0 0\n0 0\n",
		"eight rows":   statsZero + "0 0\n",
		"three tokens": "0 0\n0 0 0\n0 0\n0 0\n0 0\n0 0\n0 0\n",
		"one token":    "0 0\n0 0\n0\n0 0\n0 0\n0 0\n0 0\n",
	}
	for name, stats := range cases {
		t.Run(name, func(t *testing.T) {
			doc := entry("\"H\"\n1 0 1\n", stats, "0\n0\n0\n")
			hs, err := decode(t, doc, saf.DecodeOpt{Dialect: saf.DialectValues})
			if len(hs) != 0 {
				t.Fatalf("entry should be discarded")
			}
			iss, _ := saf.AsIssues(err)
			if !iss.HasCode(saf.CodeSchemaMismatch) {
				t.Fatalf("want schema_mismatch, got %v", err)
			}
			for _, it := range iss {
				if it.Section != "Statistics" {
					t.Fatalf("unexpected section %q", it.Section)
				}
			}
		})
	}
}

func TestDecode_FieldDecodeIssue(t *testing.T) {
	stats := "0 0\n0 0\n0 0\n0 0\nabc 0\n0 0\n0 0\n"
	doc := entry("\"H\"\n1 0 1\n", stats, "0\n0\n0\n")
	_, err := decode(t, doc, saf.DecodeOpt{Dialect: saf.DialectValues})
	iss, ok := saf.AsIssues(err)
	if !ok || len(iss) != 1 {
		t.Fatalf("want one issue, got %v", err)
	}
	it := iss[0]
	if it.Code != saf.CodeFieldDecode || it.Path != "/histo/0/Statistics/4/0" {
		t.Fatalf("unexpected issue: %+v", it)
	}
	// <Statistics> opens on line 6, so row 4 sits on line 11.
	if it.Line != 11|| it.Row != 4 || it.Column != 0 || it.InputFragment != "abc" {
		t.Fatalf("issue position: %+v", it)
	}
	if it.Params["expected_type"] != "float" || it.Name != "H" {
		t.Fatalf("params: %+v name %q", it.Params, it.Name)
	}
	if it.Cause == nil {
		t.Fatalf("cause should carry the parse error")
	}
}

func TestDecode_UnquotedName(t *testing.T) {
	doc := entry("H1\n1 0 1\n", statsZero, "0\n0\n0\n")
	_, err := decode(t, doc, saf.DecodeOpt{Dialect: saf.DialectValues})
	iss, _ := saf.AsIssues(err)
	if len(iss) != 1 || iss[0].Code != saf.CodeFieldDecode || iss[0].Params["expected_type"] != "quoted_string" {
		t.Fatalf("want quoted_string field_decode, got %v", err)
	}
	if iss[0].Name != "" {
		t.Fatalf("name must stay empty when row 0 fails, got %q", iss[0].Name)
	}
}

func TestDecode_Idempotent(t *testing.T) {
	doc := []byte(entry("\"H\"\n2 0 2\na\nb\n", statsZero, "0 0\n1 1\n2 1\n0 0\n"))
	a, err := saf.DecodeBytes(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := saf.DecodeBytes(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a) != 1 || len(b) != 1 || !a[0].Equal(b[0]) {
		t.Fatalf("decodes differ: %+v vs %+v", a, b)
	}
}

func TestDecode_Comments(t *testing.T) {
	doc := "# header comment\n" + entry(
		"# leading\n\"H\" # name\n   \n1 0 1 # bins\n",
		"# stats\n"+statsZero,
		"0 0\n   # only a comment\n1.0 2.0 # comment\n0 0\n")
	hs, err := decode(t, doc, saf.DecodeOpt{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(hs[0].Values(), []float64{0, 1, 0}) || !slices.Equal(hs[0].Errors(), []float64{0, 2, 0}) {
		t.Fatalf("values %v errors %v", hs[0].Values(), hs[0].Errors())
	}
}

func TestDecode_MalformedInput(t *testing.T) {
	doc := entry("\"H\"\n1 0 1\n", statsZero, "0 0\n0 0\n0 0\n") + "<Histo>\n<Description>\n"
	hs, err := decode(t, doc, saf.DecodeOpt{})
	if hs != nil {
		t.Fatalf("malformed input must yield zero histograms, got %d", len(hs))
	}
	iss, ok := saf.AsIssues(err)
	if !ok || len(iss) != 1 {
		t.Fatalf("want one file-level issue, got %v", err)
	}
	if iss[0].Code != saf.CodeMalformedInput || !iss[0].FileLevel() || iss[0].Line == 0 {
		t.Fatalf("unexpected issue: %+v", iss[0])
	}
}

func TestDecode_MissingSectionCollect(t *testing.T) {
	good := entry("\"good\"\n1 0 1\n", statsZero, "0 0\n1 1\n0 0\n")
	bad := "<Histo>\n<Description>\n\"bad\"\n1 0 1\n</Description>\n<Statistics>\n" + statsZero + "</Statistics>\n</Histo>\n"
	hs, err := decode(t, bad+good, saf.DecodeOpt{})
	if len(hs) != 1 || hs[0].Name() != "good" {
		t.Fatalf("want the good entry, got %d", len(hs))
	}
	iss, ok := saf.AsIssues(err)
	if !ok || len(iss) != 1 {
		t.Fatalf("want one issue, got %v", err)
	}
	it := iss[0]
	if it.Code != saf.CodeMissingSection || it.Params["section"] != "Data" || it.Entry != 0 || it.Name != "bad" {
		t.Fatalf("unexpected issue: %+v", it)
	}
	if it.Line != 1 {
		t.Fatalf("missing section should point at the entry line, got %d", it.Line)
	}
	if !slices.Equal(iss.Entries(), []int{0}) {
		t.Fatalf("entries: %v", iss.Entries())
	}
}

func TestDecode_FailFast(t *testing.T) {
	good := entry("\"good\"\n1 0 1\n", statsZero, "0 0\n1 1\n0 0\n")
	bad := entry("\"bad\"\n1 0 1\n", statsZero, "0 0\nx y\n0 0\n")
	hs, err := decode(t, good+bad+bad, saf.DecodeOpt{FailFast: true})
	if hs != nil {
		t.Fatalf("fail-fast must return no histograms, got %d", len(hs))
	}
	iss, ok := saf.AsIssues(err)
	if !ok || len(iss) != 1 || iss[0].Entry != 1 {
		t.Fatalf("want the first issue of entry 1, got %v", err)
	}

	// Collect mode reports both bad fields of both bad entries.
	hs, err = decode(t, good+bad+bad, saf.DecodeOpt{})
	iss, _ = saf.AsIssues(err)
	if len(hs) != 1 || len(iss) != 4 || !slices.Equal(iss.Entries(), []int{1, 2}) {
		t.Fatalf("collect: %d histograms, issues %v", len(hs), iss)
	}
}

func TestDecode_ForeignElementsAndEmptyInput(t *testing.T) {
	hs, err := decode(t, "", saf.DecodeOpt{})
	if err != nil || len(hs) != 0 {
		t.Fatalf("empty input: %d %v", len(hs), err)
	}
	doc := "<Note>ignored</Note>\n" + entry("\"H\"\n1 0 1\n", statsZero, "0 0\n0 0\n0 0\n")
	hs, err = decode(t, doc, saf.DecodeOpt{})
	if err != nil || len(hs) != 1 {
		t.Fatalf("foreign element: %d %v", len(hs), err)
	}
}

func TestDecode_MaxBytes(t *testing.T) {
	doc := entry("\"H\"\n1 0 1\n", statsZero, "0 0\n0 0\n0 0\n")
	_, err := decode(t, doc, saf.DecodeOpt{MaxBytes: 10})
	iss, _ := saf.AsIssues(err)
	if len(iss) != 1 || iss[0].Code != saf.CodeTruncated {
		t.Fatalf("want truncated, got %v", err)
	}
	_, err = saf.DecodeBytes(context.Background(), []byte(doc), saf.DecodeOpt{MaxBytes: 10})
	if iss, _ := saf.AsIssues(err); len(iss) != 1 || iss[0].Code != saf.CodeTruncated {
		t.Fatalf("DecodeBytes: want truncated, got %v", err)
	}
}

type failingSource struct{}

func (failingSource) Name() string                 { return "broken" }
func (failingSource) Open() (io.ReadCloser, error) { return nil, errors.New("permission denied") }

func TestDecode_ReadFailed(t *testing.T) {
	_, err := saf.Decode(context.Background(), failingSource{})
	iss, _ := saf.AsIssues(err)
	if len(iss) != 1 || iss[0].Code != saf.CodeReadFailed || iss[0].Hint != "permission denied" {
		t.Fatalf("want read_failed, got %v", err)
	}
}

func TestDecode_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc := entry("\"H\"\n1 0 1\n", statsZero, "0 0\n0 0\n0 0\n")
	_, err := saf.Decode(ctx, saf.Reader("r", strings.NewReader(doc)))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestDecode_Logger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	doc := entry("\"H\"\n1 0 1\n", statsZero, "0 0\n0 0\n0 0\n")
	if _, err := decode(t, doc, saf.DecodeOpt{Logger: log}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "entry decoded") || !strings.Contains(out, "source=test.saf") {
		t.Fatalf("missing debug lines: %s", out)
	}
}

func TestHistogram_AccessorsCopy(t *testing.T) {
	doc := entry("\"H\"\n1 0 1\nr\n", statsZero, "5 1\n6 1\n7 1\n")
	hs, err := decode(t, doc, saf.DecodeOpt{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h := hs[0]
	v := h.Values()
	v[0] = 99
	r := h.Regions()
	r[0] = "changed"
	if h.Values()[0] != 5 || h.Regions()[0] != "r" {
		t.Fatalf("accessors must not expose internal slices")
	}
	if h.Underflow() != 5 || h.Overflow() != 7 {
		t.Fatalf("boundary bins: %v %v", h.Underflow(), h.Overflow())
	}
}

func TestHistogram_ZeroValue(t *testing.T) {
	var h saf.Histogram
	if h.Bins() != nil || h.Underflow() != 0 || h.Overflow() != 0 {
		t.Fatalf("zero histogram: %v %v %v", h.Bins(), h.Underflow(), h.Overflow())
	}
	if len(h.Values()) != 0 || h.NBins() != 0 {
		t.Fatalf("zero histogram has contents")
	}
}

func TestDecode_UnknownDialect(t *testing.T) {
	doc := entry("\"H\"\n1 0 1\n", statsZero, "0 0\n0 0\n0 0\n")
	for _, d := range []saf.Dialect{-1, saf.DialectValues + 1, 42} {
		hs, err := decode(t, doc, saf.DecodeOpt{Dialect: d})
		if !errors.Is(err, saf.ErrUnknownDialect) || hs != nil {
			t.Fatalf("%v: want ErrUnknownDialect, got %v (%d histograms)", d, err, len(hs))
		}
		if _, ok := saf.AsIssues(err); ok {
			t.Fatalf("%v: an unknown dialect is a caller error, not an input issue", d)
		}
		if _, err := saf.DecodeBytes(context.Background(), []byte(doc), saf.DecodeOpt{Dialect: d}); !errors.Is(err, saf.ErrUnknownDialect) {
			t.Fatalf("%v: DecodeBytes: %v", d, err)
		}
	}
	// The decoder must not touch the source.
	if _, err := saf.Decode(context.Background(), failingSource{}, saf.DecodeOpt{Dialect: 7}); !errors.Is(err, saf.ErrUnknownDialect) {
		t.Fatalf("source read before the dialect check: %v", err)
	}
}
