package saf_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	saf "github.com/reoring/saf"
)

func TestRecord_KeysMatchSchema(t *testing.T) {
	docs := map[saf.Dialect]string{
		saf.DialectErrors:        entry("\"H\"\n1 0 1\n", statsZero, "0 0\n1 1\n0 0\n"),
		saf.DialectSignedWeights: entry("\"H\"\n1 0 1\n", statsZero, "0 0\n1 -1\n0 0\n"),
		saf.DialectValues:        entry("\"H\"\n1 0 1\n", statsZero, "0\n1\n0\n"),
	}
	for _, d := range saf.Dialects {
		t.Run(d.String(), func(t *testing.T) {
			hs, err := saf.DecodeBytes(context.Background(), []byte(docs[d]), saf.DecodeOpt{Dialect: d})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			rec := hs[0].Record()
			keys := make([]string, 0, len(rec))
			for k := range rec {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			if !slices.Equal(keys, saf.RecordKeys(d)) {
				t.Fatalf("keys %v, want %v", keys, saf.RecordKeys(d))
			}
			s := saf.RecordSchema(d)
			if len(s.Properties) != len(keys) || !slices.Equal(s.Required, keys) {
				t.Fatalf("schema properties %d required %v", len(s.Properties), s.Required)
			}
		})
	}
}

func TestRecord_StatisticsSuffix(t *testing.T) {
	stats := "4 1\n3.5 0.5\n4 1\n3.5 0.5\n3 0.25\n1.5 0.5\n1 0.5\n"
	hs, err := saf.DecodeBytes(context.Background(),
		[]byte(entry("\"H\"\n1 0 1\n", stats, "0 0\n4 -1\n0 0\n")),
		saf.DecodeOpt{Dialect: saf.DialectSignedWeights})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := hs[0].Record()
	if rec["nevents"] != int64(4) || rec["nevents_neg"] != int64(1) || rec["sum_ww_neg"] != 0.25 {
		t.Fatalf("stats view: %v", rec)
	}
	if _, ok := rec["nevents_err"]; ok {
		t.Fatalf("signed-weights view must not carry _err keys")
	}
	vals := rec[saf.KeyValuesNeg].([]float64)
	vals[1] = 0
	if hs[0].ValuesNeg()[1] != -1 {
		t.Fatalf("view must not alias the histogram")
	}
}

func TestParseDialect(t *testing.T) {
	for _, d := range saf.Dialects {
		got, err := saf.ParseDialect(d.String())
		if err != nil || got != d {
			t.Fatalf("round trip %v: %v %v", d, got, err)
		}
	}
	if d, err := saf.ParseDialect("Signed-Weights"); err != nil || d != saf.DialectSignedWeights {
		t.Fatalf("case-insensitive parse: %v %v", d, err)
	}
	if _, err := saf.ParseDialect("bogus"); !errors.Is(err, saf.ErrUnknownDialect) {
		t.Fatalf("unknown dialect must fail")
	}
	if saf.DialectValues.Columns() != 1 || saf.DialectErrors.Columns() != 2 {
		t.Fatalf("column counts")
	}
}
