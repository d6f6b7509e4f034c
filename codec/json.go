package codec

import (
	"context"
	"io"
	"math"

	json "github.com/goccy/go-json"
)

// EncodeJSON writes docs as an indented JSON array. Non-finite numbers have no
// JSON literal and are written as the strings "NaN", "+Inf" and "-Inf".
func EncodeJSON(ctx context.Context, w io.Writer, docs []Document) error {
	vs, err := views(ctx, docs)
	if err != nil {
		return err
	}
	for i := range vs {
		for _, rec := range vs[i].Histograms {
			JSONSafe(rec)
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(vs)
}

// JSONSafe replaces non-finite numbers in a structural view, in place, with
// their string spelling and returns rec.
func JSONSafe(rec map[string]any) map[string]any {
	for k, v := range rec {
		rec[k] = finite(v)
	}
	return rec
}

func finite(v any) any {
	switch x := v.(type) {
	case float64:
		if s, ok := nonFinite(x); ok {
			return s
		}
	case []float64:
		for _, f := range x {
			if _, ok := nonFinite(f); ok {
				out := make([]any, len(x))
				for i, f := range x {
					out[i] = finite(f)
				}
				return out
			}
		}
	}
	return v
}

func nonFinite(f float64) (string, bool) {
	switch {
	case math.IsNaN(f):
		return "NaN", true
	case math.IsInf(f, 1):
		return "+Inf", true
	case math.IsInf(f, -1):
		return "-Inf", true
	}
	return "", false
}
