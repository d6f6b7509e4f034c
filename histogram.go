package saf

import "slices"

// Pair is a Statistics row: a primary scalar and its dialect-defined
// secondary (an error or a negative-weight counterpart).
type Pair[T int64 | float64] struct {
	Primary   T
	Secondary T
}

// Statistics holds the 14 opaque scalars of the <Statistics> section. The
// decoder guarantees presence and numeric type only, never consistency.
type Statistics struct {
	Role     SecondaryRole
	NEvents  Pair[int64]
	NEventsW Pair[float64]
	NEntries Pair[int64]
	SumW     Pair[float64]
	SumWW    Pair[float64]
	SumXW    Pair[float64]
	SumXXW   Pair[float64]
}

// Histogram is one decoded, validated entry. It is built once by Decode and
// read-only afterwards: accessors return copies of every slice.
type Histogram struct {
	name      string
	nbins     int
	xmin      float64
	xmax      float64
	regions   []string
	values    []float64
	errors    []float64
	valuesNeg []float64
	stats     Statistics
	dialect   Dialect
}

func (h Histogram) Name() string     { return h.name }
func (h Histogram) NBins() int       { return h.nbins }
func (h Histogram) XMin() float64    { return h.xmin }
func (h Histogram) XMax() float64    { return h.xmax }
func (h Histogram) Dialect() Dialect { return h.dialect }

// Statistics returns the statistics sub-record.
func (h Histogram) Statistics() Statistics { return h.stats }

// Regions returns the region identifiers in declaration order.
func (h Histogram) Regions() []string { return slices.Clone(h.regions) }

// Values returns NBins()+2 bin contents; index 0 is the underflow and index
// NBins()+1 the overflow.
func (h Histogram) Values() []float64 { return slices.Clone(h.values) }

// Errors returns the per-bin errors, or nil outside DialectErrors.
func (h Histogram) Errors() []float64 { return slices.Clone(h.errors) }

// ValuesNeg returns the negative-weight bin contents, or nil outside
// DialectSignedWeights.
func (h Histogram) ValuesNeg() []float64 { return slices.Clone(h.valuesNeg) }

// Bins returns the contents of the regular bins only. The zero Histogram has
// none.
func (h Histogram) Bins() []float64 {
	if !h.decoded() {
		return nil
	}
	return slices.Clone(h.values[1 : h.nbins+1])
}

// Underflow and Overflow return the boundary bins, or 0 for the zero
// Histogram.
func (h Histogram) Underflow() float64 {
	if !h.decoded() {
		return 0
	}
	return h.values[0]
}

func (h Histogram) Overflow() float64 {
	if !h.decoded() {
		return 0
	}
	return h.values[h.nbins+1]
}

// decoded reports whether values holds the nbins+2 contents Decode
// guarantees.
func (h Histogram) decoded() bool { return h.nbins >= 1 && len(h.values) == h.nbins+2 }

// BinWidth returns (xmax-xmin)/nbins.
func (h Histogram) BinWidth() float64 { return (h.xmax - h.xmin) / float64(h.nbins) }

// Equal reports whether two histograms are structurally equal.
func (h Histogram) Equal(o Histogram) bool {
	return h.name == o.name && h.nbins == o.nbins && h.xmin == o.xmin && h.xmax == o.xmax &&
		h.dialect == o.dialect && h.stats == o.stats &&
		slices.Equal(h.regions, o.regions) &&
		slices.Equal(h.values, o.values) &&
		slices.Equal(h.errors, o.errors) &&
		slices.Equal(h.valuesNeg, o.valuesNeg)
}

// validate checks the cross-field invariants and returns one issue per
// violation. ref positions the issues under the entry.
func (h Histogram) validate(ref PathRef) []Issue {
	var out []Issue
	desc := ref.Field("Description")
	if h.nbins < 1 {
		out = append(out, desc.Index(1).Index(0).Issue(CodeInvariantViolation,
			"kind", InvariantBinCount, "expected", ">= 1", "actual", h.nbins))
	}
	if !(h.xmax > h.xmin) {
		out = append(out, desc.Index(1).Issue(CodeInvariantViolation,
			"kind", InvariantRange, "expected", "xmax > xmin", "actual", [2]float64{h.xmin, h.xmax}))
	}
	if h.nbins >= 1 && len(h.values) != h.nbins+2 {
		out = append(out, ref.Field("Data").Issue(CodeInvariantViolation,
			"kind", InvariantLength, "expected", h.nbins+2, "actual", len(h.values)))
	}
	for _, p := range []struct {
		name string
		arr  []float64
	}{{"errors", h.errors}, {"values_neg", h.valuesNeg}} {
		if p.arr != nil && len(p.arr) != len(h.values) {
			out = append(out, ref.Field("Data").Issue(CodeInvariantViolation,
				"kind", InvariantParallelLength, "array", p.name, "expected", len(h.values), "actual", len(p.arr)))
		}
	}
	for i := range out {
		out[i].Name = h.name
	}
	return out
}
