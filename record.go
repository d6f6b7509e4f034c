package saf

import (
	"slices"

	js "github.com/reoring/saf/jsonschema"
)

// Record keys of the structural view.
const (
	KeyName      = "name"
	KeyNBins     = "nbins"
	KeyXMin      = "xmin"
	KeyXMax      = "xmax"
	KeyRegions   = "regions"
	KeyValues    = "values"
	KeyErrors    = "errors"
	KeyValuesNeg = "values_neg"
)

var statKeys = []string{"nevents", "nevents_w", "nentries", "sum_w", "sum_ww", "sum_xw", "sum_xxw"}

// Record returns the structural view handed to collaborators such as the
// renderer and exporters. The map is freshly built on every call.
func (h Histogram) Record() map[string]any {
	m := map[string]any{
		KeyName:    h.name,
		KeyNBins:   h.nbins,
		KeyXMin:    h.xmin,
		KeyXMax:    h.xmax,
		KeyRegions: h.Regions(),
		KeyValues:  h.Values(),
	}
	if h.errors != nil {
		m[KeyErrors] = h.Errors()
	}
	if h.valuesNeg != nil {
		m[KeyValuesNeg] = h.ValuesNeg()
	}
	suffix := "_" + h.stats.Role.suffix()
	s := h.stats
	ints := map[string]Pair[int64]{"nevents": s.NEvents, "nentries": s.NEntries}
	floats := map[string]Pair[float64]{
		"nevents_w": s.NEventsW, "sum_w": s.SumW, "sum_ww": s.SumWW, "sum_xw": s.SumXW, "sum_xxw": s.SumXXW,
	}
	for k, p := range ints {
		m[k], m[k+suffix] = p.Primary, p.Secondary
	}
	for k, p := range floats {
		m[k], m[k+suffix] = p.Primary, p.Secondary
	}
	return m
}

// RecordKeys returns the keys Record produces under d, sorted.
func RecordKeys(d Dialect) []string {
	keys := []string{KeyName, KeyNBins, KeyXMin, KeyXMax, KeyRegions, KeyValues}
	switch d {
	case DialectErrors:
		keys = append(keys, KeyErrors)
	case DialectSignedWeights:
		keys = append(keys, KeyValuesNeg)
	}
	suffix := "_" + d.Role().suffix()
	for _, k := range statKeys {
		keys = append(keys, k, k+suffix)
	}
	slices.Sort(keys)
	return keys
}

// RecordSchema projects the structural view under d into a JSON Schema.
func RecordSchema(d Dialect) *js.Schema {
	one := 1
	number := func() *js.Schema { return &js.Schema{Type: "number"} }
	integer := func() *js.Schema { return &js.Schema{Type: "integer"} }
	array := func(item *js.Schema, minItems int) *js.Schema {
		s := &js.Schema{Type: "array", Items: item}
		if minItems > 0 {
			s.MinItems = &minItems
		}
		return s
	}
	props := map[string]*js.Schema{
		KeyName:    {Type: "string"},
		KeyNBins:   {Type: "integer", Minimum: &one},
		KeyXMin:    number(),
		KeyXMax:    number(),
		KeyRegions: array(&js.Schema{Type: "string"}, 0),
		KeyValues:  array(number(), 3),
	}
	switch d {
	case DialectErrors:
		props[KeyErrors] = array(number(), 3)
	case DialectSignedWeights:
		props[KeyValuesNeg] = array(number(), 3)
	}
	suffix := "_" + d.Role().suffix()
	for _, k := range statKeys {
		mk := number
		if k == "nevents" || k == "nentries" {
			mk = integer
		}
		props[k] = mk()
		props[k+suffix] = mk()
	}
	f := false
	return &js.Schema{
		Title:                "SAF histogram (" + d.String() + ")",
		Type:                 "object",
		Properties:           props,
		Required:             RecordKeys(d),
		AdditionalProperties: &f,
	}
}
