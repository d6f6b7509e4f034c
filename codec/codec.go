// Package codec exports decoded histograms as JSON, YAML or XLSX documents.
package codec

import (
	"context"
	"fmt"
	"io"
	"strings"

	saf "github.com/reoring/saf"
)

// Format selects the export encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
	FormatXLSX
)

// Formats lists every export format in declaration order.
var Formats = []Format{FormatJSON, FormatYAML, FormatXLSX}

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatXLSX:
		return "xlsx"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Ext returns the conventional file extension, including the dot.
func (f Format) Ext() string { return "." + f.String() }

// ParseFormat maps a format name (or "yml") to a Format.
func ParseFormat(s string) (Format, error) {
	if strings.EqualFold(s, "yml") {
		return FormatYAML, nil
	}
	for _, f := range Formats {
		if strings.EqualFold(s, f.String()) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown export format %q (want one of json, yaml, xlsx)", s)
}

// Document groups the histograms decoded from one input.
type Document struct {
	Source     string
	Dialect    saf.Dialect
	Histograms []saf.Histogram
}

// docView is the serialized shape of a Document for the text formats.
type docView struct {
	Source     string           `json:"source" yaml:"source"`
	Dialect    string           `json:"dialect" yaml:"dialect"`
	Histograms []map[string]any `json:"histograms" yaml:"histograms"`
}

func views(ctx context.Context, docs []Document) ([]docView, error) {
	out := make([]docView, 0, len(docs))
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v := docView{Source: d.Source, Dialect: d.Dialect.String(), Histograms: make([]map[string]any, 0, len(d.Histograms))}
		for _, h := range d.Histograms {
			v.Histograms = append(v.Histograms, h.Record())
		}
		out = append(out, v)
	}
	return out, nil
}

// Encode writes docs to w in format f.
func Encode(ctx context.Context, w io.Writer, f Format, docs []Document) error {
	switch f {
	case FormatJSON:
		return EncodeJSON(ctx, w, docs)
	case FormatYAML:
		return EncodeYAML(ctx, w, docs)
	case FormatXLSX:
		return EncodeXLSX(ctx, w, docs)
	default:
		return fmt.Errorf("unsupported export format %v", f)
	}
}
