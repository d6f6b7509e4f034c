package saf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	eng "github.com/reoring/saf/internal/engine"
	ir "github.com/reoring/saf/internal/ir"
	"github.com/reoring/saf/internal/logging"
	"github.com/reoring/saf/internal/stream"
)

// Decode is the primary entry point. It reads src and assembles one
// Histogram per <Histo> entry, in document order.
//
// File-level failures (unreadable, oversized or malformed input) return no
// histograms and an Issues error. Per-entry failures discard only that entry:
// in collect mode (the default) every good histogram is returned together
// with an Issues error listing the failed entries; with FailFast the first
// failing entry aborts the call and no histograms are returned.
//
// Decode holds no state between calls and may run concurrently for
// different sources. A Dialect outside Dialects fails with ErrUnknownDialect
// before src is read.
func Decode(ctx context.Context, src Source, opts ...DecodeOpt) ([]Histogram, error) {
	opt := lastOpt(opts)
	if !opt.Dialect.valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownDialect, opt.Dialect)
	}
	raw, err := readAll(src, opt.MaxBytes)
	if err != nil {
		return nil, err
	}
	return decodeRaw(ctx, raw, opt, loggerFor(opt).With("source", src.Name()))
}

// DecodeBytes decodes an in-memory SAF document.
func DecodeBytes(ctx context.Context, raw []byte, opts ...DecodeOpt) ([]Histogram, error) {
	opt := lastOpt(opts)
	if !opt.Dialect.valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownDialect, opt.Dialect)
	}
	if opt.MaxBytes > 0 && int64(len(raw)) > opt.MaxBytes {
		return nil, singleIssue(fileIssue(CodeTruncated, nil, "max_bytes", opt.MaxBytes))
	}
	return decodeRaw(ctx, raw, opt, loggerFor(opt))
}

func lastOpt(opts []DecodeOpt) DecodeOpt {
	var opt DecodeOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	return opt
}

func loggerFor(opt DecodeOpt) *slog.Logger {
	if opt.Logger != nil {
		return opt.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func decodeRaw(ctx context.Context, raw []byte, opt DecodeOpt, log *slog.Logger) ([]Histogram, error) {
	entries, err := stream.Parse(raw)
	if err != nil {
		it := fileIssue(CodeMalformedInput, err)
		var se *stream.SyntaxError
		if errors.As(err, &se) {
			it.Line = se.Line
		}
		log.Debug("malformed input", "line", it.Line, "error", err)
		return nil, singleIssue(it)
	}

	var (
		out    []Histogram
		issues Issues
	)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if log.Enabled(ctx, logging.LevelTrace) {
			for _, name := range stream.Sections {
				if sec, ok := e.Section(name); ok {
					log.Log(ctx, logging.LevelTrace, "section text", "entry", e.Index, "section", name, "line", sec.Line, "text", sec.Text)
				}
			}
		}
		h, iss := assemble(e, opt)
		if len(iss) > 0 {
			log.Debug("entry rejected", "entry", e.Index, "line", e.Line, "issues", len(iss), "first", iss[0].Code)
			issues = AppendIssues(issues, iss...)
			if opt.FailFast {
				return nil, issues
			}
			continue
		}
		log.Debug("entry decoded", "entry", e.Index, "name", h.name, "nbins", h.nbins)
		out = append(out, h)
	}
	log.Debug("input decoded", "entries", len(entries), "histograms", len(out), "issues", len(issues))
	if len(issues) > 0 {
		return out, issues
	}
	return out, nil
}

// assemble decodes the three sections of one entry and merges them. Nothing
// is returned unless every section decoded and every invariant holds.
func assemble(e stream.Entry, opt DecodeOpt) (Histogram, []Issue) {
	ref := EntryRef(e.Index)
	desc, stats, data := opt.Dialect.schemas()
	eopt := eng.DecodeOptions{FailFast: opt.FailFast}

	var issues []Issue
	recs := make(map[string]eng.Record, 3)
	lines := make(map[string]int, 3)
	name := ""
	for _, sch := range []ir.Schema{desc, stats, data} {
		sec, ok := e.Section(sch.Name)
		if !ok {
			it := ref.Field(sch.Name).Issue(CodeMissingSection, "section", sch.Name)
			it.Line = e.Line
			issues = append(issues, it)
			if opt.FailFast {
				break
			}
			continue
		}
		lines[sch.Name] = sec.Line
		rec, sis := eng.Decode(sch, eng.Tokenize(sec.Text, sec.Line), eopt)
		if sch.Name == desc.Name && rec.Len() > 0 && len(rec.Rows[0]) > 0 {
			name = rec.Str(0, 0)
		}
		for _, si := range sis {
			issues = append(issues, fromEngineIssue(ref, si))
		}
		if len(sis) > 0 && opt.FailFast {
			break
		}
		if len(sis) == 0 {
			recs[sch.Name] = rec
		}
	}
	if len(issues) > 0 {
		for i := range issues {
			issues[i].Name = name
		}
		return Histogram{}, issues
	}

	h := merge(recs[desc.Name], recs[stats.Name], recs[data.Name], opt.Dialect)
	if iss := h.validate(ref); len(iss) > 0 {
		d := recs[desc.Name]
		for i := range iss {
			switch iss[i].Section {
			case desc.Name:
				iss[i].Line = d.Lines[1]
			default:
				iss[i].Line = lines[iss[i].Section]
			}
		}
		return Histogram{}, iss
	}
	return h, nil
}

// merge builds the histogram from decoded records purely by position.
func merge(d, s, v eng.Record, dialect Dialect) Histogram {
	h := Histogram{
		name:    d.Str(0, 0),
		nbins:   int(d.Int(1, 0)),
		xmin:    d.Float(1, 1),
		xmax:    d.Float(1, 2),
		regions: make([]string, 0, d.Len()-2),
		values:  v.Column(0, 0),
		dialect: dialect,
	}
	for i := 2; i < d.Len(); i++ {
		h.regions = append(h.regions, d.Str(i, 0))
	}
	switch dialect {
	case DialectErrors:
		h.errors = v.Column(0, 1)
	case DialectSignedWeights:
		h.valuesNeg = v.Column(0, 1)
	}
	ip := func(row int) Pair[int64] { return Pair[int64]{Primary: s.Int(row, 0), Secondary: s.Int(row, 1)} }
	fp := func(row int) Pair[float64] { return Pair[float64]{Primary: s.Float(row, 0), Secondary: s.Float(row, 1)} }
	h.stats = Statistics{
		Role:     dialect.Role(),
		NEvents:  ip(0),
		NEventsW: fp(1),
		NEntries: ip(2),
		SumW:     fp(3),
		SumWW:    fp(4),
		SumXW:    fp(5),
		SumXXW:   fp(6),
	}
	return h
}
