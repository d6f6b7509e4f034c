package saf

// Package saf decodes SAF histogram files:
//
// - A markup container of <Histo> entries, each with <Description>, <Statistics> and <Data> sections
// - Whitespace-separated positional text inside each section, with '#' line comments
// - Three numeric dialects (errors, signed-weights, values) chosen by the caller, never inferred
// - A stable error model via Issues (pointer, code, message, 1-based input line)
//
// Design policy:
// - Keep only public APIs in the root package; put tokenizing and section decoding under internal/.
// - Place exporters under codec/, file handling under source/file, and the CLI under cmd/saf2png.
// - A decoded Histogram is immutable; accessors hand out copies.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//  hs, err := saf.Decode(ctx, file.Source(path), saf.DecodeOpt{Dialect: saf.DialectErrors})
//  if iss, ok := saf.AsIssues(err); ok {
//      for _, it := range iss {
//          log.Println(it)
//      }
//  }
//  for _, h := range hs {
//      rec := h.Record()
//  }
//
