package saf

import (
	eng "github.com/reoring/saf/internal/engine"
)

// IssueAt creates an Issue at the given path with provided code and params map.
// This is a convenience helper to improve readability at call sites with many parameters.
func IssueAt(p PathRef, code string, params map[string]any) Issue {
	kv := make([]any, 0, len(params)*2)
	for k, v := range params {
		kv = append(kv, k, v)
	}
	return p.Issue(code, kv...)
}

// fromEngineIssue positions a section decoder issue under entry ref.
func fromEngineIssue(ref PathRef, si eng.SimpleIssue) Issue {
	p := ref.Field(si.Schema)
	if si.Row >= 0 {
		p = p.Index(si.Row)
		if si.Column >= 0 {
			p = p.Index(si.Column)
		}
	}
	it := IssueAt(p, si.Code, si.Params)
	it.Line = si.Line
	it.InputFragment = si.Token
	it.Cause = si.Cause
	if it.Message == si.Code {
		it.Message = si.Message
	}
	return it
}

func fileIssue(code string, cause error, kv ...any) Issue {
	it := EntryRef(-1).Issue(code, kv...)
	it.Cause = cause
	if cause != nil {
		it.Hint = cause.Error()
	}
	return it
}

func singleIssue(it Issue) Issues { return AppendIssues(nil, it) }

