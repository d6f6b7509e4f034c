package main

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

type issueJSON struct {
	Code    string         `json:"code"`
	Path    string         `json:"path"`
	Message string         `json:"message"`
	Entry   int            `json:"entry"`
	Name    string         `json:"name,omitempty"`
	Section string         `json:"section,omitempty"`
	Row     int            `json:"row"`
	Column  int            `json:"column"`
	Line    int            `json:"line"`
	Token   string         `json:"token,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

type checkJSON struct {
	File       string      `json:"file"`
	Histograms int         `json:"histograms"`
	Issues     []issueJSON `json:"issues"`
	Error      string      `json:"error,omitempty"`
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE|DIR...",
		Short: "Decode inputs and report every issue without rendering",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			paths, err := s.inputs(nil, args)
			if err != nil {
				return err
			}
			results, err := forEach(cmd.Context(), s, paths, func(ctx context.Context, path string) decoded {
				return s.decode(ctx, path)
			})
			if err != nil {
				return err
			}

			failed := false
			for _, r := range results {
				failed = failed || r.Failed()
			}
			if s.jsonOut {
				out := make([]checkJSON, 0, len(results))
				for _, r := range results {
					out = append(out, toCheckJSON(r))
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(out); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					if r.Failed() {
						reportProblems(cmd.OutOrStdout(), r)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d histograms)\n", r.Path, len(r.Histograms))
				}
			}
			if failed {
				return errReported
			}
			return nil
		},
	}
}

func toCheckJSON(r decoded) checkJSON {
	c := checkJSON{File: r.Path, Histograms: len(r.Histograms), Issues: []issueJSON{}}
	for _, it := range r.Issues {
		c.Issues = append(c.Issues, issueJSON{
			Code: it.Code, Path: it.Path, Message: it.Message,
			Entry: it.Entry, Name: it.Name, Section: it.Section,
			Row: it.Row, Column: it.Column, Line: it.Line,
			Token: it.InputFragment, Params: it.Params,
		})
	}
	if r.Err != nil {
		c.Error = r.Err.Error()
	}
	return c
}
