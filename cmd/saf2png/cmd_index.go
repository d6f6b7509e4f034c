package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reoring/saf/internal/catalog"
	"github.com/reoring/saf/source/file"
)

type indexed struct {
	decoded
	Skipped bool
}

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index FILE|DIR...",
		Short: "Record decoded histograms and issues in a SQLite catalog",
		Long: `Index decodes every input and stores its histograms and issues in a
SQLite catalog. Inputs whose content fingerprint matches the catalog are
skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				s.cfg.Catalog.Path, _ = cmd.Flags().GetString("db")
			}
			paths, err := s.inputs(nil, args)
			if err != nil {
				return err
			}

			cat, err := catalog.Open(s.cfg.Catalog.Path)
			if err != nil {
				return err
			}
			defer cat.Close()
			runID, err := cat.BeginRun(cmd.Context(), s.opt.Dialect)
			if err != nil {
				return err
			}
			s.log.Debug("index run started", "run", runID, "db", s.cfg.Catalog.Path)

			results, err := forEach(cmd.Context(), s, paths, func(ctx context.Context, path string) indexed {
				fp, err := file.Fingerprint(path)
				if err != nil {
					return indexed{decoded: decoded{Path: path, Err: err}}
				}
				same, err := cat.Unchanged(ctx, path, fp, s.opt.Dialect)
				if err != nil {
					return indexed{decoded: decoded{Path: path, Err: err}}
				}
				if same {
					return indexed{decoded: decoded{Path: path}, Skipped: true}
				}
				r := indexed{decoded: s.decode(ctx, path)}
				if r.Err != nil {
					return r
				}
				r.Err = cat.Store(ctx, runID, catalog.FileResult{
					Path: path, Fingerprint: fp, Dialect: s.opt.Dialect,
					Histograms: r.Histograms, Issues: r.Issues,
				})
				return r
			})
			if err != nil {
				return err
			}

			failed := false
			for _, r := range results {
				switch {
				case r.Skipped:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: unchanged\n", r.Path)
				case r.Err != nil:
					failed = true
					reportProblems(cmd.ErrOrStderr(), r.decoded)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: indexed %d histograms, %d issues\n", r.Path, len(r.Histograms), len(r.Issues))
				}
			}
			if failed {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().String("db", "", "Catalog database path (default saf-catalog.db)")
	return cmd
}
