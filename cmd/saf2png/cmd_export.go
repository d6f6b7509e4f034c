package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reoring/saf/codec"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export FILE|DIR...",
		Short: "Write the decoded histograms as JSON, YAML or XLSX",
		Long: `Export decodes every input and writes the structural view of each good
histogram. The format follows --format, or the extension of --output.
Inputs with issues are reported on stderr; their good entries are still
exported.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")
			name, _ := cmd.Flags().GetString("format")
			if !cmd.Flags().Changed("format") && output != "-" {
				if ext := filepath.Ext(output); ext != "" {
					name = ext[1:]
				}
			}
			format, err := codec.ParseFormat(name)
			if err != nil {
				return err
			}
			if format == codec.FormatXLSX && output == "-" {
				return fmt.Errorf("xlsx export needs --output")
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
			docs := make([]codec.Document, 0, len(results))
			for _, r := range results {
				if r.Failed() {
					failed = true
					reportProblems(cmd.ErrOrStderr(), r)
				}
				if len(r.Histograms) > 0 {
					docs = append(docs, codec.Document{Source: r.Path, Dialect: s.opt.Dialect, Histograms: r.Histograms})
				}
			}

			var buf bytes.Buffer
			if err := codec.Encode(cmd.Context(), &buf, format, docs); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if output == "-" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
			} else {
				err = os.WriteFile(output, buf.Bytes(), 0o644)
			}
			if err != nil {
				return err
			}
			s.log.Info("exported", "format", format.String(), "output", output, "files", len(docs))
			if failed {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().String("format", "json", "Export format: json, yaml, xlsx")
	cmd.Flags().StringP("output", "o", "-", "Output file (- for stdout)")
	return cmd
}
