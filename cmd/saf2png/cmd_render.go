package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reoring/saf/internal/config"
	"github.com/reoring/saf/internal/render"
	"github.com/reoring/saf/source/file"
)

func addRenderFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceP("file", "f", nil, "Input file (repeatable)")
	f.StringP("out-dir", "o", "", "Directory for the PNG files (default: current directory)")
	f.Int("width", 0, "Canvas width in pixels (default 1200)")
	f.Int("height", 0, "Canvas height in pixels (default 600)")
	f.Bool("grid", true, "Draw grid lines")
	f.Bool("error-bars", true, "Draw error bars when the dialect carries errors")
	f.String("title", "", "Chart title (default: histogram name)")
	f.String("xlabel", "", "X axis label")
	f.String("ylabel", "", "Y axis label")
}

// applyRenderFlags copies render flags into cfg. Subcommands without them
// leave cfg untouched.
func applyRenderFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Lookup("width") == nil {
		return
	}
	if f.Changed("width") {
		cfg.Render.Width, _ = f.GetInt("width")
	}
	if f.Changed("height") {
		cfg.Render.Height, _ = f.GetInt("height")
	}
	if f.Changed("grid") {
		cfg.Render.Grid, _ = f.GetBool("grid")
	}
	if f.Changed("error-bars") {
		cfg.Render.ErrorBars, _ = f.GetBool("error-bars")
	}
	if f.Changed("out-dir") {
		cfg.Render.OutDir, _ = f.GetString("out-dir")
	}
}

func renderOptions(cmd *cobra.Command, cfg *config.Config) render.Options {
	opt := render.Options{
		Width:     cfg.Render.Width,
		Height:    cfg.Render.Height,
		Grid:      cfg.Render.Grid,
		ErrorBars: cfg.Render.ErrorBars,
	}
	opt.Title, _ = cmd.Flags().GetString("title")
	opt.XLabel, _ = cmd.Flags().GetString("xlabel")
	opt.YLabel, _ = cmd.Flags().GetString("ylabel")
	return opt
}

type rendered struct {
	decoded
	Outputs []string
	Created []string
}

func runRender(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	extra, _ := cmd.Flags().GetStringSlice("file")
	paths, err := s.inputs(extra, args)
	if err != nil {
		return err
	}
	outDir := s.cfg.Render.OutDir
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	opt := renderOptions(cmd, s.cfg)

	results, err := forEach(cmd.Context(), s, paths, func(ctx context.Context, path string) rendered {
		return rendered{decoded: s.decode(ctx, path)}
	})
	if err != nil {
		return err
	}

	// Names are claimed in input order so reruns produce the same files.
	taken := outputSet{}
	for i := range results {
		r := &results[i]
		names := make([]string, len(r.Histograms))
		for j, h := range r.Histograms {
			names[j] = h.Name()
		}
		for _, n := range outputNames(r.Path, names, len(r.Histograms)+len(r.Issues.Entries())) {
			r.Outputs = append(r.Outputs, filepath.Join(outDir, taken.claim(n)))
		}
	}

	results, err = forEach(cmd.Context(), s, results, func(ctx context.Context, r rendered) rendered {
		for i, h := range r.Histograms {
			view := h.Record()
			o := opt
			if _, ok := view["errors"]; !ok {
				o.ErrorBars = false
			}
			out := r.Outputs[i]
			if err := render.RenderFile(out, view, o); err != nil {
				r.Err = fmt.Errorf("%s: %w", out, err)
				break
			}
			r.Created = append(r.Created, out)
		}
		return r
	})
	if err != nil {
		return err
	}

	failed := false
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	for _, r := range results {
		for _, c := range r.Created {
			fmt.Fprintf(stdout, "%s: Created %s\n", r.Path, c)
		}
		if r.Failed() {
			failed = true
			reportProblems(stderr, r.decoded)
		}
	}
	if failed {
		return errReported
	}
	return nil
}

func reportProblems(w io.Writer, d decoded) {
	for _, it := range d.Issues {
		fmt.Fprintf(w, "%s: %s\n", d.Path, it)
	}
	if d.Err != nil {
		fmt.Fprintf(w, "%s: %v\n", d.Path, d.Err)
	}
}

// outputNames derives one PNG name per histogram: "<input>.<name>.png", or
// "<name>.png" when the input holds a single entry.
func outputNames(input string, names []string, entries int) []string {
	base := file.BaseName(input)
	out := make([]string, len(names))
	for i, n := range names {
		if entries == 1 {
			out[i] = sanitize(n) + ".png"
		} else {
			out[i] = base + "." + sanitize(n) + ".png"
		}
	}
	return out
}

// outputSet hands out PNG names that are unique within one run. Histogram
// names repeat freely, so a taken name gets a ~N suffix: "a.pt.png" then
// "a.pt~2.png".
type outputSet map[string]bool

func (o outputSet) claim(name string) string {
	stem := strings.TrimSuffix(name, ".png")
	cand := name
	for n := 2; o[cand]; n++ {
		cand = stem + "~" + strconv.Itoa(n) + ".png"
	}
	o[cand] = true
	return cand
}

func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		return "histogram"
	}
	return name
}
