package main

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	saf "github.com/reoring/saf"
	"github.com/reoring/saf/internal/config"
	"github.com/reoring/saf/source/file"
)

// settings is the effective configuration of one invocation: defaults, then
// the config file, then SAF2PNG_* variables, then flags.
type settings struct {
	cfg     *config.Config
	log     *slog.Logger
	opt     saf.DecodeOpt
	jobs    int
	jsonOut bool
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.LoadPath(path)
	if err != nil {
		return nil, err
	}

	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("dialect") {
		cfg.Decode.Dialect, _ = flags.GetString("dialect")
	}
	if flags.Changed("fail-fast") {
		cfg.Decode.FailFast, _ = flags.GetBool("fail-fast")
	}
	if flags.Changed("max-bytes") {
		cfg.Decode.MaxBytes, _ = flags.GetInt64("max-bytes")
	}
	if flags.Changed("jobs") {
		cfg.Jobs, _ = flags.GetInt("jobs")
	}
	if flags.Changed("pattern") {
		cfg.Discover.Pattern, _ = flags.GetString("pattern")
	}
	if flags.Changed("exclude") {
		cfg.Discover.Exclude, _ = flags.GetStringSlice("exclude")
	}
	applyRenderFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &settings{cfg: cfg, jobs: cfg.Jobs}
	s.jsonOut, _ = flags.GetBool("json")
	s.log = cfg.Logger(cmd.ErrOrStderr())
	if s.opt, err = cfg.DecodeOpt(s.log); err != nil {
		return nil, err
	}
	if s.jobs == 0 {
		s.jobs = runtime.NumCPU()
	}
	return s, nil
}

// inputs expands positional arguments plus any extra files given by flag.
func (s *settings) inputs(extra, args []string) ([]string, error) {
	all := append(append([]string{}, extra...), args...)
	if len(all) == 0 {
		return nil, fmt.Errorf("no input files")
	}
	return file.Expand(all, s.cfg.Discover.Pattern, s.cfg.Discover.Exclude)
}

// decoded is the outcome of decoding one input.
type decoded struct {
	Path       string
	Histograms []saf.Histogram
	Issues     saf.Issues
	Err        error
}

// Failed reports whether anything went wrong with the input.
func (d decoded) Failed() bool { return d.Err != nil || len(d.Issues) > 0 }

func (s *settings) decode(ctx context.Context, path string) decoded {
	hs, err := saf.Decode(ctx, file.Source(path), s.opt)
	d := decoded{Path: path, Histograms: hs}
	if iss, ok := saf.AsIssues(err); ok {
		d.Issues = iss
	} else if err != nil {
		d.Err = err
	}
	s.log.Debug("decoded file", "file", path, "histograms", len(hs), "issues", len(d.Issues))
	return d
}

// forEach runs fn over items with at most s.jobs in flight and returns the
// results in input order.
func forEach[In, Out any](ctx context.Context, s *settings, items []In, fn func(context.Context, In) Out) ([]Out, error) {
	out := make([]Out, len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.jobs)
	for i, it := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = fn(ctx, it)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
