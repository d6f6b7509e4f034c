package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

// errReported signals that problems were already printed; only the exit code
// is left to set.
var errReported = errors.New("one or more inputs failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "saf2png [-f FILE]... [FILE|DIR]...",
		Short: "Render SAF histogram files as PNG bar charts",
		Long: `saf2png decodes SAF histogram files and draws one PNG per histogram.

Each <Histo> entry becomes <input>.<name>.png, or <name>.png when the input
holds a single entry; a name already written in the run gets a ~2, ~3, ...
suffix. Directories are searched for SAF files (optionally
gzip, bzip2 or xz compressed). Entries that fail to decode are reported
with their line numbers; the remaining entries are still rendered unless
--fail-fast is given.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRender,
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (default ~/.saf2png/config.yaml)")
	pf.String("log-level", "", "Log level: error, warn, info, debug, trace")
	pf.String("dialect", "", "Numeric dialect: errors, signed-weights, values")
	pf.Bool("fail-fast", false, "Reject a whole file at its first bad entry")
	pf.Int64("max-bytes", 0, "Maximum decompressed input size (0 = unlimited)")
	pf.Int("jobs", 0, "Files processed in parallel (0 = one per CPU)")
	pf.Bool("json", false, "Output as JSON")
	pf.String("pattern", "", "Glob used inside directory arguments (default **/*.saf*)")
	pf.StringSlice("exclude", nil, "Base-name patterns to skip inside directories")

	addRenderFlags(rootCmd)

	rootCmd.AddCommand(
		newVersionCmd(),
		newCheckCmd(),
		newExportCmd(),
		newIndexCmd(),
		newSchemaCmd(),
	)
	return rootCmd
}
