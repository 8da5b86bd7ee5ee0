package main

import (
	"github.com/spf13/cobra"
)

// =============================================================================
// Bridge Command
// =============================================================================

// buildBridgeCmd creates the "bridge" command that serves the desktop shell
// over stdin/stdout.
func buildBridgeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bridge",
		Short: "Serve newline-delimited JSON commands on stdin/stdout",
		Long: `Serve the journal over a line protocol on stdin/stdout.

Each input line is a request {"command", "data", "requestId"} and each output
line is a response or error carrying the same requestId. A {"type":"ready"}
line is written at startup. Logs go to stderr.

While the bridge runs it also:
1. Backfills entries saved without analysis (backfill.enabled)
2. Reloads the lexicon file on change (analysis.watch_lexicon)
3. Serves Prometheus metrics (metrics.enabled)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridge(cmd, opts)
		},
	}
}

// =============================================================================
// Journal Commands
// =============================================================================

func buildWriteCmd(opts *rootOptions) *cobra.Command {
	var (
		mood   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "write [text]",
		Short: "Save and analyze a journal entry",
		Example: `  introspect write "Long walk at lunch, head feels clear." --mood 4
  echo "Rough night." | introspect write -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(cmd, opts, args[0], mood, asJSON)
		},
	}
	cmd.Flags().IntVarP(&mood, "mood", "m", 3, "Mood rating from 1 to 5")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full analysis as JSON")
	return cmd
}

func buildAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var mood int
	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Analyze text against the journal without saving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, args[0], mood)
		},
	}
	cmd.Flags().IntVarP(&mood, "mood", "m", 3, "Mood rating from 1 to 5")
	return cmd
}

func buildEntriesCmd(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List recent entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntries(cmd, opts, limit, asJSON)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}

func buildStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show entry count and mood statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, opts)
		},
	}
}

func buildBackfillCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Analyze entries that were saved without an analysis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(cmd, opts, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum entries to analyze (0 = all)")
	return cmd
}

func buildSeedCmd(opts *rootOptions) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "seed [file]",
		Short: "Load demo entries from a YAML or JSON file",
		Long: `Load demo entries from a file shaped like examples/demo_entries.yaml:

  entries:
    - content: "..."
      mood: 2
      days_ago: 14

Entries are written oldest first and each one is analyzed against the
entries before it. The journal must be empty unless --replace is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, opts, args[0], replace)
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Delete existing entries first")
	return cmd
}

// =============================================================================
// Config Commands
// =============================================================================

func buildConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "schema",
			Short: "Print the configuration JSON Schema",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigSchema(cmd)
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Load and validate the configuration file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigValidate(cmd, opts)
			},
		},
	)
	return cmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			runVersion(cmd)
		},
	}
}
