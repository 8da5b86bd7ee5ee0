// Package main provides the CLI entry point for introspect, a private
// journaling engine that answers every entry with a reflection drawn from
// the writer's own history.
//
// # Basic Usage
//
// Run the stdio bridge used by the desktop shell:
//
//	introspect bridge --config introspect.yaml
//
// Write and analyze an entry from the terminal:
//
//	introspect write "Finished the report a day early." --mood 4
//
// Load the demo journal:
//
//	introspect seed examples/demo_entries.yaml
//
// # Environment Variables
//
//   - INTROSPECT_CONFIG: Path to configuration file (default: built-in defaults)
//   - DB_PATH: SQLite database path when storage.path is unset
//   - OPENAI_API_KEY: OpenAI API key for hosted embeddings
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := buildRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("command execution failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "introspect",
		Short: "Introspect - reflective journaling engine",
		Long: `Introspect analyzes journal entries against your own history.

Each entry is embedded, compared with earlier entries, scored from a set of
writing signals and answered with a short reflection, generated by a language
model when one is configured or by templates otherwise.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML or JSON5 configuration file (or set INTROSPECT_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(
		buildBridgeCmd(opts),
		buildWriteCmd(opts),
		buildAnalyzeCmd(opts),
		buildEntriesCmd(opts),
		buildStatsCmd(opts),
		buildBackfillCmd(opts),
		buildSeedCmd(opts),
		buildConfigCmd(opts),
		buildVersionCmd(),
	)
	return rootCmd
}
