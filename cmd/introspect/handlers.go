package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/introspect/internal/analysis"
	"github.com/haasonsaas/introspect/internal/bridge"
	"github.com/haasonsaas/introspect/internal/config"
	"github.com/haasonsaas/introspect/internal/journal"
	"github.com/haasonsaas/introspect/internal/observability"
	"github.com/haasonsaas/introspect/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

// withApp builds the app, runs fn and closes the app.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(*app) error) (err error) {
	a, err := newApp(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if closeErr := a.Close(ctx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(a)
}

// =============================================================================
// Bridge Handler
// =============================================================================

func runBridge(cmd *cobra.Command, opts *rootOptions) error {
	return withApp(cmd, opts, func(a *app) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		if a.cfg.Metrics.Enabled {
			ms, err := observability.StartMetricsServer(a.cfg.Metrics.Listen, a.registry, a.logger)
			if err != nil {
				return err
			}
			defer func() {
				stopCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
				defer stop()
				_ = ms.Shutdown(stopCtx)
			}()
		}

		if a.cfg.Analysis.WatchLexicon {
			watcher := analysis.NewLexiconWatcher(a.cfg.Analysis.LexiconPath, a.analyzer, 0, a.logger)
			if err := watcher.Start(ctx); err != nil {
				return fmt.Errorf("failed to watch lexicon: %w", err)
			}
			defer watcher.Close()
		}

		var background errgroup.Group
		defer func() {
			cancel()
			_ = background.Wait()
		}()

		if a.cfg.Backfill.Enabled {
			task := scheduler.BackfillTask(a.service, a.cfg.Backfill.BatchSize, a.metrics, a.logger)
			sched, err := scheduler.New("backfill", a.cfg.Backfill.Schedule, task, scheduler.WithLogger(a.logger))
			if err != nil {
				return fmt.Errorf("backfill.schedule: %w", err)
			}
			if err := sched.Start(ctx); err != nil {
				return err
			}
			background.Go(func() error {
				<-ctx.Done()
				stopCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
				defer stop()
				return sched.Stop(stopCtx)
			})
		}

		// The reference phrases are embedded ahead of the first entry so the
		// first create_entry is not slowed by it.
		background.Go(func() error {
			if err := a.analyzer.Warm(ctx); err != nil && ctx.Err() == nil {
				a.logger.Warn("analyzer warm-up failed", "error", err)
			}
			return nil
		})

		srv := bridge.New(a.service,
			bridge.WithLogger(a.logger),
			bridge.WithMetrics(a.metrics),
			bridge.WithTracer(a.tracer),
			bridge.WithVersion(version),
		)
		a.logger.Info("bridge starting", "storage", a.cfg.Storage.Driver, "llm_enabled", a.cfg.LLM.Enabled)
		err := srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}

// =============================================================================
// Journal Handlers
// =============================================================================

func readText(cmd *cobra.Command, text string) (string, error) {
	if text != "-" {
		return text, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func runWrite(cmd *cobra.Command, opts *rootOptions, text string, mood int, asJSON bool) error {
	text, err := readText(cmd, text)
	if err != nil {
		return err
	}
	return withApp(cmd, opts, func(a *app) error {
		created, err := a.service.CreateEntry(cmd.Context(), text, mood)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(out, created)
		}
		fmt.Fprintf(out, "Saved entry %s\n\n", created.EntryID)
		printResult(out, created.Result)
		return nil
	})
}

func runAnalyze(cmd *cobra.Command, opts *rootOptions, text string, mood int) error {
	text, err := readText(cmd, text)
	if err != nil {
		return err
	}
	return withApp(cmd, opts, func(a *app) error {
		result, err := a.service.Analyze(cmd.Context(), text, mood)
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), result)
		return nil
	})
}

func printResult(out io.Writer, r *analysis.Result) {
	fmt.Fprintln(out, r.Insight)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Mental state: %.1f (mood %d, confidence %.0f%%)\n",
		r.MentalState.CompositeScore, r.MentalState.MoodRating, r.MentalState.Confidence*100)
	if r.MentalState.Interpretation != "" {
		fmt.Fprintf(out, "  %s\n", r.MentalState.Interpretation)
	}
	if r.Summary.Title != "" {
		fmt.Fprintf(out, "Title: %s\n", r.Summary.Title)
	}
	if r.Sentiment.PrimaryEmotion != "" {
		fmt.Fprintf(out, "Emotion: %s\n", r.Sentiment.PrimaryEmotion)
	}
	if len(r.Summary.Themes) > 0 {
		fmt.Fprintf(out, "Themes: %s\n", strings.Join(r.Summary.Themes, ", "))
	}
	for _, s := range r.SimilarEntries {
		fmt.Fprintf(out, "  ~ %.2f %s  %s\n", s.Similarity, s.Timestamp.Local().Format("Jan 2"), truncate(s.Text, 70))
	}
	fmt.Fprintf(out, "(insight: %s)\n", r.InsightSource)
}

func runEntries(cmd *cobra.Command, opts *rootOptions, limit int, asJSON bool) error {
	return withApp(cmd, opts, func(a *app) error {
		entries, err := a.store.Recent(cmd.Context(), limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			if entries == nil {
				entries = []*journal.Entry{}
			}
			return writeJSON(out, entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No entries yet.")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWHEN\tMOOD\tANALYZED\tENTRY")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%s\n",
				shortID(e.ID), e.Timestamp.Local().Format("2006-01-02 15:04"), e.MoodRating, e.Analyzed(), truncate(e.Content, 60))
		}
		return w.Flush()
	})
}

func runStats(cmd *cobra.Command, opts *rootOptions) error {
	return withApp(cmd, opts, func(a *app) error {
		stats, err := a.store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Entries:      %d\n", stats.TotalEntries)
		if stats.TotalEntries > 0 {
			fmt.Fprintf(out, "Average mood: %.1f\n", stats.AvgMood)
			fmt.Fprintf(out, "Range:        %d-%d\n", stats.MinMood, stats.MaxMood)
		}
		return nil
	})
}

func runBackfill(cmd *cobra.Command, opts *rootOptions, limit int) error {
	return withApp(cmd, opts, func(a *app) error {
		report, err := a.service.Backfill(cmd.Context(), limit)
		a.metrics.RecordBackfill(report.Analyzed, report.Failed, report.Skipped)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Analyzed %d, failed %d, skipped %d\n", report.Analyzed, report.Failed, report.Skipped)
		return nil
	})
}

// seedFile is the document read by the seed command.
type seedFile struct {
	Entries []journal.SeedEntry `yaml:"entries"`
}

func loadSeedFile(path string) ([]journal.SeedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc seedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(doc.Entries) == 0 {
		return nil, fmt.Errorf("%s: no entries", path)
	}
	return doc.Entries, nil
}

func runSeed(cmd *cobra.Command, opts *rootOptions, path string, replace bool) error {
	entries, err := loadSeedFile(path)
	if err != nil {
		return err
	}
	return withApp(cmd, opts, func(a *app) error {
		created, err := a.service.Seed(cmd.Context(), entries, replace)
		if errors.Is(err, journal.ErrNotEmpty) {
			return fmt.Errorf("%w (use --replace to start over)", err)
		}
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for i, c := range created {
			fmt.Fprintf(out, "%2d. %s [%s] %s\n", i+1, shortID(c.EntryID), c.InsightSource, truncate(c.Insight, 80))
		}
		fmt.Fprintf(out, "\nLoaded %d entries.\n", len(created))
		return nil
	})
}

// =============================================================================
// Config and Version Handlers
// =============================================================================

func runConfigSchema(cmd *cobra.Command) error {
	data, err := config.JSONSchema()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func runConfigValidate(cmd *cobra.Command, opts *rootOptions) error {
	path := resolveConfigPath(opts.configPath)
	if path == "" {
		return errors.New("no config file given (use --config or INTROSPECT_CONFIG)")
	}
	if _, err := config.Load(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
	return nil
}

func runVersion(cmd *cobra.Command) {
	fmt.Fprintf(cmd.OutOrStdout(), "introspect %s (commit: %s, built: %s)\n", version, commit, date)
}

// =============================================================================
// Helpers
// =============================================================================

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
