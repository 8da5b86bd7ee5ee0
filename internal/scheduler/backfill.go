package scheduler

import (
	"context"
	"log/slog"

	"github.com/haasonsaas/introspect/internal/journal"
	"github.com/haasonsaas/introspect/internal/observability"
)

// BackfillTask analyzes up to batch pending entries per run.
func BackfillTask(svc *journal.Service, batch int, metrics *observability.Metrics, logger *slog.Logger) Task {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context) error {
		report, err := svc.Backfill(ctx, batch)
		metrics.RecordBackfill(report.Analyzed, report.Failed, report.Skipped)
		if err != nil {
			return err
		}
		if report.Analyzed > 0 || report.Failed > 0 {
			logger.Info("backfill run", "analyzed", report.Analyzed, "failed", report.Failed)
		}
		return nil
	}
}
