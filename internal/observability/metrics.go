package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the journal engine.
//
// All methods are safe on a nil *Metrics, so components take metrics as an
// optional dependency.
type Metrics struct {
	// BridgeRequests counts bridge commands.
	// Labels: command, status (success|error)
	BridgeRequests *prometheus.CounterVec

	// BridgeRequestDuration measures command handling time in seconds.
	// Labels: command
	BridgeRequestDuration *prometheus.HistogramVec

	// EntriesCreated counts persisted journal entries.
	EntriesCreated prometheus.Counter

	// AnalysisDuration measures a full entry analysis in seconds.
	// Buckets: 0.05s .. 60s
	AnalysisDuration prometheus.Histogram

	// Insights counts generated insights.
	// Labels: source (template|llm)
	Insights *prometheus.CounterVec

	// LLMRequestCounter counts completion requests.
	// Labels: provider, model, status (success|error)
	LLMRequestCounter *prometheus.CounterVec

	// LLMRequestDuration measures completion latency in seconds.
	// Labels: provider, model
	LLMRequestDuration *prometheus.HistogramVec

	// BackfillEntries counts entries processed by backfill runs.
	// Labels: status (analyzed|failed|skipped)
	BackfillEntries *prometheus.CounterVec

	// ErrorCounter tracks errors by component and type.
	// Labels: component, error_type
	ErrorCounter *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics. A nil registerer uses the
// Prometheus default registry; tests pass their own.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		BridgeRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "introspect_bridge_requests_total",
				Help: "Total number of bridge commands by command and status",
			},
			[]string{"command", "status"},
		),
		BridgeRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "introspect_bridge_request_duration_seconds",
				Help:    "Duration of bridge command handling in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60},
			},
			[]string{"command"},
		),
		EntriesCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "introspect_entries_created_total",
				Help: "Total number of journal entries written",
			},
		),
		AnalysisDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "introspect_analysis_duration_seconds",
				Help:    "Duration of entry analysis in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		Insights: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "introspect_insights_total",
				Help: "Total number of insights by source",
			},
			[]string{"source"},
		),
		LLMRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "introspect_llm_requests_total",
				Help: "Total number of LLM requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),
		LLMRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "introspect_llm_request_duration_seconds",
				Help:    "Duration of LLM requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),
		BackfillEntries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "introspect_backfill_entries_total",
				Help: "Total number of entries handled by backfill runs",
			},
			[]string{"status"},
		),
		ErrorCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "introspect_errors_total",
				Help: "Total number of errors by component and type",
			},
			[]string{"component", "error_type"},
		),
	}
}

// RecordBridgeRequest records one handled bridge command.
func (m *Metrics) RecordBridgeRequest(command, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.BridgeRequests.WithLabelValues(command, status).Inc()
	m.BridgeRequestDuration.WithLabelValues(command).Observe(durationSeconds)
}

// RecordEntryCreated records a persisted and analyzed entry.
//
// Example:
//
//	start := time.Now()
//	created, err := svc.CreateEntry(ctx, content, mood)
//	metrics.RecordEntryCreated(created.InsightSource, time.Since(start).Seconds())
func (m *Metrics) RecordEntryCreated(insightSource string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.EntriesCreated.Inc()
	m.AnalysisDuration.Observe(durationSeconds)
	if insightSource != "" {
		m.Insights.WithLabelValues(insightSource).Inc()
	}
}

// RecordLLMRequest records metrics for an LLM completion.
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
}

// RecordBackfill adds the counts of one backfill run.
func (m *Metrics) RecordBackfill(analyzed, failed, skipped int) {
	if m == nil {
		return
	}
	m.BackfillEntries.WithLabelValues("analyzed").Add(float64(analyzed))
	m.BackfillEntries.WithLabelValues("failed").Add(float64(failed))
	m.BackfillEntries.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordError increments the error counter for a component and error type.
func (m *Metrics) RecordError(component, errorType string) {
	if m == nil {
		return
	}
	m.ErrorCounter.WithLabelValues(component, errorType).Inc()
}

// MetricsServer exposes /metrics and /healthz over HTTP.
type MetricsServer struct {
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger
}

// StartMetricsServer listens on addr and serves the gatherer's metrics. A nil
// gatherer uses the default registry.
func StartMetricsServer(addr string, gatherer prometheus.Gatherer, logger *slog.Logger) (*MetricsServer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}
	s := &MetricsServer{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: listener,
		logger:   logger,
	}
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", listener.Addr().String())
	return s, nil
}

// Addr returns the bound address.
func (s *MetricsServer) Addr() string {
	return s.listener.Addr().String()
}

// Shutdown stops the server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
