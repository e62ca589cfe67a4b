// Package prometheus exposes pipeline run metrics.
package prometheus

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leohfurlan/reometro-score/internal/application/pipeline"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/monitoring/logging"
)

// Metrics aggregates the pipeline counters and implements
// pipeline.Recorder.
type Metrics struct {
	runsTotal      prometheus.Counter
	runDuration    prometheus.Histogram
	rowsProcessed  prometheus.Counter
	recordsScored  prometheus.Counter
	recordsDropped prometheus.Counter
	approvedRatio  prometheus.Gauge
	methodTally    *prometheus.CounterVec
}

var _ pipeline.Recorder = (*Metrics)(nil)

// NewMetrics registers the pipeline metrics on a registry.  Pass nil to use
// the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		runsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reoscore",
			Name:      "runs_total",
			Help:      "Completed scoring runs.",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reoscore",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one scoring run.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		rowsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reoscore",
			Name:      "raw_rows_total",
			Help:      "Raw trial rows processed.",
		}),
		recordsScored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reoscore",
			Name:      "records_scored_total",
			Help:      "Consolidated records scored.",
		}),
		recordsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reoscore",
			Name:      "records_dropped_total",
			Help:      "Groups dropped for lacking a resolvable product.",
		}),
		approvedRatio: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "reoscore",
			Name:      "last_run_approved_ratio",
			Help:      "Share of approved records in the last run.",
		}),
		methodTally: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reoscore",
			Name:      "identifications_total",
			Help:      "Consolidated groups by identification method.",
		}, []string{"method"}),
	}
}

// RecordRun folds one run report into the metrics.
func (m *Metrics) RecordRun(report *pipeline.Report) {
	m.runsTotal.Inc()
	m.runDuration.Observe(report.Duration.Seconds())
	m.rowsProcessed.Add(float64(report.Stats.Rows))
	m.recordsScored.Add(float64(report.Scored))
	m.recordsDropped.Add(float64(report.Stats.Dropped))
	if report.Scored > 0 {
		m.approvedRatio.Set(float64(report.Approved) / float64(report.Scored))
	}
	for method, n := range report.Stats.ByMethod {
		m.methodTally.WithLabelValues(string(method)).Add(float64(n))
	}
}

// Serve starts the exposition endpoint and blocks until ctx is done.
func Serve(ctx context.Context, addr string, log logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics endpoint listening", logging.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
