// Package pipeline orchestrates a full scoring run: fetch raw trials,
// rebuild the reference snapshot, aggregate, score against the active
// version, and persist the results transactionally.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/leohfurlan/reometro-score/internal/domain/catalog"
	"github.com/leohfurlan/reometro-score/internal/domain/consolidate"
	"github.com/leohfurlan/reometro-score/internal/domain/identify"
	"github.com/leohfurlan/reometro-score/internal/domain/reference"
	"github.com/leohfurlan/reometro-score/internal/domain/scoring"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/monitoring/logging"
	"github.com/leohfurlan/reometro-score/pkg/errors"
)

// TrialSource fetches raw instrument readings from the laboratory database.
type TrialSource interface {
	FetchSince(ctx context.Context, minDate time.Time) ([]consolidate.RawTrial, error)
}

// ReferenceLoader rebuilds the full reference snapshot.  Rebuilds are always
// wholesale so a run never sees a partially updated table.
type ReferenceLoader interface {
	Load(ctx context.Context) (*reference.Snapshot, error)
}

// CatalogLoader builds the product catalog.
type CatalogLoader interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// RunItem pairs a consolidated record with its score for persistence.
type RunItem struct {
	Record *consolidate.Record
	Result scoring.Result
}

// RunWriter persists one run's output.  The write replaces the version's
// previous results for the affected records and must be all-or-nothing.
type RunWriter interface {
	WriteRun(ctx context.Context, versionID int64, items []RunItem) error
}

// Recorder receives run outcomes for monitoring.  Implementations must not
// block.
type Recorder interface {
	RecordRun(report *Report)
}

// Report summarizes one pipeline run.
type Report struct {
	RunID     string
	VersionID int64
	StartedAt time.Time
	Duration  time.Duration
	Stats     consolidate.Stats
	Scored    int
	Approved  int
}

// Options are the run-level tunables.
type Options struct {
	MinDate          time.Time
	OutOfRangeZero   bool
	PreferSampleText bool
}

// Service wires the full pipeline.
type Service struct {
	source   TrialSource
	refs     ReferenceLoader
	products CatalogLoader
	versions *scoring.VersionService
	writer   RunWriter
	recorder Recorder
	opts     Options
	log      logging.Logger
}

// NewService builds a pipeline service.  recorder may be nil.
func NewService(
	source TrialSource,
	refs ReferenceLoader,
	products CatalogLoader,
	versions *scoring.VersionService,
	writer RunWriter,
	recorder Recorder,
	opts Options,
	log logging.Logger,
) *Service {
	return &Service{
		source:   source,
		refs:     refs,
		products: products,
		versions: versions,
		writer:   writer,
		recorder: recorder,
		opts:     opts,
		log:      log,
	}
}

// Run executes one full pipeline pass.  Any failure before the final write
// aborts the run and leaves the previous result set untouched.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), StartedAt: time.Now()}
	log := s.log.With(logging.String("run_id", report.RunID))
	log.Info("starting scoring run")

	version, err := s.versions.Active(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRunAborted, "no active scoring version")
	}
	report.VersionID = version.ID

	snap, err := s.refs.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRunAborted, "reference rebuild failed")
	}
	cat, err := s.products.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRunAborted, "catalog load failed")
	}
	if cat.Len() == 0 {
		return nil, errors.New(errors.ErrCodeCatalogEmpty, "catalog has no products")
	}

	trials, err := s.source.FetchSince(ctx, s.opts.MinDate)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceQueryFailed, "trial extraction failed")
	}
	log.Info("fetched raw trials",
		logging.Int("rows", len(trials)),
		logging.Int("known_lots", snap.LotCount()))

	ident := identify.NewIdentifier(snap, identify.NewMatcher(cat, snap), s.opts.PreferSampleText)
	agg := consolidate.NewAggregator(ident, snap, log)
	records, stats := agg.Aggregate(trials)
	report.Stats = stats

	engine, err := scoring.NewEngine(version, s.opts.OutOfRangeZero, log)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRunAborted, "scoring engine init failed")
	}

	items := make([]RunItem, 0, len(records))
	for _, rec := range records {
		// The primary test id is the stable record key across runs.
		res := engine.Score(rec.PrimaryTestID, rec)
		if res.Approved {
			report.Approved++
		}
		items = append(items, RunItem{Record: rec, Result: res})
	}
	report.Scored = len(items)

	if err := s.writer.WriteRun(ctx, version.ID, items); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePersistFailed, "run write-back failed")
	}

	report.Duration = time.Since(report.StartedAt)
	if s.recorder != nil {
		s.recorder.RecordRun(report)
	}
	log.Info("scoring run finished",
		logging.Int64("version_id", version.ID),
		logging.Int("scored", report.Scored),
		logging.Int("approved", report.Approved),
		logging.Duration("duration", report.Duration))
	return report, nil
}
