package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/leohfurlan/reometro-score/internal/application/pipeline"
	"github.com/leohfurlan/reometro-score/internal/config"
	"github.com/leohfurlan/reometro-score/internal/domain/reference"
	"github.com/leohfurlan/reometro-score/internal/domain/scoring"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/database/postgres"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/database/postgres/repositories"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/database/redis"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/spreadsheet"
	"github.com/leohfurlan/reometro-score/pkg/errors"
)

// openStore opens the scoring store database and returns the version service
// on top of it.  The caller owns the returned connection.
func openStore(cliCtx *CLIContext) (*postgres.Connection, *scoring.VersionService, error) {
	conn, err := postgres.NewConnection(cliCtx.Config.Database, cliCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	svc := scoring.NewVersionService(repositories.NewVersionRepo(conn), cliCtx.Logger)
	return conn, svc, nil
}

// openSource opens the read-only laboratory database and returns the trial
// source on top of it.  The caller owns the returned connection.
func openSource(cliCtx *CLIContext) (*postgres.Connection, *repositories.TrialSource, error) {
	conn, err := postgres.NewSourceConnection(cliCtx.Config.Source, cliCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	return conn, repositories.NewTrialSource(conn), nil
}

// newFileStore builds the reference file store from configuration.
func newFileStore(cfg config.ReferenceConfig) *reference.FileStore {
	return &reference.FileStore{
		LearningPath:    cfg.LearningPath,
		CorrectionsPath: cfg.CorrectionsPath,
		GroupsPath:      cfg.GroupsPath,
	}
}

// newSnapshotLoader assembles the reference snapshot loader: workbook,
// optional Redis cache, and file-backed tables.  The returned cache is nil
// when caching is disabled or unreachable; callers must close it otherwise.
func newSnapshotLoader(cliCtx *CLIContext) (*pipeline.SnapshotLoader, *redis.LotMapCache) {
	cfg := cliCtx.Config
	loader := &pipeline.SnapshotLoader{
		Sheet: spreadsheet.NewLoader(cfg.Reference.SheetPath, cfg.Reference.SheetTabs, cliCtx.Logger),
		Files: newFileStore(cfg.Reference),
		Log:   cliCtx.Logger,
	}

	if cfg.Redis.Addr == "" {
		return loader, nil
	}
	cache, err := redis.NewLotMapCache(cfg.Redis, cliCtx.Logger)
	if err != nil {
		cliCtx.Logger.Warn("lot-map cache unavailable, reading workbook directly")
		return loader, nil
	}
	loader.Cache = cache
	return loader, cache
}

// pipelineOptions derives run options from configuration, with an optional
// min-date flag override in "2006-01-02" form.
func pipelineOptions(cfg *config.Config, minDateFlag string) (pipeline.Options, error) {
	raw := cfg.Source.MinDate
	if minDateFlag != "" {
		raw = minDateFlag
	}
	minDate, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return pipeline.Options{}, errors.Newf(errors.ErrCodeValidation,
			"invalid min date %q: expected YYYY-MM-DD", raw)
	}
	return pipeline.Options{
		MinDate:          minDate,
		OutOfRangeZero:   cfg.Scoring.OutOfRangeZero,
		PreferSampleText: cfg.Scoring.PreferSampleText,
	}, nil
}

// requireContext fetches the CLIContext or fails the command.
func requireContext(cmd *cobra.Command) (*CLIContext, error) {
	return GetCLIContext(cmd)
}
