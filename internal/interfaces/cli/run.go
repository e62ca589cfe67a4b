package cli

import (
	"context"
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/leohfurlan/reometro-score/internal/application/pipeline"
	"github.com/leohfurlan/reometro-score/internal/config"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/database/postgres/repositories"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/monitoring/logging"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/monitoring/prometheus"
)

// NewRunCmd creates the `run` command: one full extract-identify-consolidate-
// score-persist cycle against the active version, or a continuous loop of
// cycles when --interval is set.
func NewRunCmd() *cobra.Command {
	var (
		minDate  string
		jsonOut  bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one full scoring run",
		Long: `Extract raw trials from the laboratory database, consolidate them into
(lot, batch) records, score each record against the active version, and
replace the stored results transactionally.

With --interval the cycle repeats until interrupted, and edits to the
configuration file take effect on the next cycle.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := requireContext(cmd)
			if err != nil {
				return err
			}
			cfg, log := cliCtx.Config, cliCtx.Logger

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var recorder pipeline.Recorder
			if cfg.Metrics.Enabled {
				m := prometheus.NewMetrics(promclient.DefaultRegisterer)
				recorder = m
				go func() {
					if serveErr := prometheus.Serve(ctx, cfg.Metrics.Addr, log); serveErr != nil {
						log.Warn("metrics endpoint stopped", logging.Err(serveErr))
					}
				}()
			}

			if interval <= 0 {
				report, err := executeRun(ctx, cliCtx, cfg, recorder, minDate)
				if err != nil {
					return err
				}
				return printRunReport(cmd, report, jsonOut)
			}
			return runLoop(ctx, cmd, cliCtx, recorder, minDate, jsonOut, interval)
		},
	}

	cmd.Flags().StringVar(&minDate, "min-date", "", "override extraction lower bound (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the run report as JSON")
	cmd.Flags().DurationVar(&interval, "interval", 0, "repeat the run every interval until interrupted (0 runs once)")

	return cmd
}

// runLoop re-executes the pipeline every interval until the context is
// canceled.  When configuration came from a file, valid edits to it are
// applied between cycles; invalid edits keep the previous configuration.
func runLoop(ctx context.Context, cmd *cobra.Command, cliCtx *CLIContext, recorder pipeline.Recorder, minDate string, jsonOut bool, interval time.Duration) error {
	log := cliCtx.Logger

	var current atomic.Pointer[config.Config]
	current.Store(cliCtx.Config)
	if cliCtx.ConfigFile != "" {
		err := config.Watch(cliCtx.ConfigFile,
			func(next *config.Config) {
				current.Store(next)
				log.Info("configuration reloaded",
					logging.String("path", cliCtx.ConfigFile))
			},
			func(werr error) {
				log.Warn("keeping previous configuration", logging.Err(werr))
			})
		if err != nil {
			return err
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		report, err := executeRun(ctx, cliCtx, current.Load(), recorder, minDate)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			// A transient backend failure should not kill the loop.
			log.Error("run cycle failed", logging.Err(err))
		default:
			if err := printRunReport(cmd, report, jsonOut); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// executeRun performs one full cycle with the given configuration, opening
// and closing every backend connection within the cycle.
func executeRun(ctx context.Context, cliCtx *CLIContext, cfg *config.Config, recorder pipeline.Recorder, minDate string) (*pipeline.Report, error) {
	log := cliCtx.Logger

	opts, err := pipelineOptions(cfg, minDate)
	if err != nil {
		return nil, err
	}

	runCtx := &CLIContext{Config: cfg, Logger: log}

	storeConn, versions, err := openStore(runCtx)
	if err != nil {
		return nil, err
	}
	defer storeConn.Close()

	sourceConn, trials, err := openSource(runCtx)
	if err != nil {
		return nil, err
	}
	defer sourceConn.Close()

	refs, cache := newSnapshotLoader(runCtx)
	if cache != nil {
		defer cache.Close()
	}

	products := &pipeline.FileCatalogLoader{Path: cfg.Reference.SpecsPath}
	writer := repositories.NewRunRepo(storeConn, log)

	svc := pipeline.NewService(trials, refs, products, versions, writer, recorder, opts, log)
	return svc.Run(ctx)
}

func printRunReport(cmd *cobra.Command, r *pipeline.Report, jsonOut bool) error {
	if jsonOut {
		return printJSON(cmd, r)
	}
	printReport(cmd, r)
	return nil
}

func printReport(cmd *cobra.Command, r *pipeline.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s against version %d finished in %s\n", r.RunID, r.VersionID, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  rows fetched:       %d\n", r.Stats.Rows)
	fmt.Fprintf(out, "  records scored:     %d\n", r.Scored)
	fmt.Fprintf(out, "  records approved:   %d\n", r.Approved)
	fmt.Fprintf(out, "  groups dropped:     %d\n", r.Stats.Dropped)
	fmt.Fprintf(out, "  lot-average fills:  %d\n", r.Stats.LotAverage)
	fmt.Fprintf(out, "  absent viscosity:   %d\n", r.Stats.AbsentVisc)
	for method, n := range r.Stats.ByMethod {
		fmt.Fprintf(out, "  identified via %-12s %d\n", string(method)+":", n)
	}
}
