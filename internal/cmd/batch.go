package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lernerlab/medconv/internal/batch"
	"github.com/lernerlab/medconv/internal/config"
	"github.com/lernerlab/medconv/internal/logger"
	"github.com/lernerlab/medconv/internal/nwb"
	"github.com/lernerlab/medconv/internal/photometry"
	"github.com/lernerlab/medconv/internal/session"
)

// stubSessionsPerCohort bounds a --stub-test run: enough sessions per
// cohort to exercise every pipeline stage on a fresh dataset drop.
const stubSessionsPerCohort = 2

// NewBatchCommand creates the batch command
func NewBatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [data-dir]",
		Short: "Convert an entire dataset drop",
		Long: `Convert every discoverable session in a raw dataset directory.

Sessions are discovered across the fiber-photometry cohorts (per-subject
log files with matching photometry folders) and the optogenetics cohorts
(per-subject and files-by-date archives under each group). Conversions
run in parallel; a failing session is reported and leaves an
ERROR_<session>.txt file, but never aborts its siblings. A
conversion_report.yaml summarizing the run is written to the output
directory.

Configuration is loaded from medconv.yaml if present.
CLI flags override configuration file settings.

Examples:
  medconv batch /data/raw
  medconv batch --output-dir ./out --max-workers 8 /data/raw
  medconv batch --stub-test /data/raw   # first few sessions per cohort`,
		Args: cobra.MaximumNArgs(1),
		RunE: batchCommand,
	}

	cmd.Flags().String("config", "medconv.yaml", "Path to config file")
	cmd.Flags().StringP("output-dir", "o", "", "Directory for output archives")
	cmd.Flags().Int("max-workers", -1, "Concurrent session conversions (-1 = use config)")
	cmd.Flags().Bool("overwrite", false, "Replace existing output files")
	cmd.Flags().Bool("stub-test", false, "Convert only the first few sessions per cohort")
	cmd.Flags().String("log-level", "", "Logging verbosity (trace, debug, info, warn, error)")

	return cmd
}

func batchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadBatchConfig(cmd, args)
	if err != nil {
		return err
	}
	log := logger.NewConsoleLogger(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fpTargets, err := batch.DiscoverFP(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to discover photometry sessions: %w", err)
	}
	optoTargets, err := batch.DiscoverOpto(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to discover optogenetics sessions: %w", err)
	}
	if cfg.StubTest {
		fpTargets = stubSample(fpTargets)
		optoTargets = stubSample(optoTargets)
	}
	log.LogInfo(fmt.Sprintf("Discovered %d photometry and %d optogenetics sessions", len(fpTargets), len(optoTargets)))

	writer := nwb.NewWriter(cfg.OutputDir, cfg.Overwrite)
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// One aggregator serves both cohorts: optogenetics subjects have no
	// folders under the photometry root, so matching is a no-op for them.
	agg := &session.Aggregator{Photometry: photometry.NewMatcher(batch.FPPhotometryRoot(cfg.DataDir))}
	runner := batch.NewRunner(agg, writer, log, workers)

	summary, err := runner.Run(ctx, append(fpTargets, optoTargets...))
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d session(s) failed to convert", summary.Failed)
	}
	return ctx.Err()
}

// loadBatchConfig merges the config file with CLI flag overrides.
func loadBatchConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		cfg.DataDir = args[0]
	}
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		cfg.OutputDir = v
	}
	if v, _ := cmd.Flags().GetInt("max-workers"); v >= 0 {
		cfg.MaxWorkers = v
	}
	if v, _ := cmd.Flags().GetBool("overwrite"); v {
		cfg.Overwrite = true
	}
	if v, _ := cmd.Flags().GetBool("stub-test"); v {
		cfg.StubTest = true
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}

// stubSample keeps the first few targets of each cohort.
func stubSample(targets []batch.Target) []batch.Target {
	perCohort := make(map[string]int)
	var sampled []batch.Target
	for _, t := range targets {
		if perCohort[t.Cohort] >= stubSessionsPerCohort {
			continue
		}
		perCohort[t.Cohort]++
		sampled = append(sampled, t)
	}
	return sampled
}
