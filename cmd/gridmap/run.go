package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-gridmap/pkg/config"
	"github.com/dd0wney/cluso-gridmap/pkg/export"
	"github.com/dd0wney/cluso-gridmap/pkg/ingest"
	"github.com/dd0wney/cluso-gridmap/pkg/logging"
	"github.com/dd0wney/cluso-gridmap/pkg/metrics"
	"github.com/dd0wney/cluso-gridmap/pkg/pipeline"
)

const publishTimeout = 2 * time.Minute

type runOptions struct {
	configPath string
	outDir     string
	workers    int
	logLevel   string
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build territories and the feeder hierarchy",
		Long:  `Reads the configured distributor exports, runs every stage and writes the GeoJSON territories and the diagnostics report. Artifacts are optionally compressed, uploaded to S3 and stored in PostgreSQL.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("workers") && opts.workers < 0 {
				return fmt.Errorf("--workers must be >= 0")
			}
			return runGridmap(cmd.Context(), opts, cmd.Flags().Changed("workers"), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", defaultConfigFile, "Run configuration file")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", ".", "Directory output paths are relative to")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Worker pool size (0 = GOMAXPROCS)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	return cmd
}

// logLevel picks the flag, then LOG_LEVEL, then the config file.
func logLevel(flag string, cfg config.LoggingConfig) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		return env
	}
	return cfg.Level
}

func runGridmap(ctx context.Context, opts runOptions, workersSet bool, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if workersSet {
		cfg.Runtime.Workers = opts.workers
	}
	if err := cfg.ValidateInputs(); err != nil {
		return err
	}

	logger := logging.NewJSONLogger(stderr, logging.ParseLevel(logLevel(opts.logLevel, cfg.Logging)))

	in, proj, report, err := ingest.Load(cfg.Input)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	logger.Info("inputs loaded",
		logging.Count(len(in.Sites)),
		logging.Int("segments", len(in.Segments)),
		logging.Int("sources", report.Sources),
		logging.Int("skipped", len(report.Skipped)))
	for _, skipped := range report.Skipped {
		logger.Warn("input row skipped", logging.Error(skipped))
	}

	reg := metrics.NewRegistry()
	res, err := pipeline.Run(cfg, in, pipeline.WithLogger(logger), pipeline.WithMetrics(reg))
	if err != nil {
		return err
	}

	featureOpts := export.FeatureOptions{Simplify: cfg.Output.Simplify}
	if proj != nil {
		featureOpts.Unproject = proj
	}

	artifacts, err := export.Artifacts(res, featureOpts,
		filepath.Base(cfg.Output.GeoJSON), filepath.Base(cfg.Output.Diagnostics), cfg.Output.Snappy)
	if err != nil {
		return err
	}

	sum := summary{RunID: res.Diagnostics.RunID, Result: res, Skipped: len(report.Skipped)}
	dirs := []string{
		filepath.Dir(outputPath(opts.outDir, cfg.Output.GeoJSON)),
		filepath.Dir(outputPath(opts.outDir, cfg.Output.Diagnostics)),
	}
	for i, a := range artifacts {
		path, err := export.WriteFile(dirs[i], a)
		if err != nil {
			return err
		}
		logger.Info("artifact written", logging.Path(path), logging.Int("bytes", len(a.Data)))
		sum.Outputs = append(sum.Outputs, path)
	}

	if cfg.Output.S3.Bucket != "" {
		keys, err := publishS3(ctx, cfg.Output.S3, res.Diagnostics.RunID, artifacts)
		if err != nil {
			return err
		}
		for _, key := range keys {
			sum.Outputs = append(sum.Outputs, fmt.Sprintf("s3://%s/%s", cfg.Output.S3.Bucket, key))
		}
		logger.Info("artifacts published", logging.String("bucket", cfg.Output.S3.Bucket), logging.Count(len(keys)))
	}

	if cfg.Output.Postgres.DSN != "" {
		n, err := storeRows(ctx, cfg.Output.Postgres, res, featureOpts)
		if err != nil {
			return err
		}
		sum.Outputs = append(sum.Outputs, fmt.Sprintf("postgres table %s (%d rows)", cfg.Output.Postgres.Table, n))
		logger.Info("rows stored", logging.String("table", cfg.Output.Postgres.Table), logging.Count(n))
	}

	if cfg.Metrics.Textfile != "" {
		path := outputPath(opts.outDir, cfg.Metrics.Textfile)
		if err := reg.WriteTextfile(path); err != nil {
			return err
		}
		sum.Outputs = append(sum.Outputs, path)
	}

	fmt.Fprintln(stdout, sum.Render())
	return nil
}

// outputPath places a relative output path under dir. Absolute paths are
// used as given.
func outputPath(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func publishS3(ctx context.Context, cfg config.S3Config, runID string, artifacts []export.Artifact) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	pub, err := export.NewS3Publisher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return pub.Publish(ctx, runID, artifacts)
}

func storeRows(ctx context.Context, cfg config.PostgresConfig, res *pipeline.Result, opts export.FeatureOptions) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	store, err := export.NewPGStore(ctx, cfg.DSN, cfg.Table)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	return store.SaveRun(ctx, res, opts)
}
