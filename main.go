package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/pshmarlow/scripts-demos/ossplugins/json-report"
	_ "github.com/pshmarlow/scripts-demos/ossplugins/mongo-export"
	_ "github.com/pshmarlow/scripts-demos/ossplugins/s3-archive"
	"github.com/pshmarlow/scripts-demos/pkg/app"
	"github.com/pshmarlow/scripts-demos/pkg/config"
	"github.com/pshmarlow/scripts-demos/pkg/logging"
	"github.com/pshmarlow/scripts-demos/pkg/parser"
	"github.com/pshmarlow/scripts-demos/pkg/pluginloader"
	"github.com/pshmarlow/scripts-demos/pkg/pluginsdk"
	"github.com/pshmarlow/scripts-demos/pkg/processor"
	"github.com/pshmarlow/scripts-demos/pkg/source"
	"github.com/pshmarlow/scripts-demos/pkg/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "issues-etl",
		Short:        "Extract known issues from QRadar-style logs",
		SilenceUsage: true,
	}

	scan := &cobra.Command{
		Use:   "scan",
		Short: "Scan the current log and its archives and export the issue report",
		Long: `Scan rotated archives (oldest first) and the current log, classify lines
into event kinds, merge multi-line TxSentry events, drop duplicates seen in
overlapping files and hand the sorted per-kind report to the enabled plugins.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.Development)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := run(ctx, cfg, logger); err != nil {
				logger.Error("scan failed", zap.Error(err))
				return err
			}
			return nil
		},
	}
	config.AddFlags(scan)

	rules := &cobra.Command{
		Use:   "keywords",
		Short: "Print the keyword alternation for an external prefilter such as zgrep -E",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("rules")
			reg, err := parser.RegistryFromFile(path)
			if err != nil {
				return err
			}
			kw := reg.Keywords()
			if kw == nil {
				return errors.New("some kind has no keywords; every line must be scanned")
			}
			for _, k := range kw {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
	rules.Flags().String("rules", "", "YAML rule file adding or overriding event kinds")

	root.AddCommand(scan, rules)
	return root
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	reg, err := parser.RegistryFromFile(cfg.RulesPath)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	sources, err := cfg.Sources()
	if err != nil {
		return err
	}
	if cfg.Stdin {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		sources = append(sources, source.Output{Label: "stdin", Data: data})
	}

	metrics := pluginsdk.NewCounterMetrics()
	exportCtx := exportContext(ctx)
	pctx := pluginsdk.Context{
		Ctx:     exportCtx,
		Logger:  logger.Named("plugin"),
		Metrics: metrics,
		Config:  cfg,
	}
	if enabled(cfg.Plugins, "mongo-export") {
		mongoStorage, err := storage.NewMongoStorage(exportCtx, cfg.MongoURI, cfg.RunID)
		if err != nil {
			return fmt.Errorf("setup storage: %w", err)
		}
		defer mongoStorage.Close(context.Background())
		logger.Debug("mongo export enabled", zap.String("database", mongoStorage.Database()))
		pctx.Storage = mongoStorage
	}
	if cfg.S3URL != "" {
		s3Storage, err := storage.NewS3Storage(exportCtx, cfg.S3URL)
		if err != nil {
			return fmt.Errorf("setup s3: %w", err)
		}
		pctx.Objects = s3Storage
	}
	loader, err := pluginloader.New(pctx, cfg.Plugins)
	if err != nil {
		return err
	}

	srv := app.NewService(reg, app.Options{
		Year:     cfg.AnchorYear,
		Workers:  cfg.Workers,
		Encoding: cfg.Encoding,
	}, logger)
	srv.Metrics = metrics

	report, runErr := srv.Run(ctx, sources)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if runErr != nil {
		logger.Warn("scan interrupted; exporting partial report", zap.Error(runErr))
	}
	dispatchErr := loader.Dispatch(report)
	finalizeErr := loader.Finalize()
	logger.Info("run complete",
		zap.String("run_id", cfg.RunID),
		zap.Int("events", report.Stats.EventsAdmitted),
		zap.Strings("plugins", loader.Plugins()),
		zap.Dict("counters", counterFields(metrics)...),
	)
	return errors.Join(runErr, dispatchErr, finalizeErr)
}

// exportContext keeps the parent's values but not its cancellation: an
// interrupted scan still hands its partial report to the plugins.
func exportContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func counterFields(m *pluginsdk.CounterMetrics) []zap.Field {
	names := []string{
		processor.MetricLinesRead,
		processor.MetricLinesUndecodable,
		processor.MetricMalformedTimestamps,
		processor.MetricUnattributed,
		processor.MetricEventsAdmitted,
		processor.MetricDuplicatesRejected,
		processor.MetricSourcesSkipped,
	}
	fields := make([]zap.Field, 0, len(names))
	for _, name := range names {
		fields = append(fields, zap.Int(name, m.Count(name, nil)))
	}
	return fields
}

func enabled(cfgs []pluginsdk.PluginConfig, name string) bool {
	for _, c := range cfgs {
		if c.Name == name && c.Enabled {
			return true
		}
	}
	return false
}
