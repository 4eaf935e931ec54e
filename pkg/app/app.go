package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pshmarlow/scripts-demos/pkg/converter"
	"github.com/pshmarlow/scripts-demos/pkg/logging"
	"github.com/pshmarlow/scripts-demos/pkg/parser"
	"github.com/pshmarlow/scripts-demos/pkg/pluginsdk"
	"github.com/pshmarlow/scripts-demos/pkg/processor"
	"github.com/pshmarlow/scripts-demos/pkg/source"
	"github.com/pshmarlow/scripts-demos/types"
)

// ErrNoUsableSource is returned when no source could be opened.
var ErrNoUsableSource = errors.New("no usable log source")

// Options tunes a run.
type Options struct {
	// Year anchors yearless log dates. Zero means the current year.
	Year int
	// Workers bounds how many sources are scanned at once. Zero means one.
	Workers int
	// Encoding of the log lines. Empty means utf-8.
	Encoding string
	// Now is used to resolve a zero Year. Defaults to time.Now.
	Now func() time.Time
}

// Service orchestrates scanning sources into a report.
type Service struct {
	Registry *parser.Registry
	Options  Options
	Logger   *zap.Logger
	Metrics  pluginsdk.Metrics
}

// NewService creates a Service over reg. A nil reg means the default kinds.
func NewService(reg *parser.Registry, opts Options, logger *zap.Logger) *Service {
	if reg == nil {
		reg = parser.DefaultRegistry()
	}
	return &Service{Registry: reg, Options: opts, Logger: logging.OrNop(logger)}
}

// Year returns the anchor year used for this run.
func (s *Service) Year() int {
	if s.Options.Year > 0 {
		return s.Options.Year
	}
	now := time.Now
	if s.Options.Now != nil {
		now = s.Options.Now
	}
	return now().Year()
}

// Run scans sources in the given order, oldest first, and returns the
// deduplicated report. Unopenable sources are skipped with a warning; when
// none is usable the empty report comes with ErrNoUsableSource. On
// cancellation the events admitted so far are returned with ctx.Err().
func (s *Service) Run(ctx context.Context, sources []source.Source) (types.Report, error) {
	reg := s.Registry
	if reg == nil {
		reg = parser.DefaultRegistry()
	}
	logger := logging.OrNop(s.Logger).Named("app")
	metrics := s.Metrics
	if metrics == nil {
		metrics = pluginsdk.NoopMetrics{}
	}
	year := s.Year()

	committer := processor.NewCommitter(reg, metrics)
	pipelines := make([]*processor.Pipeline, len(sources))
	for i, src := range sources {
		pipelines[i] = &processor.Pipeline{
			Registry: reg,
			Options:  converter.Options{Year: year},
			Source:   src,
			Index:    i,
			Encoding: s.Options.Encoding,
			Sink:     committer,
			Logger:   logger.Named("pipeline"),
			Metrics:  metrics,
		}
	}

	manager := processor.NewProcessorManager(s.Options.Workers)
	logger.Info("scan started",
		zap.Int("sources", len(sources)),
		zap.Int("workers", manager.Workers()),
		zap.Int("year", year),
	)
	results, errs := manager.RunAll(ctx, pipelines)

	stats := types.Stats{Sources: len(sources)}
	usable := 0
	for i, res := range results {
		if res.Unavailable {
			stats.SourcesSkipped++
			logger.Warn("source skipped", zap.String("source", res.Source), zap.Error(errs[i]))
			continue
		}
		if errs[i] == nil || res.Lines > 0 {
			usable++
		}
		stats.LinesRead += res.Lines
		stats.LinesUndecodable += res.Undecodable
		stats.MalformedTimestamps += res.Malformed
		stats.UnattributedContinuation += res.Unattributed
	}

	report := committer.Results(Window(results, year), stats)
	logger.Info("scan finished",
		zap.Int("lines", stats.LinesRead),
		zap.Int("admitted", report.Stats.EventsAdmitted),
		zap.Int("duplicates", report.Stats.DuplicatesRejected),
		zap.Int("skipped_sources", stats.SourcesSkipped),
	)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if usable == 0 {
		return report, ErrNoUsableSource
	}
	return report, nil
}
