package processor

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/pshmarlow/scripts-demos/lib"
	"github.com/pshmarlow/scripts-demos/pkg/converter"
	"github.com/pshmarlow/scripts-demos/pkg/correlator"
	"github.com/pshmarlow/scripts-demos/pkg/logging"
	"github.com/pshmarlow/scripts-demos/pkg/parser"
	"github.com/pshmarlow/scripts-demos/pkg/pluginsdk"
	"github.com/pshmarlow/scripts-demos/pkg/source"
	"github.com/pshmarlow/scripts-demos/types"
)

// Metric names emitted by pipelines and the committer.
const (
	MetricLinesRead           = "lines_read"
	MetricLinesUndecodable    = "lines_undecodable"
	MetricMalformedTimestamps = "malformed_timestamps"
	MetricUnattributed        = "unattributed_continuations"
	MetricEventsAdmitted      = "events_admitted"
	MetricDuplicatesRejected  = "duplicates_rejected"
	MetricSourcesSkipped      = "sources_skipped"
)

// AnchorLines is how far from either end of a source leading timestamps are
// looked for when bounding the processed window.
const AnchorLines = 200

// Result summarizes one source scan.
type Result struct {
	Source string
	// Unavailable is set when the source could not be opened.
	Unavailable bool

	Lines        int
	Undecodable  int
	Malformed    int
	Unattributed int

	// FirstStamp is the first leading timestamp within the first AnchorLines
	// lines; LastStamp is the last leading timestamp of the source, found
	// on line LastStampLine.
	FirstStamp    string
	LastStamp     string
	LastStampLine int
	// TotalLines is the physical line count, undecodable lines included.
	TotalLines int
}

// TailStamp returns LastStamp when it lies within the last AnchorLines lines.
func (r Result) TailStamp() (string, bool) {
	if r.LastStamp == "" || r.TotalLines-r.LastStampLine >= AnchorLines {
		return "", false
	}
	return r.LastStamp, true
}

// Pipeline scans one source strictly in order: classify, convert,
// correlate, then hand finalized events to Sink.
type Pipeline struct {
	Registry *parser.Registry
	Options  converter.Options
	Source   source.Source
	// Index orders this source among the run's sources.
	Index    int
	Encoding string
	Sink     EventProcessor
	Logger   *zap.Logger
	Metrics  pluginsdk.Metrics
}

// Run scans the source. On cancellation it stops after the current line,
// drops pending correlations and returns ctx.Err().
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	logger := logging.OrNop(p.Logger).With(zap.String("source", p.Source.Name()))
	metrics := p.Metrics
	if metrics == nil {
		metrics = pluginsdk.NoopMetrics{}
	}
	res := Result{Source: p.Source.Name()}

	rd, err := source.Open(p.Source, source.Options{
		Encoding: p.Encoding,
		OnWarning: func(err error) {
			if errors.Is(err, source.ErrLineDecode) {
				metrics.IncCounter(MetricLinesUndecodable, nil)
			}
			logger.Warn("source warning", zap.Error(err))
		},
	})
	if err != nil {
		res.Unavailable = true
		metrics.IncCounter(MetricSourcesSkipped, nil)
		return res, err
	}
	defer rd.Close()

	machine := correlator.New(p.Registry)
	commit := func(evts ...types.Event) {
		for _, evt := range evts {
			if err := p.Sink.Process(evt); err != nil {
				logger.Error("commit event", zap.String("kind", string(evt.Kind)), zap.Error(err))
			}
		}
	}
	finish := func() {
		res.Undecodable = rd.Skipped()
		res.Unattributed = machine.Unattributed()
		res.TotalLines = rd.LineNo()
	}

	for rd.Next() {
		if err := ctx.Err(); err != nil {
			machine.Discard()
			finish()
			return res, err
		}
		line, lineNo := rd.Line(), rd.LineNo()
		res.Lines++
		metrics.IncCounter(MetricLinesRead, nil)

		if ts, ok := lib.LeadingTimestamp(line); ok {
			if res.FirstStamp == "" && lineNo <= AnchorLines {
				res.FirstStamp = ts
			}
			res.LastStamp, res.LastStampLine = ts, lineNo
		}

		for _, m := range p.Registry.Classify(line) {
			spec, _ := p.Registry.Spec(m.Kind)
			evt, err := converter.Convert(converter.FromMatch(m, p.Index, lineNo), spec, p.Options)
			if err != nil {
				// not a classified line: pending correlations survive it
				res.Malformed++
				metrics.IncCounter(MetricMalformedTimestamps, map[string]string{"kind": string(m.Kind)})
				logger.Debug("skip line", zap.Int("line", lineNo), zap.Error(err))
				continue
			}
			commit(machine.Interrupt(m.Kind)...)
			dropped := machine.Unattributed()
			if out, ok := machine.Observe(evt); ok {
				commit(out)
			}
			if machine.Unattributed() > dropped {
				metrics.IncCounter(MetricUnattributed, map[string]string{"kind": string(m.Kind)})
			}
		}
	}
	commit(machine.Flush()...)
	finish()
	if n := res.Unattributed; n > 0 {
		logger.Info("unattributed continuation lines dropped", zap.Int("count", n))
	}
	if err := rd.Err(); err != nil {
		logger.Warn("source ended early", zap.Int("lines", res.Lines), zap.Error(err))
	}
	logger.Debug("source done", zap.Int("lines", res.Lines), zap.Int("malformed", res.Malformed))
	return res, nil
}
