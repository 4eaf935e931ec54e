package processor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/pshmarlow/scripts-demos/pkg/converter"
	"github.com/pshmarlow/scripts-demos/pkg/parser"
	"github.com/pshmarlow/scripts-demos/pkg/pluginsdk"
	"github.com/pshmarlow/scripts-demos/pkg/source"
	"github.com/pshmarlow/scripts-demos/types"
	"github.com/stretchr/testify/require"
)

const (
	oomLine     = "Jan  1 10:00:00 host OutOfMemoryMonitor[1]: Discovered out-of-memory error for svcA(type=heap)"
	oomLineB    = "Jan  1 10:00:07 host OutOfMemoryMonitor[1]: Discovered out-of-memory error for svcB(type=heap)"
	badOOMLine  = "Feb 30 10:00:00 host OutOfMemoryMonitor[1]: Discovered out-of-memory error for svcA(type=heap)"
	txHeadLine  = "Jan  2 09:00:00 host [hostcontext.hostcontext] [T1/SequentialWorker] com.q1labs.hostcontext.tx.TxSentry: [INFO] Found unmanaged process on host 10.0.0.1: /usr/bin/httpd, pid=123, since 5 min"
	txQueryLine = "Jan  2 09:00:01 host [hostcontext.hostcontext] [T1/SequentialWorker] com.q1labs.hostcontext.tx.TxSentry: [INFO] TX on host 10.0.0.1: pid=123 age=600 query='select * from events'"
	noiseLine   = "Jan  2 09:00:02 host sshd[9]: Accepted publickey for root"
	badDateOOM  = "Foo  1 10:00:00 host OutOfMemoryMonitor[1]: Discovered out-of-memory error for svcB(type=heap)"
)

type recorder struct {
	events []types.Event
	onAdd  func()
}

func (r *recorder) Process(evt types.Event) error {
	r.events = append(r.events, evt)
	if r.onAdd != nil {
		r.onAdd()
	}
	return nil
}

func pipeline(sink EventProcessor, lines ...string) *Pipeline {
	return &Pipeline{
		Registry: parser.DefaultRegistry(),
		Options:  converter.Options{Year: 2024},
		Source:   source.Lines{Label: "test", Data: lines},
		Sink:     sink,
		Logger:   zap.NewNop(),
	}
}

func TestPipelineCorrelatesTxSentry(t *testing.T) {
	rec := &recorder{}
	res, err := pipeline(rec, txHeadLine, noiseLine, txQueryLine).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, res.Lines)
	require.Len(t, rec.events, 1)

	evt := rec.events[0]
	require.Equal(t, types.KindTxSentry, evt.Kind)
	require.Equal(t, "/usr/bin/httpd", evt.Field("service"))
	require.Equal(t, "select * from events", evt.Field("query"))
	require.Equal(t, "T1", evt.ThreadKey)
	require.Equal(t, 1, evt.Line)
}

func TestPipelineUnrelatedKindResetsTxSentry(t *testing.T) {
	rec := &recorder{}
	res, err := pipeline(rec, txHeadLine, oomLine, txQueryLine).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Unattributed)
	require.Len(t, rec.events, 2)

	require.Equal(t, types.KindTxSentry, rec.events[0].Kind)
	require.Empty(t, rec.events[0].Field("query"))
	require.Equal(t, types.KindOOM, rec.events[1].Kind)
}

func TestMalformedLineDoesNotResetTxSentry(t *testing.T) {
	rec := &recorder{}
	res, err := pipeline(rec, txHeadLine, badDateOOM, txQueryLine).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Malformed)
	require.Zero(t, res.Unattributed)
	require.Len(t, rec.events, 1)

	require.Equal(t, types.KindTxSentry, rec.events[0].Kind)
	require.Equal(t, "select * from events", rec.events[0].Field("query"))
}

func TestUnattributedMetricCountsLines(t *testing.T) {
	metrics := pluginsdk.NewCounterMetrics()
	p := pipeline(&recorder{}, txHeadLine, oomLine, txQueryLine, txQueryLine, txQueryLine)
	p.Metrics = metrics

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, res.Unattributed)
	require.Equal(t, 3, metrics.Count(MetricUnattributed, nil))
	require.Equal(t, 3, metrics.Count(MetricUnattributed, map[string]string{"kind": "TxSentry"}))
}

func TestPipelineMalformedTimestamp(t *testing.T) {
	rec := &recorder{}
	res, err := pipeline(rec, badOOMLine, oomLine).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Malformed)
	require.Len(t, rec.events, 1)
}

func TestPipelineCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &recorder{onAdd: cancel}

	_, err := pipeline(rec, oomLine, txHeadLine, oomLineB).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, rec.events, 1, "pending and later lines are dropped")
	require.Equal(t, "svcA", rec.events[0].Field("service"))
}

func TestPipelineUnavailableSource(t *testing.T) {
	p := pipeline(&recorder{})
	p.Source = source.NewFile(filepath.Join(t.TempDir(), "missing.log"))
	metrics := pluginsdk.NewCounterMetrics()
	p.Metrics = metrics

	res, err := p.Run(context.Background())
	require.ErrorIs(t, err, source.ErrSourceUnavailable)
	require.True(t, res.Unavailable)
	require.Equal(t, 1, metrics.Count(MetricSourcesSkipped, nil))
}

func TestPipelineWindowStamps(t *testing.T) {
	lines := []string{"no stamp", oomLine}
	for i := 0; i < 300; i++ {
		lines = append(lines, noiseLine)
	}
	lines = append(lines, "Jan  9 23:59:59 host last line", "trailer")

	res, err := pipeline(&recorder{}, lines...).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Jan  1 10:00:00", res.FirstStamp)
	tail, ok := res.TailStamp()
	require.True(t, ok)
	require.Equal(t, "Jan  9 23:59:59", tail)

	far := Result{LastStamp: "Jan  1 00:00:00", LastStampLine: 1, TotalLines: 500}
	_, ok = far.TailStamp()
	require.False(t, ok)
}

func TestCommitterRejectsDuplicates(t *testing.T) {
	reg := parser.DefaultRegistry()
	metrics := pluginsdk.NewCounterMetrics()
	c := NewCommitter(reg, metrics)

	var pipelines []*Pipeline
	for i := 0; i < 4; i++ {
		p := pipeline(c, oomLine, oomLineB)
		p.Index = i
		p.Source = source.Lines{Label: fmt.Sprintf("src-%d", i), Data: []string{oomLine, oomLineB}}
		p.Metrics = metrics
		pipelines = append(pipelines, p)
	}
	results, errs := NewProcessorManager(3).RunAll(context.Background(), pipelines)
	for i := range pipelines {
		require.NoError(t, errs[i])
		require.Equal(t, 2, results[i].Lines)
	}

	report := c.Results(nil, types.Stats{})
	require.Equal(t, 2, report.Stats.EventsAdmitted)
	require.Equal(t, 6, report.Stats.DuplicatesRejected)
	require.Equal(t, 6, metrics.Count(MetricDuplicatesRejected, map[string]string{"kind": "OOM"}))
	require.Equal(t, 8, metrics.Count(MetricLinesRead, nil))

	oom, _ := report.Kind(types.KindOOM)
	require.Len(t, oom.Data, 2)
	require.Equal(t, "svcA", oom.Data[0]["service"])
	require.Equal(t, "svcB", oom.Data[1]["service"])
}

func TestCommitterKeepsFirstScannedDuplicate(t *testing.T) {
	const (
		svcY = "Jan  1 10:00:00 host OutOfMemoryMonitor[1]: Discovered out-of-memory error for svcY(type=heap)"
		svcX = "Jan  1 10:00:00 host OutOfMemoryMonitor[1]: Discovered out-of-memory error for svcX(type=heap)"
	)
	services := func(order ...int) []string {
		c := NewCommitter(parser.DefaultRegistry(), nil)
		sources := [][]string{{svcY, svcX}, {svcY}}
		for _, i := range order {
			p := pipeline(c, sources[i]...)
			p.Index = i
			_, err := p.Run(context.Background())
			require.NoError(t, err)
		}
		oom, _ := c.Results(nil, types.Stats{}).Kind(types.KindOOM)
		var out []string
		for _, rec := range oom.Data {
			out = append(out, rec["id"]+"="+rec["service"])
		}
		return out
	}

	require.Equal(t, []string{"0=svcY", "1=svcX"}, services(0, 1))
	require.Equal(t, services(0, 1), services(1, 0), "a later source finishing first changes nothing")
}

func TestManagerSkipsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, errs := NewProcessorManager(1).RunAll(ctx, []*Pipeline{pipeline(&recorder{}, oomLine)})
	require.True(t, errors.Is(errs[0], context.Canceled))
	require.Equal(t, "test", results[0].Source)
	require.Equal(t, 1, NewProcessorManager(0).Workers())
}
