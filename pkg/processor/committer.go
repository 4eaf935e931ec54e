package processor

import (
	"sync/atomic"

	"github.com/pshmarlow/scripts-demos/pkg/dedup"
	"github.com/pshmarlow/scripts-demos/pkg/parser"
	"github.com/pshmarlow/scripts-demos/pkg/pluginsdk"
	"github.com/pshmarlow/scripts-demos/pkg/store"
	"github.com/pshmarlow/scripts-demos/types"
)

// Committer admits each event identity once into the shared store. It is
// shared by all pipelines of a run.
type Committer struct {
	reg     *parser.Registry
	seen    *dedup.SeenKeySet
	store   *store.Store
	metrics pluginsdk.Metrics

	admitted atomic.Int64
	rejected atomic.Int64
}

// NewCommitter returns a Committer with an empty key set and store.
func NewCommitter(reg *parser.Registry, metrics pluginsdk.Metrics) *Committer {
	if metrics == nil {
		metrics = pluginsdk.NoopMetrics{}
	}
	return &Committer{
		reg:     reg,
		seen:    dedup.NewSeenKeySet(),
		store:   store.New(reg),
		metrics: metrics,
	}
}

// Process admits evt unless an event with the same identity was seen. Among
// duplicates the store keeps the copy scanned first, so the report does not
// depend on which pipeline got there first.
func (c *Committer) Process(evt types.Event) error {
	spec, _ := c.reg.Spec(evt.Kind)
	labels := map[string]string{"kind": string(evt.Kind)}
	key := dedup.KeyOf(evt, spec.Discriminators)
	if c.seen.Admit(key) {
		c.admitted.Add(1)
		c.metrics.IncCounter(MetricEventsAdmitted, labels)
	} else {
		c.rejected.Add(1)
		c.metrics.IncCounter(MetricDuplicatesRejected, labels)
	}
	c.store.Put(key, evt)
	return nil
}

// Results finalizes the store.
func (c *Committer) Results(window *types.Window, stats types.Stats) types.Report {
	stats.EventsAdmitted = int(c.admitted.Load())
	stats.DuplicatesRejected = int(c.rejected.Load())
	return c.store.Finalize(window, stats)
}
