// Package correlator stitches multi-line events together during a linear scan
// of one source.
//
// A correlating kind has a head line carrying its primary field (TxSentry:
// the service that was found) and continuation lines carrying a secondary
// field (TxSentry: the query) plus a correlation key (the worker thread).
// Per kind the machine is either Idle or Pending(key, event):
//
//	Idle        --head-->          Pending(k, e)
//	Pending     --head-->          Pending(k', e')   emits e
//	Pending(k)  --continuation k-->  Pending(k, e+secondary)
//	Pending(k)  --continuation k'--> Pending(k, e)   drops the line
//	Idle        --continuation-->  Idle              drops the line
//	Pending     --unrelated-->     Idle              emits e   (ResetOnUnrelated only)
//	Pending     --end of input-->  Idle              emits e
//
// Lines that classify into no kind at all never touch the machine. A
// Machine belongs to exactly one source; correlation never crosses files.
package correlator

import (
	"github.com/pshmarlow/scripts-demos/pkg/parser"
	"github.com/pshmarlow/scripts-demos/types"
)

type pending struct {
	key   string
	event types.Event
}

// Machine tracks at most one pending event per correlating kind.
type Machine struct {
	specs   map[types.Kind]parser.CorrelationSpec
	order   []types.Kind
	pending map[types.Kind]*pending

	unattributed int
	merged       int
}

// New returns a Machine for the correlating kinds of reg.
func New(reg *parser.Registry) *Machine {
	m := &Machine{
		specs:   make(map[types.Kind]parser.CorrelationSpec),
		pending: make(map[types.Kind]*pending),
	}
	for _, s := range reg.Specs() {
		if !s.Correlating() {
			continue
		}
		m.specs[s.Kind] = *s.Correlation
		m.order = append(m.order, s.Kind)
	}
	return m
}

// Observe feeds one converted event. It returns an event ready to be
// committed, if any: the event itself for non-correlating kinds, or the
// pending event a new head line evicted.
func (m *Machine) Observe(evt types.Event) (types.Event, bool) {
	spec, ok := m.specs[evt.Kind]
	if !ok {
		return evt, true
	}
	if evt.Field(spec.Primary) != "" {
		prev, had := m.take(evt.Kind)
		m.pending[evt.Kind] = &pending{key: evt.ThreadKey, event: evt.Clone()}
		return prev, had
	}
	p := m.pending[evt.Kind]
	secondary := evt.Field(spec.Secondary)
	if p == nil || secondary == "" || p.key != evt.ThreadKey {
		m.unattributed++
		return types.Event{}, false
	}
	p.event.Fields[spec.Secondary] = secondary
	m.merged++
	return types.Event{}, false
}

// Interrupt signals that a line of kind was classified. Pending events of
// other kinds that reset on unrelated lines are finalized and returned.
func (m *Machine) Interrupt(kind types.Kind) []types.Event {
	var out []types.Event
	for _, k := range m.order {
		if k == kind || !m.specs[k].ResetOnUnrelated {
			continue
		}
		if evt, ok := m.take(k); ok {
			out = append(out, evt)
		}
	}
	return out
}

// Flush finalizes every pending event at end of input.
func (m *Machine) Flush() []types.Event {
	var out []types.Event
	for _, k := range m.order {
		if evt, ok := m.take(k); ok {
			out = append(out, evt)
		}
	}
	return out
}

// Discard drops pending state without emitting it.
func (m *Machine) Discard() {
	for k := range m.pending {
		delete(m.pending, k)
	}
}

// Pending reports whether kind has an open event.
func (m *Machine) Pending(kind types.Kind) bool {
	return m.pending[kind] != nil
}

// Unattributed returns how many continuation lines were dropped.
func (m *Machine) Unattributed() int { return m.unattributed }

// Merged returns how many continuation lines were merged.
func (m *Machine) Merged() int { return m.merged }

func (m *Machine) take(kind types.Kind) (types.Event, bool) {
	p := m.pending[kind]
	if p == nil {
		return types.Event{}, false
	}
	delete(m.pending, kind)
	return p.event, true
}
