// Package store collects admitted events and renders the final report.
package store

import (
	"sort"
	"strconv"
	"sync"

	"github.com/pshmarlow/scripts-demos/lib"
	"github.com/pshmarlow/scripts-demos/pkg/dedup"
	"github.com/pshmarlow/scripts-demos/pkg/parser"
	"github.com/pshmarlow/scripts-demos/types"
)

// internal fields never reach an exported record.
var internal = map[string]bool{
	types.FieldDate:      true,
	types.FieldThreadKey: true,
}

// Store is safe for concurrent Add and Put calls.
type Store struct {
	reg *parser.Registry

	mu     sync.Mutex
	events map[types.Kind][]types.Event
	extra  []types.Kind
	slots  map[dedup.Key]int
}

func New(reg *parser.Registry) *Store {
	return &Store{
		reg:    reg,
		events: make(map[types.Kind][]types.Event),
		slots:  make(map[dedup.Key]int),
	}
}

// Add appends ev to its kind's sequence.
func (s *Store) Add(ev types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(ev)
}

// Put stores ev under key. If key is already held, the copy that comes first
// in scan order (source, then line) is kept, whatever order the copies
// arrived in.
func (s *Store) Put(key dedup.Key, ev types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.slots[key]; ok {
		if held := s.events[ev.Kind][i]; scansBefore(ev, held) {
			s.events[ev.Kind][i] = ev
		}
		return
	}
	s.slots[key] = s.add(ev)
}

func (s *Store) add(ev types.Event) int {
	if _, known := s.reg.Spec(ev.Kind); !known {
		if _, seen := s.events[ev.Kind]; !seen {
			s.extra = append(s.extra, ev.Kind)
		}
	}
	s.events[ev.Kind] = append(s.events[ev.Kind], ev)
	return len(s.events[ev.Kind]) - 1
}

func scansBefore(a, b types.Event) bool {
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	return a.Line < b.Line
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, evs := range s.events {
		n += len(evs)
	}
	return n
}

// Finalize sorts every kind by timestamp, then by scan position, numbers the
// records from zero and renders them with the kind's headers. Every registry
// kind is present in the report, in registry order, even when empty.
func (s *Store) Finalize(window *types.Window, stats types.Stats) types.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := types.Report{Metadata: window, Stats: stats}
	for _, spec := range s.reg.Specs() {
		report.Kinds = append(report.Kinds, render(spec.Kind, spec.Headers, s.events[spec.Kind]))
	}
	for _, k := range s.extra {
		report.Kinds = append(report.Kinds, render(k, nil, s.events[k]))
	}
	return report
}

func render(kind types.Kind, headers []types.Header, evs []types.Event) types.KindReport {
	sorted := make([]types.Event, len(evs))
	copy(sorted, evs)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return scansBefore(a, b)
	})

	kr := types.KindReport{
		Kind:    kind,
		Data:    make([]types.Record, 0, len(sorted)),
		Headers: append([]types.Header(nil), headers...),
	}
	for i, ev := range sorted {
		rec := make(types.Record, len(ev.Fields)+2)
		for k, v := range ev.Fields {
			if !internal[k] {
				rec[k] = v
			}
		}
		rec[types.FieldTimeDate] = lib.FormatTimeDate(ev.Timestamp)
		rec[types.FieldID] = strconv.Itoa(i)
		kr.Data = append(kr.Data, rec)
	}
	return kr
}
