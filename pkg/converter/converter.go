package converter

import (
	"fmt"

	"github.com/pshmarlow/scripts-demos/lib"
	"github.com/pshmarlow/scripts-demos/pkg/parser"
	"github.com/pshmarlow/scripts-demos/types"
)

// Options controls conversion of matches into events.
type Options struct {
	// Year anchors yearless log dates. It must be set by the caller.
	Year int
}

// Convert turns a classified line into an Event. The date field is
// normalized with the anchor year and removed from the field set; the
// correlation key, when the kind has one, moves to Event.ThreadKey.
func Convert(m types.RawMatch, spec parser.KindSpec, opts Options) (types.Event, error) {
	if opts.Year <= 0 {
		return types.Event{}, fmt.Errorf("convert %s: anchor year not set", m.Kind)
	}
	ts, err := lib.ParseLogTimestamp(m.Fields[types.FieldDate], opts.Year)
	if err != nil {
		return types.Event{}, fmt.Errorf("convert %s: %w", m.Kind, err)
	}
	evt := types.Event{
		Kind:      m.Kind,
		Timestamp: ts,
		Fields:    make(map[string]string, len(m.Fields)),
		Source:    m.Source,
		Line:      m.Line,
	}
	keyField := ""
	if spec.Correlation != nil {
		keyField = spec.Correlation.Key
	}
	for k, v := range m.Fields {
		switch k {
		case types.FieldDate:
			continue
		case keyField:
			evt.ThreadKey = v
			continue
		}
		evt.Fields[k] = v
	}
	return evt, nil
}

// FromMatch wraps a parser.Match with its scan position.
func FromMatch(m parser.Match, source, line int) types.RawMatch {
	return types.RawMatch{Kind: m.Kind, Fields: m.Fields, Source: source, Line: line}
}
