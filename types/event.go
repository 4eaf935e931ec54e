package types

import (
	"bytes"
	"encoding/json"
	"time"
)

// Event is a converted log occurrence of one kind.
type Event struct {
	Kind      Kind
	Timestamp time.Time
	Fields    map[string]string

	// ThreadKey links a continuation line to its head. Never exported.
	ThreadKey string
	// Source and Line are the scan position, used to break timestamp ties.
	Source int
	Line   int
}

// Field returns the named field or "".
func (e Event) Field(name string) string {
	if e.Fields == nil {
		return ""
	}
	return e.Fields[name]
}

// Clone returns a copy whose Fields map is not shared with e.
func (e Event) Clone() Event {
	out := e
	out.Fields = make(map[string]string, len(e.Fields))
	for k, v := range e.Fields {
		out.Fields[k] = v
	}
	return out
}

// Record is one exported row: kind fields plus time_date and id.
type Record map[string]string

// Header is an export column: the record key and its display label.
type Header struct {
	Key    string `json:"key" yaml:"key" bson:"key"`
	Header string `json:"header" yaml:"header" bson:"header"`
}

// KindReport is the exported table of one kind.
type KindReport struct {
	Kind    Kind     `json:"-"`
	Data    []Record `json:"data"`
	Headers []Header `json:"headers"`
}

// Window bounds the processed log period.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MarshalJSON renders both bounds without zone, matching the yearless input logs.
func (w Window) MarshalJSON() ([]byte, error) {
	const layout = "2006-01-02T15:04:05"
	return json.Marshal(map[string]string{
		"start": w.Start.Format(layout),
		"end":   w.End.Format(layout),
	})
}

// Stats counts the recoverable conditions met during a run.
type Stats struct {
	Sources                  int `json:"sources"`
	SourcesSkipped           int `json:"sources_skipped"`
	LinesRead                int `json:"lines_read"`
	LinesUndecodable         int `json:"lines_undecodable"`
	MalformedTimestamps      int `json:"malformed_timestamps"`
	DuplicatesRejected       int `json:"duplicates_rejected"`
	UnattributedContinuation int `json:"unattributed_continuations"`
	EventsAdmitted           int `json:"events_admitted"`
}

// Report is the final per-kind export of a run.
type Report struct {
	Metadata *Window
	Kinds    []KindReport
	Stats    Stats
}

// Kind returns the table for k.
func (r Report) Kind(k Kind) (KindReport, bool) {
	for _, kr := range r.Kinds {
		if kr.Kind == k {
			return kr, true
		}
	}
	return KindReport{}, false
}

// Empty reports whether no kind holds any record.
func (r Report) Empty() bool {
	for _, kr := range r.Kinds {
		if len(kr.Data) > 0 {
			return false
		}
	}
	return true
}

// MarshalJSON writes {"metadata": ..., "<Kind>": {"data": ..., "headers": ...}, ...}
// keeping kinds in report order.
func (r Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	writeKey := func(key string, v interface{}) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, _ := json.Marshal(key)
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(b)
		return nil
	}
	if r.Metadata != nil {
		if err := writeKey("metadata", r.Metadata); err != nil {
			return nil, err
		}
	}
	for _, kr := range r.Kinds {
		if kr.Data == nil {
			kr.Data = []Record{}
		}
		if err := writeKey(string(kr.Kind), kr); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
