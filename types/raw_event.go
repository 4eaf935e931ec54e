package types

// RawMatch is a classified but not yet converted log line: the kind whose
// rule matched and the named captures that rule produced. Fields always
// carry FieldDate; the rest depends on the kind.
type RawMatch struct {
	Kind   Kind
	Fields map[string]string
	// Source and Line locate the originating line within the run.
	Source int
	Line   int
}
