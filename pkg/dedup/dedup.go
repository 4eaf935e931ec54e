// Package dedup rejects events already seen in an overlapping log window.
package dedup

import (
	"strconv"
	"strings"
	"sync"

	"github.com/pshmarlow/scripts-demos/types"
)

// Key identifies an event: second-precision timestamp, kind and the values of
// the kind's discriminator fields.
type Key string

// KeyOf builds the identity key of ev. Every component is length-prefixed so
// that distinct field values can never join into the same key.
func KeyOf(ev types.Event, discriminators []string) Key {
	var b strings.Builder
	write := func(s string) {
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	}
	write(string(ev.Kind))
	write(strconv.FormatInt(ev.Timestamp.Unix(), 10))
	for _, d := range discriminators {
		write(ev.Field(d))
	}
	return Key(b.String())
}

// SeenKeySet is the set of admitted keys shared by all pipelines of a run.
type SeenKeySet struct {
	mu   sync.Mutex
	seen map[Key]struct{}
}

// NewSeenKeySet returns an empty set.
func NewSeenKeySet() *SeenKeySet {
	return &SeenKeySet{seen: make(map[Key]struct{})}
}

// Admit records key and reports whether it was new. Exactly one of several
// concurrent callers with equal keys gets true.
func (s *SeenKeySet) Admit(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Len returns the number of admitted keys.
func (s *SeenKeySet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
