package parser

import (
	"fmt"
	"strings"

	"github.com/pshmarlow/scripts-demos/types"
)

// Match is one kind's classification of a line.
type Match struct {
	Kind   types.Kind
	Fields map[string]string
	// Rule is the index of the winning rule within the kind.
	Rule int
}

// Registry holds the kind specs in report order. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	specs []KindSpec
	index map[types.Kind]int
}

// NewRegistry validates specs and builds a Registry.
func NewRegistry(specs ...KindSpec) (*Registry, error) {
	r := &Registry{
		specs: make([]KindSpec, 0, len(specs)),
		index: make(map[types.Kind]int, len(specs)),
	}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.index[s.Kind]; dup {
			return nil, fmt.Errorf("kind %s declared twice", s.Kind)
		}
		r.index[s.Kind] = len(r.specs)
		r.specs = append(r.specs, s)
	}
	return r, nil
}

// Classify runs every kind's rules against line. Within a kind the first
// matching rule wins; several kinds may match the same line. Matches are
// returned in registry order.
func (r *Registry) Classify(line string) []Match {
	var out []Match
	for _, s := range r.specs {
		if !containsAny(line, s.Keywords) {
			continue
		}
		for i, rule := range s.Rules {
			fields, ok := rule.Match(line)
			if !ok {
				continue
			}
			out = append(out, Match{Kind: s.Kind, Fields: fields, Rule: i})
			break
		}
	}
	return out
}

// Spec returns the spec for kind.
func (r *Registry) Spec(kind types.Kind) (KindSpec, bool) {
	i, ok := r.index[kind]
	if !ok {
		return KindSpec{}, false
	}
	return r.specs[i], true
}

// Specs returns the specs in report order.
func (r *Registry) Specs() []KindSpec {
	out := make([]KindSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Kinds returns the kind names in report order.
func (r *Registry) Kinds() []types.Kind {
	out := make([]types.Kind, len(r.specs))
	for i, s := range r.specs {
		out[i] = s.Kind
	}
	return out
}

// Keywords returns the union of all kind keywords, in registry order, for
// building an external prefilter such as a zgrep -E alternation.
// It returns nil when some kind has no keywords and must see every line.
func (r *Registry) Keywords() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range r.specs {
		if len(s.Keywords) == 0 {
			return nil
		}
		for _, k := range s.Keywords {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

func containsAny(line string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	for _, k := range keywords {
		if strings.Contains(line, k) {
			return true
		}
	}
	return false
}
