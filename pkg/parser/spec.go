package parser

import (
	"errors"
	"fmt"

	"github.com/pshmarlow/scripts-demos/types"
)

// CorrelationSpec describes how head and continuation lines of a kind are
// stitched together.
type CorrelationSpec struct {
	// Primary is the field whose presence marks a head line.
	Primary string `yaml:"primary"`
	// Secondary is the field a continuation line contributes.
	Secondary string `yaml:"secondary"`
	// Key is the field matching a continuation to its head.
	Key string `yaml:"key"`
	// ResetOnUnrelated finalizes the pending event as soon as a line of any
	// other kind is classified.
	ResetOnUnrelated bool `yaml:"reset_on_unrelated"`
}

// KindSpec is the static configuration of one event kind.
type KindSpec struct {
	Kind types.Kind
	// Rules are tried in order; the first match wins for this kind.
	Rules []Rule
	// Discriminators are the fields that, with timestamp and kind, form the
	// identity key used for deduplication.
	Discriminators []string
	// Headers are the export columns.
	Headers []types.Header
	// Correlation is nil for kinds extracted from a single line.
	Correlation *CorrelationSpec
	// Keywords gate the rules: when set, at least one must occur in the line.
	Keywords []string
}

// Correlating reports whether the kind needs multi-line assembly.
func (s KindSpec) Correlating() bool { return s.Correlation != nil }

// Validate checks the spec is usable.
func (s KindSpec) Validate() error {
	if s.Kind == "" {
		return errors.New("kind spec without name")
	}
	if len(s.Rules) == 0 {
		return fmt.Errorf("kind %s: no rules", s.Kind)
	}
	for i, r := range s.Rules {
		if r == nil {
			return fmt.Errorf("kind %s: rule %d is nil", s.Kind, i)
		}
	}
	if c := s.Correlation; c != nil {
		if c.Primary == "" || c.Secondary == "" || c.Key == "" {
			return fmt.Errorf("kind %s: correlation needs primary, secondary and key fields", s.Kind)
		}
	}
	for _, h := range s.Headers {
		if h.Key == "" {
			return fmt.Errorf("kind %s: header %q without key", s.Kind, h.Header)
		}
	}
	return nil
}
