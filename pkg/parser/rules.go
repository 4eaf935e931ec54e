package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pshmarlow/scripts-demos/types"
)

// Rule is one matching strategy for a kind. Match returns the extracted
// fields, or false when the line does not match or lacks a required field.
type Rule interface {
	Match(line string) (map[string]string, bool)
}

// RegexRule matches a line against a regular expression with named groups.
// Every non-empty named group becomes a field.
type RegexRule struct {
	Pattern *regexp.Regexp
	// Required lists fields that must be captured and non-empty.
	// FieldDate is always required.
	Required []string
	// Set assigns fields after capture. Values are templates expanded
	// against the captured fields, e.g. "${cache} ${message}".
	Set map[string]string
}

// NewRegexRule compiles pattern into a RegexRule.
func NewRegexRule(pattern string, required ...string) (*RegexRule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", pattern, err)
	}
	names := make(map[string]bool)
	for _, n := range re.SubexpNames() {
		if n != "" {
			names[n] = true
		}
	}
	if !names[types.FieldDate] {
		return nil, fmt.Errorf("pattern %q has no (?P<%s>...) group", pattern, types.FieldDate)
	}
	for _, r := range required {
		if !names[r] {
			return nil, fmt.Errorf("pattern %q has no group for required field %q", pattern, r)
		}
	}
	return &RegexRule{Pattern: re, Required: required}, nil
}

// MustRegexRule is like NewRegexRule but panics on error.
func MustRegexRule(pattern string, required ...string) *RegexRule {
	r, err := NewRegexRule(pattern, required...)
	if err != nil {
		panic(err)
	}
	return r
}

// WithSet returns r with the given field templates.
func (r *RegexRule) WithSet(set map[string]string) *RegexRule {
	r.Set = set
	return r
}

// Match implements Rule.
func (r *RegexRule) Match(line string) (map[string]string, bool) {
	m := r.Pattern.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	fields := make(map[string]string, len(m))
	for i, name := range r.Pattern.SubexpNames() {
		if name == "" || i >= len(m) {
			continue
		}
		if v := strings.TrimSpace(m[i]); v != "" {
			fields[name] = v
		}
	}
	if fields[types.FieldDate] == "" {
		return nil, false
	}
	for _, req := range r.Required {
		if fields[req] == "" {
			return nil, false
		}
	}
	if len(r.Set) > 0 {
		captured := make(map[string]string, len(fields))
		for k, v := range fields {
			captured[k] = v
		}
		for k, tmpl := range r.Set {
			v := strings.TrimSpace(os.Expand(tmpl, func(name string) string { return captured[name] }))
			if v == "" {
				delete(fields, k)
				continue
			}
			fields[k] = v
		}
	}
	return fields, true
}

// String returns the pattern source.
func (r *RegexRule) String() string { return r.Pattern.String() }
