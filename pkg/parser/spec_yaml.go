package parser

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pshmarlow/scripts-demos/lib"
	"github.com/pshmarlow/scripts-demos/types"
)

type specFile struct {
	Kinds []kindYAML `yaml:"kinds"`
}

type kindYAML struct {
	Kind           string           `yaml:"kind"`
	Keywords       []string         `yaml:"keywords"`
	Discriminators *[]string        `yaml:"discriminators"`
	Headers        []headerYAML     `yaml:"headers"`
	Rules          []ruleYAML       `yaml:"rules"`
	Correlation    *CorrelationSpec `yaml:"correlation"`
}

type headerYAML struct {
	Key    string `yaml:"key"`
	Header string `yaml:"header"`
}

type ruleYAML struct {
	Pattern  string            `yaml:"pattern"`
	Required []string          `yaml:"required"`
	Set      map[string]string `yaml:"set"`
}

// SpecOverride is a partial KindSpec read from a rule file. Nil or empty
// members leave the base spec untouched.
type SpecOverride struct {
	Kind           types.Kind
	Keywords       []string
	Discriminators *[]string
	Headers        []types.Header
	Rules          []Rule
	Correlation    *CorrelationSpec
}

// LoadSpecsYAML reads kind overrides from a YAML rule file:
//
//	kinds:
//	  - kind: OOM
//	    keywords: [OutOfMemoryMonitor]
//	    discriminators: [service]
//	    headers:
//	      - {key: time_date, header: Time/Date}
//	      - {header: Service Name}
//	    rules:
//	      - pattern: '(?P<date>\w{3}\s+\d+\s+\d+:\d+:\d+).*OOM in (?P<service>\S+)'
//	        required: [service]
func LoadSpecsYAML(r io.Reader) ([]SpecOverride, error) {
	var raw specFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode rule file: %w", err)
	}
	out := make([]SpecOverride, 0, len(raw.Kinds))
	for i, k := range raw.Kinds {
		if k.Kind == "" {
			return nil, fmt.Errorf("rule file: entry %d has no kind", i)
		}
		ov := SpecOverride{
			Kind:           types.Kind(k.Kind),
			Keywords:       k.Keywords,
			Discriminators: k.Discriminators,
			Correlation:    k.Correlation,
		}
		for _, h := range k.Headers {
			key := h.Key
			if key == "" {
				key = lib.HeaderKey(h.Header)
			}
			ov.Headers = append(ov.Headers, types.Header{Key: key, Header: h.Header})
		}
		for j, ry := range k.Rules {
			rule, err := NewRegexRule(ry.Pattern, ry.Required...)
			if err != nil {
				return nil, fmt.Errorf("rule file: kind %s rule %d: %w", k.Kind, j, err)
			}
			if len(ry.Set) > 0 {
				rule.WithSet(ry.Set)
			}
			ov.Rules = append(ov.Rules, rule)
		}
		out = append(out, ov)
	}
	return out, nil
}

// LoadSpecsFile is LoadSpecsYAML over a file path.
func LoadSpecsFile(path string) ([]SpecOverride, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rule file: %w", err)
	}
	defer f.Close()
	return LoadSpecsYAML(f)
}

// Merge applies overrides to base. Overrides for unknown kinds are appended
// as new kinds; they must then carry at least one rule.
func Merge(base []KindSpec, overrides []SpecOverride) []KindSpec {
	out := make([]KindSpec, len(base))
	copy(out, base)
	pos := make(map[types.Kind]int, len(out))
	for i, s := range out {
		pos[s.Kind] = i
	}
	for _, ov := range overrides {
		i, ok := pos[ov.Kind]
		if !ok {
			out = append(out, KindSpec{Kind: ov.Kind})
			i = len(out) - 1
			pos[ov.Kind] = i
		}
		s := out[i]
		if len(ov.Rules) > 0 {
			s.Rules = ov.Rules
		}
		if len(ov.Keywords) > 0 {
			s.Keywords = ov.Keywords
		}
		if ov.Discriminators != nil {
			s.Discriminators = *ov.Discriminators
		}
		if len(ov.Headers) > 0 {
			s.Headers = ov.Headers
		}
		if ov.Correlation != nil {
			s.Correlation = ov.Correlation
		}
		if len(s.Headers) == 0 {
			s.Headers = []types.Header{timeDateHeader}
		}
		out[i] = s
	}
	return out
}

// RegistryFromFile builds a Registry from the defaults plus the rule file at
// path. An empty path yields the default registry.
func RegistryFromFile(path string) (*Registry, error) {
	if path == "" {
		return NewRegistry(DefaultSpecs()...)
	}
	ovs, err := LoadSpecsFile(path)
	if err != nil {
		return nil, err
	}
	return NewRegistry(Merge(DefaultSpecs(), ovs)...)
}
