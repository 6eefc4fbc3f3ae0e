package rewrite

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gnoswap-labs/symrw/internal/parser"
)

// Combination modes of a rule file.
const (
	ModeSequence = "sequence"
	ModeFirst    = "first"
)

// RuleSpec declares one natural rule in a rule file.
type RuleSpec struct {
	Name     string `yaml:"name"`
	Pattern  string `yaml:"pattern"`
	Vars     string `yaml:"vars,omitempty"`
	Outcome  string `yaml:"outcome"`
	BottomUp bool   `yaml:"bottom_up,omitempty"`
	Path     []int  `yaml:"path,omitempty"`
}

// File is a rule file. Its rules are combined in order as a sequence, or
// as a first-match choice.
type File struct {
	Mode     string     `yaml:"mode,omitempty"`
	BottomUp bool       `yaml:"bottom_up,omitempty"`
	Rules    []RuleSpec `yaml:"rules"`
}

// LoadFile reads and builds a rule file.
func LoadFile(path string, p *parser.Parser, opts ...Option) (Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := Decode(data, p, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Decode parses YAML rule file data and builds it. opts are applied to
// every rule in the file.
func Decode(data []byte, p *parser.Parser, opts ...Option) (Rule, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.Build(p, opts...)
}

// Build parses every rule of f with p and combines them.
func (f *File) Build(p *parser.Parser, opts ...Option) (Rule, error) {
	rules := make([]Rule, 0, len(f.Rules))
	for i, spec := range f.Rules {
		r, err := spec.Build(p, opts...)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		rules = append(rules, r)
	}

	combined := append([]Option(nil), opts...)
	if f.BottomUp {
		combined = append(combined, BottomUp())
	}
	switch f.Mode {
	case "", ModeSequence:
		return Seq(rules, combined...), nil
	case ModeFirst:
		return First(rules, combined...), nil
	}
	return nil, fmt.Errorf("unknown rule file mode %q (want %s or %s)", f.Mode, ModeSequence, ModeFirst)
}

// Build parses the pattern, outcome and variables of s with p.
func (s RuleSpec) Build(p *parser.Parser, opts ...Option) (*Natural, error) {
	if s.Pattern == "" {
		return nil, fmt.Errorf("%q: missing pattern", s.Name)
	}
	pattern, err := p.ParseOne(s.Pattern)
	if err != nil {
		return nil, fmt.Errorf("%q: pattern: %w", s.Name, err)
	}
	outcome, err := p.ParseOne(s.Outcome)
	if err != nil {
		return nil, fmt.Errorf("%q: outcome: %w", s.Name, err)
	}
	vars, err := ParseVars(p, s.Vars)
	if err != nil {
		return nil, fmt.Errorf("%q: vars: %w", s.Name, err)
	}

	ropts := append(append([]Option(nil), opts...), Named(s.Name))
	if s.BottomUp {
		ropts = append(ropts, BottomUp())
	}
	if s.Path != nil {
		ropts = append(ropts, AtPath(s.Path...))
	}
	return NewNatural(pattern, vars, outcome, ropts...)
}
