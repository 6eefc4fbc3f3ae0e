package config

import (
	"bytes"
	"io"
	"os"
	"sort"
	"unicode"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/gnoswap-labs/symrw/internal/expr"
)

// fallbackBindingPower is used when a spec declares no default pair.
var fallbackBindingPower = BindingPower{Left: 100, Right: 100}

// Spec is the serializable form of a Table.
type Spec struct {
	Default      *BindingPower           `yaml:"default,omitempty"`
	Operators    map[string]BindingPower `yaml:"operators,omitempty"`
	InfixPrefix  map[string]int          `yaml:"infix_prefix,omitempty"`
	SymbolOps    map[string]BindingPower `yaml:"symbol_operators,omitempty"`
	Bodied       map[string]int          `yaml:"bodied,omitempty"`
	Constructors map[string]string       `yaml:"constructors,omitempty"`
	Complement   map[string]string       `yaml:"complement,omitempty"`
	Categories   map[string][]string     `yaml:"categories,omitempty"`
}

// Load reads a YAML table from path.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read operator table %s", path)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "operator table %s", path)
	}
	return t, nil
}

// Parse decodes a YAML table. Unknown keys are rejected.
func Parse(data []byte) (*Table, error) {
	var spec Spec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "decode")
	}
	return spec.Build()
}

// Marshal encodes the spec as YAML.
func (s Spec) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Build validates the spec and freezes it into a Table. A malformed spec
// yields an error and no table.
func (s Spec) Build() (*Table, error) {
	t := &Table{
		defaultBP:    fallbackBindingPower,
		custom:       make(map[string]BindingPower, len(s.Operators)),
		infixPrefix:  make(map[string]int, len(s.InfixPrefix)),
		symbolOps:    make(map[string]BindingPower, len(s.SymbolOps)),
		bodied:       make(map[string]int, len(s.Bodied)),
		constructors: make(map[string]expr.Kind, len(s.Constructors)),
		complement:   make(map[string]string, len(s.Complement)),
		categories:   make(map[string][]string, len(s.Categories)),
	}

	if s.Default != nil {
		if err := checkPair("default", *s.Default); err != nil {
			return nil, err
		}
		t.defaultBP = *s.Default
	}
	for name, bp := range s.Operators {
		if !isOperatorSpelling(name) {
			return nil, errors.Errorf("operator %q must be spelled with %q (declare letter names under symbol_operators)", name, OperatorChars)
		}
		if err := checkPair(name, bp); err != nil {
			return nil, err
		}
		t.custom[name] = bp
	}
	for name, bp := range s.SymbolOps {
		if !isIdentifier(name) {
			return nil, errors.Errorf("symbol operator %q must be a letter-led name", name)
		}
		if err := checkPair(name, bp); err != nil {
			return nil, err
		}
		t.symbolOps[name] = bp
	}
	for name, p := range s.InfixPrefix {
		if p < 0 {
			return nil, errors.Errorf("prefix power of %q is negative", name)
		}
		if !isOperatorSpelling(name) && !isIdentifier(name) {
			return nil, errors.Errorf("infix/prefix name %q is neither an operator nor a symbol", name)
		}
		t.infixPrefix[name] = p
	}
	for name, p := range s.Bodied {
		if p < 0 {
			return nil, errors.Errorf("bodied power of %q is negative", name)
		}
		if !isIdentifier(name) {
			return nil, errors.Errorf("bodied function %q must be a letter-led name", name)
		}
		if _, ok := t.symbolOps[name]; ok {
			return nil, errors.Errorf("%q cannot be both a bodied function and a symbol operator", name)
		}
		t.bodied[name] = p
	}
	for name, variant := range s.Constructors {
		kind, err := expr.ParseKind(variant)
		if err != nil {
			return nil, errors.Wrapf(err, "constructor for %q", name)
		}
		t.constructors[name] = kind
	}
	for alias := range s.Complement {
		target, err := resolveAlias(s.Complement, alias)
		if err != nil {
			return nil, err
		}
		t.complement[alias] = target
	}
	for category, names := range s.Categories {
		t.categories[category] = append([]string(nil), names...)
	}
	return t, nil
}

func checkPair(name string, bp BindingPower) error {
	if bp.Left < 0 || bp.Right < 0 {
		return errors.Errorf("binding power of %q is negative (%d, %d)", name, bp.Left, bp.Right)
	}
	return nil
}

// resolveAlias follows alias chains to their final target.
func resolveAlias(aliases map[string]string, name string) (string, error) {
	seen := map[string]bool{name: true}
	cur := aliases[name]
	for {
		next, ok := aliases[cur]
		if !ok {
			return cur, nil
		}
		if seen[cur] {
			return "", errors.Errorf("alias cycle through %q", cur)
		}
		seen[cur] = true
		cur = next
	}
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case unicode.IsLetter(r) || r == '_':
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

// Spec exports the table in serializable form.
func (t *Table) Spec() Spec {
	def := t.defaultBP
	s := Spec{
		Default:      &def,
		Operators:    make(map[string]BindingPower, len(t.custom)),
		InfixPrefix:  make(map[string]int, len(t.infixPrefix)),
		SymbolOps:    make(map[string]BindingPower, len(t.symbolOps)),
		Bodied:       make(map[string]int, len(t.bodied)),
		Constructors: make(map[string]string, len(t.constructors)),
		Complement:   make(map[string]string, len(t.complement)),
		Categories:   make(map[string][]string, len(t.categories)),
	}
	for k, v := range t.custom {
		s.Operators[k] = v
	}
	for k, v := range t.infixPrefix {
		s.InfixPrefix[k] = v
	}
	for k, v := range t.symbolOps {
		s.SymbolOps[k] = v
	}
	for k, v := range t.bodied {
		s.Bodied[k] = v
	}
	for k, v := range t.constructors {
		s.Constructors[k] = v.String()
	}
	for k, v := range t.complement {
		s.Complement[k] = v
	}
	for k, v := range t.categories {
		names := append([]string(nil), v...)
		sort.Strings(names)
		s.Categories[k] = names
	}
	return s
}

// Option adjusts a spec before it is built.
type Option func(*Spec)

// New builds a table from options alone.
func New(opts ...Option) (*Table, error) {
	var s Spec
	for _, opt := range opts {
		opt(&s)
	}
	return s.Build()
}

// Extend builds a new table from base with opts applied on top.
func Extend(base *Table, opts ...Option) (*Table, error) {
	s := base.Spec()
	for _, opt := range opts {
		opt(&s)
	}
	return s.Build()
}

func WithDefault(left, right int) Option {
	return func(s *Spec) { s.Default = &BindingPower{Left: left, Right: right} }
}

func WithOperator(name string, left, right int) Option {
	return func(s *Spec) {
		if s.Operators == nil {
			s.Operators = make(map[string]BindingPower)
		}
		s.Operators[name] = BindingPower{Left: left, Right: right}
	}
}

func WithInfixPrefix(name string, prefix int) Option {
	return func(s *Spec) {
		if s.InfixPrefix == nil {
			s.InfixPrefix = make(map[string]int)
		}
		s.InfixPrefix[name] = prefix
	}
}

func WithSymbolOperator(name string, left, right int) Option {
	return func(s *Spec) {
		if s.SymbolOps == nil {
			s.SymbolOps = make(map[string]BindingPower)
		}
		s.SymbolOps[name] = BindingPower{Left: left, Right: right}
	}
}

func WithBodied(name string, right int) Option {
	return func(s *Spec) {
		if s.Bodied == nil {
			s.Bodied = make(map[string]int)
		}
		s.Bodied[name] = right
	}
}

func WithConstructor(name string, kind expr.Kind) Option {
	return func(s *Spec) {
		if s.Constructors == nil {
			s.Constructors = make(map[string]string)
		}
		s.Constructors[name] = kind.String()
	}
}

func WithAlias(alias, target string) Option {
	return func(s *Spec) {
		if s.Complement == nil {
			s.Complement = make(map[string]string)
		}
		s.Complement[alias] = target
	}
}

func WithCategory(category string, names ...string) Option {
	return func(s *Spec) {
		if s.Categories == nil {
			s.Categories = make(map[string][]string)
		}
		s.Categories[category] = append(s.Categories[category], names...)
	}
}
