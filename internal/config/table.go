// Package config holds the operator table consumed by the parser, the
// unparser and the rule helpers.
//
// A *Table is an immutable snapshot: it is built once, from options or from
// a YAML document, and then only read. Passing the same table to parsers
// running on different goroutines is safe.
package config

import (
	"sort"

	"github.com/gnoswap-labs/symrw/internal/expr"
)

// BindingPower is a left/right binding power pair.
type BindingPower struct {
	Left  int `yaml:"left"`
	Right int `yaml:"right"`
}

// Category names recognized by the rule helpers.
const (
	CategoryForall     = "forall"
	CategoryConstraint = "constraint"
)

// Table is a read-only operator configuration snapshot.
type Table struct {
	defaultBP    BindingPower
	custom       map[string]BindingPower
	infixPrefix  map[string]int
	symbolOps    map[string]BindingPower
	bodied       map[string]int
	constructors map[string]expr.Kind
	complement   map[string]string
	categories   map[string][]string
}

// DefaultBindingPower is the pair used by operators without a custom entry.
func (t *Table) DefaultBindingPower() BindingPower { return t.defaultBP }

// BindingPower returns the pair declared for an operator, or the default.
func (t *Table) BindingPower(name string) BindingPower {
	if bp, ok := t.custom[name]; ok {
		return bp
	}
	if bp, ok := t.symbolOps[name]; ok {
		return bp
	}
	return t.defaultBP
}

// IsOperator reports whether name has a custom pair, is a symbol operator,
// or is an infix/prefix name.
func (t *Table) IsOperator(name string) bool {
	if _, ok := t.custom[name]; ok {
		return true
	}
	if _, ok := t.symbolOps[name]; ok {
		return true
	}
	_, ok := t.infixPrefix[name]
	return ok
}

// PrefixPower returns the right binding power of the prefix reading of an
// infix/prefix name.
func (t *Table) PrefixPower(name string) (int, bool) {
	p, ok := t.infixPrefix[name]
	return p, ok
}

// SymbolOperator returns the pair of a letter-spelled operator.
func (t *Table) SymbolOperator(name string) (BindingPower, bool) {
	bp, ok := t.symbolOps[name]
	return bp, ok
}

// Bodied returns the right binding power of a bodied function.
func (t *Table) Bodied(name string) (int, bool) {
	p, ok := t.bodied[name]
	return p, ok
}

// Constructor returns the node variant built for name. Names without an
// entry build Containers.
func (t *Table) Constructor(name string) expr.Kind {
	if k, ok := t.constructors[name]; ok {
		return k
	}
	return expr.KindContainer
}

// Resolve follows the complement alias map.
func (t *Table) Resolve(name string) string {
	if target, ok := t.complement[name]; ok {
		return target
	}
	return name
}

// Category returns the names registered under category, sorted.
func (t *Table) Category(category string) []string {
	names := append([]string(nil), t.categories[category]...)
	sort.Strings(names)
	return names
}

// InCategory reports whether name is registered under category.
func (t *Table) InCategory(category, name string) bool {
	for _, n := range t.categories[category] {
		if n == name {
			return true
		}
	}
	return false
}

// Operators returns every operator name spelled with operator characters,
// longest first. The tokenizer uses it to split operator runs.
func (t *Table) Operators() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if !seen[name] && isOperatorSpelling(name) {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range t.custom {
		add(name)
	}
	for name := range t.infixPrefix {
		add(name)
	}
	for name := range t.complement {
		add(name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}

// OperatorChars is the set of characters operator names are spelled with.
const OperatorChars = "+-*/^!<>=:&|%~@#$?.'\\"

// IsOperatorChar reports whether c may appear in an operator run.
func IsOperatorChar(c byte) bool {
	for i := 0; i < len(OperatorChars); i++ {
		if OperatorChars[i] == c {
			return true
		}
	}
	return false
}

func isOperatorSpelling(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !IsOperatorChar(name[i]) {
			return false
		}
	}
	return true
}
