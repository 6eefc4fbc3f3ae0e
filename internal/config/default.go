package config

import "github.com/gnoswap-labs/symrw/internal/expr"

// DefaultSpec returns the built-in arithmetic and logic table.
func DefaultSpec() Spec {
	def := fallbackBindingPower
	return Spec{
		Default: &def,
		Operators: map[string]BindingPower{
			":=": {Left: 10, Right: 9},
			":":  {Left: 5, Right: 5},
			"=":  {Left: 50, Right: 50},
			"==": {Left: 90, Right: 90},
			"!=": {Left: 90, Right: 90},
			"<":  {Left: 90, Right: 90},
			">":  {Left: 90, Right: 90},
			"<=": {Left: 90, Right: 90},
			">=": {Left: 90, Right: 90},
			"+":  {Left: 100, Right: 100},
			"-":  {Left: 100, Right: 100},
			"*":  {Left: 200, Right: 200},
			"/":  {Left: 200, Right: 200},
			"^":  {Left: 701, Right: 700},
			"!":  {Left: 800, Right: 0},
		},
		InfixPrefix: map[string]int{
			"-": 650,
			"+": 650,
		},
		SymbolOps: map[string]BindingPower{
			"or":    {Left: 60, Right: 60},
			"and":   {Left: 70, Right: 70},
			"not":   {Left: 0, Right: 80},
			"where": {Left: 5, Right: 5},
		},
		Bodied: map[string]int{
			"D": 650,
		},
		Constructors: map[string]string{
			"+":    expr.KindCommAssoc.String(),
			"*":    expr.KindCommAssoc.String(),
			"and":  expr.KindCommAssoc.String(),
			"or":   expr.KindCommAssoc.String(),
			"unit": expr.KindRestricted.String(),
			":=":   expr.KindAssign.String(),
		},
		Complement: map[string]string{
			"star":  "*",
			"plus":  "+",
			"minus": "-",
		},
		Categories: map[string][]string{
			CategoryForall:     {"forall"},
			CategoryConstraint: {":", "where"},
		},
	}
}

var defaultTable = mustBuild(DefaultSpec())

func mustBuild(s Spec) *Table {
	t, err := s.Build()
	if err != nil {
		panic(err)
	}
	return t
}

// Default returns the shared built-in table.
func Default() *Table { return defaultTable }
