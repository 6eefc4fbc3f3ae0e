package expr

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Kind identifies the variant of an expression node.
type Kind int

const (
	KindNull Kind = iota
	KindSymbol
	KindNumber
	KindContainer
	KindCommAssoc
	KindRestricted
	KindAssign
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindSymbol:
		return "symbol"
	case KindNumber:
		return "number"
	case KindContainer:
		return "container"
	case KindCommAssoc:
		return "comm_assoc"
	case KindRestricted:
		return "restricted"
	case KindAssign:
		return "assign"
	default:
		return "?"
	}
}

// IsCompound reports whether nodes of this kind carry a name and items.
func (k Kind) IsCompound() bool {
	return k >= KindContainer && k <= KindAssign
}

// ParseKind maps a variant name as written in configuration files to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "container":
		return KindContainer, nil
	case "comm_assoc", "commassoc":
		return KindCommAssoc, nil
	case "restricted":
		return KindRestricted, nil
	case "assign":
		return KindAssign, nil
	default:
		return KindNull, fmt.Errorf("unknown node variant %q", s)
	}
}

// Expr is an immutable expression tree node.
type Expr interface {
	isExpr()
	Kind() Kind
	String() string
}

// Null is the "no value" sentinel. Syntax and path errors recover to it.
type Null struct{}

func (Null) isExpr()        {}
func (Null) Kind() Kind     { return KindNull }
func (Null) String() string { return "null" }

// IsNull reports whether e is the Null sentinel.
func IsNull(e Expr) bool {
	_, ok := e.(Null)
	return ok
}

// Symbol is a named atom.
type Symbol struct {
	name string
}

// NewSymbol returns a symbol atom.
func NewSymbol(name string) *Symbol { return &Symbol{name: name} }

func (*Symbol) isExpr()          {}
func (*Symbol) Kind() Kind       { return KindSymbol }
func (s *Symbol) Name() string   { return s.name }
func (s *Symbol) String() string { return s.name }

// Reserved atoms.
var (
	True  = NewSymbol("true")
	False = NewSymbol("false")
	Any   = NewSymbol("any")
)

// Bool returns the reserved atom for b.
func Bool(b bool) *Symbol {
	if b {
		return True
	}
	return False
}

// IsSymbol reports whether e is the symbol called name.
func IsSymbol(e Expr, name string) bool {
	s, ok := e.(*Symbol)
	return ok && s.name == name
}

// Number is a numeric atom. It holds either an exact rational or an inexact
// real; equality compares values across both representations.
type Number struct {
	rat   *big.Rat
	float float64
}

// NewInt returns an exact integer.
func NewInt(n int64) *Number { return &Number{rat: new(big.Rat).SetInt64(n)} }

// NewFrac returns the exact rational p/q. It panics when q is zero.
func NewFrac(p, q int64) *Number {
	if q == 0 {
		panic("expr: denominator is zero")
	}
	return &Number{rat: new(big.Rat).SetFrac(big.NewInt(p), big.NewInt(q))}
}

// NewRat returns an exact number holding a copy of r.
func NewRat(r *big.Rat) *Number { return &Number{rat: new(big.Rat).Set(r)} }

// NewFloat returns an inexact real.
func NewFloat(f float64) *Number { return &Number{float: f} }

// ParseNumber reads an integer, real or scientific-notation numeral.
// Integers become exact, everything else inexact. A real numeral beyond
// the float64 range is an error.
func ParseNumber(text string) (*Number, error) {
	if text == "" {
		return nil, fmt.Errorf("empty numeral")
	}
	if strings.ContainsAny(text, ".eE") {
		f, err := strconv.ParseFloat(text, 64)
		if errors.Is(err, strconv.ErrRange) {
			return nil, fmt.Errorf("numeral %q out of range", text)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid numeral %q: %w", text, err)
		}
		return NewFloat(f), nil
	}
	i, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeral %q", text)
	}
	return &Number{rat: new(big.Rat).SetInt(i)}, nil
}

func (*Number) isExpr()    {}
func (*Number) Kind() Kind { return KindNumber }

// IsExact reports whether n holds an exact rational.
func (n *Number) IsExact() bool { return n.rat != nil }

// IsInteger reports whether n is an exact integer.
func (n *Number) IsInteger() bool { return n.rat != nil && n.rat.IsInt() }

// Rat returns a copy of the exact value. ok is false for inexact numbers.
func (n *Number) Rat() (r *big.Rat, ok bool) {
	if n.rat == nil {
		return nil, false
	}
	return new(big.Rat).Set(n.rat), true
}

// Float64 returns the nearest float64 value.
func (n *Number) Float64() float64 {
	if n.rat != nil {
		f, _ := n.rat.Float64()
		return f
	}
	return n.float
}

// Sign returns -1, 0 or +1.
func (n *Number) Sign() int {
	if n.rat != nil {
		return n.rat.Sign()
	}
	switch {
	case n.float < 0:
		return -1
	case n.float > 0:
		return 1
	}
	return 0
}

func (n *Number) String() string {
	if n.rat != nil {
		if n.rat.IsInt() {
			return n.rat.Num().String()
		}
		return n.rat.RatString()
	}
	return strconv.FormatFloat(n.float, 'g', -1, 64)
}

// valueKey is the canonical text of the numeric value. Numbers that compare
// equal share a key.
func (n *Number) valueKey() string {
	if n.rat != nil {
		return n.rat.RatString()
	}
	if r := new(big.Rat); r.SetFloat64(n.float) != nil {
		return r.RatString()
	}
	return strconv.FormatFloat(n.float, 'g', -1, 64)
}

func (n *Number) equal(o *Number) bool {
	switch {
	case n.rat != nil && o.rat != nil:
		return n.rat.Cmp(o.rat) == 0
	case n.rat == nil && o.rat == nil:
		return n.float == o.float
	}
	exact, inexact := n.rat, o.float
	if exact == nil {
		exact, inexact = o.rat, n.float
	}
	r := new(big.Rat).SetFloat64(inexact)
	return r != nil && r.Cmp(exact) == 0
}
