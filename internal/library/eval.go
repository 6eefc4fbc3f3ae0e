package library

import (
	"math/big"

	"github.com/gnoswap-labs/symrw/internal/expr"
	"github.com/gnoswap-labs/symrw/internal/rewrite"
)

// maxExponent bounds the integer powers the evaluator expands.
const maxExponent = 1024

type reducer func(c expr.Compound) (expr.Expr, bool)

var reducers = map[string]reducer{
	"+":         foldSum,
	"*":         foldProduct,
	"-":         subtract,
	"/":         divide,
	"^":         power,
	"isnumber":  isNumber,
	"isinteger": isInteger,
	"issymbol":  isSymbol,
	"==":        equal,
	"!=":        notEqual,
	"<":         compare(func(c int) bool { return c < 0 }),
	">":         compare(func(c int) bool { return c > 0 }),
	"<=":        compare(func(c int) bool { return c <= 0 }),
	">=":        compare(func(c int) bool { return c >= 0 }),
	"and":       conjunction,
	"or":        disjunction,
	"not":       negation,
}

// Evaluator returns a bottom-up rule that reduces arithmetic over exact
// numbers and the predicates isnumber, isinteger, issymbol, the
// comparisons and the boolean connectives. Nodes it cannot decide are left
// unchanged, so the rule is safe to run on symbolic trees.
//
// The returned rule satisfies match.Evaluator.
func Evaluator(opts ...rewrite.Option) rewrite.Rule {
	opts = append([]rewrite.Option{rewrite.Named("evaluate"), rewrite.BottomUp()}, opts...)
	return rewrite.New(reducible, reduce, opts...)
}

func reducible(e expr.Expr) bool {
	c, ok := expr.AsCompound(e)
	if !ok {
		return false
	}
	if _, sealed := c.(*expr.Restricted); sealed {
		return false
	}
	_, ok = reducers[c.Name()]
	return ok
}

func reduce(e expr.Expr) expr.Expr {
	c, _ := expr.AsCompound(e)
	if out, ok := reducers[c.Name()](c); ok {
		return out
	}
	return e
}

func exact(e expr.Expr) (*big.Rat, bool) {
	n, ok := e.(*expr.Number)
	if !ok {
		return nil, false
	}
	return n.Rat()
}

// foldNumbers combines the exact numbers among c's items with op. The
// combined value is dropped when it equals identity and other items remain.
func foldNumbers(c expr.Compound, identity int64, op func(acc, x *big.Rat)) (expr.Expr, bool) {
	acc := big.NewRat(identity, 1)
	var rest []expr.Expr
	folded := 0
	for _, item := range c.Items() {
		if r, ok := exact(item); ok {
			op(acc, r)
			folded++
			continue
		}
		rest = append(rest, item)
	}
	if folded == 0 || (folded == 1 && len(rest) > 0 && acc.Cmp(big.NewRat(identity, 1)) != 0) {
		return nil, false
	}
	if len(rest) == 0 {
		return expr.NewRat(acc), true
	}
	if acc.Cmp(big.NewRat(identity, 1)) != 0 {
		rest = append([]expr.Expr{expr.NewRat(acc)}, rest...)
	}
	if len(rest) == 1 {
		return rest[0], true
	}
	return expr.WithItems(c, rest), true
}

func foldSum(c expr.Compound) (expr.Expr, bool) {
	if c.Len() == 1 {
		return c.At(0), true
	}
	return foldNumbers(c, 0, func(acc, x *big.Rat) { acc.Add(acc, x) })
}

func foldProduct(c expr.Compound) (expr.Expr, bool) {
	if c.Len() == 1 {
		return c.At(0), true
	}
	return foldNumbers(c, 1, func(acc, x *big.Rat) { acc.Mul(acc, x) })
}

func subtract(c expr.Compound) (expr.Expr, bool) {
	switch c.Len() {
	case 1:
		if r, ok := exact(c.At(0)); ok {
			return expr.NewRat(r.Neg(r)), true
		}
	case 2:
		a, ok1 := exact(c.At(0))
		b, ok2 := exact(c.At(1))
		if ok1 && ok2 {
			return expr.NewRat(a.Sub(a, b)), true
		}
	}
	return nil, false
}

func divide(c expr.Compound) (expr.Expr, bool) {
	if c.Len() != 2 {
		return nil, false
	}
	a, ok1 := exact(c.At(0))
	b, ok2 := exact(c.At(1))
	if !ok1 || !ok2 || b.Sign() == 0 {
		return nil, false
	}
	return expr.NewRat(a.Quo(a, b)), true
}

func power(c expr.Compound) (expr.Expr, bool) {
	if c.Len() != 2 {
		return nil, false
	}
	base, ok1 := exact(c.At(0))
	exp, ok2 := exact(c.At(1))
	if !ok1 || !ok2 || !exp.IsInt() {
		return nil, false
	}
	n := exp.Num()
	if !n.IsInt64() || n.Int64() > maxExponent || n.Int64() < -maxExponent {
		return nil, false
	}
	k := n.Int64()
	if k < 0 && base.Sign() == 0 {
		return nil, false
	}
	abs := big.NewInt(k)
	abs.Abs(abs)
	num := new(big.Int).Exp(base.Num(), abs, nil)
	den := new(big.Int).Exp(base.Denom(), abs, nil)
	if k < 0 {
		num, den = den, num
	}
	return expr.NewRat(new(big.Rat).SetFrac(num, den)), true
}

func unary(c expr.Compound) (expr.Expr, bool) {
	if c.Len() != 1 {
		return nil, false
	}
	return c.At(0), true
}

func isNumber(c expr.Compound) (expr.Expr, bool) {
	arg, ok := unary(c)
	if !ok {
		return nil, false
	}
	_, num := arg.(*expr.Number)
	return expr.Bool(num), true
}

func isInteger(c expr.Compound) (expr.Expr, bool) {
	arg, ok := unary(c)
	if !ok {
		return nil, false
	}
	n, num := arg.(*expr.Number)
	return expr.Bool(num && n.IsInteger()), true
}

func isSymbol(c expr.Compound) (expr.Expr, bool) {
	arg, ok := unary(c)
	if !ok {
		return nil, false
	}
	_, sym := arg.(*expr.Symbol)
	return expr.Bool(sym), true
}

// decided reports whether a and b are known to be equal or known to differ.
// Distinct symbolic trees are undecided.
func decided(a, b expr.Expr) (eq, ok bool) {
	if expr.Equal(a, b) {
		return true, true
	}
	_, num1 := a.(*expr.Number)
	_, num2 := b.(*expr.Number)
	if num1 && num2 {
		return false, true
	}
	if isBool(a) && isBool(b) {
		return false, true
	}
	return false, false
}

func equal(c expr.Compound) (expr.Expr, bool) {
	if c.Len() != 2 {
		return nil, false
	}
	eq, ok := decided(c.At(0), c.At(1))
	if !ok {
		return nil, false
	}
	return expr.Bool(eq), true
}

func notEqual(c expr.Compound) (expr.Expr, bool) {
	if c.Len() != 2 {
		return nil, false
	}
	eq, ok := decided(c.At(0), c.At(1))
	if !ok {
		return nil, false
	}
	return expr.Bool(!eq), true
}

func compare(holds func(int) bool) reducer {
	return func(c expr.Compound) (expr.Expr, bool) {
		if c.Len() != 2 {
			return nil, false
		}
		a, ok1 := c.At(0).(*expr.Number)
		b, ok2 := c.At(1).(*expr.Number)
		if !ok1 || !ok2 {
			return nil, false
		}
		ra, exact1 := a.Rat()
		rb, exact2 := b.Rat()
		var cmp int
		if exact1 && exact2 {
			cmp = ra.Cmp(rb)
		} else {
			fa, fb := a.Float64(), b.Float64()
			switch {
			case fa < fb:
				cmp = -1
			case fa > fb:
				cmp = 1
			}
		}
		return expr.Bool(holds(cmp)), true
	}
}

func isBool(e expr.Expr) bool {
	return expr.IsSymbol(e, "true") || expr.IsSymbol(e, "false")
}

// connective folds and/or. absorbing decides the result as soon as it
// appears; the other boolean is dropped.
func connective(c expr.Compound, absorbing bool) (expr.Expr, bool) {
	var rest []expr.Expr
	for _, item := range c.Items() {
		switch {
		case expr.IsSymbol(item, "true") || expr.IsSymbol(item, "false"):
			if expr.IsSymbol(item, "true") == absorbing {
				return expr.Bool(absorbing), true
			}
		default:
			rest = append(rest, item)
		}
	}
	switch len(rest) {
	case c.Len():
		return nil, false
	case 0:
		return expr.Bool(!absorbing), true
	case 1:
		return rest[0], true
	}
	return expr.WithItems(c, rest), true
}

func conjunction(c expr.Compound) (expr.Expr, bool) { return connective(c, false) }
func disjunction(c expr.Compound) (expr.Expr, bool) { return connective(c, true) }

func negation(c expr.Compound) (expr.Expr, bool) {
	arg, ok := unary(c)
	if !ok || !isBool(arg) {
		return nil, false
	}
	return expr.Bool(expr.IsSymbol(arg, "false")), true
}
