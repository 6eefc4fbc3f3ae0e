// Package library provides a small set of rules built from the rewrite
// core: a numeric evaluator, flattening, literal folding for the parser and
// a like-terms collector. Rule files and callers combine them with their
// own rules.
package library

import (
	"fmt"
	"math/big"

	"github.com/gnoswap-labs/symrw/internal/expr"
	"github.com/gnoswap-labs/symrw/internal/parser"
	"github.com/gnoswap-labs/symrw/internal/rewrite"
)

// FlattenRule returns expr.Flatten as a bottom-up rule.
func FlattenRule(opts ...rewrite.Option) rewrite.Rule {
	opts = append([]rewrite.Option{rewrite.Named("flatten"), rewrite.BottomUp()}, opts...)
	return rewrite.New(func(e expr.Expr) bool {
		_, ok := e.(*expr.CommAssoc)
		return ok
	}, expr.FlattenNode, opts...)
}

// FoldLiterals turns a negated number into a negative number and a quotient
// of two integers into an exact rational. It is meant for
// parser.WithPostProcess.
func FoldLiterals(e expr.Expr) expr.Expr {
	return expr.BottomUp(e, foldLiteral)
}

func foldLiteral(e expr.Expr) expr.Expr {
	c, ok := e.(*expr.Container)
	if !ok {
		return e
	}
	switch {
	case c.Name() == "-" && c.Len() == 1:
		n, ok := c.At(0).(*expr.Number)
		if !ok {
			return e
		}
		if r, exact := n.Rat(); exact {
			return expr.NewRat(r.Neg(r))
		}
		return expr.NewFloat(-n.Float64())
	case c.Name() == "/" && c.Len() == 2:
		p, ok1 := c.At(0).(*expr.Number)
		q, ok2 := c.At(1).(*expr.Number)
		if !ok1 || !ok2 || !p.IsInteger() || !q.IsInteger() || q.Sign() == 0 {
			return e
		}
		rp, _ := p.Rat()
		rq, _ := q.Rat()
		return expr.NewRat(new(big.Rat).Quo(rp, rq))
	}
	return e
}

// Like-terms collector source, in the default table's notation.
const (
	collectPattern = "n * x + m * x + __rest"
	collectVars    = "forall(n, m) : isnumber(any); forall(x, __rest)"
	collectOutcome = "(n + m) * x + __rest"
)

// CollectLikeTerms returns a natural rule merging two numeric multiples of
// the same term in a sum, so that 2 * x + 3 * x becomes 5 * x. The outcome
// is evaluated and flattened. p must use an operator table with the
// default spellings of +, *, forall and ':'.
func CollectLikeTerms(p *parser.Parser, opts ...rewrite.Option) (*rewrite.Natural, error) {
	pattern, err := p.ParseOne(collectPattern)
	if err != nil {
		return nil, fmt.Errorf("collect like terms: pattern: %w", err)
	}
	outcome, err := p.ParseOne(collectOutcome)
	if err != nil {
		return nil, fmt.Errorf("collect like terms: outcome: %w", err)
	}
	vars, err := rewrite.ParseVars(p, collectVars)
	if err != nil {
		return nil, fmt.Errorf("collect like terms: %w", err)
	}

	eval := Evaluator()
	opts = append([]rewrite.Option{
		rewrite.Named("collect like terms"),
		rewrite.WithEvaluator(eval),
		rewrite.WithPost(rewrite.Seq([]rewrite.Rule{eval, FlattenRule()})),
	}, opts...)
	return rewrite.NewNatural(pattern, vars, outcome, opts...)
}
