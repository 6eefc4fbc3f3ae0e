package rewrite

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/symrw/internal/expr"
	"github.com/gnoswap-labs/symrw/internal/match"
)

// Natural is a declarative rule: where the pattern matches, the outcome
// template is instantiated with the bindings and handed to the post rule.
type Natural struct {
	settings
	pattern expr.Expr
	outcome expr.Expr
	matcher *match.Matcher
}

// NewNatural builds a rule rewriting instances of pattern into outcome.
// vars declares the pattern variables and their constraints; a constraint
// requires WithEvaluator.
func NewNatural(pattern expr.Expr, vars match.Vars, outcome expr.Expr, opts ...Option) (*Natural, error) {
	s := newSettings(opts)
	m, err := match.New(vars, s.eval, match.WithReporter(s.reporter))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.label(), err)
	}
	return &Natural{settings: s, pattern: pattern, outcome: outcome, matcher: m}, nil
}

func (r *Natural) Pattern() expr.Expr { return r.pattern }
func (r *Natural) Outcome() expr.Expr { return r.outcome }
func (r *Natural) Name() string       { return r.name }

func (r *Natural) Select(e expr.Expr) (Transform, bool) {
	b, ok := r.matcher.Match(r.pattern, e, match.Bindings{})
	if !ok {
		return nil, false
	}
	return func(expr.Expr) expr.Expr {
		out := Substitute(b).Apply(r.outcome)
		if r.post != nil {
			out = r.post.Apply(out)
		}
		r.reporter.Debug("rule applied", zap.String("rule", r.label()), zap.Stringer("bindings", b))
		return out
	}, true
}

func (r *Natural) Apply(e expr.Expr) expr.Expr {
	return r.run(e, func(n expr.Expr) expr.Expr { return Local(r, n) })
}

// HalfFunc computes a half-natural rule's result from the matched input and
// the bindings found.
type HalfFunc func(input expr.Expr, b match.Bindings) expr.Expr

// HalfNatural matches like Natural but computes its result with a function
// instead of a template.
type HalfNatural struct {
	settings
	pattern expr.Expr
	fn      HalfFunc
	matcher *match.Matcher
}

func NewHalfNatural(pattern expr.Expr, vars match.Vars, fn HalfFunc, opts ...Option) (*HalfNatural, error) {
	s := newSettings(opts)
	m, err := match.New(vars, s.eval, match.WithReporter(s.reporter))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.label(), err)
	}
	return &HalfNatural{settings: s, pattern: pattern, fn: fn, matcher: m}, nil
}

func (r *HalfNatural) Select(e expr.Expr) (Transform, bool) {
	b, ok := r.matcher.Match(r.pattern, e, match.Bindings{})
	if !ok {
		return nil, false
	}
	return func(in expr.Expr) expr.Expr {
		out := r.fn(in, b)
		if r.post != nil {
			out = r.post.Apply(out)
		}
		return out
	}, true
}

func (r *HalfNatural) Apply(e expr.Expr) expr.Expr {
	return r.run(e, func(n expr.Expr) expr.Expr { return Local(r, n) })
}
