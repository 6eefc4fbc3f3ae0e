// Package match implements structural pattern matching over expression
// trees, including commutative-associative matching with backtracking and
// gather variables.
//
// Matching is written in continuation-passing style: every step receives
// the bindings so far and a continuation to call with extended bindings.
// A step that cannot satisfy the continuation returns false and the caller
// tries its next candidate. Bindings are persistent, so no undo is needed
// when a branch fails.
package match

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/symrw/internal/expr"
	"github.com/gnoswap-labs/symrw/internal/report"
)

// ErrNoEvaluator is returned by New when a variable carries a constraint
// but no evaluator was supplied to decide it.
var ErrNoEvaluator = errors.New("constraint declared without a predicate evaluator")

// Evaluator reduces an instantiated constraint template. The result must be
// the symbol true for the constraint to hold. A rewrite rule satisfies this
// interface.
type Evaluator interface {
	Apply(expr.Expr) expr.Expr
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(expr.Expr) expr.Expr

func (f EvaluatorFunc) Apply(e expr.Expr) expr.Expr { return f(e) }

// Matcher matches patterns against targets under a fixed variable table.
// It holds no per-match state and may be shared between goroutines.
type Matcher struct {
	vars     Vars
	eval     Evaluator
	reporter *report.Reporter
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithReporter sends misuse notes to r at debug level.
func WithReporter(r *report.Reporter) Option {
	return func(m *Matcher) { m.reporter = r }
}

// New returns a matcher for vars. eval may be nil when no variable carries a
// constraint.
func New(vars Vars, eval Evaluator, opts ...Option) (*Matcher, error) {
	if eval == nil {
		for _, name := range vars.Names() {
			if vars[name] != nil {
				return nil, fmt.Errorf("variable %q: %w", name, ErrNoEvaluator)
			}
		}
	}
	m := &Matcher{vars: vars, eval: eval}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Vars returns the matcher's variable table.
func (m *Matcher) Vars() Vars { return m.vars }

type cont func(Bindings) bool

// Match reports whether target is an instance of pattern, starting from
// the bindings in b. On success it returns b extended with every variable
// the pattern bound.
func (m *Matcher) Match(pattern, target expr.Expr, b Bindings) (Bindings, bool) {
	if _, ok := pattern.(*expr.CommAssoc); ok && target.Kind() != expr.KindCommAssoc {
		m.misuse("commutative pattern against non-commutative target",
			zap.Stringer("pattern", pattern), zap.Stringer("target", target))
		return b, false
	}
	var out Bindings
	found := m.match(pattern, target, b, func(r Bindings) bool {
		out = r
		return true
	})
	if !found {
		return b, false
	}
	return out, true
}

// Matches is Match without the bindings.
func (m *Matcher) Matches(pattern, target expr.Expr) bool {
	_, ok := m.Match(pattern, target, Bindings{})
	return ok
}

func (m *Matcher) misuse(msg string, fields ...zap.Field) {
	m.reporter.Debug(msg, append(fields, zap.String("kind", string(report.KindMatch)))...)
}

func (m *Matcher) match(p, t expr.Expr, b Bindings, k cont) bool {
	switch pat := p.(type) {
	case *expr.Symbol:
		if m.vars.Has(pat.Name()) {
			return m.bindVar(pat.Name(), t, b, k)
		}
		return expr.Equal(p, t) && k(b)

	case *expr.Container:
		tgt, ok := t.(*expr.Container)
		if !ok || tgt.Name() != pat.Name() || tgt.Len() != pat.Len() {
			return false
		}
		return m.matchSeq(pat, tgt, 0, b, k)

	case *expr.Assign:
		tgt, ok := t.(*expr.Assign)
		if !ok || tgt.Name() != pat.Name() || tgt.Len() != pat.Len() {
			return false
		}
		if pat.Len() > 0 && !expr.Equal(pat.At(0), tgt.At(0)) {
			return false
		}
		return m.matchSeq(pat, tgt, 1, b, k)

	case *expr.CommAssoc:
		tgt, ok := t.(*expr.CommAssoc)
		if !ok || tgt.Name() != pat.Name() {
			return false
		}
		return m.matchCommutative(pat, tgt, b, k)

	default:
		// numbers, Null and sealed Restricted nodes only match themselves
		return expr.Equal(p, t) && k(b)
	}
}

// matchSeq matches ordered items from index i on.
func (m *Matcher) matchSeq(p, t expr.Compound, i int, b Bindings, k cont) bool {
	if i == p.Len() {
		return k(b)
	}
	return m.match(p.At(i), t.At(i), b, func(nb Bindings) bool {
		return m.matchSeq(p, t, i+1, nb, k)
	})
}

func (m *Matcher) bindVar(name string, t expr.Expr, b Bindings, k cont) bool {
	if prev, ok := b.Lookup(name); ok {
		return expr.Equal(prev, t) && k(b)
	}
	if !m.satisfies(name, t) {
		return false
	}
	return k(b.Bind(name, t))
}

// satisfies instantiates the constraint of name with candidate and asks the
// evaluator for a verdict. Anything but the symbol true is a failure.
func (m *Matcher) satisfies(name string, candidate expr.Expr) bool {
	tmpl := m.vars.Constraint(name)
	if tmpl == nil {
		return true
	}
	inst := expr.BottomUp(tmpl, func(e expr.Expr) expr.Expr {
		if s, ok := e.(*expr.Symbol); ok && (s.Name() == name || s.Name() == expr.Any.Name()) {
			return candidate
		}
		return e
	})
	return expr.IsSymbol(m.eval.Apply(inst), expr.True.Name())
}

// hasVars reports whether e mentions a pattern variable in a position the
// matcher can bind.
func (m *Matcher) hasVars(e expr.Expr) bool {
	switch n := e.(type) {
	case *expr.Symbol:
		return m.vars.Has(n.Name())
	case *expr.Restricted:
		return false
	case *expr.Assign:
		for i := 1; i < n.Len(); i++ {
			if m.hasVars(n.At(i)) {
				return true
			}
		}
		return false
	case expr.Compound:
		for i := 0; i < n.Len(); i++ {
			if m.hasVars(n.At(i)) {
				return true
			}
		}
	}
	return false
}
