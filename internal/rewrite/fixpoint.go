package rewrite

import (
	"go.uber.org/zap"

	"github.com/gnoswap-labs/symrw/internal/expr"
)

// DefaultMaxSteps bounds Normalize when no positive budget is given.
const DefaultMaxSteps = 100

// Result describes a Normalize run.
type Result struct {
	Steps     int  // applications that changed the tree
	Converged bool // false when the budget ran out first
}

// Normalize applies r until the tree stops changing or maxSteps
// applications have changed it.
func Normalize(r Rule, e expr.Expr, maxSteps int) (expr.Expr, Result) {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	var res Result
	for res.Steps < maxSteps {
		next := r.Apply(e)
		if expr.Equal(next, e) {
			res.Converged = true
			return e, res
		}
		e = next
		res.Steps++
	}
	res.Converged = expr.Equal(r.Apply(e), e)
	return e, res
}

// Fixpoint wraps r so that Apply normalizes with it. The wrapper always
// selects.
func Fixpoint(r Rule, maxSteps int, opts ...Option) Rule {
	return &fixpoint{settings: newSettings(opts), rule: r, max: maxSteps}
}

type fixpoint struct {
	settings
	rule Rule
	max  int
}

func (f *fixpoint) Select(expr.Expr) (Transform, bool) {
	return f.normalize, true
}

func (f *fixpoint) normalize(e expr.Expr) expr.Expr {
	out, res := Normalize(f.rule, e, f.max)
	if !res.Converged {
		f.reporter.Debug("step budget spent before a fixpoint",
			zap.String("rule", f.label()), zap.Int("steps", res.Steps))
	}
	return out
}

func (f *fixpoint) Apply(e expr.Expr) expr.Expr {
	return f.run(e, f.normalize)
}
