// Package rewrite defines rules over expression trees and the combinators
// that compose them.
//
// A Rule is a predicate plus a transform. Select tests the predicate at a
// single node and hands back the transform bound to that node; Apply runs
// the rule over a tree, honouring its traversal modifiers:
//
//   - AtPath(path...) applies the rule only at the addressed subtree;
//   - BottomUp() applies it at every node, children first;
//   - with neither, the rule is tried once at the root.
//
// A path wins over bottom-up when both are given.
package rewrite

import (
	"go.uber.org/zap"

	"github.com/gnoswap-labs/symrw/internal/expr"
	"github.com/gnoswap-labs/symrw/internal/match"
	"github.com/gnoswap-labs/symrw/internal/report"
)

// Transform computes a rule's result for the node it was selected at.
type Transform func(expr.Expr) expr.Expr

// Rule rewrites expression trees.
type Rule interface {
	// Apply runs the rule over e according to its modifiers. e is returned
	// unchanged when the rule does not fire.
	Apply(e expr.Expr) expr.Expr
	// Select tests the rule at e alone, ignoring modifiers.
	Select(e expr.Expr) (Transform, bool)
}

// Local tests r at e alone and applies its transform when it fires.
func Local(r Rule, e expr.Expr) expr.Expr {
	if t, ok := r.Select(e); ok {
		return t(e)
	}
	return e
}

// settings carries the modifiers and options shared by all rule kinds.
type settings struct {
	name     string
	bottomUp bool
	path     []int
	hasPath  bool
	reporter *report.Reporter
	eval     match.Evaluator
	post     Rule
}

// Option configures a rule.
type Option func(*settings)

// BottomUp applies the rule at every node, children first.
func BottomUp() Option {
	return func(s *settings) { s.bottomUp = true }
}

// AtPath applies the rule only at the subtree reached by following path.
// An empty path addresses the root.
func AtPath(path ...int) Option {
	return func(s *settings) {
		s.path = append([]int(nil), path...)
		s.hasPath = true
	}
}

// WithReporter routes path errors and debug notes to r.
func WithReporter(r *report.Reporter) Option {
	return func(s *settings) { s.reporter = r }
}

// Named labels the rule in diagnostics.
func Named(name string) Option {
	return func(s *settings) { s.name = name }
}

// WithEvaluator sets the predicate evaluator natural rules use to decide
// variable constraints.
func WithEvaluator(eval match.Evaluator) Option {
	return func(s *settings) { s.eval = eval }
}

// WithPost sets a rule applied to every outcome a natural rule builds.
func WithPost(post Rule) Option {
	return func(s *settings) { s.post = post }
}

func newSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s *settings) label() string {
	if s.name == "" {
		return "rule"
	}
	return s.name
}

// run applies fn to e as the modifiers direct.
func (s *settings) run(e expr.Expr, fn func(expr.Expr) expr.Expr) expr.Expr {
	switch {
	case s.hasPath:
		out, err := expr.ApplyAtPath(e, s.path, fn)
		if err != nil {
			s.reporter.Report(&report.Diagnostic{
				Kind:    report.KindPath,
				Message: s.label() + ": cannot follow path",
				Pos:     -1,
				Err:     err,
			})
		}
		return out
	case s.bottomUp:
		return expr.BottomUp(e, fn)
	default:
		return fn(e)
	}
}

// Predicate decides whether a rule fires at a node.
type Predicate func(expr.Expr) bool

type basic struct {
	settings
	pred Predicate
	body Transform
}

// New returns a rule that applies body wherever pred holds.
func New(pred Predicate, body Transform, opts ...Option) Rule {
	return &basic{settings: newSettings(opts), pred: pred, body: body}
}

func (r *basic) Select(e expr.Expr) (Transform, bool) {
	if !r.pred(e) {
		return nil, false
	}
	return r.body, true
}

func (r *basic) Apply(e expr.Expr) expr.Expr {
	return r.run(e, func(n expr.Expr) expr.Expr { return Local(r, n) })
}

// Seq applies rules in order, each to the output of the previous one. Under
// BottomUp the children are tried locally at every node in turn; otherwise
// each child runs with its own modifiers. A sequence always selects.
func Seq(rules []Rule, opts ...Option) Rule {
	return &sequence{settings: newSettings(opts), rules: rules}
}

type sequence struct {
	settings
	rules []Rule
}

func (r *sequence) Select(expr.Expr) (Transform, bool) {
	return r.local, true
}

func (r *sequence) local(e expr.Expr) expr.Expr {
	for _, rule := range r.rules {
		e = Local(rule, e)
	}
	return e
}

func (r *sequence) applyEach(e expr.Expr) expr.Expr {
	for _, rule := range r.rules {
		e = rule.Apply(e)
	}
	return e
}

func (r *sequence) Apply(e expr.Expr) expr.Expr {
	if r.bottomUp && !r.hasPath {
		return expr.BottomUp(e, r.local)
	}
	return r.run(e, r.applyEach)
}

// First applies the first rule whose predicate holds and leaves e unchanged
// when none does. Nested First rules resolve to the innermost selected rule
// without testing any predicate twice.
func First(rules []Rule, opts ...Option) Rule {
	return &first{settings: newSettings(opts), rules: rules}
}

type first struct {
	settings
	rules []Rule
}

func (r *first) Select(e expr.Expr) (Transform, bool) {
	for _, rule := range r.rules {
		if t, ok := rule.Select(e); ok {
			return t, true
		}
	}
	return nil, false
}

func (r *first) Apply(e expr.Expr) expr.Expr {
	return r.run(e, func(n expr.Expr) expr.Expr {
		t, ok := r.Select(n)
		if !ok {
			return n
		}
		r.reporter.Debug("rule selected", zap.String("rule", r.label()), zap.Stringer("at", n))
		return t(n)
	})
}

// Substitute replaces every symbol bound in b by its value. It always runs
// bottom-up, so bound symbols are replaced at any depth; inserted values are
// not rewritten again.
func Substitute(b match.Bindings, opts ...Option) Rule {
	s := newSettings(opts)
	s.bottomUp = true
	return &substitute{settings: s, bindings: b}
}

type substitute struct {
	settings
	bindings match.Bindings
}

func (r *substitute) Select(e expr.Expr) (Transform, bool) {
	s, ok := e.(*expr.Symbol)
	if !ok {
		return nil, false
	}
	v, ok := r.bindings.Lookup(s.Name())
	if !ok {
		return nil, false
	}
	return func(expr.Expr) expr.Expr { return v }, true
}

func (r *substitute) Apply(e expr.Expr) expr.Expr {
	if r.bindings.Len() == 0 {
		return e
	}
	return r.run(e, func(n expr.Expr) expr.Expr { return Local(r, n) })
}
