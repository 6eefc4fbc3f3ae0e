// Package symrw parses symbolic expressions under a configurable operator
// table and rewrites them with pattern rules.
//
// Engine bundles a table, a parser, an unparser and a diagnostic reporter:
//
//	eng, err := symrw.New(symrw.WithMode(report.ModeRaise))
//	out, err := eng.Rewrite("2 * x + 3 * x", eng.Rule("collect-like-terms"))
package symrw

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/symrw/internal/config"
	"github.com/gnoswap-labs/symrw/internal/expr"
	"github.com/gnoswap-labs/symrw/internal/parser"
	"github.com/gnoswap-labs/symrw/internal/report"
	"github.com/gnoswap-labs/symrw/internal/rewrite"
	"github.com/gnoswap-labs/symrw/internal/unparse"
)

// ParseError carries the syntax diagnostics of one Parse call. The trees
// returned alongside it hold expr.Null{} for every failed statement.
type ParseError struct {
	Diagnostics []*report.Diagnostic
}

func (e *ParseError) Error() string {
	if len(e.Diagnostics) == 1 {
		return e.Diagnostics[0].Error()
	}
	return fmt.Sprintf("%d syntax errors; first: %s", len(e.Diagnostics), e.Diagnostics[0])
}

func (e *ParseError) Unwrap() []error {
	errs := make([]error, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		errs[i] = d
	}
	return errs
}

// Engine parses, rewrites and renders expressions for one operator table.
// Rules registered with AddRule are looked up by name.
type Engine struct {
	table    *config.Table
	logger   *zap.Logger
	mode     report.Mode
	post     func(expr.Expr) expr.Expr
	maxSteps int

	reporter *report.Reporter
	parser   *parser.Parser
	unparser *unparse.Unparser
	rules    map[string]rewrite.Rule
}

// Option configures an Engine.
type Option func(*Engine)

// WithTable sets the operator table. The default is config.Default().
func WithTable(t *config.Table) Option {
	return func(e *Engine) { e.table = t }
}

// WithLogger sets the logger diagnostics are written to.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMode sets the report mode.
func WithMode(m report.Mode) Option {
	return func(e *Engine) { e.mode = m }
}

// WithPostProcess installs a hook applied to every parsed statement.
func WithPostProcess(fn func(expr.Expr) expr.Expr) Option {
	return func(e *Engine) { e.post = fn }
}

// WithMaxSteps bounds the normalization done by Rewrite.
func WithMaxSteps(n int) Option {
	return func(e *Engine) { e.maxSteps = n }
}

// New builds an engine and registers the built-in rules.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		table:    config.Default(),
		logger:   zap.NewNop(),
		maxSteps: rewrite.DefaultMaxSteps,
		rules:    make(map[string]rewrite.Rule),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.table == nil {
		return nil, errors.New("symrw: nil operator table")
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}

	e.reporter = report.New(e.logger, e.mode)
	popts := []parser.Option{parser.WithReporter(e.reporter)}
	if e.post != nil {
		popts = append(popts, parser.WithPostProcess(e.post))
	}
	e.parser = parser.New(e.table, popts...)
	e.unparser = unparse.New(e.table)

	e.registerBuiltins()
	return e, nil
}

func (e *Engine) Table() *config.Table        { return e.table }
func (e *Engine) Parser() *parser.Parser      { return e.parser }
func (e *Engine) Reporter() *report.Reporter  { return e.reporter }
func (e *Engine) Mode() report.Mode           { return e.mode }
func (e *Engine) MaxSteps() int               { return e.maxSteps }
func (e *Engine) Unparser() *unparse.Unparser { return e.unparser }

// Parse parses every statement of src. Syntax errors are returned as a
// *ParseError next to the trees; in raise mode the first one is returned
// alone and no trees are produced.
func (e *Engine) Parse(src string) (trees []expr.Expr, err error) {
	defer report.Recover(&err)

	trees, diags := e.parser.ParseAll(src)
	if len(diags) > 0 {
		return trees, &ParseError{Diagnostics: diags}
	}
	return trees, nil
}

// Rewrite parses src and normalizes every statement with rule. Failed
// statements stay expr.Null{}.
func (e *Engine) Rewrite(src string, rule rewrite.Rule) ([]expr.Expr, error) {
	if rule == nil {
		return nil, errors.New("symrw: nil rule")
	}
	trees, perr := e.Parse(src)
	var pe *ParseError
	if perr != nil && !errors.As(perr, &pe) {
		return nil, perr
	}

	out := make([]expr.Expr, len(trees))
	for i, tree := range trees {
		if expr.IsNull(tree) {
			out[i] = tree
			continue
		}
		result, res, err := e.Normalize(rule, tree)
		if err != nil {
			return nil, err
		}
		if !res.Converged {
			e.logger.Debug("rewrite stopped before a fixpoint",
				zap.Int("statement", i), zap.Int("steps", res.Steps))
		}
		out[i] = result
	}
	return out, perr
}

// Normalize applies rule to tree until it stops changing or the engine's
// step budget is spent. A diagnostic raised while rewriting is returned as
// the error.
func (e *Engine) Normalize(rule rewrite.Rule, tree expr.Expr) (out expr.Expr, res rewrite.Result, err error) {
	defer report.Recover(&err)
	out, res = rewrite.Normalize(rule, tree, e.maxSteps)
	return out, res, nil
}

// String renders a tree in the engine's notation.
func (e *Engine) String(x expr.Expr) string {
	return e.unparser.String(x)
}

// Join renders trees as one statement per line.
func (e *Engine) Join(trees []expr.Expr) string {
	lines := make([]string, len(trees))
	for i, t := range trees {
		lines[i] = e.String(t)
	}
	return strings.Join(lines, "\n")
}
