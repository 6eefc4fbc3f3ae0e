package symrw

import (
	"sort"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/symrw/internal/library"
	"github.com/gnoswap-labs/symrw/internal/report"
	"github.com/gnoswap-labs/symrw/internal/rewrite"
)

// Names of the built-in rules.
const (
	RuleEvaluate         = "evaluate"
	RuleFlatten          = "flatten"
	RuleCollectLikeTerms = "collect-like-terms"
	RuleSimplify         = "simplify"
)

// AddRule registers rule under name, replacing any earlier one.
func (e *Engine) AddRule(name string, rule rewrite.Rule) {
	e.rules[name] = rule
}

// Rule returns the rule registered under name, or nil.
func (e *Engine) Rule(name string) rewrite.Rule {
	return e.rules[name]
}

// RuleNames lists the registered rules, sorted.
func (e *Engine) RuleNames() []string {
	names := make([]string, 0, len(e.rules))
	for name := range e.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ruleOptions are given to every rule the engine builds. Natural rules get
// the library evaluator for constraints, and their outcomes are evaluated
// and flattened.
func (e *Engine) ruleOptions() []rewrite.Option {
	eval := library.Evaluator(rewrite.WithReporter(e.reporter))
	return []rewrite.Option{
		rewrite.WithReporter(e.reporter),
		rewrite.WithEvaluator(eval),
		rewrite.WithPost(rewrite.Seq([]rewrite.Rule{eval, library.FlattenRule()})),
	}
}

// LoadRules reads a YAML rule file with the engine's parser.
func (e *Engine) LoadRules(path string) (rewrite.Rule, error) {
	return rewrite.LoadFile(path, e.parser, e.ruleOptions()...)
}

// DecodeRules builds rule file data with the engine's parser.
func (e *Engine) DecodeRules(data []byte) (rewrite.Rule, error) {
	return rewrite.Decode(data, e.parser, e.ruleOptions()...)
}

func (e *Engine) registerBuiltins() {
	e.AddRule(RuleEvaluate, library.Evaluator(rewrite.WithReporter(e.reporter)))
	e.AddRule(RuleFlatten, library.FlattenRule(rewrite.WithReporter(e.reporter)))

	collect, err := e.collector()
	if err != nil {
		// Tables that respell +, * or forall cannot host the collector.
		e.logger.Debug("collect-like-terms unavailable for this table", zap.Error(err))
		return
	}
	e.AddRule(RuleCollectLikeTerms, collect)
	e.AddRule(RuleSimplify, rewrite.Seq([]rewrite.Rule{
		e.rules[RuleEvaluate],
		e.rules[RuleFlatten],
		collect,
	}, rewrite.Named(RuleSimplify)))
}

func (e *Engine) collector() (r rewrite.Rule, err error) {
	defer report.Recover(&err)
	return library.CollectLikeTerms(e.parser, rewrite.WithReporter(e.reporter), rewrite.BottomUp())
}
