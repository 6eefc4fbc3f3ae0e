package match

import (
	"go.uber.org/zap"

	"github.com/gnoswap-labs/symrw/internal/expr"
)

// matchCommutative matches a commutative pattern against a target of the
// same operator in three phases:
//
//  1. items without variables each consume one equal target item;
//  2. items with variables are assigned to the remaining targets by
//     backtracking search;
//  3. gather variables collect what is left.
//
// Phase 3 runs inside the continuation of phase 2, so an assignment that
// leaves items no gather variable accepts is abandoned for the next one.
func (m *Matcher) matchCommutative(p, t *expr.CommAssoc, b Bindings, k cont) bool {
	targets := t.Items()
	used := make([]bool, len(targets))

	var plain, withVars []expr.Expr
	var gathers []string
	for _, item := range p.Items() {
		switch {
		case m.isGatherVar(item):
			gathers = append(gathers, item.(*expr.Symbol).Name())
		case m.hasVars(item):
			withVars = append(withVars, item)
		default:
			plain = append(plain, item)
		}
	}

	for _, item := range plain {
		j := unusedEqual(targets, used, item)
		if j < 0 {
			return false
		}
		used[j] = true
	}

	s := &commSearch{
		m:       m,
		op:      p.Name(),
		targets: targets,
		used:    used,
		hashes:  make([]uint64, len(targets)),
	}
	for j, item := range targets {
		s.hashes[j] = expr.Hash(item)
	}
	return s.assign(withVars, b, func(nb Bindings) bool {
		return s.gather(gathers, nb, k)
	})
}

func (m *Matcher) isGatherVar(e expr.Expr) bool {
	s, ok := e.(*expr.Symbol)
	return ok && IsGather(s.Name()) && m.vars.Has(s.Name())
}

func unusedEqual(targets []expr.Expr, used []bool, item expr.Expr) int {
	for j, t := range targets {
		if !used[j] && expr.Equal(item, t) {
			return j
		}
	}
	return -1
}

// commSearch is the mutable state of one commutative match. used marks the
// target items consumed along the current branch.
type commSearch struct {
	m       *Matcher
	op      string
	targets []expr.Expr
	used    []bool
	hashes  []uint64
}

// assign tries every unused target for items[0], then recurses on the rest.
// Targets equal to one already tried for the same item are skipped since
// they would lead to the same outcome.
func (s *commSearch) assign(items []expr.Expr, b Bindings, k cont) bool {
	if len(items) == 0 {
		return k(b)
	}
	var tried []int
	for j, t := range s.targets {
		if s.used[j] || s.triedEqual(tried, j) {
			continue
		}
		tried = append(tried, j)

		s.used[j] = true
		ok := s.m.match(items[0], t, b, func(nb Bindings) bool {
			return s.assign(items[1:], nb, k)
		})
		s.used[j] = false
		if ok {
			return true
		}
	}
	return false
}

func (s *commSearch) triedEqual(tried []int, j int) bool {
	for _, i := range tried {
		if s.hashes[i] == s.hashes[j] && expr.Equal(s.targets[i], s.targets[j]) {
			return true
		}
	}
	return false
}

// gather binds each gather variable to the unused targets satisfying its
// constraint, wrapped in a node of the pattern's operator. The match holds
// only if nothing is left over.
func (s *commSearch) gather(names []string, b Bindings, k cont) bool {
	if len(names) == 0 {
		for _, u := range s.used {
			if !u {
				return false
			}
		}
		return k(b)
	}

	name := names[0]
	var picked []int
	var items []expr.Expr
	for j, t := range s.targets {
		if !s.used[j] && s.m.satisfies(name, t) {
			picked = append(picked, j)
			items = append(items, t)
		}
	}
	if len(picked) < MinCount(name) {
		return false
	}

	value := expr.NewCommAssoc(s.op, items...)
	if prev, ok := b.Lookup(name); ok {
		if !expr.Equal(prev, value) {
			s.m.misuse("gather variable rebound to a different value",
				zap.String("var", name), zap.Stringer("bound", prev), zap.Stringer("new", value))
			return false
		}
	} else {
		b = b.Bind(name, value)
	}

	for _, j := range picked {
		s.used[j] = true
	}
	ok := s.gather(names[1:], b, k)
	for _, j := range picked {
		s.used[j] = false
	}
	return ok
}
