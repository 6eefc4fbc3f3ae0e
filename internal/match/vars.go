package match

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gnoswap-labs/symrw/internal/expr"
)

// GatherPrefix marks a pattern variable that collects the leftover items
// of a commutative node.
const GatherPrefix = "__"

// Vars declares the pattern variables of a rule. Each name maps to a
// constraint template, or to nil when the variable is unconstrained.
//
// Inside a template both the variable's own name and the reserved symbol
// "any" stand for the candidate value.
type Vars map[string]expr.Expr

// Has reports whether name is a declared variable.
func (v Vars) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// Constraint returns the template declared for name, if any.
func (v Vars) Constraint(name string) expr.Expr {
	return v[name]
}

// Names returns the declared names in sorted order.
func (v Vars) Names() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsGather reports whether name is spelled as a gather variable.
func IsGather(name string) bool {
	return strings.HasPrefix(name, GatherPrefix) && len(name) > len(GatherPrefix)
}

// MinCount returns the minimum number of items a gather variable must
// collect, read from the digits that end its name ("__rest2" needs two).
func MinCount(name string) int {
	i := len(name)
	for i > len(GatherPrefix) && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return 0
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		return 0
	}
	return n
}
