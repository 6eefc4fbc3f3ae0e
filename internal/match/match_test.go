package match

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gnoswap-labs/symrw/internal/expr"
	"github.com/gnoswap-labs/symrw/internal/parser"
	"github.com/gnoswap-labs/symrw/internal/report"
)

func mustParse(t *testing.T, src string) expr.Expr {
	t.Helper()
	e, err := parser.New(nil).ParseOne(src)
	require.NoError(t, err, src)
	return e
}

// isNumber decides isnumber(v) and leaves anything else alone.
var isNumber = EvaluatorFunc(func(e expr.Expr) expr.Expr {
	if c, ok := e.(*expr.Container); ok && c.Name() == "isnumber" && c.Len() == 1 {
		_, num := c.At(0).(*expr.Number)
		return expr.Bool(num)
	}
	return e
})

func TestBindingsArePersistent(t *testing.T) {
	t.Parallel()

	var empty Bindings
	a := empty.Bind("x", expr.NewSymbol("a"))
	b := a.Bind("y", expr.NewInt(1))
	c := b.Bind("x", expr.NewSymbol("z"))

	assert.Zero(t, empty.Len())
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 2, c.Len())

	x, ok := b.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, "a", x.String())

	x, _ = c.Lookup("x")
	assert.Equal(t, "z", x.String())

	_, ok = a.Lookup("y")
	assert.False(t, ok)

	assert.Equal(t, []string{"x", "y"}, c.Names())
	assert.Equal(t, "{x: z, y: 1}", c.String())
}

func TestNewBindings(t *testing.T) {
	t.Parallel()

	b := NewBindings(map[string]expr.Expr{"n": expr.NewInt(2), "m": expr.NewInt(3)})
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, "{m: 3, n: 2}", b.String())
}

func TestGatherNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		gather bool
		min    int
	}{
		{"__rest", true, 0},
		{"__rest2", true, 2},
		{"__12", true, 12},
		{"__", false, 0},
		{"_x", false, 0},
		{"x3", false, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.gather, IsGather(tt.name), tt.name)
		if tt.gather {
			assert.Equal(t, tt.min, MinCount(tt.name), tt.name)
		}
	}
}

func TestNewRequiresEvaluatorForConstraints(t *testing.T) {
	t.Parallel()

	_, err := New(Vars{"n": expr.NewContainer("isnumber", expr.Any)}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoEvaluator))

	_, err = New(Vars{"n": nil}, nil)
	assert.NoError(t, err)
}

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		vars    Vars
		pattern string
		target  string
		want    string // bindings, or "" for no match
	}{
		{
			name:    "ordered container",
			vars:    Vars{"x": nil, "y": nil},
			pattern: "f(x, y)",
			target:  "f(1, 2)",
			want:    "{x: 1, y: 2}",
		},
		{
			name:    "repeated variable must agree",
			vars:    Vars{"x": nil},
			pattern: "f(x, x)",
			target:  "f(1, 2)",
		},
		{
			name:    "repeated variable agrees",
			vars:    Vars{"x": nil},
			pattern: "f(x, x)",
			target:  "f(a + b, b + a)",
			want:    "{x: (+ a b)}",
		},
		{
			name:    "commutative plain item in any position",
			vars:    Vars{"x": nil},
			pattern: "x + 1",
			target:  "1 + a",
			want:    "{x: a}",
		},
		{
			name:    "backtracking over earlier choices",
			vars:    Vars{"x": nil, "y": nil},
			pattern: "f(x) + f(y) + g(y)",
			target:  "f(a) + f(b) + g(a)",
			want:    "{x: b, y: a}",
		},
		{
			name:    "surplus target items fail without gather",
			vars:    Vars{"x": nil},
			pattern: "x + 1",
			target:  "1 + a + b",
		},
		{
			name:    "gather collects the rest",
			vars:    Vars{"x": nil, "__rest": nil},
			pattern: "f(x) + __rest",
			target:  "a + f(b) + c",
			want:    "{__rest: (+ a c), x: b}",
		},
		{
			name:    "gather may be empty",
			vars:    Vars{"x": nil, "__rest": nil},
			pattern: "f(x) + f(c) + __rest",
			target:  "f(b) + f(c)",
			want:    "{__rest: (+), x: b}",
		},
		{
			name:    "gather minimum count",
			vars:    Vars{"x": nil, "__rest2": nil},
			pattern: "x + __rest2",
			target:  "a + b",
		},
		{
			name:    "gather with constraint retries assignments",
			vars:    Vars{"x": nil, "__nums": mustParseVar("isnumber(any)")},
			pattern: "x + __nums",
			target:  "1 + 2 + a",
			want:    "{__nums: (+ 1 2), x: a}",
		},
		{
			name:    "constraint on a plain variable",
			vars:    Vars{"n": mustParseVar("isnumber(n)"), "x": nil},
			pattern: "n * x",
			target:  "y * 3",
			want:    "{n: 3, x: y}",
		},
		{
			name:    "constraint rejects",
			vars:    Vars{"n": mustParseVar("isnumber(n)")},
			pattern: "f(n)",
			target:  "f(y)",
		},
		{
			name:    "restricted is sealed",
			vars:    Vars{"x": nil},
			pattern: "unit(x, m)",
			target:  "unit(5, m)",
		},
		{
			name:    "restricted matches itself",
			vars:    Vars{"x": nil},
			pattern: "unit(5, m)",
			target:  "unit(5, m)",
			want:    "{}",
		},
		{
			name:    "assign target slot is literal",
			vars:    Vars{"x": nil, "y": nil},
			pattern: "x := y",
			target:  "a := 1",
		},
		{
			name:    "assign value slot binds",
			vars:    Vars{"y": nil},
			pattern: "a := y",
			target:  "a := 1",
			want:    "{y: 1}",
		},
		{
			name:    "nested commutative inside container",
			vars:    Vars{"x": nil, "y": nil},
			pattern: "f(x * y, y)",
			target:  "f(b * a, a)",
			want:    "{x: b, y: a}",
		},
		{
			name:    "different operator",
			vars:    Vars{"x": nil},
			pattern: "x + 1",
			target:  "x * 1",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := New(tt.vars, isNumber)
			require.NoError(t, err)

			got, ok := m.Match(mustParse(t, tt.pattern), mustParse(t, tt.target), Bindings{})
			if tt.want == "" {
				assert.False(t, ok)
				assert.Zero(t, got.Len())
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func mustParseVar(src string) expr.Expr {
	e, err := parser.New(nil).ParseOne(src)
	if err != nil {
		panic(err)
	}
	return e
}

func TestMatchStartsFromBindings(t *testing.T) {
	t.Parallel()

	m, err := New(Vars{"x": nil, "__r": nil}, nil)
	require.NoError(t, err)

	start := Bindings{}.Bind("x", expr.NewSymbol("b"))
	got, ok := m.Match(mustParse(t, "x + __r"), mustParse(t, "a + b"), start)
	require.True(t, ok)
	assert.Equal(t, "{__r: (+ a), x: b}", got.String())

	// the caller's bindings are untouched
	assert.Equal(t, 1, start.Len())
}

func TestMatchGatherRebinding(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	m, err := New(Vars{"x": nil, "__r": nil}, nil,
		WithReporter(report.New(zap.New(core), report.ModePrint)))
	require.NoError(t, err)

	start := Bindings{}.Bind("__r", expr.NewCommAssoc("+", expr.NewSymbol("c")))
	got, ok := m.Match(mustParse(t, "x + __r"), mustParse(t, "a + b"), start)
	assert.False(t, ok)
	assert.Equal(t, start, got)

	require.NotZero(t, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.DebugLevel, entry.Level)
	assert.Equal(t, "match", entry.ContextMap()["kind"])

	// an equal prior binding is accepted
	start = Bindings{}.Bind("__r", expr.NewCommAssoc("+", expr.NewSymbol("b")))
	_, ok = m.Match(mustParse(t, "x + __r"), mustParse(t, "a + b"), start)
	assert.True(t, ok)
}

func TestMatchCommutativeMisuse(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	m, err := New(Vars{"x": nil}, nil, WithReporter(report.New(zap.New(core), report.ModePrint)))
	require.NoError(t, err)

	assert.False(t, m.Matches(mustParse(t, "x + 1"), expr.NewSymbol("a")))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "commutative pattern against non-commutative target", logs.All()[0].Message)
}

// TestMatchShuffledTargets checks that item order in a commutative target
// never changes whether a match exists, and that the bindings found always
// rebuild the target.
func TestMatchShuffledTargets(t *testing.T) {
	t.Parallel()

	m, err := New(Vars{"x": nil, "y": nil, "z": nil, "__rest": nil}, nil)
	require.NoError(t, err)
	pattern := mustParse(t, "f(x) + f(y) + g(y) + h(z, x) + __rest")
	sum, ok := expr.AsCompound(mustParse(t, "f(a) + f(b) + g(b) + h(c, a) + k + 7"))
	require.True(t, ok)
	items := sum.Items()

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		rng.Shuffle(len(items), func(a, b int) { items[a], items[b] = items[b], items[a] })
		target := expr.NewCommAssoc("+", items...)

		got, ok := m.Match(pattern, target, Bindings{})
		require.True(t, ok, target.String())

		rebuilt := expr.Flatten(substitute(pattern, got))
		assert.True(t, expr.Equal(target, rebuilt), "%s vs %s", target, rebuilt)

		x, _ := got.Lookup("x")
		assert.Equal(t, "a", x.String())
	}
}

func substitute(e expr.Expr, b Bindings) expr.Expr {
	return expr.BottomUp(e, func(n expr.Expr) expr.Expr {
		if s, ok := n.(*expr.Symbol); ok {
			if v, ok := b.Lookup(s.Name()); ok {
				return v
			}
		}
		return n
	})
}
