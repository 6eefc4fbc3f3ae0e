package parser

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gnoswap-labs/symrw/internal/config"
	"github.com/gnoswap-labs/symrw/internal/expr"
	"github.com/gnoswap-labs/symrw/internal/report"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(+ 1 (* 2 3))"},
		{"a - b - c", "(- (- a b) c)"},
		{"a ^ b ^ c", "(^ a (^ b c))"},
		{"a - -b", "(- a (- b))"},
		{"-a * b", "(* (- a) b)"},
		{"- a ^ b", "(- (^ a b))"},
		{"x! + 1", "(+ (! x) 1)"},
		{"2 + 3!", "(+ 2 (! 3))"},
		{"a + b + c", "(+ a b c)"},
		{"a + (b + c)", "(+ a b c)"},
		{"(a + b) * c", "(* (+ a b) c)"},
		{"a + b * c ^ d", "(+ a (* b (^ c d)))"},
		{"f(x, y + 1)", "(f x (+ y 1))"},
		{"g()", "(g)"},
		{"D(x) f(x) + 1", "(+ (D x (f x)) 1)"},
		{"a and b or not c", "(or (and a b) (not c))"},
		{"x := y + 1", "(:= x (+ y 1))"},
		{"a = b + c", "(= a (+ b c))"},
		{"x <= y", "(<= x y)"},
		{"a star b", "(* a b)"},
		{"unit(5, m)", "[(unit 5 m)]"},
		{"n : isnumber(n)", "(: n (isnumber n))"},
		{"1.5e3", "1500"},
		{".5", "0.5"},
		{"x!@y", "(@ (! x) y)"},
		{"((a))", "a"},
	}

	p := New(config.Default())
	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := p.ParseOne(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseVariants(t *testing.T) {
	t.Parallel()

	p := New(nil)

	sum, err := p.ParseOne("a + b")
	require.NoError(t, err)
	assert.IsType(t, &expr.CommAssoc{}, sum)

	u, err := p.ParseOne("unit(5, m)")
	require.NoError(t, err)
	assert.IsType(t, &expr.Restricted{}, u)

	assign, err := p.ParseOne("x := 1")
	require.NoError(t, err)
	assert.IsType(t, &expr.Assign{}, assign)

	call, err := p.ParseOne("f(a)")
	require.NoError(t, err)
	assert.IsType(t, &expr.Container{}, call)
}

func TestParseRecordsBindingPowers(t *testing.T) {
	t.Parallel()

	p := New(config.Default())
	tests := []struct {
		input    string
		lbp, rbp int
	}{
		{"a ^ b", 701, 700},
		{"-a", 0, 650},
		{"x!", 800, 0},
		{"not a", 0, 80},
		{"f(a)", 0, 0},
		{"D(x) y", 0, 650},
	}
	for _, tt := range tests {
		e, err := p.ParseOne(tt.input)
		require.NoError(t, err, tt.input)
		c, ok := expr.AsCompound(e)
		require.True(t, ok, tt.input)
		lbp, rbp := c.BindingPower()
		assert.Equal(t, tt.lbp, lbp, tt.input)
		assert.Equal(t, tt.rbp, rbp, tt.input)
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		message string
		pos     int
	}{
		{"a b", "adjacent nonbinding tokens", 2},
		{"a not b", "adjacent nonbinding tokens", 2},
		{"* a", "adjacent binding tokens", 0},
		{"a +", "unbound right binding power", 2},
		{"(a + b", "missing closing parenthesis", 0},
		{"a ` b", "unrecognized character", 2},
		{"1e", "empty numeral", 0},
		{"1e+", "empty numeral", 0},
		{"a + 1e999", "out of range", 4},
		{"a)", "unexpected ')'", 1},
		{"a, b", "unexpected ','", 1},
	}

	p := New(config.Default())
	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := p.ParseOne(tt.input)
			require.Error(t, err)
			assert.Equal(t, expr.Null{}, got)

			var d *report.Diagnostic
			require.True(t, errors.As(err, &d))
			assert.Equal(t, report.KindSyntax, d.Kind)
			assert.Contains(t, d.Message, tt.message)
			assert.Equal(t, tt.pos, d.Pos)
		})
	}
}

func TestParseRecoversInsideGroups(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
		diags int
	}{
		{"f(a b, c)", "(f null c)", 1},
		{"f(a,)", "(f a null)", 1},
		{"(a b) + c", "(+ null c)", 1},
		{"() + c", "(+ null c)", 1},
		{"(a, b) * c", "(* null c)", 1},
		{"f(g(a b), h(* 1))", "(f (g null) (h null))", 2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			core, logs := observer.New(zapcore.WarnLevel)
			p := New(config.Default(), WithReporter(report.New(zap.New(core), report.ModePrint)))

			out := p.Parse(tt.input)
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].String())
			assert.Equal(t, tt.diags, logs.Len())
		})
	}
}

func TestParseStatements(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	p := New(config.Default(), WithReporter(report.New(zap.New(core), report.ModePrint)))

	out := p.Parse("a + 1\n\nb c; d;;\n")
	require.Len(t, out, 3)
	assert.Equal(t, "(+ a 1)", out[0].String())
	assert.True(t, expr.IsNull(out[1]))
	assert.Equal(t, "d", out[2].String())

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "syntax", logs.All()[0].ContextMap()["kind"])
}

func TestParseUnclosedReportedOnce(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	p := New(config.Default(), WithReporter(report.New(zap.New(core), report.ModePrint)))

	out := p.Parse("f(g(h(a; b")
	require.Len(t, out, 2)
	assert.True(t, expr.IsNull(out[0]))
	assert.Equal(t, "b", out[1].String())
	assert.Equal(t, 1, logs.Len())
}

func TestParseOneRaiseMode(t *testing.T) {
	t.Parallel()

	p := New(config.Default(), WithReporter(report.New(nil, report.ModeRaise)))
	got, err := p.ParseOne("a +")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unbound right binding power")
	assert.True(t, expr.IsNull(got))

	assert.Panics(t, func() { p.Parse("a b") })
}

func TestParseOneCountsStatements(t *testing.T) {
	t.Parallel()

	_, err := New(nil).ParseOne("a; b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected one statement, found 2")
}

func TestPostProcess(t *testing.T) {
	t.Parallel()

	calls := 0
	p := New(config.Default(), WithPostProcess(func(e expr.Expr) expr.Expr {
		calls++
		return expr.NewContainer("wrap", e)
	}))

	out := p.Parse("a; b c; d")
	require.Len(t, out, 3)
	assert.Equal(t, "(wrap a)", out[0].String())
	assert.True(t, expr.IsNull(out[1]))
	assert.Equal(t, "(wrap d)", out[2].String())
	assert.Equal(t, 2, calls)
}

func TestParseCustomTable(t *testing.T) {
	t.Parallel()

	tbl, err := config.New(
		config.WithOperator("+", 10, 10),
		config.WithOperator("*", 5, 5),
		config.WithOperator("->", 2, 1),
		config.WithSymbolOperator("mod", 20, 20),
	)
	require.NoError(t, err)
	p := New(tbl)

	tests := []struct {
		input string
		want  string
	}{
		// lower numbers bind looser, whatever the operator spelling
		{"a + b * c", "(* (+ a b) c)"},
		{"a -> b -> c", "(-> a (-> b c))"},
		{"a mod b + c", "(+ (mod a b) c)"},
	}
	for _, tt := range tests {
		got, err := p.ParseOne(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got.String(), tt.input)
	}
}

// TestParseNeverPanics feeds random token strings through random tables.
// Every statement must come back as a tree or as Null.
func TestParseNeverPanics(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	vocab := []string{"a", "b", "1", "2.5", "+", "-", "*", "^", "!", "~", "(", ")", ",", "f(", "D(", "not", "and"}

	for round := 0; round < 50; round++ {
		opts := []config.Option{
			config.WithDefault(rng.Intn(5), rng.Intn(5)),
			config.WithSymbolOperator("not", 0, 1+rng.Intn(9)),
			config.WithSymbolOperator("and", 1+rng.Intn(9), 1+rng.Intn(9)),
			config.WithBodied("D", 1+rng.Intn(9)),
			config.WithInfixPrefix("-", 1+rng.Intn(9)),
			config.WithConstructor("+", expr.KindCommAssoc),
		}
		for _, op := range []string{"+", "-", "*", "^", "!", "~"} {
			opts = append(opts, config.WithOperator(op, rng.Intn(9), rng.Intn(9)))
		}
		tbl, err := config.New(opts...)
		require.NoError(t, err)
		p := New(tbl)

		for i := 0; i < 40; i++ {
			var sb strings.Builder
			for n := rng.Intn(9); n >= 0; n-- {
				sb.WriteString(vocab[rng.Intn(len(vocab))])
				sb.WriteByte(' ')
			}
			src := sb.String()
			require.NotPanics(t, func() {
				for _, e := range p.Parse(src) {
					require.NotNil(t, e, src)
				}
			}, src)
		}
	}
}
