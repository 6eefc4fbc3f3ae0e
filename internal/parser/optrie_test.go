package parser

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gnoswap-labs/symrw/internal/config"
)

func TestOpTrieLongestPrefix(t *testing.T) {
	t.Parallel()

	trie := newOpTrie([]string{"+", "-", "->", "-->", ":=", "=", "==", ""})
	tests := []struct {
		in   string
		want int
	}{
		{"+", 1},
		{"->x", 2},
		{"-->", 3},
		{"--", 1},
		{"==>", 2},
		{":", 0},
		{":=", 2},
		{"", 0},
		{"*", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, trie.longestPrefix(tt.in), tt.in)
	}
}

func randomOperatorRun(n int) string {
	const chars = "+-*/^=<>!:&|"
	b := make([]byte, n)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))]
	}
	return string(b)
}

func BenchmarkOpTrieLongestPrefix(b *testing.B) {
	trie := newOpTrie(config.Default().Operators())
	runs := make([]string, 256)
	for i := range runs {
		runs[i] = randomOperatorRun(rand.Intn(6) + 1)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		trie.longestPrefix(runs[i%len(runs)])
	}
}
