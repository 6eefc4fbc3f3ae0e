package batch

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/symrw"
)

func TestCache(t *testing.T) {
	t.Parallel()

	cache, err := NewCache("", "")
	require.NoError(t, err)

	statements := []Statement{{Index: 0, Input: "1 + 1", Output: "2", Steps: 1, Converged: true}}

	t.Run("Hit", func(t *testing.T) {
		require.NoError(t, cache.Set("a.sym", []byte("1 + 1"), statements))
		got, ok := cache.Get("a.sym", []byte("1 + 1"))
		assert.True(t, ok)
		assert.Equal(t, statements, got)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, ok := cache.Get("missing.sym", []byte("x"))
		assert.False(t, ok)
	})

	t.Run("ContentChanged", func(t *testing.T) {
		require.NoError(t, cache.Set("b.sym", []byte("1 + 1"), statements))
		_, ok := cache.Get("b.sym", []byte("1 + 2"))
		assert.False(t, ok)
		_, ok = cache.Get("b.sym", []byte("1 + 1"))
		assert.False(t, ok, "a stale entry is dropped")
	})
}

func TestCacheMaxAge(t *testing.T) {
	t.Parallel()

	cache, err := NewCache("", "")
	require.NoError(t, err)
	require.NoError(t, cache.Set("a.sym", []byte("a"), nil))

	cache.SetMaxAge(time.Nanosecond)
	time.Sleep(time.Millisecond)
	_, ok := cache.Get("a.sym", []byte("a"))
	assert.False(t, ok)
}

func TestCachePersistence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.yaml")
	writeFile(t, rules, "rules: []\n")
	cacheDir := filepath.Join(dir, "cache")

	statements := []Statement{{Input: "a", Output: "a", Converged: true}}
	cache, err := NewCache(cacheDir, "", rules)
	require.NoError(t, err)
	require.NoError(t, cache.Set("a.sym", []byte("a"), statements))

	reopened, err := NewCache(cacheDir, "", rules)
	require.NoError(t, err)
	got, ok := reopened.Get("a.sym", []byte("a"))
	require.True(t, ok)
	assert.Equal(t, statements, got)

	writeFile(t, rules, "rules: [] # edited\n")
	changed, err := NewCache(cacheDir, "", rules)
	require.NoError(t, err)
	assert.Zero(t, changed.Len(), "a changed dependency invalidates the stored entries")

	require.NoError(t, reopened.InvalidateAll())
	again, err := NewCache(cacheDir, "")
	require.NoError(t, err)
	assert.Zero(t, again.Len())

	_, err = NewCache(cacheDir, "", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestCacheSettings(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	statements := []Statement{{Input: "a", Output: "a", Converged: true}}

	cache, err := NewCache(cacheDir, "max-steps=1")
	require.NoError(t, err)
	require.NoError(t, cache.Set("a.sym", []byte("a"), statements))

	same, err := NewCache(cacheDir, "max-steps=1")
	require.NoError(t, err)
	assert.Equal(t, 1, same.Len())

	other, err := NewCache(cacheDir, "max-steps=100")
	require.NoError(t, err)
	assert.Zero(t, other.Len(), "different settings do not share entries")
}

func TestCached(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "good.sym")
	bad := filepath.Join(dir, "bad.sym")
	writeFile(t, good, "2 + 3")
	writeFile(t, bad, "2 +")

	cache, err := NewCache("", "")
	require.NoError(t, err)

	var calls atomic.Int32
	rewriter := Rewriter(eng, eng.Rule(symrw.RuleEvaluate))
	processor := Cached(cache, func(path string) (*FileResult, error) {
		calls.Add(1)
		return rewriter(path)
	})

	for i := 0; i < 2; i++ {
		res, err := processor(good)
		require.NoError(t, err)
		require.Len(t, res.Statements, 1)
		assert.Equal(t, "5", res.Statements[0].Output)
	}
	assert.Equal(t, int32(1), calls.Load())

	writeFile(t, good, "2 + 4")
	res, err := processor(good)
	require.NoError(t, err)
	assert.Equal(t, "6", res.Statements[0].Output)
	assert.Equal(t, int32(2), calls.Load())

	for i := 0; i < 2; i++ {
		res, err := processor(bad)
		require.NoError(t, err)
		assert.Error(t, res.Err)
	}
	assert.Equal(t, int32(4), calls.Load(), "failed files are not cached")

	_, err = processor(filepath.Join(dir, "missing.sym"))
	assert.Error(t, err)
}

func TestCachedSkipsUnconverged(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a.sym")
	writeFile(t, path, "2 * x + 3 * x + 4 * x")

	cache, err := NewCache("", "")
	require.NoError(t, err)

	var calls atomic.Int32
	processor := Cached(cache, func(path string) (*FileResult, error) {
		calls.Add(1)
		return &FileResult{
			Path:       path,
			Source:     "2 * x + 3 * x + 4 * x",
			Statements: []Statement{{Input: "2 * x + 3 * x + 4 * x", Output: "5 * x + 4 * x", Steps: 1}},
		}, nil
	})

	for i := 0; i < 2; i++ {
		res, err := processor(path)
		require.NoError(t, err)
		assert.False(t, res.Statements[0].Converged)
	}
	assert.Equal(t, int32(2), calls.Load())
	assert.Zero(t, cache.Len())
}

func TestCachedKeysByRewrittenSource(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)
	path := filepath.Join(t.TempDir(), "a.sym")
	writeFile(t, path, "2 + 3")

	cache, err := NewCache("", "")
	require.NoError(t, err)

	var calls atomic.Int32
	rewriter := Rewriter(eng, eng.Rule(symrw.RuleEvaluate))
	processor := Cached(cache, func(p string) (*FileResult, error) {
		if calls.Add(1) == 1 {
			// the file changes between the cache lookup and the rewrite
			writeFile(t, p, "2 + 4")
		}
		return rewriter(p)
	})

	res, err := processor(path)
	require.NoError(t, err)
	assert.Equal(t, "6", res.Statements[0].Output)

	res, err = processor(path)
	require.NoError(t, err)
	assert.Equal(t, "6", res.Statements[0].Output)
	assert.Equal(t, int32(1), calls.Load())

	writeFile(t, path, "2 + 3")
	res, err = processor(path)
	require.NoError(t, err)
	assert.Equal(t, "5", res.Statements[0].Output)
	assert.Equal(t, int32(2), calls.Load())
}
