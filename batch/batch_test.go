package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/symrw"
)

func newEngine(t *testing.T) *symrw.Engine {
	t.Helper()
	eng, err := symrw.New()
	require.NoError(t, err)
	return eng
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestProcessFile(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)
	path := filepath.Join(t.TempDir(), "a.sym")
	writeFile(t, path, "2 * x + 3 * x\nf(1 + 2)\n")

	res, err := ProcessFile(eng, eng.Rule(symrw.RuleSimplify), path)
	require.NoError(t, err)
	require.NoError(t, res.Err)
	require.Len(t, res.Statements, 2)

	assert.Equal(t, "2 * x + 3 * x", res.Statements[0].Input)
	assert.Equal(t, "5 * x", res.Statements[0].Output)
	assert.True(t, res.Statements[0].Converged)
	assert.Positive(t, res.Statements[0].Steps)
	assert.Equal(t, "f(3)", res.Statements[1].Output)
	assert.Equal(t, 1, res.Statements[1].Index)
}

func TestProcessFileKeepsSyntaxErrors(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)
	path := filepath.Join(t.TempDir(), "bad.sym")
	writeFile(t, path, "1 +\n2 + 2\n")

	res, err := ProcessFile(eng, eng.Rule(symrw.RuleEvaluate), path)
	require.NoError(t, err)

	var pe *symrw.ParseError
	require.True(t, errors.As(res.Err, &pe))
	require.Len(t, res.Statements, 1)
	assert.Equal(t, 1, res.Statements[0].Index)
	assert.Equal(t, "4", res.Statements[0].Output)
}

func TestProcessFileMissing(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)
	_, err := ProcessFile(eng, eng.Rule(symrw.RuleEvaluate), filepath.Join(t.TempDir(), "nope.sym"))
	assert.Error(t, err)
}

func TestCollect(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.sym"), "a")
	writeFile(t, filepath.Join(dir, "sub", "b.expr"), "b")
	writeFile(t, filepath.Join(dir, "notes.txt"), "c")
	extra := filepath.Join(t.TempDir(), "explicit.txt")
	writeFile(t, extra, "d")

	files, err := Collect([]string{dir, extra})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.sym"),
		filepath.Join(dir, "sub", "b.expr"),
		extra,
	}, files)

	_, err = Collect([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestProcessFiles(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)
	dir := t.TempDir()
	for i := 0; i < 6; i++ {
		writeFile(t, filepath.Join(dir, fmt.Sprintf("f%d.sym", i)), fmt.Sprintf("%d + %d", i, i))
	}

	var progress bytes.Buffer
	results, err := ProcessFiles(context.Background(), nil, []string{dir}, Rewriter(eng, eng.Rule(symrw.RuleEvaluate)), &progress)
	require.NoError(t, err)
	require.Len(t, results, 6)
	for i, res := range results {
		assert.Equal(t, filepath.Join(dir, fmt.Sprintf("f%d.sym", i)), res.Path)
		require.Len(t, res.Statements, 1)
		assert.Equal(t, fmt.Sprint(2*i), res.Statements[0].Output)
	}
	assert.NotEmpty(t, progress.String())
}

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) Process(path string) (*FileResult, error) {
	args := m.Called(path)
	res, _ := args.Get(0).(*FileResult)
	return res, args.Error(1)
}

func TestProcessFilesSkipsFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.sym")
	fail := filepath.Join(dir, "fail.sym")
	writeFile(t, ok, "a")
	writeFile(t, fail, "b")

	processor := new(mockProcessor)
	processor.On("Process", ok).Return(&FileResult{Path: ok}, nil).Once()
	processor.On("Process", fail).Return(nil, errors.New("boom")).Once()

	results, err := ProcessFiles(context.Background(), nil, []string{dir}, processor.Process, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ok, results[0].Path)
	processor.AssertExpectations(t)
}

func TestProcessFilesCancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for i := 0; i < 4; i++ {
		writeFile(t, filepath.Join(dir, fmt.Sprintf("f%d.sym", i)), "a")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := func(path string) (*FileResult, error) {
		return &FileResult{Path: path}, nil
	}
	_, err := ProcessFiles(ctx, nil, []string{dir}, processor, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatch(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "w.sym")
	writeFile(t, path, "1 + 1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *FileResult, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, nil, []string{dir}, Rewriter(eng, eng.Rule(symrw.RuleEvaluate)), func(res *FileResult, err error) {
			if err == nil {
				got <- res
			}
		})
	}()

	// Give the watcher time to register the directory, then write until a
	// result arrives.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case res := <-got:
			require.Len(t, res.Statements, 1)
			assert.Equal(t, "5", res.Statements[0].Output)
			cancel()
			assert.NoError(t, <-done)
			return
		case <-tick.C:
			writeFile(t, path, "2 + 3")
		case <-deadline:
			t.Fatal("no result from watcher")
		}
	}
}

func TestWatchNewDirectory(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "deeper", "n.sym")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *FileResult, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, nil, []string{dir}, Rewriter(eng, eng.Rule(symrw.RuleEvaluate)), func(res *FileResult, err error) {
			if err == nil {
				got <- res
			}
		})
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case res := <-got:
			assert.Equal(t, path, res.Path)
			require.Len(t, res.Statements, 1)
			assert.Equal(t, "5", res.Statements[0].Output)
			cancel()
			assert.NoError(t, <-done)
			return
		case <-tick.C:
			writeFile(t, path, "2 + 3")
		case <-deadline:
			t.Fatal("no result from watcher")
		}
	}
}
