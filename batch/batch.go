// Package batch rewrites expression files: one file or whole directory
// trees, on a bounded worker pool, optionally re-running on file changes.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/symrw"
	"github.com/gnoswap-labs/symrw/internal/expr"
	"github.com/gnoswap-labs/symrw/internal/rewrite"
)

// Statement is the outcome of rewriting one statement of a file.
type Statement struct {
	Index     int    `json:"index"`
	Input     string `json:"input"`
	Output    string `json:"output"`
	Steps     int    `json:"steps"`
	Converged bool   `json:"converged"`
}

// FileResult holds every rewritten statement of a file. Err is the parse or
// rewrite error of the file, if any; statements that parsed are still
// reported next to it.
type FileResult struct {
	Path       string      `json:"path"`
	Source     string      `json:"-"`
	Statements []Statement `json:"statements"`
	Err        error       `json:"-"`
}

// Processor rewrites one file.
type Processor func(path string) (*FileResult, error)

// Rewriter returns a processor that normalizes every statement of a file
// with rule.
func Rewriter(eng *symrw.Engine, rule rewrite.Rule) Processor {
	return func(path string) (*FileResult, error) {
		return ProcessFile(eng, rule, path)
	}
}

// ProcessFile reads path and normalizes each of its statements with rule.
// Statements that fail to parse are skipped; the syntax errors are kept in
// the result.
func ProcessFile(eng *symrw.Engine, rule rewrite.Rule, path string) (*FileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res := &FileResult{Path: path, Source: string(data)}

	trees, err := eng.Parse(res.Source)
	if err != nil {
		res.Err = err
		var pe *symrw.ParseError
		if !errors.As(err, &pe) {
			return res, nil
		}
	}

	for i, tree := range trees {
		if expr.IsNull(tree) {
			continue
		}
		out, r, err := eng.Normalize(rule, tree)
		if err != nil {
			res.Err = err
			return res, nil
		}
		res.Statements = append(res.Statements, Statement{
			Index:     i,
			Input:     eng.String(tree),
			Output:    eng.String(out),
			Steps:     r.Steps,
			Converged: r.Converged,
		})
	}
	return res, nil
}

// Extensions lists the file extensions picked up when walking directories.
var Extensions = map[string]bool{
	".sym":  true,
	".expr": true,
}

func hasDesiredExtension(path string) bool {
	return Extensions[filepath.Ext(path)]
}

// Collect expands paths into the files to process. Files named explicitly
// are kept whatever their extension; directories contribute the files with
// a known extension.
func Collect(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.Walk(path, func(filePath string, fileInfo os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fileInfo.IsDir() && hasDesiredExtension(filePath) {
				files = append(files, filePath)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking directory %s: %w", path, err)
		}
	}
	return files, nil
}

// ProcessFiles runs processor over every file under paths on a pool of
// runtime.NumCPU() workers. Results come back in file order. A progress
// bar is written to progress when it is non-nil and there is more than one
// file.
//
// Files whose processor fails are logged and left out. When ctx is
// cancelled the results gathered so far are returned with ctx.Err().
func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	paths []string,
	processor Processor,
	progress io.Writer,
) ([]*FileResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	files, err := Collect(paths)
	if err != nil {
		return nil, err
	}

	var bar *progressbar.ProgressBar
	if progress != nil && len(files) > 1 {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(progress),
			progressbar.OptionSetDescription("rewriting"),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	results := make([]*FileResult, len(files))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

	var ctxErr error
dispatch:
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break dispatch
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int, fp string) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := processor(fp)
			if err != nil {
				logger.Error("Error processing file", zap.String("file", fp), zap.Error(err))
			} else {
				results[i] = res
			}
			if bar != nil {
				_ = bar.Add(1)
			}
		}(i, file)
	}
	wg.Wait()
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(progress)
	}

	out := make([]*FileResult, 0, len(results))
	for _, res := range results {
		if res != nil {
			out = append(out, res)
		}
	}
	return out, ctxErr
}
