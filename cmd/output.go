package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/gnoswap-labs/symrw"
	"github.com/gnoswap-labs/symrw/batch"
)

var (
	errorStyle  = color.New(color.FgRed, color.Bold)
	kindStyle   = color.New(color.FgYellow, color.Bold)
	fileStyle   = color.New(color.FgCyan, color.Bold)
	lineStyle   = color.New(color.FgBlue, color.Bold)
	resultStyle = color.New(color.FgGreen)
	treeStyle   = color.New(color.Faint)
)

// errFailed is returned when some input could not be handled. The details
// have already been printed.
var errFailed = errors.New("symrw: some inputs failed")

// printError writes the diagnostics carried by err, coloured line by line.
func printError(w io.Writer, filename, src string, err error) {
	text := symrw.FormatError(filename, src, err)
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		fmt.Fprint(w, colorLine(line))
	}
}

func colorLine(line string) string {
	switch {
	case strings.HasPrefix(line, "error["):
		end := strings.IndexByte(line, ']')
		return errorStyle.Sprint("error[") + kindStyle.Sprint(line[len("error["):end]) +
			errorStyle.Sprint("]") + line[end+1:]
	case strings.HasPrefix(line, "error:"):
		return errorStyle.Sprint("error:") + line[len("error:"):]
	case strings.HasPrefix(line, " --> "):
		return lineStyle.Sprint(" --> ") + fileStyle.Sprint(strings.TrimSuffix(line[len(" --> "):], "\n")) + "\n"
	case strings.HasPrefix(line, "  |"):
		return lineStyle.Sprint("  |") + errorStyle.Sprint(line[len("  |"):])
	}
	if i := strings.Index(line, " | "); i > 0 {
		return lineStyle.Sprint(line[:i+3]) + line[i+3:]
	}
	return line
}

// printResult writes the statements of res as "input => output" lines,
// followed by the file's diagnostics.
func printResult(w, errw io.Writer, res *batch.FileResult) {
	fmt.Fprintln(w, fileStyle.Sprint(res.Path))
	for _, st := range res.Statements {
		fmt.Fprintf(w, "%s %s %s", st.Input, lineStyle.Sprint("=>"), resultStyle.Sprint(st.Output))
		if !st.Converged {
			fmt.Fprintf(w, " %s", kindStyle.Sprintf("(stopped after %d steps)", st.Steps))
		}
		fmt.Fprintln(w)
	}
	if res.Err != nil {
		printError(errw, res.Path, res.Source, res.Err)
	}
}

// printJSON writes every result as one JSON document keyed by path.
func printJSON(w io.Writer, results []*batch.FileResult) error {
	byPath := make(map[string][]batch.Statement, len(results))
	for _, res := range results {
		byPath[res.Path] = res.Statements
	}
	d, err := json.MarshalIndent(byPath, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	_, err = fmt.Fprintln(w, string(d))
	return err
}
