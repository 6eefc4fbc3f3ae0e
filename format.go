package symrw

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gnoswap-labs/symrw/internal/report"
)

const tabWidth = 8

// expandTabs replaces tab characters with spaces, considering a tab width of 8
func expandTabs(line string) string {
	var expanded strings.Builder
	column := 0
	for _, ch := range line {
		if ch == '\t' {
			spaceCount := tabWidth - (column % tabWidth)
			expanded.WriteString(strings.Repeat(" ", spaceCount))
			column += spaceCount
			continue
		}
		expanded.WriteRune(ch)
		column++
	}
	return expanded.String()
}

// position converts a byte offset into a 1-based line and the line's text.
// The returned column is the byte offset within the line.
func position(src string, offset int) (line int, text string, column int) {
	if offset > len(src) {
		offset = len(src)
	}
	start := strings.LastIndexByte(src[:offset], '\n') + 1
	end := strings.IndexByte(src[offset:], '\n')
	if end < 0 {
		end = len(src)
	} else {
		end += offset
	}
	return strings.Count(src[:start], "\n") + 1, src[start:end], offset - start
}

func visualColumn(line string, column int) int {
	visual := 0
	for i, ch := range line {
		if i >= column {
			break
		}
		if ch == '\t' {
			visual += tabWidth - (visual % tabWidth)
		} else {
			visual++
		}
	}
	return visual
}

// FormatDiagnostic renders d with the offending source line and an arrow
// under the reported position. Diagnostics without a position are
// rendered as a single header.
func FormatDiagnostic(filename, src string, d *report.Diagnostic) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("error[%s]: %s\n", d.Kind, d.Message))
	if d.Pos < 0 {
		builder.WriteString(fmt.Sprintf(" --> %s\n", filename))
		return builder.String()
	}

	line, text, column := position(src, d.Pos)
	builder.WriteString(fmt.Sprintf(" --> %s:%d:%d\n", filename, line, column+1))
	builder.WriteString("  |\n")
	builder.WriteString(fmt.Sprintf("%d | %s\n", line, expandTabs(text)))
	builder.WriteString("  | ")
	builder.WriteString(strings.Repeat(" ", visualColumn(text, column)))
	builder.WriteString("^\n")
	return builder.String()
}

// FormatError renders every diagnostic carried by err. Errors that are not
// diagnostics are rendered as their message.
func FormatError(filename, src string, err error) string {
	var pe *ParseError
	if errors.As(err, &pe) {
		var builder strings.Builder
		for _, d := range pe.Diagnostics {
			builder.WriteString(FormatDiagnostic(filename, src, d))
			builder.WriteString("\n")
		}
		return builder.String()
	}
	var d *report.Diagnostic
	if errors.As(err, &d) {
		return FormatDiagnostic(filename, src, d)
	}
	return fmt.Sprintf("error: %s: %v\n", filename, err)
}
