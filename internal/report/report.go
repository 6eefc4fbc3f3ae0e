// Package report is the single place where recoverable engine errors are
// surfaced. The engine only reports; whether a diagnostic is logged,
// raised or dropped is chosen by the caller through the Mode.
package report

import (
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// Mode selects what happens to a reported diagnostic.
type Mode int

const (
	// ModePrint logs the diagnostic and continues.
	ModePrint Mode = iota
	// ModeRaise panics with the diagnostic. Callers recover it with Recover.
	ModeRaise
	// ModeSilent drops the diagnostic.
	ModeSilent
)

func (m Mode) String() string {
	switch m {
	case ModePrint:
		return "print"
	case ModeRaise:
		return "raise"
	case ModeSilent:
		return "silent"
	default:
		return "?"
	}
}

// ParseMode reads a mode name as used on the command line and in settings.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "print":
		return ModePrint, nil
	case "raise":
		return ModeRaise, nil
	case "silent":
		return ModeSilent, nil
	}
	return ModePrint, fmt.Errorf("unknown report mode %q (want print, raise or silent)", s)
}

// Kind classifies a diagnostic.
type Kind string

const (
	KindSyntax   Kind = "syntax"
	KindPath     Kind = "path"
	KindMutation Kind = "mutation"
	KindMatch    Kind = "match"
	KindConfig   Kind = "config"
)

// Diagnostic is a reported engine error.
type Diagnostic struct {
	Kind    Kind
	Message string
	// Pos is a byte offset into the parsed source, or -1.
	Pos int
	Err error
}

func (d *Diagnostic) Error() string {
	var sb strings.Builder
	sb.WriteString(string(d.Kind))
	sb.WriteString(" error")
	if d.Pos >= 0 {
		fmt.Fprintf(&sb, " at %d", d.Pos)
	}
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	if d.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(d.Err.Error())
	}
	return sb.String()
}

func (d *Diagnostic) Unwrap() error { return d.Err }

// Reporter routes diagnostics according to its mode. A nil *Reporter
// discards everything.
type Reporter struct {
	logger *zap.Logger
	mode   Mode
	count  atomic.Int64
}

// New returns a reporter writing to logger. A nil logger is replaced by a
// no-op logger.
func New(logger *zap.Logger, mode Mode) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{logger: logger, mode: mode}
}

// Nop returns a silent reporter.
func Nop() *Reporter { return New(nil, ModeSilent) }

func (r *Reporter) Mode() Mode {
	if r == nil {
		return ModeSilent
	}
	return r.mode
}

// Count returns how many diagnostics have been reported, whatever the mode.
func (r *Reporter) Count() int64 {
	if r == nil {
		return 0
	}
	return r.count.Load()
}

// Report surfaces d.
func (r *Reporter) Report(d *Diagnostic) {
	if r == nil {
		return
	}
	r.count.Add(1)
	switch r.mode {
	case ModeRaise:
		panic(d)
	case ModeSilent:
		return
	}
	fields := []zap.Field{zap.String("kind", string(d.Kind))}
	if d.Pos >= 0 {
		fields = append(fields, zap.Int("pos", d.Pos))
	}
	if d.Err != nil {
		fields = append(fields, zap.Error(d.Err))
	}
	r.logger.Warn(d.Message, fields...)
}

// Reportf builds and reports a diagnostic without a position.
func (r *Reporter) Reportf(kind Kind, format string, args ...any) {
	r.Report(&Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: -1})
}

// ReportErr reports err under kind with a short message.
func (r *Reporter) ReportErr(kind Kind, msg string, err error) {
	r.Report(&Diagnostic{Kind: kind, Message: msg, Pos: -1, Err: err})
}

// Debug logs a low-priority note that is not a diagnostic.
func (r *Reporter) Debug(msg string, fields ...zap.Field) {
	if r == nil {
		return
	}
	r.logger.Debug(msg, fields...)
}

// Recover converts a diagnostic raised in ModeRaise into an error stored in
// *errp. Any other panic is re-raised. Use it as:
//
//	defer report.Recover(&err)
func Recover(errp *error) {
	rec := recover()
	if rec == nil {
		return
	}
	d, ok := rec.(*Diagnostic)
	if !ok {
		panic(rec)
	}
	*errp = d
}
