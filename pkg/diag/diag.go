// Package diag is the operator-visible error channel of the decompiler
// passes. Diagnostics are both printed as they arrive and kept for callers
// that want to inspect them afterwards.
package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/raymyers/ralph-dc/pkg/rtl"
)

// Severity of a diagnostic
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Diagnostic is one reported problem
type Diagnostic struct {
	Severity Severity
	Proc     string
	Addr     rtl.Address
	Message  string
}

func (d Diagnostic) String() string {
	loc := d.Proc
	if d.Addr != rtl.NoAddress {
		if loc != "" {
			loc += "@"
		}
		loc += d.Addr.String()
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Severity, loc, d.Message)
}

// Sink collects diagnostics. A nil *Sink discards everything.
type Sink struct {
	w     io.Writer
	color bool
	proc  string
	items []Diagnostic
}

// Prog prefixes every printed line
const Prog = "ralph-dc"

// NewSink creates a sink writing to w (nil: collect only). Color is enabled
// when w is a terminal.
func NewSink(w io.Writer) *Sink {
	s := &Sink{w: w}
	if f, ok := w.(*os.File); ok {
		s.color = isTerminal(f.Fd())
	}
	return s
}

// SetColor forces ANSI coloring on or off
func (s *Sink) SetColor(on bool) {
	if s != nil {
		s.color = on
	}
}

// SetProc sets the procedure name attached to subsequent diagnostics
func (s *Sink) SetProc(name string) {
	if s != nil {
		s.proc = name
	}
}

// Errorf reports an error at addr (rtl.NoAddress when there is none)
func (s *Sink) Errorf(addr rtl.Address, format string, args ...any) {
	s.report(Error, addr, fmt.Sprintf(format, args...))
}

// Warnf reports a warning at addr (rtl.NoAddress when there is none)
func (s *Sink) Warnf(addr rtl.Address, format string, args ...any) {
	s.report(Warning, addr, fmt.Sprintf(format, args...))
}

func (s *Sink) report(sev Severity, addr rtl.Address, msg string) {
	if s == nil {
		return
	}
	d := Diagnostic{Severity: sev, Proc: s.proc, Addr: addr, Message: msg}
	s.items = append(s.items, d)
	if s.w == nil {
		return
	}
	text := d.String()
	if s.color {
		code := "33" // yellow
		if sev == Error {
			code = "31" // red
		}
		text = "\x1b[" + code + "m" + text + "\x1b[0m"
	}
	fmt.Fprintf(s.w, "%s: %s\n", Prog, text)
}

// Diagnostics returns everything reported so far
func (s *Sink) Diagnostics() []Diagnostic {
	if s == nil {
		return nil
	}
	return s.items
}

// Count returns the number of diagnostics with the given severity
func (s *Sink) Count(sev Severity) int {
	n := 0
	for _, d := range s.Diagnostics() {
		if d.Severity == sev {
			n++
		}
	}
	return n
}
