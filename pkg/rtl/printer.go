// Package rtl provides printing for instruction-effect records
package rtl

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs records one per line:
//
//	00401000  r[0] := r[40]
//	00401008  CALL 00402000
//	0040100d  JCOND JSG float -> 00401020
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new record printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintRecord prints a single record with the given indentation
func (p *Printer) PrintRecord(indent string, r *Record) {
	fmt.Fprintf(p.w, "%s%s  %s\n", indent, r.Addr, FormatBody(r))
}

// PrintRecords prints a sequence of records
func (p *Printer) PrintRecords(indent string, rs []*Record) {
	for _, r := range rs {
		p.PrintRecord(indent, r)
	}
}

// FormatBody renders everything in r except its address
func FormatBody(r *Record) string {
	var parts []string
	switch r.Kind {
	case Call:
		parts = append(parts, "CALL "+r.Dest.String())
	case Branch:
		s := "JCOND " + r.Cond.String()
		if r.Float {
			s += " float"
		}
		parts = append(parts, s+" -> "+r.Dest.String())
	}
	for _, s := range r.Stmts {
		parts = append(parts, s.String())
	}
	if len(parts) == 0 {
		return "nop"
	}
	return strings.Join(parts, "; ")
}

func (r *Record) String() string {
	return r.Addr.String() + "  " + FormatBody(r)
}
