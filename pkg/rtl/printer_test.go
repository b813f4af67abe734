package rtl

import (
	"bytes"
	"testing"

	"github.com/raymyers/ralph-dc/pkg/exp"
)

func TestFormatBody(t *testing.T) {
	tests := []struct {
		name     string
		record   *Record
		expected string
	}{
		{"empty", NewRecord(0x1000), "nop"},
		{"assign", NewRecord(0x1000, exp.NewAssign(16, exp.Reg(0), exp.Reg(40))), "*16* r[0] := r[40]"},
		{"two statements", NewRecord(0x1000, exp.Push(), exp.NewAssign(80, exp.Reg(32), exp.Mem(exp.Reg(28)))),
			"FPUSH; *80* r[32] := m[r[28]]"},
		{"call", NewCall(0x1000, 0x402000), "CALL 00402000"},
		{"computed call", NewCall(0x1000, NoAddress), "CALL <none>"},
		{"branch", NewBranch(0x1000, JUGE, 0x1020), "JCOND JUGE -> 00001020"},
		{"float branch", &Record{Addr: 0x1000, Kind: Branch, Cond: JSG, Dest: 0x1020, Float: true},
			"JCOND JSG float -> 00001020"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatBody(tt.record); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestPrintRecords(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.PrintRecords("  ", []*Record{
		NewRecord(0x401000, exp.NewAssign(16, exp.Reg(0), exp.Reg(40))),
		NewBranch(0x401002, JE, 0x401020),
	})
	expected := "  00401000  *16* r[0] := r[40]\n  00401002  JCOND JE -> 00401020\n"
	if buf.String() != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, buf.String())
	}
}
