package diag

import (
	"bytes"
	"testing"

	"github.com/raymyers/ralph-dc/pkg/rtl"
)

func TestDiagnosticString(t *testing.T) {
	tests := []struct {
		d        Diagnostic
		expected string
	}{
		{Diagnostic{Severity: Error, Proc: "f", Addr: 0x401000, Message: "bad"}, "error: f@00401000: bad"},
		{Diagnostic{Severity: Warning, Addr: 0x401000, Message: "odd"}, "warning: 00401000: odd"},
		{Diagnostic{Severity: Warning, Proc: "f", Addr: rtl.NoAddress, Message: "odd"}, "warning: f: odd"},
		{Diagnostic{Severity: Error, Addr: rtl.NoAddress, Message: "bad"}, "error: bad"},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, got)
		}
	}
}

func TestSinkWritesAndCollects(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf)
	s.SetProc("main")
	s.Warnf(0x10, "depth %d", 3)
	s.SetProc("")
	s.Errorf(rtl.NoAddress, "failed")

	expected := "ralph-dc: warning: main@00000010: depth 3\nralph-dc: error: failed\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
	if n := len(s.Diagnostics()); n != 2 {
		t.Errorf("expected 2 diagnostics, got %d", n)
	}
	if s.Count(Error) != 1 || s.Count(Warning) != 1 {
		t.Errorf("unexpected counts: %d errors, %d warnings", s.Count(Error), s.Count(Warning))
	}
}

func TestSinkColor(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf)
	s.SetColor(true)
	s.Errorf(rtl.NoAddress, "bad")
	if buf.String() != "ralph-dc: \x1b[31merror: bad\x1b[0m\n" {
		t.Errorf("unexpected colored output %q", buf.String())
	}
}

func TestSinkCollectOnly(t *testing.T) {
	s := NewSink(nil)
	s.Warnf(rtl.NoAddress, "quiet")
	if s.Count(Warning) != 1 {
		t.Error("expected the warning to be kept")
	}
}

func TestNilSink(t *testing.T) {
	var s *Sink
	s.SetProc("f")
	s.SetColor(true)
	s.Errorf(0, "ignored")
	if s.Diagnostics() != nil || s.Count(Error) != 0 {
		t.Error("expected a nil sink to discard everything")
	}
}
