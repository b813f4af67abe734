package fpu

import (
	"testing"

	"github.com/raymyers/ralph-dc/pkg/cfg"
	"github.com/raymyers/ralph-dc/pkg/exp"
	"github.com/raymyers/ralph-dc/pkg/parser"
	"github.com/raymyers/ralph-dc/pkg/rtl"
)

func parseStmts(t *testing.T, src string) []exp.Exp {
	t.Helper()
	stmts, err := parser.ParseRTL(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return stmts
}

func parseStmt(t *testing.T, src string) exp.Exp {
	t.Helper()
	stmts := parseStmts(t, src)
	if len(stmts) != 1 {
		t.Fatalf("parse %q: expected 1 statement, got %d", src, len(stmts))
	}
	return stmts[0]
}

// rec builds an ordinary record from RTL text
func rec(t *testing.T, addr rtl.Address, src string) *rtl.Record {
	t.Helper()
	return rtl.NewRecord(addr, parseStmts(t, src)...)
}

func bodies(b *cfg.Block) []string {
	out := make([]string, len(b.Records))
	for i, r := range b.Records {
		out[i] = rtl.FormatBody(r)
	}
	return out
}

func snapshot(b *cfg.Block) []*rtl.Record {
	out := make([]*rtl.Record, len(b.Records))
	for i, r := range b.Records {
		out[i] = r.Clone()
	}
	return out
}

func assertBodies(t *testing.T, b *cfg.Block, want ...string) {
	t.Helper()
	got := bodies(b)
	if len(got) != len(want) {
		t.Fatalf("block %s: expected %d records, got %d:\n%q", b.Name, len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("block %s record %d: expected %q, got %q", b.Name, i, want[i], got[i])
		}
	}
}

func assertUnchanged(t *testing.T, b *cfg.Block, before []*rtl.Record) {
	t.Helper()
	if len(b.Records) != len(before) {
		t.Fatalf("block %s: expected %d records, got %d", b.Name, len(before), len(b.Records))
	}
	for i := range before {
		if !rtl.Equal(b.Records[i], before[i]) {
			t.Errorf("block %s record %d changed: %s -> %s", b.Name, i, before[i], b.Records[i])
		}
	}
}

// capture is fnstsw ax
const capture = "*16* r[0] := r[40]"

// sahf copies AH into the flags
const sahf = "*1* %SF := r[12]@7:7; *1* %ZF := r[12]@6:6; *1* %PF := r[12]@2:2; *1* %CF := r[12]@0:0"
