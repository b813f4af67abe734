package image

import (
	"errors"
	"strings"
	"testing"

	"github.com/raymyers/ralph-dc/pkg/cfg"
	"github.com/raymyers/ralph-dc/pkg/entry"
	"github.com/raymyers/ralph-dc/pkg/exp"
	"github.com/raymyers/ralph-dc/pkg/helper"
	"github.com/raymyers/ralph-dc/pkg/rtl"
)

func load(t *testing.T) *Image {
	t.Helper()
	img, err := Load("testdata/prog.yaml")
	if err != nil {
		t.Fatalf("failed to load image: %v", err)
	}
	return img
}

func bodies(b *cfg.Block) []string {
	out := make([]string, len(b.Records))
	for i, r := range b.Records {
		out[i] = r.String()
	}
	return out
}

func assertLines(t *testing.T, what string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %d lines, got %d:\n%s", what, len(want), len(got), strings.Join(got, "\n"))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s line %d: expected %q, got %q", what, i, want[i], got[i])
		}
	}
}

func TestLoad(t *testing.T) {
	img := load(t)
	if img.Entry != 0x401000 {
		t.Errorf("expected entry 0x401000, got %x", img.Entry)
	}
	if len(img.Symbols) != 3 || len(img.Code) != 3 || len(img.Procedures) != 1 {
		t.Errorf("unexpected section sizes: %d symbols, %d code, %d procedures",
			len(img.Symbols), len(img.Code), len(img.Procedures))
	}
	if name, ok := img.SymbolAt(0x402000); !ok || name != "__xtol" {
		t.Errorf("SymbolAt: expected __xtol, got %q %v", name, ok)
	}
	if _, ok := img.SymbolAt(0x999); ok {
		t.Error("SymbolAt: expected no symbol")
	}
	if addr, ok := img.AddressOf("compare"); !ok || addr != 0x401100 {
		t.Errorf("AddressOf: expected 00401100, got %s %v", addr, ok)
	}
	if addr, ok := img.AddressOf("main"); ok || addr != rtl.NoAddress {
		t.Errorf("AddressOf: expected no main, got %s %v", addr, ok)
	}
	if _, ok := img.Procedure("compare"); !ok {
		t.Error("expected procedure compare")
	}
	if _, ok := img.Procedure("missing"); ok {
		t.Error("expected no procedure named missing")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("testdata/missing.yaml"); err == nil {
		t.Error("expected an error")
	}
}

func TestBuild(t *testing.T) {
	img := load(t)
	p, _ := img.Procedure("compare")

	g, err := p.Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	if g.Name != "compare" || g.Len() != 3 {
		t.Fatalf("unexpected graph %s with %d blocks", g.Name, g.Len())
	}

	blocks := g.Blocks()
	b0, b1, b2 := blocks[0], blocks[1], blocks[2]
	if g.Entry() != b0.ID {
		t.Error("expected b0 to be the entry")
	}
	if b0.Type != cfg.TwoWay || b1.Type != cfg.Ret {
		t.Errorf("unexpected types %s %s", b0.Type, b1.Type)
	}
	succs := g.Successors(b0.ID)
	if len(succs) != 2 || succs[0] != b1.ID || succs[1] != b2.ID {
		t.Errorf("unexpected successors %v", succs)
	}

	assertLines(t, "b0", bodies(b0), []string{
		"00401100  FPUSH; *80* r[32] := m[r[28] + 4]",
		"00401104  *80* r[33] := m[r[28] + 8]",
		"00401108  JCOND JUGE -> 00401120",
	})
	assertLines(t, "b1", bodies(b1), []string{
		"0040110a  CALL 00402000",
		"0040110f  CALL 00404000",
		"00401114  CALL <none>",
	})
}

func TestBuildSubstitutesHelpers(t *testing.T) {
	img := load(t)
	p, _ := img.Procedure("compare")

	g, err := p.Build(helper.NewSubstituter(img))
	if err != nil {
		t.Fatal(err)
	}
	assertLines(t, "b1", bodies(g.Blocks()[1]), []string{
		"0040110a  *64* tmpl := ftoi(80, 64, r[32])",
		"0040110a  *32* r[24] := truncs(64, 32, tmpl)",
		"0040110a  *32* r[26] := sar(tmpl, 32)",
		"0040110f  CALL 00404000",
		"00401114  CALL <none>",
	})
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unnamed block", `
procedures:
  - name: f
    blocks:
      - {type: ret, records: []}`, "block without a name"},
		{"duplicate block", `
procedures:
  - name: f
    blocks:
      - {name: b0, records: []}
      - {name: b0, records: []}`, "duplicate block b0"},
		{"unknown type", `
procedures:
  - name: f
    blocks:
      - {name: b0, type: loop, records: []}`, `unknown type "loop"`},
		{"unknown successor", `
procedures:
  - name: f
    blocks:
      - {name: b0, succs: [b9], records: []}`, "unknown successor b9"},
		{"unknown entry", `
procedures:
  - name: f
    entry: b9
    blocks:
      - {name: b0, records: []}`, "unknown entry block b9"},
		{"unknown condition", `
procedures:
  - name: f
    blocks:
      - name: b0
        records:
          - {addr: 0x10, jcond: JZ, dest: 0x20}`, `unknown condition "JZ"`},
		{"branch without dest", `
procedures:
  - name: f
    blocks:
      - name: b0
        records:
          - {addr: 0x10, jcond: JE}`, "branch without dest"},
		{"call and branch", `
procedures:
  - name: f
    blocks:
      - name: b0
        records:
          - {addr: 0x10, call: 0x30, jcond: JE, dest: 0x20}`, "both a call and a branch"},
		{"bad rtl", `
procedures:
  - name: f
    blocks:
      - name: b0
        records:
          - {addr: 0x10, rtl: ["r[0] = 1"]}`, "record 00000010"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Parse([]byte("entry: 0\n" + strings.TrimPrefix(tt.src, "\n")))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			_, err = img.Procedures[0].Build(nil)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown key", "entry: 0\nbogus: 1\n"},
		{"bad address", "entry: main\n"},
		{"not a mapping", "- 1\n- 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.src)); !errors.Is(err, ErrFormat) {
				t.Errorf("expected ErrFormat, got %v", err)
			}
		})
	}
}

func TestUpdateAndMarshal(t *testing.T) {
	img := load(t)
	p, _ := img.Procedure("compare")
	g, err := p.Build(nil)
	if err != nil {
		t.Fatal(err)
	}

	// mark the branch float and drop the push marker
	b0 := g.Blocks()[0]
	b0.Records[0].Stmts = b0.Records[0].Stmts[1:]
	b0.Records[2].Cond = rtl.JSGE
	b0.Records[2].Float = true
	g.AddBlock("", cfg.Ret, []*rtl.Record{rtl.NewRecord(0x401130, exp.Pop())})

	p.Update(g)
	if len(p.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(p.Blocks))
	}
	if p.Entry != "b0" {
		t.Errorf("expected entry b0, got %q", p.Entry)
	}
	if p.Blocks[3].Name != "B4" {
		t.Errorf("expected unnamed block to be labeled B4, got %q", p.Blocks[3].Name)
	}

	data, err := img.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		"entry: 0x401000",
		"succs: [b1, b2]",
		"jcond: JSGE",
		"float: true",
		"call: none",
		"*80* r[32] := m[r[28] + 4]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}

	again, err := Parse(data)
	if err != nil {
		t.Fatalf("marshaled image does not parse: %v", err)
	}
	p2, _ := again.Procedure("compare")
	g2, err := p2.Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	br := g2.Blocks()[0].Terminator()
	if br == nil || br.Cond != rtl.JSGE || !br.Float {
		t.Errorf("expected float JSGE branch after reload, got %v", br)
	}
}

func TestDecode(t *testing.T) {
	img := load(t)

	inst, err := img.Decode(0x401002)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Call || inst.Size != 5 || len(inst.Stmts) != 2 || inst.Dest != rtl.NoAddress {
		t.Errorf("unexpected instruction %+v", inst)
	}

	inst, err = img.Decode(0x401007)
	if err != nil {
		t.Fatal(err)
	}
	if !inst.Call || inst.Dest != 0x403000 {
		t.Errorf("expected call to 00403000, got %+v", inst)
	}

	if _, err := img.Decode(0x401001); !errors.Is(err, entry.ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func TestFindMainThroughImage(t *testing.T) {
	img := load(t)
	f := &entry.Finder{Decoder: img, Symbols: img}
	addr, found := f.MainEntry(rtl.Address(img.Entry))
	if !found || addr != 0x401100 {
		t.Errorf("expected main at 00401100, got %s %v", addr, found)
	}
}
