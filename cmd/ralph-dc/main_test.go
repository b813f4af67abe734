package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raymyers/ralph-dc/pkg/config"
	"github.com/raymyers/ralph-dc/pkg/entry"
	"github.com/raymyers/ralph-dc/pkg/image"
)

const sampleImage = `entry: 0x401000
symbols:
  - {addr: 0x401000, name: main}
procedures:
  - name: main
    blocks:
      - name: b0
        type: twoway
        succs: [b1, b2]
        records:
          - {addr: 0x401000, rtl: ["FPUSH; *80* r[32] := m[r[28] + 4]"]}
          - {addr: 0x401004, rtl: ["FLAGSF(r[32], m[r[28] + 8]); FPOP"]}
          - {addr: 0x401008, rtl: ["*16* r[0] := r[40]"]}
          - {addr: 0x40100a, rtl: ["*8* r[12] := r[12] & 0x05; LOGICALFLAGS8(r[12])"]}
          - {addr: 0x40100d, jcond: JNE, dest: 0x401020}
      - name: b1
        type: ret
        records:
          - {addr: 0x40100f, rtl: ["*32* r[24] := 0"]}
      - name: b2
        type: ret
        records:
          - {addr: 0x401020, rtl: ["*32* r[24] := 1"]}
  - name: helper
    blocks:
      - name: b0
        type: ret
        records:
          - {addr: 0x401100, rtl: ["FPUSH; *80* r[32] := 1"]}
`

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.yaml")
	if err := os.WriteFile(path, []byte(sampleImage), 0644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetDebugFlags()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(normalizeFlags(args))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestFlagsExist(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)

	expectedFlags := []string{"drtl", "dfloat", "entry", "proc", "output", "strict", "no-helpers", "entry-scan"}
	for _, flagName := range expectedFlags {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("expected flag --%s to exist", flagName)
		}
	}
}

func TestNoArgsShowsHelp(t *testing.T) {
	out, _, err := execute(t)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !strings.Contains(out, "Usage:") {
		t.Errorf("expected usage text, got %q", out)
	}
}

func TestNoDebugFlagsNoOutput(t *testing.T) {
	out, _, err := execute(t, writeImage(t))
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if out != "" {
		t.Errorf("expected no output, got %q", out)
	}
}

func TestFileNotFound(t *testing.T) {
	_, errOut, err := execute(t, "-dfloat", "nonexistent.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file, got nil")
	}
	if !strings.Contains(errOut, "nonexistent.yaml") {
		t.Errorf("expected the file name in stderr, got %q", errOut)
	}
}

func TestMalformedImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("entry: 0\nprocs: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, _, err := execute(t, path)
	if !errors.Is(err, image.ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestDFloatCreatesOutputFile(t *testing.T) {
	path := writeImage(t)
	out, _, err := execute(t, "-dfloat", path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	expectedOutputFile := strings.TrimSuffix(path, ".yaml") + ".float"
	fileContent, err := os.ReadFile(expectedOutputFile)
	if err != nil {
		t.Fatalf("failed to read output file: %v", err)
	}
	if out != string(fileContent) {
		t.Errorf("output file content doesn't match stdout\nStdout:\n%s\nFile:\n%s", out, string(fileContent))
	}
	for _, want := range []string{
		"main() {",
		"0040100d  JCOND JSL float -> 00401020",
		"helper() {",
		"00401100  *80* r[39] := 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\nGot:\n%s", want, out)
		}
	}
}

func TestDRTLShowsRecordsAsLoaded(t *testing.T) {
	path := writeImage(t)
	out, _, err := execute(t, "-drtl", path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, want := range []string{
		"00401000  FPUSH; *80* r[32] := m[r[28] + 4]",
		"00401008  *16* r[0] := r[40]",
		"0040100d  JCOND JNE -> 00401020",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\nGot:\n%s", want, out)
		}
	}
	if _, err := os.Stat(strings.TrimSuffix(path, ".yaml") + ".rtl"); err != nil {
		t.Errorf("expected .rtl file: %v", err)
	}
}

func TestProcFlag(t *testing.T) {
	path := writeImage(t)
	out, _, err := execute(t, "-dfloat", "--proc", "helper", path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.Contains(out, "main() {") || !strings.Contains(out, "helper() {") {
		t.Errorf("expected only helper to be dumped, got:\n%s", out)
	}

	_, errOut, err := execute(t, "--proc", "missing", path)
	if err == nil {
		t.Error("expected error for unknown procedure")
	}
	if !strings.Contains(errOut, "no procedure named missing") {
		t.Errorf("unexpected stderr %q", errOut)
	}
}

func TestOutputImage(t *testing.T) {
	path := writeImage(t)
	outPath := filepath.Join(t.TempDir(), "legal.yaml")
	if _, _, err := execute(t, "-o", outPath, path); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	img, err := image.Load(outPath)
	if err != nil {
		t.Fatalf("legalized image does not load: %v", err)
	}
	p, ok := img.Procedure("main")
	if !ok {
		t.Fatal("expected procedure main")
	}
	b0 := p.Blocks[0]
	last := b0.Records[len(b0.Records)-1]
	if last.JCond != "JSL" || !last.Float {
		t.Errorf("expected float JSL branch, got %+v", last)
	}
	for _, r := range b0.Records {
		for _, s := range r.RTL {
			if strings.Contains(s, "r[40]") {
				t.Errorf("expected the capture to be removed, found %q", s)
			}
		}
	}
}

func TestEntryFlag(t *testing.T) {
	out, _, err := execute(t, "--entry", writeImage(t))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.TrimSpace(out) != "main at 00401000" {
		t.Errorf("expected main at 00401000, got %q", out)
	}
}

func TestStrictFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odd.yaml")
	src := `entry: 0
procedures:
  - name: odd
    blocks:
      - name: b0
        type: ret
        records:
          - {addr: 0x10, rtl: ["*16* r[0] := r[40]"]}
          - {addr: 0x12, rtl: ["*8* r[12] := r[12] & 0x45"]}
`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(config.EnvStrict, "true")
	out, _, err := execute(t, "-dfloat", path)
	if !errors.Is(err, ErrFailed) {
		t.Errorf("expected ErrFailed, got %v", err)
	}
	if strings.Contains(out, "odd() {") {
		t.Errorf("expected the procedure to be dropped in strict mode, got:\n%s", out)
	}
}

func TestDumpOutputFilename(t *testing.T) {
	tests := []struct {
		input    string
		ext      string
		expected string
	}{
		{"prog.yaml", ".float", "prog.float"},
		{"prog.yml", ".float", "prog.float"},
		{"path/to/prog.yaml", ".rtl", "path/to/prog.rtl"},
		{"noext", ".float", "noext.float"},
		{"multiple.dots.yaml", ".rtl", "multiple.dots.rtl"},
	}

	for _, tc := range tests {
		result := dumpOutputFilename(tc.input, tc.ext)
		if result != tc.expected {
			t.Errorf("dumpOutputFilename(%q, %q) = %q, want %q", tc.input, tc.ext, result, tc.expected)
		}
	}
}

func resetDebugFlags() {
	dRTL = false
	dFloat = false
	findEntry = false
	procName = ""
	outputFile = ""
	strict = false
	noHelpers = false
	entryScan = entry.DefaultLimit
}

func TestNormalizeFlags(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "single-dash dfloat",
			input:    []string{"-dfloat", "prog.yaml"},
			expected: []string{"--dfloat", "prog.yaml"},
		},
		{
			name:     "double-dash dfloat unchanged",
			input:    []string{"--dfloat", "prog.yaml"},
			expected: []string{"--dfloat", "prog.yaml"},
		},
		{
			name:     "mixed flags",
			input:    []string{"prog.yaml", "-drtl", "-dfloat"},
			expected: []string{"prog.yaml", "--drtl", "--dfloat"},
		},
		{
			name:     "other flags unchanged",
			input:    []string{"-o", "out.yaml", "prog.yaml"},
			expected: []string{"-o", "out.yaml", "prog.yaml"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := normalizeFlags(tc.input)
			if len(result) != len(tc.expected) {
				t.Errorf("normalizeFlags(%v) = %v, want %v", tc.input, result, tc.expected)
				return
			}
			for i := range result {
				if result[i] != tc.expected[i] {
					t.Errorf("normalizeFlags(%v) = %v, want %v", tc.input, result, tc.expected)
					return
				}
			}
		})
	}
}
