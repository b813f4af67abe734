package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/raymyers/ralph-dc/pkg/cfg"
	"github.com/raymyers/ralph-dc/pkg/config"
	"github.com/raymyers/ralph-dc/pkg/diag"
	"github.com/raymyers/ralph-dc/pkg/entry"
	"github.com/raymyers/ralph-dc/pkg/fpu"
	"github.com/raymyers/ralph-dc/pkg/helper"
	"github.com/raymyers/ralph-dc/pkg/image"
	"github.com/raymyers/ralph-dc/pkg/rtl"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Debug flags for dumping the records of each procedure
var (
	dRTL   bool // as loaded
	dFloat bool // after floating point legalization
)

var (
	findEntry  bool
	procName   string
	outputFile string
	strict     bool
	noHelpers  bool
	entryScan  int
)

// ErrFailed is returned when any error was reported while legalizing
var ErrFailed = errors.New("legalization failed")

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	// Normalize single-dash debug flags to double-dash for pflag compatibility
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// debugFlagNames lists all debug flags that should accept single-dash style
var debugFlagNames = []string{"drtl", "dfloat"}

// normalizeFlags converts single-dash flags like -dfloat to --dfloat
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ralph-dc [image.yaml]",
		Short: "ralph-dc legalizes x87 floating point code in decoded programs",
		Long: `ralph-dc reads a decoded program image and rewrites the x87 code of
each procedure: stack-relative FPU registers become absolute ones, and
status word tests become floating point predicates and branches.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			conf := config.FromEnv()
			if cmd.Flags().Changed("strict") {
				conf.Strict = strict
			}
			if cmd.Flags().Changed("entry-scan") {
				conf.EntryScan = entryScan
			}
			return doLegalize(args[0], conf, out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	// Add debug flags
	rootCmd.Flags().BoolVarP(&dRTL, "drtl", "", false, "Dump records as loaded")
	rootCmd.Flags().BoolVarP(&dFloat, "dfloat", "", false, "Dump records after floating point legalization")

	rootCmd.Flags().BoolVar(&findEntry, "entry", false, "Search the startup code for main and print its address")
	rootCmd.Flags().StringVar(&procName, "proc", "", "Only process the named procedure")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the legalized image to this file")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "Abort a procedure on an unrecognized status word idiom")
	rootCmd.Flags().BoolVar(&noHelpers, "no-helpers", false, "Keep calls to runtime helpers instead of inlining them")
	rootCmd.Flags().IntVar(&entryScan, "entry-scan", entry.DefaultLimit, "Instructions to scan for main")

	return rootCmd
}

// doLegalize runs the pass over every selected procedure of the image
func doLegalize(filename string, conf config.Config, out, errOut io.Writer) error {
	img, err := image.Load(filename)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-dc: %v\n", err)
		return err
	}

	sink := diag.NewSink(errOut)
	if conf.NoColor {
		sink.SetColor(false)
	}

	if findEntry {
		f := &entry.Finder{Decoder: img, Symbols: img, Limit: conf.EntryScan, Diag: sink}
		addr, found := f.MainEntry(rtl.Address(img.Entry))
		fmt.Fprintln(out, entry.Describe(addr, found))
	}

	var sub *helper.Substituter
	if !noHelpers {
		sub = helper.NewSubstituter(img)
	}

	procs, err := selectProcedures(img, procName)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-dc: %v\n", err)
		return err
	}

	var rtlDump, floatDump strings.Builder
	for _, p := range procs {
		sink.SetProc(p.Name)
		g, err := p.Build(sub)
		if err != nil {
			sink.Errorf(rtl.NoAddress, "%v", err)
			continue
		}
		if dRTL {
			cfg.NewPrinter(&rtlDump).PrintGraph(g)
		}

		fl := fpu.NewFlattener(sink)
		fl.Strict = conf.Strict
		if _, err := fl.Flatten(g); err != nil {
			if !errors.Is(err, fpu.ErrIdiom) {
				sink.Errorf(rtl.NoAddress, "%v", err)
			}
			continue
		}
		p.Update(g)
		if dFloat {
			cfg.NewPrinter(&floatDump).PrintGraph(g)
		}
	}
	sink.SetProc("")

	if dRTL {
		if err := writeDump(filename, ".rtl", rtlDump.String(), out, errOut); err != nil {
			return err
		}
	}
	if dFloat {
		if err := writeDump(filename, ".float", floatDump.String(), out, errOut); err != nil {
			return err
		}
	}

	if outputFile != "" {
		data, err := img.Marshal()
		if err != nil {
			fmt.Fprintf(errOut, "ralph-dc: %v\n", err)
			return err
		}
		if err := os.WriteFile(outputFile, data, 0644); err != nil {
			fmt.Fprintf(errOut, "ralph-dc: error writing %s: %v\n", outputFile, err)
			return err
		}
	}

	if n := sink.Count(diag.Error); n > 0 {
		return fmt.Errorf("%w: %d errors", ErrFailed, n)
	}
	return nil
}

func selectProcedures(img *image.Image, name string) ([]*image.Procedure, error) {
	if name != "" {
		p, ok := img.Procedure(name)
		if !ok {
			return nil, fmt.Errorf("no procedure named %s", name)
		}
		return []*image.Procedure{p}, nil
	}
	procs := make([]*image.Procedure, len(img.Procedures))
	for i := range img.Procedures {
		procs[i] = &img.Procedures[i]
	}
	return procs, nil
}

// writeDump writes a dump to the file derived from the input name, and
// also prints it to stdout for convenience
func writeDump(filename, ext, content string, out, errOut io.Writer) error {
	outputFilename := dumpOutputFilename(filename, ext)
	if err := os.WriteFile(outputFilename, []byte(content), 0644); err != nil {
		fmt.Fprintf(errOut, "ralph-dc: error creating %s: %v\n", outputFilename, err)
		return err
	}
	fmt.Fprint(out, content)
	return nil
}

// dumpOutputFilename returns the dump file for an input image:
// prog.yaml -> prog.float
func dumpOutputFilename(filename, ext string) string {
	for _, in := range []string{".yaml", ".yml"} {
		if strings.HasSuffix(filename, in) {
			return filename[:len(filename)-len(in)] + ext
		}
	}
	return filename + ext
}
