package cfg

import (
	"fmt"
	"io"
	"strings"

	"github.com/raymyers/ralph-dc/pkg/rtl"
)

// Printer outputs a graph block by block in creation order
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new graph printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintGraph prints every live block of g
func (p *Printer) PrintGraph(g *Graph) {
	fmt.Fprintf(p.w, "%s() {\n", g.Name)
	rp := rtl.NewPrinter(p.w)
	for _, b := range g.Blocks() {
		fmt.Fprintf(p.w, "  %s: %s", p.label(g, b.ID), b.Type)
		if succs := g.Successors(b.ID); len(succs) > 0 {
			names := make([]string, len(succs))
			for i, s := range succs {
				names[i] = p.label(g, s)
			}
			fmt.Fprintf(p.w, " -> %s", strings.Join(names, ", "))
		}
		fmt.Fprintln(p.w)
		rp.PrintRecords("    ", b.Records)
	}
	fmt.Fprintln(p.w, "}")
	fmt.Fprintf(p.w, "entry: %s\n", p.label(g, g.Entry()))
}

func (p *Printer) label(g *Graph, id BlockID) string {
	if b, ok := g.Block(id); ok && b.Name != "" {
		return b.Name
	}
	return fmt.Sprintf("B%d", id)
}
