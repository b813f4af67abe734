package image

import (
	"fmt"

	"github.com/raymyers/ralph-dc/pkg/cfg"
	"github.com/raymyers/ralph-dc/pkg/entry"
	"github.com/raymyers/ralph-dc/pkg/exp"
	"github.com/raymyers/ralph-dc/pkg/helper"
	"github.com/raymyers/ralph-dc/pkg/parser"
	"github.com/raymyers/ralph-dc/pkg/rtl"
)

// Build creates the graph of a procedure. Calls to runtime helpers known
// to sub are inlined instead of becoming call records; sub may be nil.
func (p *Procedure) Build(sub *helper.Substituter) (*cfg.Graph, error) {
	g := cfg.New(p.Name)
	ids := make(map[string]cfg.BlockID, len(p.Blocks))

	for _, b := range p.Blocks {
		if b.Name == "" {
			return nil, fmt.Errorf("%w: %s: block without a name", ErrFormat, p.Name)
		}
		if _, dup := ids[b.Name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate block %s", ErrFormat, p.Name, b.Name)
		}
		typ := cfg.Fall
		if b.Type != "" {
			t, ok := cfg.ParseType(b.Type)
			if !ok {
				return nil, fmt.Errorf("%w: %s: block %s: unknown type %q", ErrFormat, p.Name, b.Name, b.Type)
			}
			typ = t
		}
		records, err := buildRecords(b.Records, sub)
		if err != nil {
			return nil, fmt.Errorf("%s: block %s: %w", p.Name, b.Name, err)
		}
		ids[b.Name] = g.AddBlock(b.Name, typ, records).ID
	}

	for _, b := range p.Blocks {
		for _, s := range b.Succs {
			to, ok := ids[s]
			if !ok {
				return nil, fmt.Errorf("%w: %s: block %s: unknown successor %s", ErrFormat, p.Name, b.Name, s)
			}
			if err := g.AddEdge(ids[b.Name], to); err != nil {
				return nil, err
			}
		}
	}

	if p.Entry != "" {
		id, ok := ids[p.Entry]
		if !ok {
			return nil, fmt.Errorf("%w: %s: unknown entry block %s", ErrFormat, p.Name, p.Entry)
		}
		if err := g.SetEntry(id); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func buildRecords(in []Record, sub *helper.Substituter) ([]*rtl.Record, error) {
	var out []*rtl.Record
	for _, r := range in {
		addr := rtl.Address(r.Addr)
		stmts, err := parseStmts(r.RTL)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", addr, err)
		}

		switch {
		case r.Call != nil && r.JCond != "":
			return nil, fmt.Errorf("%w: record %s is both a call and a branch", ErrFormat, addr)

		case r.Call != nil:
			dest := rtl.Address(*r.Call)
			if sub.Substitute(dest, addr, &out) {
				continue
			}
			out = append(out, rtl.NewCall(addr, dest, stmts...))

		case r.JCond != "":
			cond, ok := rtl.ParseCond(r.JCond)
			if !ok {
				return nil, fmt.Errorf("%w: record %s: unknown condition %q", ErrFormat, addr, r.JCond)
			}
			if r.Dest == nil {
				return nil, fmt.Errorf("%w: record %s: branch without dest", ErrFormat, addr)
			}
			br := rtl.NewBranch(addr, cond, rtl.Address(*r.Dest))
			br.Float = r.Float
			br.Stmts = stmts
			out = append(out, br)

		default:
			out = append(out, rtl.NewRecord(addr, stmts...))
		}
	}
	return out, nil
}

func parseStmts(src []string) ([]exp.Exp, error) {
	var stmts []exp.Exp
	for _, s := range src {
		parsed, err := parser.ParseRTL(s)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, parsed...)
	}
	return stmts, nil
}

// Update replaces the blocks of p with the current contents of g
func (p *Procedure) Update(g *cfg.Graph) {
	names := make(map[cfg.BlockID]string)
	for _, b := range g.Blocks() {
		names[b.ID] = label(b)
	}

	p.Blocks = p.Blocks[:0]
	for _, b := range g.Blocks() {
		ob := Block{Name: names[b.ID], Type: b.Type.String(), Records: []Record{}}
		for _, s := range g.Successors(b.ID) {
			ob.Succs = append(ob.Succs, names[s])
		}
		for _, r := range b.Records {
			ob.Records = append(ob.Records, record(r))
		}
		p.Blocks = append(p.Blocks, ob)
	}
	if b, ok := g.Block(g.Entry()); ok {
		p.Entry = names[b.ID]
	}
}

func label(b *cfg.Block) string {
	if b.Name != "" {
		return b.Name
	}
	return fmt.Sprintf("B%d", b.ID)
}

func record(r *rtl.Record) Record {
	out := Record{Addr: Addr(r.Addr)}
	for _, s := range r.Stmts {
		out.RTL = append(out.RTL, s.String())
	}
	switch r.Kind {
	case rtl.Call:
		dest := Addr(r.Dest)
		out.Call = &dest
	case rtl.Branch:
		dest := Addr(r.Dest)
		out.JCond = r.Cond.String()
		out.Dest = &dest
		out.Float = r.Float
	}
	return out
}

// Decode returns the instruction at addr from the image's code section
func (img *Image) Decode(addr rtl.Address) (entry.Inst, error) {
	if img.code == nil {
		img.code = make(map[rtl.Address]int, len(img.Code))
		for i, in := range img.Code {
			img.code[rtl.Address(in.Addr)] = i
		}
	}
	i, ok := img.code[addr]
	if !ok {
		return entry.Inst{}, fmt.Errorf("%w at %s", entry.ErrDecode, addr)
	}
	in := img.Code[i]
	stmts, err := parseStmts(in.RTL)
	if err != nil {
		return entry.Inst{}, fmt.Errorf("%w at %s: %v", entry.ErrDecode, addr, err)
	}
	inst := entry.Inst{Addr: addr, Size: in.Size, Dest: rtl.NoAddress, Stmts: stmts}
	if in.Call != nil {
		inst.Call = true
		inst.Dest = rtl.Address(*in.Call)
	}
	return inst, nil
}
