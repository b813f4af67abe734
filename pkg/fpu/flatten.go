package fpu

import (
	"errors"
	"fmt"

	"github.com/raymyers/ralph-dc/pkg/cfg"
	"github.com/raymyers/ralph-dc/pkg/diag"
	"github.com/raymyers/ralph-dc/pkg/exp"
	"github.com/raymyers/ralph-dc/pkg/rtl"
)

// ErrUnsupportedCapture is returned when the status word is copied anywhere
// but AX. The procedure cannot be legalized.
var ErrUnsupportedCapture = errors.New("status word captured into a register other than AX")

// Stats counts what a Flatten run did
type Stats struct {
	Blocks       int // blocks processed
	Pushes       int
	Pops         int
	Renumbered   int // register references rewritten
	Idioms       int // status word idioms accepted
	Branches     int // branches turned into floating branches
	Merges       int
	IdiomErrors  int
	Inconsistent int // blocks reached with more than one stack depth
}

// Add accumulates o into s
func (s *Stats) Add(o Stats) {
	s.Blocks += o.Blocks
	s.Pushes += o.Pushes
	s.Pops += o.Pops
	s.Renumbered += o.Renumbered
	s.Idioms += o.Idioms
	s.Branches += o.Branches
	s.Merges += o.Merges
	s.IdiomErrors += o.IdiomErrors
	s.Inconsistent += o.Inconsistent
}

// Flattener rewrites the stack-relative FPU registers of a procedure into
// absolute ones, handing status word captures to the Recognizer on the way.
type Flattener struct {
	// Strict makes an unrecognized idiom abort the procedure instead of
	// abandoning just the block
	Strict bool
	Diag   *diag.Sink
}

// NewFlattener creates a flattener reporting to sink (may be nil)
func NewFlattener(sink *diag.Sink) *Flattener {
	return &Flattener{Diag: sink}
}

type workItem struct {
	id  cfg.BlockID
	tos int
}

// walk holds the state of one Flatten run
type walk struct {
	f        *Flattener
	g        *cfg.Graph
	rc       *Recognizer
	visited  map[cfg.BlockID]bool
	entryTOS map[cfg.BlockID]int
	stats    Stats
}

// Flatten legalizes every block reachable from the entry of g. The graph is
// modified in place. The only error is a capture that cannot be handled;
// unrecognized idioms are reported to the sink and counted unless Strict.
func (f *Flattener) Flatten(g *cfg.Graph) (Stats, error) {
	w := &walk{
		f:        f,
		g:        g,
		rc:       NewRecognizer(g),
		visited:  make(map[cfg.BlockID]bool),
		entryTOS: make(map[cfg.BlockID]int),
	}
	f.Diag.SetProc(g.Name)
	if g.Len() == 0 {
		return w.stats, nil
	}

	work := []workItem{{g.Entry(), 0}}
	for len(work) > 0 {
		it := work[len(work)-1]
		work = work[:len(work)-1]

		b, ok := g.Block(it.id)
		if !ok {
			continue // dissolved by a merge
		}
		if w.visited[it.id] {
			if w.entryTOS[it.id] != it.tos {
				w.inconsistent(b, it.tos)
			}
			continue
		}

		id, tos, more, err := w.block(b, it.tos)
		if err != nil {
			return w.stats, err
		}
		if !more {
			continue
		}
		succs := g.Successors(id)
		for i := len(succs) - 1; i >= 0; i-- {
			work = append(work, workItem{succs[i], tos})
		}
	}
	return w.stats, nil
}

func (w *walk) inconsistent(b *cfg.Block, tos int) {
	w.stats.Inconsistent++
	w.f.Diag.Warnf(b.LowAddr(), "inconsistent FPU stack depth at %s: entered with %d, also reached with %d",
		blockLabel(b), w.entryTOS[b.ID], tos)
}

// block processes one block and returns the block whose successors are to
// be scheduled, the stack depth at its end, and whether its successors
// still need scheduling
func (w *walk) block(b *cfg.Block, tos int) (cfg.BlockID, int, bool, error) {
	w.visited[b.ID] = true
	w.entryTOS[b.ID] = tos
	w.stats.Blocks++

	more := true
	tail := 0 // records at the end of b that were already processed
	for i := 0; i < b.Len()-tail; {
		r := b.Records[i]
		if !IsCapture(r) {
			tos = w.record(r, tos)
			i++
			continue
		}

		a := r.First().(*exp.Assign)
		if !exp.Equal(a.Lhs, regAX) {
			return b.ID, tos, false, fmt.Errorf("%w: %s at %s", ErrUnsupportedCapture, a, r.Addr)
		}

		res, err := w.rc.Recognize(b, i)
		if err != nil {
			w.stats.IdiomErrors++
			w.f.Diag.Errorf(r.Addr, "%v", err)
			if w.f.Strict {
				return b.ID, tos, false, err
			}
			break // rest of the block is left alone
		}
		w.stats.Idioms++
		if res.Outcome != OutSet {
			w.stats.Branches++
		}
		i = res.Resume
		if res.Outcome != OutMerge {
			continue
		}

		w.stats.Merges++
		into, ok := w.g.Block(res.Into)
		if !ok {
			return b.ID, tos, false, fmt.Errorf("%w: %d", cfg.ErrNoBlock, res.Into)
		}
		b = into
		if w.visited[into.ID] {
			// only the records carried over still need processing
			tail = into.Len() - res.Carried
			more = false
		} else {
			tail = 0
			w.visited[into.ID] = true
			w.entryTOS[into.ID] = tos
			w.stats.Blocks++
		}
	}

	if tail > 0 && w.entryTOS[b.ID] != tos {
		w.inconsistent(b, tos)
	}
	return b.ID, tos, more, nil
}

// record rewrites one record in place and returns the new stack depth
func (w *walk) record(r *rtl.Record, tos int) int {
	if r.IsCall() {
		tos = 0
	}
	out := make([]exp.Exp, 0, len(r.Stmts))
	for _, s := range r.Stmts {
		switch {
		case exp.IsPush(s):
			tos = (tos - 1) & 7
			w.stats.Pushes++
			continue
		case exp.IsPop(s):
			tos = (tos + 1) & 7
			w.stats.Pops++
			continue
		}
		if tos != 0 {
			var n int
			s, n = renumber(s, tos)
			w.stats.Renumbered += n
		}
		out = append(out, s)
	}
	r.Stmts = out
	return tos
}

// RenumberStmt maps every stack-relative FPU register in an assignment, or
// in the register arguments of a flag call, to its absolute slot for the
// given top of stack. All references are rewritten in one pass.
func RenumberStmt(s exp.Exp, tos int) exp.Exp {
	out, _ := renumber(s, tos)
	return out
}

func renumber(s exp.Exp, tos int) (exp.Exp, int) {
	n := 0
	slot := func(e exp.Exp) exp.Exp {
		if r, ok := exp.RegNum(e); ok && IsFloatReg(r) {
			n++
			return exp.Reg(Slot(r, tos))
		}
		return e
	}

	switch x := s.(type) {
	case *exp.Assign:
		out := exp.NewAssign(x.Size, exp.Map(x.Lhs, slot), exp.Map(x.Rhs, slot))
		return out, n
	case *exp.FlagCall:
		args := make([]exp.Exp, len(x.Args))
		for i, a := range x.Args {
			if exp.IsReg(a) {
				args[i] = slot(a)
			} else {
				args[i] = a
			}
		}
		out := exp.NewFlagCall(x.Name, args...)
		return out, n
	}
	return s, 0
}
