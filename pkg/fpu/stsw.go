package fpu

import (
	"errors"
	"fmt"

	"github.com/raymyers/ralph-dc/pkg/cfg"
	"github.com/raymyers/ralph-dc/pkg/exp"
	"github.com/raymyers/ralph-dc/pkg/rtl"
)

// ErrIdiom is returned when the records after a status-word capture do not
// follow any known test sequence. The block is left as it was.
var ErrIdiom = errors.New("unrecognized status word idiom")

// Outcome says how a recognized idiom was consumed
type Outcome int

const (
	// OutSet: the idiom ended in a setcc, replaced by a floating set
	OutSet Outcome = iota
	// OutBranch: the block's terminating branch now tests the floating flags
	OutBranch
	// OutMerge: the block was merged into its parity successor and no
	// longer exists
	OutMerge
)

var outcomeNames = []string{"set", "branch", "merge"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "?"
}

// Result describes an accepted idiom
type Result struct {
	Outcome Outcome
	Final   State
	// Resume is the index at which processing of the (possibly merged)
	// block continues. It is the index of the capture record, which has
	// been deleted.
	Resume int
	// Into and Carried are set for OutMerge: the surviving block and the
	// number of records it received from the dissolved one.
	Into    cfg.BlockID
	Carried int
}

// Recognizer rewrites status-word test idioms within a graph
type Recognizer struct {
	g    *cfg.Graph
	emit Emitter
}

// NewRecognizer creates a recognizer for g
func NewRecognizer(g *cfg.Graph) *Recognizer {
	return &Recognizer{g: g}
}

// scan is one run of the automaton over a block
type scan struct {
	b     *cfg.Block
	at    int
	state State
	queue []int // records consumed so far, deleted only on acceptance
}

func (s *scan) fail(r *rtl.Record, format string, args ...any) error {
	addr := rtl.NoAddress
	if r != nil {
		addr = r.Addr
	}
	return fmt.Errorf("%w at %s in state %s: %s", ErrIdiom, addr, s.state, fmt.Sprintf(format, args...))
}

// wrap is fail for an error from elsewhere; err stays in the chain
func (s *scan) wrap(r *rtl.Record, err error) error {
	return fmt.Errorf("%w at %s in state %s: %w", ErrIdiom, r.Addr, s.state, err)
}

// Recognize runs the automaton over b starting at the capture record at
// index at. On error nothing in the graph has changed.
func (rc *Recognizer) Recognize(b *cfg.Block, at int) (Result, error) {
	s := &scan{b: b, at: at, state: Start, queue: []int{at}}

	for j := at + 1; j < b.Len(); j++ {
		r := b.Records[j]
		sym, operand := classify(r)
		switch sym {
		case symNone:
			continue
		case symBad:
			return Result{}, s.fail(r, "unexpected use of AH: %s", rtl.FormatBody(r))
		}
		to, ok := next(s.state, sym, operand)
		if !ok {
			return Result{}, s.fail(r, "unexpected %s %s", sym, rtl.FormatBody(r))
		}
		s.state = to
		if sym == symSet {
			return rc.acceptSet(s, j)
		}
		s.queue = append(s.queue, j)
	}

	return rc.acceptBranch(s)
}

// acceptSet replaces the setcc record at index j by a floating set
func (rc *Recognizer) acceptSet(s *scan, j int) (Result, error) {
	r := s.b.Records[j]
	set := r.First().(*exp.Assign)
	cond := set.Rhs.(*exp.Ternary).X

	if s.state == SetRelocated {
		if err := rc.emit.Emit(s.b, j+1, r.Addr, set.Lhs, cond); err != nil {
			return Result{}, s.wrap(r, err)
		}
	} else {
		rc.emit.EmitFloat(s.b, j+1, r.Addr, set.Lhs, setPredicates[s.state])
	}
	s.b.DeleteAll(append(s.queue, j))
	return Result{Outcome: OutSet, Final: s.state, Resume: s.at}, nil
}

// acceptBranch handles a scan that reached the end of the block
func (rc *Recognizer) acceptBranch(s *scan) (Result, error) {
	term := s.b.Terminator()
	if term == nil {
		return Result{}, s.fail(nil, "block does not end in a conditional branch")
	}
	last := s.b.Len() - 1

	if s.state == Sahf {
		if term.Cond == rtl.JPAR {
			return rc.acceptParity(s, term, last)
		}
		term.Cond = term.Cond.MakeSigned()
		term.Float = true
		s.b.DeleteAll(s.queue)
		return Result{Outcome: OutBranch, Final: s.state, Resume: s.at}, nil
	}

	cond, ok := branchRewrites[branchKey{s.state, term.Cond}]
	if !ok {
		return Result{}, s.fail(term, "branch %s does not follow this test", term.Cond)
	}
	term.Cond = cond
	term.Float = true
	s.b.DeleteAll(s.queue)
	return Result{Outcome: OutBranch, Final: s.state, Resume: s.at}, nil
}

// acceptParity handles sahf; jp. The parity branch skips over the real
// test for the unordered case, which is held by the second successor.
func (rc *Recognizer) acceptParity(s *scan, jp *rtl.Record, last int) (Result, error) {
	succs := rc.g.Successors(s.b.ID)
	if len(succs) < 2 {
		return Result{}, s.fail(jp, "parity branch has %d successors", len(succs))
	}
	id := succs[1]
	if id == s.b.ID {
		return Result{}, s.fail(jp, "parity branch loops to itself")
	}
	nb, ok := rc.g.Block(id)
	if !ok {
		return Result{}, s.fail(jp, "%v: %d", cfg.ErrNoBlock, id)
	}

	switch {
	case nb.Type == cfg.TwoWay && nb.Len() == 1 && nb.Records[0].IsBranch():
		br := nb.Records[0]
		br.Cond = br.Cond.MakeSigned()
		br.Float = true

	case nb.Len() > 0 && isSet(nb.Records[0]):
		r := nb.Records[0]
		set := r.First().(*exp.Assign)
		cond := set.Rhs.(*exp.Ternary).X
		if err := rc.emit.Emit(nb, 0, r.Addr, set.Lhs, cond); err != nil {
			return Result{}, s.wrap(r, err)
		}
		nb.Delete(1)

	default:
		return Result{}, s.fail(jp, "unsupported successor %s after parity branch", blockLabel(nb))
	}

	s.b.DeleteAll(append(s.queue, last))
	carried, err := rc.g.Merge(id, s.b.ID)
	if err != nil {
		return Result{}, err
	}
	return Result{Outcome: OutMerge, Final: s.state, Resume: s.at, Into: id, Carried: carried}, nil
}

func blockLabel(b *cfg.Block) string {
	if b.Name != "" {
		return b.Name
	}
	return fmt.Sprintf("B%d", b.ID)
}

// IsCapture reports whether r copies the FPU status word somewhere
func IsCapture(r *rtl.Record) bool {
	if r.IsCall() || r.IsBranch() {
		return false
	}
	a, ok := r.First().(*exp.Assign)
	return ok && exp.Contains(a.Rhs, regFSW)
}

// isSet reports whether r is a setcc: "r[n] := cond ? 1 : 0"
func isSet(r *rtl.Record) bool {
	if r.IsCall() || r.IsBranch() {
		return false
	}
	a, ok := r.First().(*exp.Assign)
	return ok && exp.IsReg(a.Lhs) && exp.Match(setPattern, a.Rhs)
}

// classify returns the automaton symbol for one record following a capture
func classify(r *rtl.Record) (symbol, int64) {
	if r.IsCall() || r.IsBranch() {
		return symNone, 0
	}
	if _, ok := r.First().(*exp.Assign); !ok {
		return symNone, 0
	}
	if isSet(r) {
		set := r.First().(*exp.Assign)
		return symSet, setOperand(set.Rhs.(*exp.Ternary).X)
	}

	touches := false
	for _, s := range r.Stmts {
		a, ok := s.(*exp.Assign)
		if !ok {
			if exp.Contains(s, regAH) {
				touches = true
			}
			continue
		}
		if exp.Equal(a.Rhs, ahBit7) {
			return symSahf, 0
		}
		if exp.Equal(a.Lhs, regAH) && exp.Equal(a.Rhs, decAH) {
			return symDec, 0
		}
		if sym, k, ok := maskOp(a); ok {
			return sym, k
		}
		if exp.Contains(a.Lhs, regAH) || exp.Contains(a.Rhs, regAH) {
			touches = true
		}
	}
	if touches {
		return symBad, 0
	}
	return symNone, 0
}

// maskOp recognizes "AH := AH & k", "AH := AH ^ k" and the flag-only
// forms "tmp := AH & k" (test) and "tmp := AH - k" (cmp)
func maskOp(a *exp.Assign) (symbol, int64, bool) {
	bin, ok := a.Rhs.(*exp.Binary)
	if !ok || !exp.Contains(bin.X, regAH) {
		return symNone, 0, false
	}
	k, ok := exp.IntValue(bin.Y)
	if !ok {
		return symNone, 0, false
	}
	toAH := exp.Equal(a.Lhs, regAH)
	switch bin.Op {
	case exp.OpBitAnd:
		if toAH || exp.IsTemp(a.Lhs) {
			return symAnd, k, true
		}
	case exp.OpBitXor:
		if toAH {
			return symXor, k, true
		}
	case exp.OpMinus:
		if exp.IsTemp(a.Lhs) {
			return symCmp, k, true
		}
	}
	return symNone, 0, false
}

func setOperand(cond exp.Exp) int64 {
	switch {
	case exp.Equal(cond, zf):
		return setOnZ
	case exp.Equal(cond, cf):
		return setOnC
	case exp.Equal(cond, notZF):
		return setOnNZ
	}
	return setOnOther
}
