package fpu

import (
	"errors"
	"fmt"

	"github.com/raymyers/ralph-dc/pkg/cfg"
	"github.com/raymyers/ralph-dc/pkg/exp"
	"github.com/raymyers/ralph-dc/pkg/rtl"
)

// ErrUnmappedPredicate is returned for an integer condition that has no
// floating-point equivalent
var ErrUnmappedPredicate = errors.New("no floating-point equivalent for condition")

// SetSize is the width of an emitted set instruction's destination
const SetSize = 8

// After a status-word test the integer flags mirror the FPU condition
// codes: CF is C0 (less), ZF is C3 (equal).
var floatPredicates = []struct {
	flags exp.Exp
	float exp.Exp
}{
	{cf, floatLT},
	{zf, floatZero},
	{notCF, floatGE},
	{notZF, floatNotZero},
	{cfOrZF, floatLE},
	{notCFNotZF, floatGT},
}

// FloatPredicate maps a condition over %ZF and %CF to the equivalent
// floating-point predicate
func FloatPredicate(flags exp.Exp) (exp.Exp, bool) {
	for _, p := range floatPredicates {
		if exp.Equal(p.flags, flags) {
			return p.float, true
		}
	}
	return nil, false
}

// Emitter inserts synthesized floating-point set instructions
type Emitter struct{}

// Emit inserts "dest := fpred ? 1 : 0" before index at of b, where fpred
// is the floating-point form of the integer condition pred. Nothing is
// inserted when pred has no floating-point form.
func (e Emitter) Emit(b *cfg.Block, at int, addr rtl.Address, dest, pred exp.Exp) error {
	fpred, ok := FloatPredicate(pred)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnmappedPredicate, pred)
	}
	e.EmitFloat(b, at, addr, dest, fpred)
	return nil
}

// EmitFloat inserts "dest := fpred ? 1 : 0" before index at of b
func (Emitter) EmitFloat(b *cfg.Block, at int, addr rtl.Address, dest, fpred exp.Exp) {
	b.Insert(at, SetRecord(addr, dest, fpred))
}

// SetRecord builds the record "dest := fpred ? 1 : 0"
func SetRecord(addr rtl.Address, dest, fpred exp.Exp) *rtl.Record {
	return rtl.NewRecord(addr, exp.NewAssign(SetSize, exp.Clone(dest),
		exp.Tern(exp.Clone(fpred), exp.Int(1), exp.Int(0))))
}
