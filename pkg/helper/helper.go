// Package helper inlines calls to compiler runtime helpers whose effect is
// known, so that no call node is created for them
package helper

import (
	"sort"

	"github.com/raymyers/ralph-dc/pkg/exp"
	"github.com/raymyers/ralph-dc/pkg/rtl"
)

// SymbolResolver maps a code address to the symbol defined there
type SymbolResolver interface {
	SymbolAt(addr rtl.Address) (string, bool)
}

// Expansion produces the records replacing a call at addr
type Expansion func(addr rtl.Address) []*rtl.Record

var helpers = map[string]Expansion{
	"__xtol": xtol,
}

// Helpers returns the names of the helpers that are inlined
func Helpers() []string {
	names := make([]string, 0, len(helpers))
	for name := range helpers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Substituter replaces helper calls while a block is being built
type Substituter struct {
	Symbols SymbolResolver
}

// NewSubstituter creates a substituter resolving names through syms
func NewSubstituter(syms SymbolResolver) *Substituter {
	return &Substituter{Symbols: syms}
}

// Substitute checks whether the call at addr to dest is a known helper. If
// it is, the expansion is appended to records and true is returned; the
// caller must then not create the call record itself.
func (s *Substituter) Substitute(dest, addr rtl.Address, records *[]*rtl.Record) bool {
	if s == nil || s.Symbols == nil || dest == rtl.NoAddress {
		return false
	}
	name, ok := s.Symbols.SymbolAt(dest)
	if !ok {
		return false
	}
	expand, ok := helpers[name]
	if !ok {
		return false
	}
	*records = append(*records, expand(addr)...)
	return true
}

// xtol converts ST(0) to a 64-bit integer in EDX:EAX, truncating toward
// zero. The 80-bit value goes through a temporary.
func xtol(addr rtl.Address) []*rtl.Record {
	tmp := exp.Temp("tmpl")
	return []*rtl.Record{
		rtl.NewRecord(addr, exp.NewAssign(64, tmp, exp.Ftoi(80, 64, exp.Reg(32)))),
		rtl.NewRecord(addr, exp.NewAssign(32, exp.Reg(24), exp.Truncs(64, 32, exp.Clone(tmp)))),
		rtl.NewRecord(addr, exp.NewAssign(32, exp.Reg(26), exp.Bin(exp.OpShiftRA, exp.Clone(tmp), exp.Int(32)))),
	}
}
