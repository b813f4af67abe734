// Package entry locates a program's main function from its raw entry point
// by recognizing the C runtime startup code that calls it
package entry

import (
	"errors"
	"fmt"

	"github.com/raymyers/ralph-dc/pkg/diag"
	"github.com/raymyers/ralph-dc/pkg/exp"
	"github.com/raymyers/ralph-dc/pkg/rtl"
)

// DefaultLimit is the number of instructions scanned from the entry point
const DefaultLimit = 100

// LibcStartMain is called by glibc startup code with main as its first
// argument
const LibcStartMain = "__libc_start_main"

// pushSize is the length of "push imm32", which precedes the call to
// __libc_start_main
const pushSize = 5

// ErrDecode is returned by a Decoder for an address it cannot decode
var ErrDecode = errors.New("cannot decode instruction")

// Inst is one decoded instruction
type Inst struct {
	Addr  rtl.Address
	Size  int
	Call  bool
	Dest  rtl.Address // fixed call destination, or rtl.NoAddress
	Stmts []exp.Exp
}

// Decoder decodes the instruction at an address
type Decoder interface {
	Decode(addr rtl.Address) (Inst, error)
}

// SymbolResolver maps between addresses and symbol names
type SymbolResolver interface {
	SymbolAt(addr rtl.Address) (string, bool)
	AddressOf(name string) (rtl.Address, bool)
}

// Finder searches for main
type Finder struct {
	Decoder Decoder
	Symbols SymbolResolver // may be nil
	Limit   int            // instructions to scan; DefaultLimit when 0
	Diag    *diag.Sink
}

// MainEntry returns the address of main and true, or start and false when
// no known startup pattern is found
func (f *Finder) MainEntry(start rtl.Address) (rtl.Address, bool) {
	if f.Symbols != nil {
		if addr, ok := f.Symbols.AddressOf("main"); ok {
			return addr, true
		}
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	addr := start
	calls := 0
	for n := 0; n < limit; n++ {
		inst, err := f.Decoder.Decode(addr)
		if err != nil {
			f.Diag.Warnf(addr, "main not found: %v", err)
			return start, false
		}
		if !inst.Call || inst.Dest == rtl.NoAddress {
			calls = 0
			addr = next(inst)
			continue
		}

		// Three calls in a row: the third is main
		calls++
		if calls == 3 {
			return inst.Dest, true
		}
		if f.symbolAt(inst.Dest) == LibcStartMain {
			if main, ok := f.pushedArg(inst.Addr); ok {
				return main, true
			}
			f.Diag.Warnf(inst.Addr, "no constant main argument before call to %s", LibcStartMain)
			return start, false
		}
		addr = next(inst)
	}

	f.Diag.Warnf(start, "main not found in the first %d instructions", limit)
	return start, false
}

func next(inst Inst) rtl.Address {
	size := inst.Size
	if size <= 0 {
		size = 1
	}
	return inst.Addr + rtl.Address(size)
}

func (f *Finder) symbolAt(addr rtl.Address) string {
	if f.Symbols == nil {
		return ""
	}
	name, _ := f.Symbols.SymbolAt(addr)
	return name
}

// pushedArg decodes the push immediately before the call at addr and
// returns the constant it pushes
func (f *Finder) pushedArg(addr rtl.Address) (rtl.Address, bool) {
	inst, err := f.Decoder.Decode(addr - pushSize)
	if err != nil {
		return 0, false
	}
	for _, s := range inst.Stmts {
		a, ok := s.(*exp.Assign)
		if !ok {
			continue
		}
		if v, ok := exp.IntValue(a.Rhs); ok {
			return rtl.Address(v), true
		}
	}
	return 0, false
}

// Describe words the result of MainEntry for the operator
func Describe(addr rtl.Address, found bool) string {
	if found {
		return fmt.Sprintf("main at %s", addr)
	}
	return fmt.Sprintf("main not found, using entry point %s", addr)
}
