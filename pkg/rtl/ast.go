// Package rtl defines instruction-effect records: the address-tagged lists
// of expression statements that the decoder produces for each machine
// instruction. Statements inside one record take effect together.
package rtl

import (
	"fmt"

	"github.com/raymyers/ralph-dc/pkg/exp"
)

// Address is a native code address
type Address uint32

// NoAddress marks a computed (non-fixed) destination
const NoAddress Address = 0xffffffff

func (a Address) String() string {
	if a == NoAddress {
		return "<none>"
	}
	return fmt.Sprintf("%08x", uint32(a))
}

// Kind classifies a record
type Kind int

const (
	Ordinary Kind = iota // plain statements
	Call                 // call, Dest is the fixed target or NoAddress
	Branch               // conditional branch, Cond and Dest are set
)

func (k Kind) String() string {
	names := []string{"ordinary", "call", "branch"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// --- Branch Conditions ---

// Cond is the condition tested by a conditional branch
type Cond int

const (
	JE   Cond = iota // equal
	JNE              // not equal
	JSL              // signed less
	JSLE             // signed less or equal
	JSGE             // signed greater or equal
	JSG              // signed greater
	JUL              // unsigned less (below)
	JULE             // unsigned less or equal
	JUGE             // unsigned greater or equal (above or equal)
	JUG              // unsigned greater (above)
	JMI              // minus
	JPOS             // positive
	JOF              // overflow
	JNOF             // no overflow
	JPAR             // parity
)

var condNames = []string{
	"JE", "JNE", "JSL", "JSLE", "JSGE", "JSG",
	"JUL", "JULE", "JUGE", "JUG",
	"JMI", "JPOS", "JOF", "JNOF", "JPAR",
}

func (c Cond) String() string {
	if int(c) < len(condNames) {
		return condNames[c]
	}
	return "?"
}

// ParseCond returns the condition with the given name
func ParseCond(name string) (Cond, bool) {
	for i, n := range condNames {
		if n == name {
			return Cond(i), true
		}
	}
	return 0, false
}

// MakeSigned returns the signed counterpart of an unsigned condition.
// Other conditions are returned unchanged.
func (c Cond) MakeSigned() Cond {
	switch c {
	case JUL:
		return JSL
	case JULE:
		return JSLE
	case JUGE:
		return JSGE
	case JUG:
		return JSG
	}
	return c
}

// --- Records ---

// Record is the effect of one decoded instruction
type Record struct {
	Addr  Address
	Kind  Kind
	Stmts []exp.Exp
	Dest  Address // fixed call or branch target
	Cond  Cond    // branch condition (Kind == Branch)
	Float bool    // branch tests the floating-point flags
}

// NewRecord creates an ordinary record
func NewRecord(addr Address, stmts ...exp.Exp) *Record {
	return &Record{Addr: addr, Kind: Ordinary, Stmts: stmts, Dest: NoAddress}
}

// NewCall creates a call record with a fixed (or NoAddress) destination
func NewCall(addr, dest Address, stmts ...exp.Exp) *Record {
	return &Record{Addr: addr, Kind: Call, Stmts: stmts, Dest: dest}
}

// NewBranch creates a conditional branch record
func NewBranch(addr Address, cond Cond, dest Address) *Record {
	return &Record{Addr: addr, Kind: Branch, Cond: cond, Dest: dest}
}

// IsCall reports whether r is a call
func (r *Record) IsCall() bool { return r.Kind == Call }

// IsBranch reports whether r is a conditional branch
func (r *Record) IsBranch() bool { return r.Kind == Branch }

// First returns the first statement, or nil for an empty record
func (r *Record) First() exp.Exp {
	if len(r.Stmts) == 0 {
		return nil
	}
	return r.Stmts[0]
}

// Clone returns a copy of r that shares no mutable state with it
func (r *Record) Clone() *Record {
	c := *r
	c.Stmts = make([]exp.Exp, len(r.Stmts))
	for i, s := range r.Stmts {
		c.Stmts[i] = exp.Clone(s)
	}
	return &c
}

// Equal reports whether two records are identical in every field
func Equal(a, b *Record) bool {
	if a.Addr != b.Addr || a.Kind != b.Kind || a.Dest != b.Dest || a.Float != b.Float {
		return false
	}
	if a.Kind == Branch && a.Cond != b.Cond {
		return false
	}
	if len(a.Stmts) != len(b.Stmts) {
		return false
	}
	for i := range a.Stmts {
		if !exp.Equal(a.Stmts[i], b.Stmts[i]) {
			return false
		}
	}
	return true
}
