package exp

import (
	"fmt"
	"strconv"
	"strings"
)

// Printing uses the textual RTL syntax accepted by pkg/parser, so that a
// printed statement parses back to an equal tree.

const (
	precTern = iota + 1
	precLOr
	precLAnd
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precAdd
	precUnary
	precPrimary
)

// Precedence returns the binding strength of e's top-level operator
func Precedence(e Exp) int {
	switch e.Oper() {
	case OpTern:
		return precTern
	case OpLOr:
		return precLOr
	case OpLAnd:
		return precLAnd
	case OpBitOr:
		return precBitOr
	case OpBitXor:
		return precBitXor
	case OpBitAnd:
		return precBitAnd
	case OpShiftL, OpShiftR:
		return precShift
	case OpPlus, OpMinus:
		return precAdd
	case OpLNot, OpNot, OpNeg:
		return precUnary
	}
	return precPrimary
}

func formatInt(v int64) string {
	if v < 0 {
		return "-" + formatInt(-v)
	}
	if v < 10 {
		return strconv.FormatInt(v, 10)
	}
	return fmt.Sprintf("0x%x", v)
}

func paren(e Exp, min int) string {
	if Precedence(e) < min {
		return "(" + e.String() + ")"
	}
	return e.String()
}

func (e *Const) String() string {
	if e.Op == OpStrConst {
		return strconv.Quote(e.Str)
	}
	return formatInt(e.Int)
}

func (e *Terminal) String() string {
	if e.Op == OpWild {
		return "_"
	}
	return e.Op.String()
}

func (e *Unary) String() string {
	switch e.Op {
	case OpRegOf:
		return "r[" + decimal(e.X) + "]"
	case OpMemOf:
		return "m[" + e.X.String() + "]"
	case OpTemp:
		if c, ok := e.X.(*Const); ok && c.Op == OpStrConst {
			return c.Str
		}
		return e.X.String()
	}
	return e.Op.String() + paren(e.X, precUnary)
}

// decimal prints a register number, size, bit index or shift count
func decimal(e Exp) string {
	if v, ok := IntValue(e); ok {
		return strconv.FormatInt(v, 10)
	}
	return e.String()
}

func (e *Binary) String() string {
	if e.Op == OpShiftRA {
		return "sar(" + e.X.String() + ", " + decimal(e.Y) + ")"
	}
	p := Precedence(e)
	return paren(e.X, p) + " " + e.Op.String() + " " + paren(e.Y, p+1)
}

func (e *Ternary) String() string {
	switch e.Op {
	case OpTern:
		return paren(e.X, precTern+1) + " ? " + paren(e.Y, precTern+1) + " : " + paren(e.Z, precTern+1)
	case OpAt:
		return paren(e.X, precPrimary) + "@" + decimal(e.Y) + ":" + decimal(e.Z)
	}
	return e.Op.String() + "(" + decimal(e.X) + ", " + decimal(e.Y) + ", " + e.Z.String() + ")"
}

func (e *Assign) String() string {
	var sb strings.Builder
	if e.Size != 0 {
		fmt.Fprintf(&sb, "*%d* ", e.Size)
	}
	sb.WriteString(e.Lhs.String())
	sb.WriteString(" := ")
	sb.WriteString(e.Rhs.String())
	return sb.String()
}

func (e *FlagCall) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return e.Name + "(" + strings.Join(args, ", ") + ")"
}
