// Package exp defines the expression trees carried by instruction-effect
// records: registers, flags, constants and the operators that combine them.
// Trees are treated as immutable once built; passes that need a different
// tree rebuild it with Map.
package exp

// Oper identifies the operator (or terminal kind) of an expression node
type Oper int

const (
	OpWild Oper = iota // matches any sub-tree in Match

	// Constants
	OpIntConst
	OpStrConst

	// Integer flags
	OpZF
	OpCF
	OpPF
	OpSF
	OpOF

	// Floating-point flags
	OpFZF
	OpFGF
	OpFLF

	// FPU stack markers
	OpFpush
	OpFpop

	// Unary
	OpRegOf
	OpTemp
	OpMemOf
	OpLNot // logical !
	OpNot  // bitwise ~
	OpNeg

	// Binary
	OpLAnd
	OpLOr
	OpBitAnd
	OpBitOr
	OpBitXor
	OpPlus
	OpMinus
	OpShiftL
	OpShiftR
	OpShiftRA

	// Ternary
	OpTern
	OpAt
	OpFtoi
	OpTruncs

	// Statements
	OpAssign
	OpFlagCall
)

var operNames = map[Oper]string{
	OpWild:     "wild",
	OpIntConst: "int",
	OpStrConst: "str",
	OpZF:       "%ZF",
	OpCF:       "%CF",
	OpPF:       "%PF",
	OpSF:       "%SF",
	OpOF:       "%OF",
	OpFZF:      "%FZF",
	OpFGF:      "%FGF",
	OpFLF:      "%FLF",
	OpFpush:    "FPUSH",
	OpFpop:     "FPOP",
	OpRegOf:    "r[]",
	OpTemp:     "temp",
	OpMemOf:    "m[]",
	OpLNot:     "!",
	OpNot:      "~",
	OpNeg:      "-",
	OpLAnd:     "&&",
	OpLOr:      "||",
	OpBitAnd:   "&",
	OpBitOr:    "|",
	OpBitXor:   "^",
	OpPlus:     "+",
	OpMinus:    "-",
	OpShiftL:   "<<",
	OpShiftR:   ">>",
	OpShiftRA:  "sar",
	OpTern:     "?:",
	OpAt:       "@",
	OpFtoi:     "ftoi",
	OpTruncs:   "truncs",
	OpAssign:   ":=",
	OpFlagCall: "flagcall",
}

func (o Oper) String() string {
	if name, ok := operNames[o]; ok {
		return name
	}
	return "?"
}

// Exp is the interface implemented by every expression node
type Exp interface {
	Oper() Oper
	String() string
}

// Const is an integer or string constant
type Const struct {
	Op  Oper // OpIntConst or OpStrConst
	Int int64
	Str string
}

// Terminal is a leaf without operands: a flag, an FPU marker or a wildcard
type Terminal struct {
	Op Oper
}

// Unary applies Op to a single operand
type Unary struct {
	Op Oper
	X  Exp
}

// Binary applies Op to two operands
type Binary struct {
	Op   Oper
	X, Y Exp
}

// Ternary applies Op to three operands
type Ternary struct {
	Op      Oper
	X, Y, Z Exp
}

// Assign is a statement: Lhs := Rhs, Size bits wide (0 when unknown)
type Assign struct {
	Size int
	Lhs  Exp
	Rhs  Exp
}

// FlagCall is a statement that sets flags from its arguments, e.g.
// SUBFLAGS(r[24], r[25], tmp1)
type FlagCall struct {
	Name string
	Args []Exp
}

func (e *Const) Oper() Oper    { return e.Op }
func (e *Terminal) Oper() Oper { return e.Op }
func (e *Unary) Oper() Oper    { return e.Op }
func (e *Binary) Oper() Oper   { return e.Op }
func (e *Ternary) Oper() Oper  { return e.Op }
func (e *Assign) Oper() Oper   { return OpAssign }
func (e *FlagCall) Oper() Oper { return OpFlagCall }

// --- Constructors ---

// Int returns an integer constant
func Int(v int64) Exp { return &Const{Op: OpIntConst, Int: v} }

// Str returns a string constant
func Str(s string) Exp { return &Const{Op: OpStrConst, Str: s} }

// Reg returns the register reference r[n]
func Reg(n int) Exp { return &Unary{Op: OpRegOf, X: Int(int64(n))} }

// Temp returns a reference to the named temporary (e.g. tmp1, tmpl)
func Temp(name string) Exp { return &Unary{Op: OpTemp, X: Str(name)} }

// Mem returns the memory reference m[addr]
func Mem(addr Exp) Exp { return &Unary{Op: OpMemOf, X: addr} }

// Flag returns a flag terminal such as %ZF or %FGF
func Flag(op Oper) Exp { return &Terminal{Op: op} }

// Wild returns a wildcard for use in Match patterns
func Wild() Exp { return &Terminal{Op: OpWild} }

// Push returns the FPU push marker
func Push() Exp { return &Terminal{Op: OpFpush} }

// Pop returns the FPU pop marker
func Pop() Exp { return &Terminal{Op: OpFpop} }

// LNot returns the logical negation !x
func LNot(x Exp) Exp { return &Unary{Op: OpLNot, X: x} }

// LAnd returns x && y
func LAnd(x, y Exp) Exp { return &Binary{Op: OpLAnd, X: x, Y: y} }

// LOr returns x || y
func LOr(x, y Exp) Exp { return &Binary{Op: OpLOr, X: x, Y: y} }

// Un returns op applied to x
func Un(op Oper, x Exp) Exp { return &Unary{Op: op, X: x} }

// Bin returns op applied to x and y
func Bin(op Oper, x, y Exp) Exp { return &Binary{Op: op, X: x, Y: y} }

// Tern returns cond ? a : b
func Tern(cond, a, b Exp) Exp { return &Ternary{Op: OpTern, X: cond, Y: a, Z: b} }

// At returns the bit extraction x@hi:lo
func At(x Exp, hi, lo int64) Exp { return &Ternary{Op: OpAt, X: x, Y: Int(hi), Z: Int(lo)} }

// Ftoi converts the from-bit float x to a to-bit integer
func Ftoi(from, to int64, x Exp) Exp { return &Ternary{Op: OpFtoi, X: Int(from), Y: Int(to), Z: x} }

// Truncs truncates the from-bit signed integer x to to bits
func Truncs(from, to int64, x Exp) Exp { return &Ternary{Op: OpTruncs, X: Int(from), Y: Int(to), Z: x} }

// NewAssign returns the statement lhs := rhs
func NewAssign(size int, lhs, rhs Exp) *Assign { return &Assign{Size: size, Lhs: lhs, Rhs: rhs} }

// NewFlagCall returns the statement name(args...)
func NewFlagCall(name string, args ...Exp) *FlagCall { return &FlagCall{Name: name, Args: args} }

// --- Queries ---

// IntValue returns the value of an integer constant
func IntValue(e Exp) (int64, bool) {
	c, ok := e.(*Const)
	if !ok || c.Op != OpIntConst {
		return 0, false
	}
	return c.Int, true
}

// RegNum returns n if e is r[n] with a constant index
func RegNum(e Exp) (int, bool) {
	u, ok := e.(*Unary)
	if !ok || u.Op != OpRegOf {
		return 0, false
	}
	n, ok := IntValue(u.X)
	return int(n), ok
}

// IsReg reports whether e is a register reference
func IsReg(e Exp) bool {
	u, ok := e.(*Unary)
	return ok && u.Op == OpRegOf
}

// IsTemp reports whether e is a temporary
func IsTemp(e Exp) bool {
	u, ok := e.(*Unary)
	return ok && u.Op == OpTemp
}

// IsTerminal reports whether e is the terminal op
func IsTerminal(e Exp, op Oper) bool {
	t, ok := e.(*Terminal)
	return ok && t.Op == op
}

// IsPush reports whether e is the FPU push marker
func IsPush(e Exp) bool { return IsTerminal(e, OpFpush) }

// IsPop reports whether e is the FPU pop marker
func IsPop(e Exp) bool { return IsTerminal(e, OpFpop) }
