package fpu

import (
	"github.com/raymyers/ralph-dc/pkg/exp"
	"github.com/raymyers/ralph-dc/pkg/rtl"
)

// State of the status-word idiom automaton. After fnstsw ax, compilers
// test the FPU condition codes in AH with one of a handful of and/xor/cmp/dec
// sequences, or copy them to the flags with sahf, and then consume the
// result with a setcc or a conditional branch. Each intermediate state
// names the sequence seen so far.
type State int

const (
	Start         State = iota
	And45               // and ah,0x45 (or test ah,0x45)
	And44               // and ah,0x44
	And05               // and ah,0x05
	And45Cmp40          // and ah,0x45; cmp ah,0x40
	And44Xor40          // and ah,0x44; xor ah,0x40
	And45Dec            // and ah,0x45; dec ah
	And45DecCmp40       // and ah,0x45; dec ah; cmp ah,0x40
	And45Cmp01          // and ah,0x45; cmp ah,1
	Sahf                // sahf, waiting for jp or jcc
	SetE                // ... sete after cmp 40
	SetG                // ... sete after and 45
	SetLE               // ... setb after dec; cmp 40
	SetL                // ... sete after cmp 1
	SetGE               // ... sete after and 05
	SetNE               // ... setne after xor 40
	SetRelocated        // sahf; setcc
)

var stateNames = []string{
	"start", "and45", "and44", "and05", "and45-cmp40", "and44-xor40",
	"and45-dec", "and45-dec-cmp40", "and45-cmp01", "sahf",
	"sete", "setg", "setle", "setl", "setge", "setne", "sahf-set",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "?"
}

// symbol classifies a record seen while scanning after fnstsw
type symbol int

const (
	symNone symbol = iota // unrelated to the idiom; skipped
	symAnd
	symXor
	symCmp
	symDec
	symSet
	symSahf
	symBad // touches AH in an unrecognized way
)

var symbolNames = []string{"none", "and", "xor", "cmp", "dec", "set", "sahf", "unrecognized"}

func (s symbol) String() string {
	if int(s) < len(symbolNames) {
		return symbolNames[s]
	}
	return "?"
}

// Operands of symSet: the condition the setcc tests
const (
	setOnZ int64 = iota + 1
	setOnC
	setOnNZ
	setOnOther

	anyOperand int64 = -1
)

type edge struct {
	from    State
	sym     symbol
	operand int64
}

var transitions = map[edge]State{
	{Start, symAnd, 0x45}:           And45,
	{Start, symAnd, 0x44}:           And44,
	{Start, symAnd, 0x05}:           And05,
	{Start, symSahf, 0}:             Sahf,
	{And44, symXor, 0x40}:           And44Xor40,
	{And45, symCmp, 0x40}:           And45Cmp40,
	{And45, symCmp, 0x01}:           And45Cmp01,
	{And45, symDec, 0}:              And45Dec,
	{And45Dec, symCmp, 0x40}:        And45DecCmp40,
	{And45Cmp40, symSet, setOnZ}:    SetE,
	{And45, symSet, setOnZ}:         SetG,
	{And05, symSet, setOnZ}:         SetGE,
	{And45Cmp01, symSet, setOnZ}:    SetL,
	{And45DecCmp40, symSet, setOnC}: SetLE,
	{And44Xor40, symSet, setOnNZ}:   SetNE,
	{Sahf, symSet, anyOperand}:      SetRelocated,
}

// next returns the state reached from s on (sym, operand)
func next(s State, sym symbol, operand int64) (State, bool) {
	if to, ok := transitions[edge{s, sym, operand}]; ok {
		return to, true
	}
	to, ok := transitions[edge{s, sym, anyOperand}]
	return to, ok
}

// setPredicates gives the floating-point predicate computed by each
// accepting set state. SetRelocated is absent: its predicate is mapped
// from the setcc's own condition.
var setPredicates = map[State]exp.Exp{
	SetE:  floatZero,
	SetG:  floatGT,
	SetLE: floatLE,
	SetL:  floatLT,
	SetGE: floatGE,
	SetNE: floatNotZero,
}

type branchKey struct {
	state State
	cond  rtl.Cond
}

// branchRewrites gives the signed floating-point condition replacing the
// block's terminating branch when the scan ends in a non-accepting state
var branchRewrites = map[branchKey]rtl.Cond{
	{And45Cmp40, rtl.JE}:      rtl.JE,
	{And45, rtl.JE}:           rtl.JSG,
	{And45DecCmp40, rtl.JE}:   rtl.JSG,
	{And45, rtl.JNE}:          rtl.JSLE,
	{And44Xor40, rtl.JNE}:     rtl.JNE,
	{And05, rtl.JNE}:          rtl.JSL,
	{And45Cmp01, rtl.JNE}:     rtl.JSGE,
	{And45DecCmp40, rtl.JUGE}: rtl.JSG,
}
