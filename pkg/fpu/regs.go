// Package fpu legalizes x87 floating-point code. It replaces the FPU's
// stack-relative registers with absolute ones and turns status-word test
// idioms into explicit floating-point predicates and branches.
package fpu

import "github.com/raymyers/ralph-dc/pkg/exp"

// Register numbers of the x86 register model
const (
	RegAX      = 0  // 16-bit accumulator, target of fnstsw
	RegAH      = 12 // bits 8-15 of the accumulator
	RegEAX     = 24
	RegEDX     = 26
	FirstFloat = 32 // ST slots occupy r[32]..r[39]
	LastFloat  = 39
	RegFSW     = 40 // FPU status word
)

// Slot returns the absolute register for stack-relative register n when
// the top of stack is offset by tos
func Slot(n, tos int) int {
	return FirstFloat + ((n - FirstFloat + tos) & 7)
}

// IsFloatReg reports whether n is one of the eight FPU stack registers
func IsFloatReg(n int) bool {
	return n >= FirstFloat && n <= LastFloat
}

var (
	regAH        = exp.Reg(RegAH)
	regAX        = exp.Reg(RegAX)
	regFSW       = exp.Reg(RegFSW)
	ahBit7       = exp.At(exp.Reg(RegAH), 7, 7)
	decAH        = exp.Bin(exp.OpMinus, exp.Reg(RegAH), exp.Int(1))
	setPattern   = exp.Tern(exp.Wild(), exp.Int(1), exp.Int(0))
	zf           = exp.Flag(exp.OpZF)
	cf           = exp.Flag(exp.OpCF)
	notZF        = exp.LNot(exp.Flag(exp.OpZF))
	notCF        = exp.LNot(exp.Flag(exp.OpCF))
	cfOrZF       = exp.LOr(exp.Flag(exp.OpCF), exp.Flag(exp.OpZF))
	notCFNotZF   = exp.LAnd(exp.LNot(exp.Flag(exp.OpCF)), exp.LNot(exp.Flag(exp.OpZF)))
	floatZero    = exp.Flag(exp.OpFZF)
	floatGT      = exp.Flag(exp.OpFGF)
	floatLT      = exp.Flag(exp.OpFLF)
	floatLE      = exp.LOr(exp.Flag(exp.OpFLF), exp.Flag(exp.OpFZF))
	floatGE      = exp.LOr(exp.Flag(exp.OpFGF), exp.Flag(exp.OpFZF))
	floatNotZero = exp.LNot(exp.Flag(exp.OpFZF))
)
