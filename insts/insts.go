// Package insts defines the instruction set of the simulated 16-bit
// RISC-like processor: a flat tagged Kind sum type together with its
// operand-slot signature, and the concrete Instruction values that carry
// operand indices/immediates through the reservation station.
package insts

import "github.com/sarchlab/transientcore/word"

// Tag identifies which variant of Kind a given instruction belongs to.
type Tag int

// The variants of Kind, matching the Instruction Kind sum type.
const (
	TagReg Tag = iota
	TagImm
	TagLoad
	TagStore
	TagFlush
	TagBranch
	TagCyclecount
	TagFence
)

func (t Tag) String() string {
	switch t {
	case TagReg:
		return "Reg"
	case TagImm:
		return "Imm"
	case TagLoad:
		return "Load"
	case TagStore:
		return "Store"
	case TagFlush:
		return "Flush"
	case TagBranch:
		return "Branch"
	case TagCyclecount:
		return "Cyclecount"
	case TagFence:
		return "Fence"
	default:
		return "Unknown"
	}
}

// BinOp computes a Word result from two Word source operands, used by Reg
// and Imm kinds.
type BinOp func(a, b word.Word) word.Word

// Cond computes a taken/not-taken decision from two Word source operands,
// used by Branch kinds.
type Cond func(a, b word.Word) bool

// Kind describes one instruction variant: its name, dispatch function (if
// any), operand count/latency, and which tag it belongs to.
//
// Only the fields relevant to Tag are meaningful; e.g. Op is nil unless
// Tag is TagReg or TagImm.
type Kind struct {
	Tag        Tag
	Name       string
	Op         BinOp
	Cond       Cond
	Cycles     int
	ByteWidth  int // Load/Store: 1 or 2
	IsFaulting bool
}

// Reg constructs a register-register arithmetic Kind. Operands: (rd, rs1, rs2).
func Reg(name string, op BinOp, cycles int) Kind {
	return Kind{Tag: TagReg, Name: name, Op: op, Cycles: cycles}
}

// Imm constructs a register-immediate arithmetic Kind. Operands: (rd, rs1, imm).
func Imm(name string, op BinOp, cycles int) Kind {
	return Kind{Tag: TagImm, Name: name, Op: op, Cycles: cycles}
}

// Load constructs a memory-load Kind of the given byte width. Operands:
// (rd, rbase, imm_offset).
func Load(name string, byteWidth int) Kind {
	return Kind{Tag: TagLoad, Name: name, ByteWidth: byteWidth, IsFaulting: true}
}

// Store constructs a memory-store Kind of the given byte width. Operands:
// (rs_val, rbase, imm_offset).
func Store(name string, byteWidth int) Kind {
	return Kind{Tag: TagStore, Name: name, ByteWidth: byteWidth, IsFaulting: true}
}

// Flush constructs the cache-line-flush Kind. Operands: (rbase, imm_offset).
func Flush() Kind {
	return Kind{Tag: TagFlush, Name: "flush", IsFaulting: true}
}

// Branch constructs a conditional-branch Kind. Operands: (rs1, rs2, label_pc).
func Branch(name string, cond Cond, cycles int) Kind {
	return Kind{Tag: TagBranch, Name: name, Cond: cond, Cycles: cycles, IsFaulting: true}
}

// Cyclecount constructs the engine-cycle-counter-read Kind. Operand: (rd).
func Cyclecount() Kind {
	return Kind{Tag: TagCyclecount, Name: "cyclecount"}
}

// Fence constructs the serializing Kind. No operands.
func Fence() Kind {
	return Kind{Tag: TagFence, Name: "fence"}
}

// Instruction pairs a Kind with its operand values. Operand interpretation
// depends on Kind.Tag: register indices, an immediate, or a label pc,
// per the mnemonic table in mnemonics.go.
type Instruction struct {
	Kind     Kind
	Operands [3]int
	NumOps   int
}

// NewInstruction constructs an Instruction with the given operand values.
func NewInstruction(kind Kind, operands ...int) Instruction {
	var ops [3]int
	copy(ops[:], operands)
	return Instruction{Kind: kind, Operands: ops, NumOps: len(operands)}
}
