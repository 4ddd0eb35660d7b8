package insts

import "github.com/sarchlab/transientcore/word"

// The complete mnemonic set. ALU-class instructions run for one cycle;
// branches take two to mirror the extra comparison work in the source
// material this set was modeled on.
var (
	Add  = Reg("add", func(a, b word.Word) word.Word { return a.Add(b) }, 1)
	Sub  = Reg("sub", func(a, b word.Word) word.Word { return a.Sub(b) }, 1)
	Sll  = Reg("sll", func(a, b word.Word) word.Word { return a.ShiftLeft(b) }, 1)
	Srl  = Reg("srl", func(a, b word.Word) word.Word { return a.ShiftRightLogical(b) }, 1)
	Sra  = Reg("sra", func(a, b word.Word) word.Word { return a.ShiftRightArithmetic(b) }, 1)
	Xor  = Reg("xor", func(a, b word.Word) word.Word { return a.Xor(b) }, 1)
	Or   = Reg("or", func(a, b word.Word) word.Word { return a.Or(b) }, 1)
	And  = Reg("and", func(a, b word.Word) word.Word { return a.And(b) }, 1)
	Addi = Imm("addi", func(a, b word.Word) word.Word { return a.Add(b) }, 1)
	Subi = Imm("subi", func(a, b word.Word) word.Word { return a.Sub(b) }, 1)
	Slli = Imm("slli", func(a, b word.Word) word.Word { return a.ShiftLeft(b) }, 1)
	Srli = Imm("srli", func(a, b word.Word) word.Word { return a.ShiftRightLogical(b) }, 1)
	Srai = Imm("srai", func(a, b word.Word) word.Word { return a.ShiftRightArithmetic(b) }, 1)
	Xori = Imm("xori", func(a, b word.Word) word.Word { return a.Xor(b) }, 1)
	Ori  = Imm("ori", func(a, b word.Word) word.Word { return a.Or(b) }, 1)
	Andi = Imm("andi", func(a, b word.Word) word.Word { return a.And(b) }, 1)

	Lw = Load("lw", 2)
	Lb = Load("lb", 1)
	Sw = Store("sw", 2)
	Sb = Store("sb", 1)

	FlushKind = Flush()

	Beq  = Branch("beq", func(a, b word.Word) bool { return a.Equal(b) }, 2)
	Bne  = Branch("bne", func(a, b word.Word) bool { return !a.Equal(b) }, 2)
	Bltu = Branch("bltu", func(a, b word.Word) bool { return a.UnsignedLess(b) }, 2)
	Bleu = Branch("bleu", func(a, b word.Word) bool { return a.UnsignedLessEqual(b) }, 2)
	Bgtu = Branch("bgtu", func(a, b word.Word) bool { return a.UnsignedGreater(b) }, 2)
	Bgeu = Branch("bgeu", func(a, b word.Word) bool { return a.UnsignedGreaterEqual(b) }, 2)
	Blts = Branch("blts", func(a, b word.Word) bool { return a.SignedLess(b) }, 2)
	Bles = Branch("bles", func(a, b word.Word) bool { return a.SignedLessEqual(b) }, 2)
	Bgts = Branch("bgts", func(a, b word.Word) bool { return a.SignedGreater(b) }, 2)
	Bges = Branch("bges", func(a, b word.Word) bool { return a.SignedGreaterEqual(b) }, 2)

	CyclecountKind = Cyclecount()
	FenceKind      = Fence()
)

// ByMnemonic maps every assembly mnemonic to its Kind, for use by external
// parsers building Instruction values.
var ByMnemonic = map[string]Kind{
	"add": Add, "sub": Sub, "sll": Sll, "srl": Srl, "sra": Sra,
	"xor": Xor, "or": Or, "and": And,
	"addi": Addi, "subi": Subi, "slli": Slli, "srli": Srli, "srai": Srai,
	"xori": Xori, "ori": Ori, "andi": Andi,
	"lw": Lw, "lb": Lb, "sw": Sw, "sb": Sb,
	"flush": FlushKind,
	"beq":   Beq, "bne": Bne, "bltu": Bltu, "bleu": Bleu, "bgtu": Bgtu,
	"bgeu": Bgeu, "blts": Blts, "bles": Bles, "bgts": Bgts, "bges": Bges,
	"cyclecount": CyclecountKind,
	"fence":      FenceKind,
}
