package insts_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/transientcore/insts"
	"github.com/sarchlab/transientcore/word"
)

func TestInsts(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Insts Suite")
}

var _ = Describe("mnemonic table", func() {
	It("computes add", func() {
		r := insts.Add.Op(word.New(1), word.New(2))
		Expect(r).To(Equal(word.New(3)))
	})

	It("computes srl as a logical right shift", func() {
		r := insts.Srl.Op(word.New(0x8000), word.New(4))
		Expect(r).To(Equal(word.New(0x0800)))
	})

	It("computes sra as an arithmetic right shift", func() {
		r := insts.Sra.Op(word.New(0x8000), word.New(4))
		Expect(r).To(Equal(word.New(0xF800)))
	})

	It("evaluates beq as an equality test", func() {
		Expect(insts.Beq.Cond(word.New(5), word.New(5))).To(BeTrue())
		Expect(insts.Beq.Cond(word.New(5), word.New(6))).To(BeFalse())
	})

	It("marks memory and branch kinds as potentially faulting", func() {
		Expect(insts.Lw.IsFaulting).To(BeTrue())
		Expect(insts.Sb.IsFaulting).To(BeTrue())
		Expect(insts.FlushKind.IsFaulting).To(BeTrue())
		Expect(insts.Beq.IsFaulting).To(BeTrue())
		Expect(insts.Add.IsFaulting).To(BeFalse())
	})

	It("looks a mnemonic up by name and reports its kind", func() {
		k, ok := insts.ByMnemonic["lw"]
		Expect(ok).To(BeTrue())
		Expect(k.Tag).To(Equal(insts.TagLoad))
		Expect(k.ByteWidth).To(Equal(2))
	})
})

var _ = Describe("Instruction", func() {
	It("carries operand values and count", func() {
		i := insts.NewInstruction(insts.Addi, 1, 0, 100)
		Expect(i.NumOps).To(Equal(3))
		Expect(i.Operands[2]).To(Equal(100))
	})
})
