package frontend_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/transientcore/insts"
	"github.com/sarchlab/transientcore/timing/bpu"
	"github.com/sarchlab/transientcore/timing/frontend"
)

func TestFrontend(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Frontend Suite")
}

func loopProgram() []insts.Instruction {
	return []insts.Instruction{
		insts.NewInstruction(insts.Addi, 1, 0, 5),
		insts.NewInstruction(insts.Subi, 1, 1, 1),
		insts.NewInstruction(insts.Bne, 1, 0, 1),
		insts.NewInstruction(insts.Addi, 2, 0, 42),
	}
}

var _ = Describe("Fill", func() {
	It("stops at max_length even with program remaining", func() {
		p := bpu.NewSimple(0)
		f := frontend.New(p, loopProgram(), 2)
		f.Fill()
		Expect(f.Len()).To(Equal(2))
	})

	It("predicts a branch taken and redirects pc to its label", func() {
		p := bpu.NewSimple(2) // predicts taken
		f := frontend.New(p, loopProgram(), 5)
		f.Fill()
		info, err := f.Pop()
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Instr.Kind.Name).To(Equal("addi"))

		info, _ = f.Pop()
		info, _ = f.Pop() // the branch
		Expect(info.Instr.Kind.Tag).To(Equal(insts.TagBranch))
		Expect(*info.Prediction).To(BeTrue())

		info, _ = f.Pop() // fetched from the branch's label
		Expect(info.PC).To(Equal(1))
	})

	It("reports done once the program is exhausted and the queue drained", func() {
		p := bpu.NewSimple(0)
		prog := []insts.Instruction{insts.NewInstruction(insts.Addi, 1, 0, 1)}
		f := frontend.New(p, prog, 5)
		f.Fill()
		Expect(f.IsDone()).To(BeFalse())
		f.Pop()
		Expect(f.IsDone()).To(BeTrue())
	})
})

var _ = Describe("queue usage errors", func() {
	It("returns ErrQueueEmpty on pop from an empty queue", func() {
		p := bpu.NewSimple(0)
		f := frontend.New(p, loopProgram(), 5)
		_, err := f.Pop()
		Expect(err).To(MatchError(frontend.ErrQueueEmpty))
	})

	It("returns ErrPCOutOfRange on an invalid SetPC", func() {
		p := bpu.NewSimple(0)
		f := frontend.New(p, loopProgram(), 5)
		Expect(f.SetPC(-1)).To(MatchError(frontend.ErrPCOutOfRange))
		Expect(f.SetPC(100)).To(MatchError(frontend.ErrPCOutOfRange))
	})
})

var _ = Describe("micro-program injection", func() {
	It("bypasses max_length and takes any branch unconditionally", func() {
		p := bpu.NewSimple(0) // would predict not-taken if consulted
		f := frontend.New(p, loopProgram(), 1)
		f.Fill() // queue already at its 1-instruction cap
		micro := []insts.Instruction{
			insts.NewInstruction(insts.Addi, 1, 1, 2),
			insts.NewInstruction(insts.Bne, 0, 0, 3),
		}
		f.AddMicroProgram(micro)
		Expect(f.Len()).To(Equal(3))
		Expect(f.PC()).To(Equal(3))
	})
})

var _ = Describe("AddInstructionsAfterBranch", func() {
	It("installs the correct path after a mispredict", func() {
		p := bpu.NewSimple(0)
		f := frontend.New(p, loopProgram(), 5)
		err := f.AddInstructionsAfterBranch(true, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(f.PC()).NotTo(Equal(3))
	})

	It("errors when branchPC does not reference a branch", func() {
		p := bpu.NewSimple(0)
		f := frontend.New(p, loopProgram(), 5)
		err := f.AddInstructionsAfterBranch(true, 0)
		Expect(err).To(HaveOccurred())
	})
})
