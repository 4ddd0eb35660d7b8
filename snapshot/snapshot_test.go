package snapshot_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/transientcore/insts"
	"github.com/sarchlab/transientcore/snapshot"
	"github.com/sarchlab/transientcore/timing/bpu"
	"github.com/sarchlab/transientcore/timing/cache"
	"github.com/sarchlab/transientcore/timing/engine"
	"github.com/sarchlab/transientcore/timing/frontend"
	"github.com/sarchlab/transientcore/timing/memsys"
	"github.com/sarchlab/transientcore/word"
)

func TestSnapshot(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Snapshot Suite")
}

func build() (*memsys.Subsystem, *engine.Engine, *frontend.Frontend) {
	cfg := memsys.Config{
		MemSize:        1 << 16,
		NumWriteCycles: 3,
		NumFaultCycles: 4,
		Cache:          cache.Config{NumSets: 4, NumWays: 2, LineSize: 2, HitCycles: 1, MissCycles: 2, Policy: cache.LRU},
	}
	mem, err := memsys.New(cfg)
	Expect(err).NotTo(HaveOccurred())
	predictor := bpu.NewSimple(0)
	program := []insts.Instruction{
		insts.NewInstruction(insts.Addi, 1, 0, 1),
		insts.NewInstruction(insts.Addi, 1, 1, 1),
		insts.NewInstruction(insts.Addi, 1, 1, 1),
	}
	front := frontend.New(predictor, program, 5)
	eng := engine.New(mem, predictor, 8)
	return mem, eng, front
}

var _ = Describe("Take", func() {
	It("produces a copy that later mutation of the original doesn't affect", func() {
		mem, eng, front := build()
		front.Fill()
		eng.TryIssue(insts.NewInstruction(insts.Addi, 1, 0, 1), 0, nil)

		snap := snapshot.Take(mem, eng, front)

		eng.Tick()
		eng.Tick()
		eng.Tick()
		Expect(eng.Registers[1].IsSlot).To(BeFalse())

		Expect(snap.Eng.Registers[1].IsSlot).To(BeTrue())
	})

	It("clones the cache residue left by a faulting access", func() {
		mem, eng, front := build()
		mem.ReadByte(word.New(0x8000))
		snap := snapshot.Take(mem, eng, front)
		Expect(snap.Mem.IsCached(word.New(0x8000))).To(BeTrue())

		mem.FlushAll()
		Expect(mem.IsCached(word.New(0x8000))).To(BeFalse())
		Expect(snap.Mem.IsCached(word.New(0x8000))).To(BeTrue())
	})
})

var _ = Describe("Stack", func() {
	It("moves backward and forward between pushed snapshots", func() {
		mem, eng, front := build()
		stack := snapshot.NewStack(mem, eng, front)

		eng.TryIssue(insts.NewInstruction(insts.Addi, 1, 0, 9), 0, nil)
		stack.Push(mem, eng, front)

		Expect(stack.Len()).To(Equal(2))
		_, err := stack.Move(-1)
		Expect(err).NotTo(HaveOccurred())
		Expect(stack.Current().Eng.Slots[0]).To(BeNil())

		_, err = stack.Move(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(stack.Current().Eng.Slots[0]).NotTo(BeNil())
	})

	It("rejects moving out of range", func() {
		mem, eng, front := build()
		stack := snapshot.NewStack(mem, eng, front)
		_, err := stack.Move(1)
		Expect(err).To(HaveOccurred())
		_, err = stack.Move(-1)
		Expect(err).To(HaveOccurred())
	})

	It("discards the redo branch once a new snapshot is pushed after undo", func() {
		mem, eng, front := build()
		stack := snapshot.NewStack(mem, eng, front)
		eng.TryIssue(insts.NewInstruction(insts.Addi, 1, 0, 1), 0, nil)
		stack.Push(mem, eng, front)
		stack.Move(-1)
		eng.TryIssue(insts.NewInstruction(insts.Addi, 2, 0, 2), 1, nil)
		stack.Push(mem, eng, front)
		Expect(stack.Len()).To(Equal(2))
	})
})
