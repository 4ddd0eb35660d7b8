package memsys_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/transientcore/timing/cache"
	"github.com/sarchlab/transientcore/timing/memsys"
	"github.com/sarchlab/transientcore/word"
)

func TestMemsys(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Memsys Suite")
}

func smallConfig() memsys.Config {
	return memsys.Config{
		MemSize:        1 << 16,
		NumWriteCycles: 5,
		NumFaultCycles: 8,
		Cache:          cache.Config{NumSets: 4, NumWays: 2, LineSize: 2, HitCycles: 2, MissCycles: 5, Policy: cache.LRU},
	}
}

var _ = Describe("protected memory", func() {
	It("pre-fills the upper half with the protected fill byte", func() {
		s, err := memsys.New(smallConfig())
		Expect(err).NotTo(HaveOccurred())
		Expect(s.PeekByte(word.New(0x8000))).To(Equal(word.NewByte(memsys.ProtectedFillByte)))
	})

	It("faults on a write to the boundary address but not just below it", func() {
		s, _ := memsys.New(smallConfig())
		ok := s.WriteByte(word.New(0x7FFF), word.NewByte(1))
		Expect(ok.Fault).To(BeFalse())
		faulting := s.WriteByte(word.New(0x8000), word.NewByte(1))
		Expect(faulting.Fault).To(BeTrue())
	})
})

var _ = Describe("word round trip", func() {
	It("reads back what it wrote, little-endian, at an unprotected address", func() {
		s, _ := memsys.New(smallConfig())
		s.WriteWord(word.New(10), word.New(0x1234))
		r := s.ReadWord(word.New(10))
		Expect(r.Value).To(Equal(word.New(0x1234)))
		Expect(r.Fault).To(BeFalse())
	})
})

var _ = Describe("Meltdown window", func() {
	It("fills the cache line on a faulting read before the fault is visible", func() {
		s, _ := memsys.New(smallConfig())
		r := s.ReadByte(word.New(0x8000))
		Expect(r.Fault).To(BeTrue())
		Expect(s.IsCached(word.New(0x8000))).To(BeTrue())
	})

	It("serves a post-fault re-read of the residue at hit latency", func() {
		s, _ := memsys.New(smallConfig())
		s.ReadByte(word.New(0x8000))
		r := s.ReadByte(word.New(0x8000))
		Expect(r.CyclesValue).To(Equal(smallConfig().Cache.HitCycles))
	})
})

var _ = Describe("flush", func() {
	It("removes residency without touching the backing array", func() {
		s, _ := memsys.New(smallConfig())
		s.WriteWord(word.New(0), word.New(0xAAAA))
		s.FlushLine(word.New(0))
		Expect(s.IsCached(word.New(0))).To(BeFalse())
		r := s.ReadWord(word.New(0))
		Expect(r.Value).To(Equal(word.New(0xAAAA)))
	})
})
