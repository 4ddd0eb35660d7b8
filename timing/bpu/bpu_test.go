package bpu_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/transientcore/timing/bpu"
)

func TestBPU(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "BPU Suite")
}

var _ = Describe("Simple", func() {
	It("predicts taken once counter reaches 2 on init", func() {
		p := bpu.NewSimple(2)
		Expect(p.Predict(0)).To(BeTrue())
	})

	It("follows the exact bimodal table on repeated taken/not-taken", func() {
		p := bpu.NewSimple(2)
		p.Update(0, true)
		p.Update(0, true)
		Expect(p.Predict(0)).To(BeTrue())

		p2 := bpu.NewSimple(2)
		p2.Update(0, false)
		p2.Update(0, false)
		Expect(p2.Predict(0)).To(BeFalse())
	})

	It("jumps from 0 straight to 1 on taken, never saturating gradually", func() {
		p := bpu.NewSimple(0)
		p.Update(0, true)
		Expect(p.Predict(0)).To(BeFalse())
		p.Update(0, true)
		Expect(p.Predict(0)).To(BeTrue())
	})
})

var _ = Describe("Indexed", func() {
	It("keeps independent counters per pc slot", func() {
		p := bpu.NewIndexed(4, 2)
		p.Update(2, false)
		p.Update(2, false)
		Expect(p.Predict(2)).To(BeFalse())
		Expect(p.Predict(3)).To(BeTrue())
	})

	It("wraps pc modulo the counter table size", func() {
		p := bpu.NewIndexed(2, 2)
		p.Update(0, true)
		Expect(p.Predict(4)).To(Equal(p.Predict(0)))
	})
})
