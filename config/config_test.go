package config_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/transientcore/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Default", func() {
	It("validates cleanly", func() {
		Expect(config.Default().Validate()).NotTo(HaveOccurred())
	})
})

var _ = Describe("Validate", func() {
	It("rejects an unknown replacement policy", func() {
		c := config.Default()
		c.Cache.ReplacementPolicy = "random-walk"
		Expect(c.Validate()).To(HaveOccurred())
	})

	It("rejects a micro-program with an unknown mnemonic", func() {
		c := config.Default()
		c.Microprograms["load"] = []config.MicroInstr{{Mnemonic: "not-a-real-op"}}
		Expect(c.Validate()).To(HaveOccurred())
	})

	It("accepts a micro-program built from real mnemonics", func() {
		c := config.Default()
		c.Microprograms["load"] = []config.MicroInstr{{Mnemonic: "addi", Operands: []int{1, 0, 0}}}
		Expect(c.Validate()).NotTo(HaveOccurred())
	})
})

var _ = Describe("Clone", func() {
	It("produces an independent copy", func() {
		c := config.Default()
		c.Microprograms["load"] = []config.MicroInstr{{Mnemonic: "fence"}}
		clone := c.Clone()
		clone.Microprograms["load"][0].Mnemonic = "addi"
		Expect(c.Microprograms["load"][0].Mnemonic).To(Equal("fence"))
	})
})

var _ = Describe("ResolveMicroprogram", func() {
	It("resolves mnemonics into instructions in order", func() {
		seq := []config.MicroInstr{
			{Mnemonic: "addi", Operands: []int{1, 0, 5}},
			{Mnemonic: "fence"},
		}
		instrs, err := config.ResolveMicroprogram(seq)
		Expect(err).NotTo(HaveOccurred())
		Expect(instrs).To(HaveLen(2))
		Expect(instrs[0].Kind.Name).To(Equal("addi"))
		Expect(instrs[1].Kind.Name).To(Equal("fence"))
	})
})
