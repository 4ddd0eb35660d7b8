package cache_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/transientcore/timing/cache"
	"github.com/sarchlab/transientcore/word"
)

func TestCache(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cache Suite")
}

func lineOf(vals ...int) []word.Byte {
	out := make([]word.Byte, len(vals))
	for i, v := range vals {
		out[i] = word.NewByte(v)
	}
	return out
}

var _ = Describe("Cache construction", func() {
	It("rejects geometry with zero tag bits", func() {
		_, err := cache.New(cache.Config{NumSets: 1 << 16, NumWays: 1, LineSize: 1, Policy: cache.LRU})
		Expect(err).To(HaveOccurred())
	})

	It("accepts a reasonable default geometry", func() {
		_, err := cache.New(cache.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("Cache reads and fills", func() {
	var c *cache.Cache

	BeforeEach(func() {
		var err error
		c, err = cache.New(cache.Config{NumSets: 4, NumWays: 2, LineSize: 2, Policy: cache.LRU})
		Expect(err).NotTo(HaveOccurred())
	})

	It("misses on a cold cache", func() {
		_, ok := c.ReadByte(word.New(0), true)
		Expect(ok).To(BeFalse())
	})

	It("hits after a line fill", func() {
		c.FillLine(word.New(0), lineOf(0x11, 0x22))
		v, ok := c.ReadByte(word.New(0), true)
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(word.NewByte(0x11)))
		v, ok = c.ReadByte(word.New(1), true)
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(word.NewByte(0x22)))
	})

	It("forgets a line after flush", func() {
		c.FillLine(word.New(0), lineOf(0x11, 0x22))
		c.FlushLine(word.New(0))
		Expect(c.IsCached(word.New(0))).To(BeFalse())
	})

	It("never perturbs residency state when probed without side effects", func() {
		c.FillLine(word.New(0), lineOf(1, 2))
		before := c.Stats()
		c.IsCached(word.New(0))
		Expect(c.Stats()).To(Equal(before))
	})
})

var _ = Describe("LRU replacement determinism", func() {
	It("evicts exactly per the S6 scenario", func() {
		c, err := cache.New(cache.Config{NumSets: 4, NumWays: 2, LineSize: 2, Policy: cache.LRU})
		Expect(err).NotTo(HaveOccurred())

		c.FillLine(word.New(0), lineOf(0, 0))
		c.FillLine(word.New(9), lineOf(9, 9))
		c.ReadByte(word.New(0), true)
		c.FillLine(word.New(17), lineOf(17, 17))

		Expect(c.IsCached(word.New(9))).To(BeFalse())
		Expect(c.IsCached(word.New(0))).To(BeTrue())
		Expect(c.IsCached(word.New(17))).To(BeTrue())
	})
})

var _ = Describe("FIFO replacement", func() {
	It("evicts the oldest-filled line regardless of subsequent reads", func() {
		c, err := cache.New(cache.Config{NumSets: 4, NumWays: 2, LineSize: 2, Policy: cache.FIFO})
		Expect(err).NotTo(HaveOccurred())

		c.FillLine(word.New(0), lineOf(0, 0))
		c.FillLine(word.New(9), lineOf(9, 9))
		c.ReadByte(word.New(0), true) // FIFO ignores recency
		c.FillLine(word.New(17), lineOf(17, 17))

		Expect(c.IsCached(word.New(0))).To(BeFalse())
		Expect(c.IsCached(word.New(9))).To(BeTrue())
		Expect(c.IsCached(word.New(17))).To(BeTrue())
	})
})

var _ = Describe("RR replacement", func() {
	It("always evicts one of the two resident ways", func() {
		c, err := cache.New(cache.Config{NumSets: 4, NumWays: 2, LineSize: 2, Policy: cache.RR, Seed: 1})
		Expect(err).NotTo(HaveOccurred())

		c.FillLine(word.New(0), lineOf(0, 0))
		c.FillLine(word.New(9), lineOf(9, 9))
		c.FillLine(word.New(17), lineOf(17, 17))

		cached := 0
		for _, addr := range []int{0, 9, 17} {
			if c.IsCached(word.New(addr)) {
				cached++
			}
		}
		Expect(cached).To(Equal(2))
	})
})
