// Package cache implements the tagged, set-associative cache backing the
// memory subsystem: tag|index|offset address decomposition, per-byte
// "optional" (nilable, unfilled-until-written) line storage, and a choice
// of RR, LRU, or FIFO replacement.
//
// The LRU policy is backed by Akita's cache directory, which ships a
// ready-made LRU victim finder; RR and FIFO have no equivalent in that
// package's victim-finder surface; see DESIGN.md for why they are
// hand-rolled instead of stretching that dependency past what it verifiably
// supports.
package cache

import (
	"errors"
	"fmt"
	"math/bits"
	"math/rand"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/transientcore/word"
)

// Policy selects the cache's replacement policy.
type Policy int

const (
	// RR evicts a uniformly random way on a miss into a full set.
	RR Policy = iota
	// LRU evicts the way whose line was least recently read or written.
	LRU
	// FIFO evicts the way whose line has been resident the longest.
	FIFO
)

// Config describes a cache's geometry and timing.
type Config struct {
	NumSets    int
	NumWays    int
	LineSize   int
	HitCycles  uint64
	MissCycles uint64
	Policy     Policy
	// Seed drives the RR policy's random victim selection. Two caches built
	// with the same Seed and the same access sequence evict identically.
	Seed int64
}

// DefaultConfig returns a small 4-set, 2-way, 2-byte-line LRU cache, a
// reasonable default for demonstrating the core's transient-execution
// behavior without tuning.
func DefaultConfig() Config {
	return Config{NumSets: 4, NumWays: 2, LineSize: 2, HitCycles: 2, MissCycles: 5, Policy: LRU}
}

// line is the RR/FIFO hand-rolled representation of one cache way.
type line struct {
	tag       int
	valid     bool
	data      []*word.Byte
	fifoStamp uint64
}

// Cache is a tagged set-associative cache with optional-byte line storage.
type Cache struct {
	cfg                            Config
	indexBits, offsetBits, tagBits int
	clock                          uint64
	rng                            *rand.Rand
	stats                          Stats

	// LRU path: backed by an Akita cache directory.
	dir       *akitacache.DirectoryImpl
	dataStore [][]*word.Byte

	// RR/FIFO path: hand-rolled sets.
	sets [][]line
}

// Stats tallies cache access counts.
type Stats struct {
	Reads, Writes, Hits, Misses, Evictions int
}

// HitRate returns Hits / (Hits + Misses), or 0 if there have been no accesses.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// New constructs a Cache, validating that the address decomposition leaves
// at least one tag bit.
func New(cfg Config) (*Cache, error) {
	if cfg.NumSets <= 0 || cfg.NumWays <= 0 || cfg.LineSize <= 0 {
		return nil, errors.New("cache: sets, ways, and line size must be positive")
	}
	indexBits := bits.Len(uint(cfg.NumSets - 1))
	if cfg.NumSets == 1 {
		indexBits = 0
	}
	offsetBits := bits.Len(uint(cfg.LineSize - 1))
	if cfg.LineSize == 1 {
		offsetBits = 0
	}
	tagBits := word.Width - indexBits - offsetBits
	if tagBits < 1 {
		return nil, fmt.Errorf("cache: geometry leaves %d tag bits, need at least 1", tagBits)
	}

	c := &Cache{cfg: cfg, indexBits: indexBits, offsetBits: offsetBits, tagBits: tagBits}
	c.rng = rand.New(rand.NewSource(cfg.Seed))

	switch cfg.Policy {
	case LRU:
		c.dir = akitacache.NewDirectory(cfg.NumSets, cfg.NumWays, cfg.LineSize, akitacache.NewLRUVictimFinder())
		c.dataStore = make([][]*word.Byte, cfg.NumSets*cfg.NumWays)
		for i := range c.dataStore {
			c.dataStore[i] = make([]*word.Byte, cfg.LineSize)
		}
	default:
		c.sets = make([][]line, cfg.NumSets)
		for s := range c.sets {
			c.sets[s] = make([]line, cfg.NumWays)
			for w := range c.sets[s] {
				c.sets[s][w].data = make([]*word.Byte, cfg.LineSize)
			}
		}
	}
	return c, nil
}

// Config returns the cache's configuration.
func (c *Cache) Config() Config { return c.cfg }

// Stats returns current access statistics.
func (c *Cache) Stats() Stats { return c.stats }

func (c *Cache) decompose(addr word.Word) (tag, index, offset int) {
	v := addr.Unsigned()
	offset = v & ((1 << c.offsetBits) - 1)
	index = (v >> c.offsetBits) & ((1 << c.indexBits) - 1)
	tag = v >> (c.offsetBits + c.indexBits)
	return
}

func (c *Cache) lineBase(addr word.Word) word.Word {
	_, _, offset := c.decompose(addr)
	return addr.Sub(word.New(offset))
}

// ReadByte looks up the byte at addr. ok is false on a miss or on a hit
// whose byte has never been filled. When sideEffects is false, the lookup
// never perturbs LRU or FIFO replacement state — required for hazard and
// residency scans that must not disturb the policy they are observing.
func (c *Cache) ReadByte(addr word.Word, sideEffects bool) (value word.Byte, ok bool) {
	if sideEffects {
		c.stats.Reads++
	}
	_, _, offset := c.decompose(addr)

	if c.cfg.Policy == LRU {
		blockAddr := c.lineBase(addr)
		block := c.dir.Lookup(0, uint64(blockAddr.Unsigned()))
		if block == nil || !block.IsValid {
			if sideEffects {
				c.stats.Misses++
			}
			return 0, false
		}
		b := c.dataStore[c.blockIndex(block)][offset]
		if b == nil {
			if sideEffects {
				c.stats.Misses++
			}
			return 0, false
		}
		if sideEffects {
			c.stats.Hits++
			c.dir.Visit(block)
		}
		return *b, true
	}

	ln := c.findLine(addr)
	if ln == nil {
		if sideEffects {
			c.stats.Misses++
		}
		return 0, false
	}
	b := ln.data[offset]
	if b == nil {
		if sideEffects {
			c.stats.Misses++
		}
		return 0, false
	}
	if sideEffects {
		c.stats.Hits++
	}
	return *b, true
}

// findLine locates a valid, tag-matching line in a RR/FIFO set.
func (c *Cache) findLine(addr word.Word) *line {
	tag, index, _ := c.decompose(addr)
	set := c.sets[index]
	for i := range set {
		if set[i].valid && set[i].tag == tag {
			return &set[i]
		}
	}
	return nil
}

// IsCached reports whether addr currently has a valid, filled byte, without
// perturbing replacement state.
func (c *Cache) IsCached(addr word.Word) bool {
	_, ok := c.ReadByte(addr, false)
	return ok
}

// FillLine loads line_size bytes (already the contents of the line
// containing addr) into the cache, evicting per the configured policy if
// necessary. It is the only path that places data in the cache.
func (c *Cache) FillLine(addr word.Word, data []word.Byte) {
	c.stats.Writes++
	tag, index, _ := c.decompose(addr)

	if c.cfg.Policy == LRU {
		blockAddr := c.lineBase(addr)
		block := c.dir.Lookup(0, uint64(blockAddr.Unsigned()))
		if block == nil || !block.IsValid {
			block = c.dir.FindVictim(uint64(blockAddr.Unsigned()))
			if block.IsValid {
				c.stats.Evictions++
			}
			block.Tag = uint64(blockAddr.Unsigned())
			block.IsValid = true
		}
		row := c.dataStore[c.blockIndex(block)]
		for i := range row {
			b := data[i]
			row[i] = &b
		}
		c.dir.Visit(block)
		return
	}

	ln := c.findLine(addr)
	if ln == nil {
		ln = c.victim(index)
		if ln.valid {
			c.stats.Evictions++
		}
		ln.tag = tag
		ln.valid = true
		if c.cfg.Policy == FIFO {
			ln.fifoStamp = c.nextStamp()
		}
	}
	for i := range ln.data {
		b := data[i]
		ln.data[i] = &b
	}
}

// victim picks the way to fill within a RR/FIFO set: a free way if there is
// one, otherwise the way to evict under the configured policy.
func (c *Cache) victim(setIndex int) *line {
	set := c.sets[setIndex]
	for i := range set {
		if !set[i].valid {
			return &set[i]
		}
	}
	if c.cfg.Policy == RR {
		return &set[c.rng.Intn(len(set))]
	}
	best := 0
	for i := 1; i < len(set); i++ {
		if set[i].fifoStamp < set[best].fifoStamp {
			best = i
		}
	}
	return &set[best]
}

func (c *Cache) nextStamp() uint64 {
	c.clock++
	return c.clock
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.cfg.NumWays + block.WayID
}

// FlushLine invalidates the line containing addr, if resident.
func (c *Cache) FlushLine(addr word.Word) {
	if c.cfg.Policy == LRU {
		blockAddr := c.lineBase(addr)
		block := c.dir.Lookup(0, uint64(blockAddr.Unsigned()))
		if block != nil && block.IsValid {
			block.IsValid = false
			row := c.dataStore[c.blockIndex(block)]
			for i := range row {
				row[i] = nil
			}
		}
		return
	}
	ln := c.findLine(addr)
	if ln != nil {
		ln.valid = false
		for i := range ln.data {
			ln.data[i] = nil
		}
	}
}

// FlushAll invalidates every line in the cache.
func (c *Cache) FlushAll() {
	if c.cfg.Policy == LRU {
		for _, set := range c.dir.GetSets() {
			for _, block := range set.Blocks {
				block.IsValid = false
				row := c.dataStore[c.blockIndex(block)]
				for i := range row {
					row[i] = nil
				}
			}
		}
		return
	}
	for s := range c.sets {
		for w := range c.sets[s] {
			c.sets[s][w].valid = false
			for i := range c.sets[s][w].data {
				c.sets[s][w].data[i] = nil
			}
		}
	}
}

// DumpLine is a read-only snapshot of one cache way, for external
// visualization tools.
type DumpLine struct {
	Tag   int
	Valid bool
	Data  []*word.Byte
}

// Clone returns an independent cache with the same configuration and the
// same resident lines. Replacement-policy recency order is not guaranteed
// to match exactly — acceptable for the external snapshot/undo feature this
// serves, which never re-derives eviction order from a restored clone.
func (c *Cache) Clone() *Cache {
	clone, err := New(c.cfg)
	if err != nil {
		// Construction already succeeded once with this cfg; it cannot fail here.
		panic(err)
	}
	for setIndex, set := range c.Dump() {
		for _, ln := range set {
			if !ln.Valid {
				continue
			}
			data := make([]word.Byte, len(ln.Data))
			for i, b := range ln.Data {
				if b != nil {
					data[i] = *b
				}
			}
			addr := word.New((ln.Tag << (c.indexBits + c.offsetBits)) | (setIndex << c.offsetBits))
			clone.FillLine(addr, data)
		}
	}
	return clone
}

// Dump returns a snapshot of every set/way in the cache.
func (c *Cache) Dump() [][]DumpLine {
	out := make([][]DumpLine, c.cfg.NumSets)
	if c.cfg.Policy == LRU {
		for s, set := range c.dir.GetSets() {
			out[s] = make([]DumpLine, len(set.Blocks))
			for w, block := range set.Blocks {
				row := c.dataStore[c.blockIndex(block)]
				// The directory keys blocks by line address; report the tag bits,
				// as the RR/FIFO path does.
				tag := int(block.Tag) >> (c.offsetBits + c.indexBits)
				out[s][w] = DumpLine{Tag: tag, Valid: block.IsValid, Data: append([]*word.Byte(nil), row...)}
			}
		}
		return out
	}
	for s := range c.sets {
		out[s] = make([]DumpLine, len(c.sets[s]))
		for w := range c.sets[s] {
			ln := c.sets[s][w]
			out[s][w] = DumpLine{Tag: ln.tag, Valid: ln.valid, Data: append([]*word.Byte(nil), ln.data...)}
		}
	}
	return out
}
