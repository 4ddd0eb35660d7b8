// Package memsys implements the memory subsystem: a flat byte-addressable
// backing store with a protected upper half, fronted by a single
// configurable cache. It deliberately fills the cache line before checking
// the fault flag on every access — the exact ordering that makes a faulting
// load's cache residue observable after rollback.
package memsys

import (
	"github.com/sarchlab/transientcore/timing/cache"
	"github.com/sarchlab/transientcore/word"
)

// ProtectedFillByte is the constant every protected byte is pre-initialized
// to.
const ProtectedFillByte = 0x42

// Result carries the outcome of one memory operation: the value (if any),
// whether it faulted, and the cycle counts to reach each.
type Result struct {
	Value       word.Word
	Fault       bool
	CyclesValue uint64
	CyclesFault uint64
}

// Config holds the subsystem's size and timing parameters.
type Config struct {
	MemSize        int
	NumWriteCycles uint64
	NumFaultCycles uint64
	Cache          cache.Config
}

// DefaultConfig returns a 64KiB address space with a 4-set/2-way/2-byte-line
// LRU cache, matching the geometry exercised by the test suite.
func DefaultConfig() Config {
	return Config{
		MemSize:        1 << word.Width,
		NumWriteCycles: 5,
		NumFaultCycles: 8,
		Cache:          cache.Config{NumSets: 4, NumWays: 2, LineSize: 2, HitCycles: 2, MissCycles: 5, Policy: cache.LRU},
	}
}

// Subsystem is the memory subsystem: backing array + cache + fault model.
type Subsystem struct {
	cfg     Config
	backing []word.Byte
	c       *cache.Cache
}

// New constructs a Subsystem, pre-filling the protected upper half with
// ProtectedFillByte.
func New(cfg Config) (*Subsystem, error) {
	c, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, err
	}
	backing := make([]word.Byte, cfg.MemSize)
	for i := cfg.MemSize / 2; i < cfg.MemSize; i++ {
		backing[i] = word.NewByte(ProtectedFillByte)
	}
	return &Subsystem{cfg: cfg, backing: backing, c: c}, nil
}

// IsProtected reports whether addr falls in the upper, protected half.
func (s *Subsystem) IsProtected(addr word.Word) bool {
	return addr.Unsigned() >= s.cfg.MemSize/2
}

// ReadByte performs a single-byte read. Per the Meltdown-window ordering,
// the cache line is filled (on miss) before the fault flag is computed —
// so a faulting read still leaves its line resident in the cache.
func (s *Subsystem) ReadByte(addr word.Word) Result {
	value, hit := s.c.ReadByte(addr, true)
	if !hit {
		value = s.backing[addr.Unsigned()]
		s.loadLine(addr)
	}
	fault := s.IsProtected(addr)
	cyclesValue := s.cfg.Cache.MissCycles
	if hit {
		cyclesValue = s.cfg.Cache.HitCycles
	}
	return Result{
		Value:       value.ZeroExtend(),
		Fault:       fault,
		CyclesValue: cyclesValue,
		CyclesFault: s.cfg.NumFaultCycles,
	}
}

// WriteByte performs a single-byte write-through. The backing array is
// always updated, the line is always refreshed in cache, and — per the
// Meltdown-window ordering — the fault flag is computed last.
func (s *Subsystem) WriteByte(addr word.Word, value word.Byte) Result {
	s.backing[addr.Unsigned()] = value
	s.loadLine(addr)
	fault := s.IsProtected(addr)
	return Result{
		Value:       0,
		Fault:       fault,
		CyclesValue: s.cfg.NumWriteCycles,
		CyclesFault: s.cfg.NumFaultCycles,
	}
}

// ReadWord reads a little-endian pair of bytes at addr and addr+1 (wrapping
// modulo 2^16 per the Word contract), aggregating cycle counts by maximum
// and the fault flag by logical OR.
func (s *Subsystem) ReadWord(addr word.Word) Result {
	lo := s.ReadByte(addr)
	hi := s.ReadByte(addr.Add(word.New(1)))
	return Result{
		Value:       word.FromBytes(word.NewByte(lo.Value.Unsigned()), word.NewByte(hi.Value.Unsigned())),
		Fault:       lo.Fault || hi.Fault,
		CyclesValue: max64(lo.CyclesValue, hi.CyclesValue),
		CyclesFault: max64(lo.CyclesFault, hi.CyclesFault),
	}
}

// WriteWord writes a little-endian pair of bytes at addr and addr+1
// (wrapping modulo 2^16), aggregating cycle counts by maximum and the fault
// flag by logical OR.
func (s *Subsystem) WriteWord(addr word.Word, value word.Word) Result {
	bytes := value.Bytes()
	lo := s.WriteByte(addr, bytes[0])
	hi := s.WriteByte(addr.Add(word.New(1)), bytes[1])
	return Result{
		Value:       0,
		Fault:       lo.Fault || hi.Fault,
		CyclesValue: max64(lo.CyclesValue, hi.CyclesValue),
		CyclesFault: max64(lo.CyclesFault, hi.CyclesFault),
	}
}

// loadLine copies the whole line_size-aligned line containing addr from the
// backing array into the cache, unconditionally — including for protected
// addresses. This is the Meltdown mechanism: the fill happens before any
// fault is reported.
func (s *Subsystem) loadLine(addr word.Word) {
	lineSize := s.cfg.Cache.LineSize
	base := (addr.Unsigned() / lineSize) * lineSize
	data := make([]word.Byte, lineSize)
	for i := 0; i < lineSize; i++ {
		data[i] = s.backing[base+i]
	}
	s.c.FillLine(word.New(base), data)
}

// FlushLine evicts the cache line containing addr without touching the
// backing array.
func (s *Subsystem) FlushLine(addr word.Word) Result {
	s.c.FlushLine(addr)
	return Result{CyclesValue: s.cfg.NumWriteCycles, CyclesFault: s.cfg.NumFaultCycles}
}

// FlushAll evicts the entire cache.
func (s *Subsystem) FlushAll() {
	s.c.FlushAll()
}

// IsCached reports whether addr is currently resident in cache, without
// perturbing replacement state.
func (s *Subsystem) IsCached(addr word.Word) bool {
	return s.c.IsCached(addr)
}

// PokeByte writes directly to the backing array, bypassing the cache and
// the fault model — for external debugger-style inspection/editing tools,
// never used by the engine itself.
func (s *Subsystem) PokeByte(addr word.Word, value word.Byte) {
	s.backing[addr.Unsigned()] = value
}

// PeekByte reads directly from the backing array, bypassing the cache —
// for external debugger-style inspection tools.
func (s *Subsystem) PeekByte(addr word.Word) word.Byte {
	return s.backing[addr.Unsigned()]
}

// CacheStats returns the underlying cache's access statistics.
func (s *Subsystem) CacheStats() cache.Stats {
	return s.c.Stats()
}

// Clone deep-copies the subsystem's mutable state, including the cache's
// resident lines — the external undo stack restores a faithful snapshot of
// observable cache residue, not just architectural memory contents.
func (s *Subsystem) Clone() *Subsystem {
	backing := make([]word.Byte, len(s.backing))
	copy(backing, s.backing)
	return &Subsystem{cfg: s.cfg, backing: backing, c: s.c.Clone()}
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
