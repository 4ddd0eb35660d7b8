// Package config loads, validates, and clones the flat JSON configuration
// covering every tunable surface of the simulator: the branch predictor,
// cache geometry, memory timing, fault-mitigation micro-programs, frontend
// queue depth, and reservation-station sizing.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/transientcore/insts"
)

// BPU holds branch-predictor configuration.
type BPU struct {
	Advanced    bool `json:"advanced"`
	IndexBits   int  `json:"index_bits"`
	InitCounter int  `json:"init_counter"`
}

// Cache holds cache geometry and timing configuration.
type Cache struct {
	Sets              int    `json:"sets"`
	Ways              int    `json:"ways"`
	LineSize          int    `json:"line_size"`
	CacheHitCycles    uint64 `json:"cache_hit_cycles"`
	CacheMissCycles   uint64 `json:"cache_miss_cycles"`
	ReplacementPolicy string `json:"replacement_policy"` // "rr", "lru", or "fifo"
}

// Memory holds backing-store timing configuration.
type Memory struct {
	NumWriteCycles uint64 `json:"num_write_cycles"`
	NumFaultCycles uint64 `json:"num_fault_cycles"`
}

// Frontend holds instruction-queue configuration.
type Frontend struct {
	MaxQueueLength int `json:"max_queue_length"`
}

// ReservationStation holds the execution engine's sizing.
type ReservationStation struct {
	Slots     int `json:"slots"`
	Registers int `json:"registers"`
}

// MicroInstr is one micro-program instruction, in mnemonic/operand form —
// the JSON-serializable counterpart to insts.Instruction, which embeds
// function values and so cannot round-trip through encoding/json directly.
type MicroInstr struct {
	Mnemonic string `json:"mnemonic"`
	Operands []int  `json:"operands"`
}

// Resolve looks up Mnemonic in insts.ByMnemonic and builds the
// corresponding insts.Instruction.
func (m MicroInstr) Resolve() (insts.Instruction, error) {
	kind, ok := insts.ByMnemonic[m.Mnemonic]
	if !ok {
		return insts.Instruction{}, fmt.Errorf("config: unknown mnemonic %q in micro-program", m.Mnemonic)
	}
	return insts.NewInstruction(kind, m.Operands...), nil
}

// ResolveMicroprogram resolves a whole sequence of MicroInstr values.
func ResolveMicroprogram(seq []MicroInstr) ([]insts.Instruction, error) {
	out := make([]insts.Instruction, 0, len(seq))
	for _, m := range seq {
		instr, err := m.Resolve()
		if err != nil {
			return nil, err
		}
		out = append(out, instr)
	}
	return out, nil
}

// Config is the complete, flat-key simulator configuration.
type Config struct {
	BPU                BPU                     `json:"BPU"`
	Cache              Cache                   `json:"Cache"`
	Memory             Memory                  `json:"Memory"`
	Microprograms      map[string][]MicroInstr `json:"Microprograms"`
	Frontend           Frontend                `json:"Frontend"`
	ReservationStation ReservationStation      `json:"ReservationStation"`
}

// Default returns the configuration used when no file is supplied:
// a simple single-counter predictor, a small 4-set/2-way/2-byte-line LRU
// cache, a 5-slot/32-register reservation station, a 5-deep frontend queue,
// and no fault-mitigation micro-programs.
func Default() *Config {
	return &Config{
		BPU:                BPU{Advanced: false, IndexBits: 4, InitCounter: 0},
		Cache:              Cache{Sets: 4, Ways: 2, LineSize: 2, CacheHitCycles: 2, CacheMissCycles: 5, ReplacementPolicy: "lru"},
		Memory:             Memory{NumWriteCycles: 1, NumFaultCycles: 1},
		Microprograms:      map[string][]MicroInstr{},
		Frontend:           Frontend{MaxQueueLength: 5},
		ReservationStation: ReservationStation{Slots: 5, Registers: 32},
	}
}

// Load reads and parses a Config from a JSON file, starting from Default
// and overwriting whatever fields the file specifies.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read file: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse: %w", err)
	}
	return cfg, nil
}

// Save writes c to path as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: failed to serialize: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: failed to write file: %w", err)
	}
	return nil
}

// Validate checks that every configured value is within a usable range.
func (c *Config) Validate() error {
	if c.Cache.Sets <= 0 {
		return fmt.Errorf("config: Cache.sets must be > 0")
	}
	if c.Cache.Ways <= 0 {
		return fmt.Errorf("config: Cache.ways must be > 0")
	}
	if c.Cache.LineSize <= 0 {
		return fmt.Errorf("config: Cache.line_size must be > 0")
	}
	switch c.Cache.ReplacementPolicy {
	case "rr", "lru", "fifo":
	default:
		return fmt.Errorf("config: Cache.replacement_policy must be one of rr, lru, fifo, got %q", c.Cache.ReplacementPolicy)
	}
	if c.BPU.IndexBits < 0 {
		return fmt.Errorf("config: BPU.index_bits must be >= 0")
	}
	if c.BPU.InitCounter < 0 || c.BPU.InitCounter > 3 {
		return fmt.Errorf("config: BPU.init_counter must be in [0,3]")
	}
	if c.Frontend.MaxQueueLength <= 0 {
		return fmt.Errorf("config: Frontend.max_queue_length must be > 0")
	}
	if c.ReservationStation.Slots <= 0 {
		return fmt.Errorf("config: ReservationStation.slots must be > 0")
	}
	if c.ReservationStation.Registers != 32 {
		return fmt.Errorf("config: ReservationStation.registers must be 32 (the engine's register file is fixed-size)")
	}
	for kind, seq := range c.Microprograms {
		if _, err := ResolveMicroprogram(seq); err != nil {
			return fmt.Errorf("config: Microprograms.%s: %w", kind, err)
		}
	}
	return nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	micro := make(map[string][]MicroInstr, len(c.Microprograms))
	for k, seq := range c.Microprograms {
		cp := make([]MicroInstr, len(seq))
		copy(cp, seq)
		micro[k] = cp
	}
	clone := *c
	clone.Microprograms = micro
	return &clone
}
