// Package main provides the entry point for transientsim, a cycle-accurate
// simulator of a 16-bit out-of-order processor exhibiting transient-execution
// (Spectre/Meltdown-style) behavior.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/transientcore/config"
	"github.com/sarchlab/transientcore/insts"
	"github.com/sarchlab/transientcore/timing/bpu"
	"github.com/sarchlab/transientcore/timing/cache"
	"github.com/sarchlab/transientcore/timing/cpu"
	"github.com/sarchlab/transientcore/timing/engine"
	"github.com/sarchlab/transientcore/timing/frontend"
	"github.com/sarchlab/transientcore/timing/memsys"
)

var (
	configPath = flag.String("config", "", "Path to simulator configuration JSON file")
	maxCycles  = flag.Uint64("max-cycles", 1_000_000, "Maximum number of cycles to simulate")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: transientsim [options] <program.json>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	program, err := loadProgram(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", programPath)
		fmt.Printf("Instructions: %d\n", len(program))
	}

	exitCode := run(cfg, program, programPath)
	os.Exit(exitCode)
}

// loadProgram reads a JSON-encoded instruction list (the external parser's
// output format — see config.MicroInstr) and resolves it against the
// mnemonic table.
func loadProgram(path string) ([]insts.Instruction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program file: %w", err)
	}
	var raw []config.MicroInstr
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse program: %w", err)
	}
	return config.ResolveMicroprogram(raw)
}

func buildPredictor(c config.BPU) bpu.Predictor {
	if c.Advanced {
		return bpu.NewIndexed(c.IndexBits, bpu.Counter(c.InitCounter))
	}
	return bpu.NewSimple(bpu.Counter(c.InitCounter))
}

func buildMicroprograms(c *config.Config) cpu.Microprograms {
	resolve := func(kind string) []insts.Instruction {
		seq, ok := c.Microprograms[kind]
		if !ok {
			return nil
		}
		instrs, err := config.ResolveMicroprogram(seq)
		if err != nil {
			// cfg.Validate already rejected unresolvable micro-programs.
			panic(err)
		}
		return instrs
	}
	return cpu.Microprograms{
		Load:   resolve("load"),
		Store:  resolve("store"),
		Flush:  resolve("flush"),
		Branch: resolve("branch"),
	}
}

func run(cfg *config.Config, program []insts.Instruction, programPath string) int {
	memCfg := memsys.Config{
		MemSize:        1 << 16,
		NumWriteCycles: cfg.Memory.NumWriteCycles,
		NumFaultCycles: cfg.Memory.NumFaultCycles,
		Cache: cache.Config{
			NumSets:    cfg.Cache.Sets,
			NumWays:    cfg.Cache.Ways,
			LineSize:   cfg.Cache.LineSize,
			HitCycles:  cfg.Cache.CacheHitCycles,
			MissCycles: cfg.Cache.CacheMissCycles,
			Policy:     replacementPolicy(cfg.Cache.ReplacementPolicy),
		},
	}
	mem, err := memsys.New(memCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building memory subsystem: %v\n", err)
		return 1
	}

	predictor := buildPredictor(cfg.BPU)
	front := frontend.New(predictor, program, cfg.Frontend.MaxQueueLength)
	eng := engine.New(mem, predictor, cfg.ReservationStation.Slots)
	c := cpu.New(front, eng, buildMicroprograms(cfg))

	ran := c.Run(*maxCycles)

	if *verbose {
		stats := c.Stats()
		fmt.Printf("\nProgram: %s\n", programPath)
		fmt.Printf("Cycles run: %d\n", ran)
		fmt.Printf("Instructions issued: %d\n", stats.Instructions)
		fmt.Printf("Faults: %d\n", stats.Faults)
		if stats.Instructions > 0 {
			fmt.Printf("CPI: %.2f\n", float64(stats.Cycles)/float64(stats.Instructions))
		}
		if fault := c.LastFault(); fault != nil {
			fmt.Printf("Last fault: pc=%d kind=%v\n", fault.PC, fault.Kind)
		}
	}

	if !c.Idle() {
		fmt.Fprintf(os.Stderr, "simulation stopped at cycle limit (%d) before completion\n", *maxCycles)
		return 1
	}
	return 0
}

func replacementPolicy(name string) cache.Policy {
	switch name {
	case "rr":
		return cache.RR
	case "fifo":
		return cache.FIFO
	default:
		return cache.LRU
	}
}
