// Package cpu wraps the Frontend and Execution Engine into a single
// cycle-accurate driver loop, the way core.Core wraps a pipeline: a thin
// orchestration layer with no timing logic of its own.
package cpu

import (
	"github.com/sarchlab/transientcore/insts"
	"github.com/sarchlab/transientcore/timing/engine"
	"github.com/sarchlab/transientcore/timing/frontend"
)

// Microprograms holds the fault-mitigation instruction sequences injected
// after each fault kind, keyed by the engine.FaultKind that triggers them.
// A nil or empty sequence means no mitigation is injected for that kind.
type Microprograms struct {
	Load   []insts.Instruction
	Store  []insts.Instruction
	Flush  []insts.Instruction
	Branch []insts.Instruction
}

func (m Microprograms) forKind(kind engine.FaultKind) []insts.Instruction {
	switch kind {
	case engine.FaultLoad:
		return m.Load
	case engine.FaultStore:
		return m.Store
	case engine.FaultFlush:
		return m.Flush
	case engine.FaultBranch:
		return m.Branch
	default:
		return nil
	}
}

// Stats holds performance counters for a CPU run.
type Stats struct {
	Cycles       uint64
	Instructions uint64
	Faults       uint64
}

// CPU drives a Frontend and an Engine through the tick loop described in
// the driver contract: issue every instruction the engine will accept, tick
// the engine, and on a fault flush and re-steer the frontend.
type CPU struct {
	front *frontend.Frontend
	eng   *engine.Engine
	micro Microprograms
	stats Stats

	lastFault *engine.FaultInfo
}

// New constructs a CPU driving front and eng, injecting micro's sequences
// after the corresponding fault kind.
func New(front *frontend.Frontend, eng *engine.Engine, micro Microprograms) *CPU {
	return &CPU{front: front, eng: eng, micro: micro}
}

// Engine returns the underlying execution engine, for inspection.
func (c *CPU) Engine() *engine.Engine { return c.eng }

// Frontend returns the underlying frontend, for inspection.
func (c *CPU) Frontend() *frontend.Frontend { return c.front }

// Stats returns the accumulated performance counters.
func (c *CPU) Stats() Stats { return c.stats }

// LastFault returns the most recent fault the engine reported, or nil if
// none has occurred yet.
func (c *CPU) LastFault() *engine.FaultInfo { return c.lastFault }

// Tick advances the CPU by one cycle: it issues as many queued instructions
// as the engine will accept, ticks the engine, and handles any resulting
// fault by flushing and re-steering the frontend.
func (c *CPU) Tick() {
	c.front.Fill()

	for {
		info, err := c.front.Peek()
		if err != nil {
			break
		}
		if !c.eng.TryIssue(info.Instr, info.PC, info.Prediction) {
			break
		}
		c.front.Pop()
		c.stats.Instructions++
	}

	fault := c.eng.Tick()
	c.stats.Cycles++
	if fault == nil {
		return
	}

	c.stats.Faults++
	c.lastFault = fault
	c.handleFault(fault)
}

func (c *CPU) handleFault(fault *engine.FaultInfo) {
	c.front.Flush()

	if fault.Kind == engine.FaultBranch {
		if micro := c.micro.forKind(fault.Kind); len(micro) > 0 {
			c.front.AddMicroProgram(micro)
		}
		actualTaken := fault.Prediction == nil || !*fault.Prediction
		if err := c.front.AddInstructionsAfterBranch(actualTaken, fault.PC); err != nil {
			// A genuine architectural branch fault always carries a valid PC
			// into the program; this would only fire on a driver bug.
			panic(err)
		}
		return
	}

	c.front.SetPC(fault.PC + 1)
	if micro := c.micro.forKind(fault.Kind); len(micro) > 0 {
		c.front.AddMicroProgram(micro)
	}
	c.front.Fill()
}

// Idle reports whether the frontend is exhausted and the engine has no
// in-flight slots — the natural run-to-completion stopping condition.
func (c *CPU) Idle() bool {
	return c.front.IsDone() && c.eng.Idle()
}

// Run ticks the CPU until Idle or maxCycles is reached, whichever comes
// first, and returns the number of cycles actually run.
func (c *CPU) Run(maxCycles uint64) uint64 {
	var ran uint64
	for ran < maxCycles && !c.Idle() {
		c.Tick()
		ran++
	}
	return ran
}
