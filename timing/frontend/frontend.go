// Package frontend maintains the bounded instruction queue that feeds the
// execution engine: it consults the branch predictor at enqueue time,
// accepts unconditional micro-program injection for fault mitigation, and
// exposes the cursor the CPU driver re-steers on a fault.
package frontend

import (
	"errors"

	"github.com/sarchlab/transientcore/insts"
	"github.com/sarchlab/transientcore/timing/bpu"
)

// Errors returned by Frontend's usage-facing operations. These are
// front-end usage errors, not architectural faults — they never occur on a
// well-formed driver loop and signal a programming mistake in the caller.
var (
	ErrQueueEmpty   = errors.New("frontend: instruction queue is empty")
	ErrPCOutOfRange = errors.New("frontend: program counter out of range")
	ErrNotABranch   = errors.New("frontend: pc does not reference a branch instruction")
)

// InstrInfo is one queued instruction together with the pc it was fetched
// from and, for branches, the prediction made at enqueue time.
type InstrInfo struct {
	Instr      insts.Instruction
	PC         int
	Prediction *bool // nil for non-branches
}

// Frontend holds the bounded queue and the cursor into the program's
// instruction list.
type Frontend struct {
	maxLength int
	pc        int
	predictor bpu.Predictor
	program   []insts.Instruction
	queue     []InstrInfo
}

// New constructs a Frontend over program, driven by predictor, with the
// given bounded queue length.
func New(predictor bpu.Predictor, program []insts.Instruction, maxLength int) *Frontend {
	return &Frontend{maxLength: maxLength, predictor: predictor, program: program}
}

// Fill appends instructions from the program to the queue, consulting the
// branch predictor for any Branch encountered, until the queue reaches
// maxLength or the program is exhausted.
func (f *Frontend) Fill() {
	for len(f.queue) < f.maxLength {
		if f.pc >= len(f.program) {
			return
		}
		instr := f.program[f.pc]
		pc := f.pc

		var prediction *bool
		if instr.Kind.Tag == insts.TagBranch {
			taken := f.predictor.Predict(pc)
			prediction = &taken
			if taken {
				f.pc = instr.Operands[2]
			} else {
				f.pc = pc + 1
			}
		} else {
			f.pc = pc + 1
		}

		f.queue = append(f.queue, InstrInfo{Instr: instr, PC: pc, Prediction: prediction})
	}
}

// AddMicroProgram appends a micro-program's instructions, bypassing
// maxLength. Any branch inside a micro-program is taken unconditionally —
// no predictor consultation, no misprediction is ever signaled for it — and
// steers pc to its label operand; this is the micro-program branch handling
// decided in DESIGN.md's Open Question resolution.
func (f *Frontend) AddMicroProgram(program []insts.Instruction) {
	for _, instr := range program {
		info := InstrInfo{Instr: instr, PC: -1}
		if instr.Kind.Tag == insts.TagBranch {
			taken := true
			info.Prediction = &taken
			f.pc = instr.Operands[2]
		}
		f.queue = append(f.queue, info)
	}
}

// AddInstructionsAfterBranch enqueues the branch at branchPC with the
// already-resolved outcome taken, re-derives pc from it, and refills the
// queue. The CPU driver uses this after a misprediction rollback to install
// the correct path.
func (f *Frontend) AddInstructionsAfterBranch(taken bool, branchPC int) error {
	if branchPC < 0 || branchPC >= len(f.program) {
		return ErrPCOutOfRange
	}
	instr := f.program[branchPC]
	if instr.Kind.Tag != insts.TagBranch {
		return ErrNotABranch
	}
	t := taken
	f.queue = append(f.queue, InstrInfo{Instr: instr, PC: branchPC, Prediction: &t})
	if taken {
		f.pc = instr.Operands[2]
	} else {
		f.pc = branchPC + 1
	}
	f.Fill()
	return nil
}

// Peek returns the head of the queue without removing it.
func (f *Frontend) Peek() (InstrInfo, error) {
	if len(f.queue) == 0 {
		return InstrInfo{}, ErrQueueEmpty
	}
	return f.queue[0], nil
}

// Pop removes and returns the head of the queue.
func (f *Frontend) Pop() (InstrInfo, error) {
	info, err := f.Peek()
	if err != nil {
		return InstrInfo{}, err
	}
	f.queue = f.queue[1:]
	return info, nil
}

// Flush empties the queue. pc is left untouched — the caller is
// responsible for re-steering it, otherwise the flushed instructions are
// silently skipped.
func (f *Frontend) Flush() {
	f.queue = f.queue[:0]
}

// SetPC sets the program counter to an arbitrary valid instruction index.
// It does not adjust or flush the queue.
func (f *Frontend) SetPC(newPC int) error {
	if newPC < 0 || newPC >= len(f.program) {
		return ErrPCOutOfRange
	}
	f.pc = newPC
	return nil
}

// PC returns the current program counter.
func (f *Frontend) PC() int {
	return f.pc
}

// Len returns the number of instructions currently queued.
func (f *Frontend) Len() int {
	return len(f.queue)
}

// IsDone reports whether the program is exhausted and the queue is empty.
func (f *Frontend) IsDone() bool {
	return f.pc >= len(f.program) && len(f.queue) == 0
}

// Clone returns an independent copy of the frontend's queue and cursor,
// driven by predictor (typically a clone of the original predictor, so the
// copy doesn't share mutable prediction state with the original). The
// underlying program slice is immutable and shared.
func (f *Frontend) Clone(predictor bpu.Predictor) *Frontend {
	clone := &Frontend{maxLength: f.maxLength, pc: f.pc, predictor: predictor, program: f.program}
	clone.queue = make([]InstrInfo, len(f.queue))
	copy(clone.queue, f.queue)
	return clone
}
