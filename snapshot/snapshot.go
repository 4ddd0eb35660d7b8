// Package snapshot implements the undo/redo stack described in the
// Execution Engine's design notes: a point-in-time copy of the memory
// subsystem, execution engine, and frontend, taken as a pure function of
// the running state rather than a method the CPU maintains on itself. The
// Python prototype this is modeled on kept a `_snapshots` list and a
// `_snapshot_index` as fields on its CPU class; here the stack is an
// independent, externally-owned value the driver chooses whether to use at
// all.
package snapshot

import (
	"fmt"

	"github.com/sarchlab/transientcore/timing/engine"
	"github.com/sarchlab/transientcore/timing/frontend"
	"github.com/sarchlab/transientcore/timing/memsys"
)

// State is one independent, point-in-time copy of the simulator's mutable
// state.
type State struct {
	Mem   *memsys.Subsystem
	Eng   *engine.Engine
	Front *frontend.Frontend
}

// Take produces an independent copy of mem, eng, and front. Ticking the
// returned State's components does not affect the originals, or any other
// previously taken State.
func Take(mem *memsys.Subsystem, eng *engine.Engine, front *frontend.Frontend) *State {
	memClone := mem.Clone()
	engClone := eng.Clone(memClone)
	frontClone := front.Clone(engClone.Predictor())
	return &State{Mem: memClone, Eng: engClone, Front: frontClone}
}

// Stack is an undo/redo history of States. Taking a new snapshot after
// navigating backward discards the redo branch — matching the prototype's
// "forget newer snapshots once a new one is taken" rule rather than
// maintaining multiple divergent futures.
type Stack struct {
	states []*State
	index  int
}

// NewStack builds a Stack seeded with an initial snapshot of mem, eng, and
// front.
func NewStack(mem *memsys.Subsystem, eng *engine.Engine, front *frontend.Frontend) *Stack {
	return &Stack{states: []*State{Take(mem, eng, front)}, index: 0}
}

// Push takes a new snapshot of mem, eng, and front and appends it after the
// current position, discarding any states reachable only by redo.
func (s *Stack) Push(mem *memsys.Subsystem, eng *engine.Engine, front *frontend.Frontend) {
	s.states = s.states[:s.index+1]
	s.states = append(s.states, Take(mem, eng, front))
	s.index++
}

// Current returns the snapshot the stack is positioned at.
func (s *Stack) Current() *State {
	return s.states[s.index]
}

// Move shifts the stack's position by steps (negative for undo, positive
// for redo) and returns the State landed on.
func (s *Stack) Move(steps int) (*State, error) {
	target := s.index + steps
	if target < 0 || target >= len(s.states) {
		return nil, fmt.Errorf("snapshot: cannot move %d steps from index %d (have %d states)", steps, s.index, len(s.states))
	}
	s.index = target
	return s.states[s.index], nil
}

// Len returns the number of snapshots currently held.
func (s *Stack) Len() int {
	return len(s.states)
}
