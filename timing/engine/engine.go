// Package engine implements the out-of-order Execution Engine: a unified
// reservation station with a common data bus, speculative and out-of-order
// execution, memory-hazard resolution, and branch-misprediction / fault
// rollback.
//
// The source material this engine is modeled on uses a four-level class
// hierarchy of slot kinds. That is replaced here with a flat tagged Slot
// struct and two dispatch functions, tickExecute and tickRetire, switching
// over Slot.Tag — the "two dispatch functions over the variant" shape
// DESIGN.md calls for instead of virtual calls. Cross-references that the
// source models as back-pointers (a slot referencing its owning engine) are
// modeled here as plain slot indices into the engine-owned Slots array.
package engine

import (
	"github.com/sarchlab/transientcore/insts"
	"github.com/sarchlab/transientcore/timing/bpu"
	"github.com/sarchlab/transientcore/timing/memsys"
	"github.com/sarchlab/transientcore/word"
)

// Operand is a register-file or slot-source entry: either a concrete Word
// or the id of the slot that will eventually produce one.
type Operand struct {
	IsSlot bool
	Value  word.Word
	Slot   int
}

// Concrete constructs a resolved Operand.
func Concrete(w word.Word) Operand { return Operand{Value: w} }

// FromSlot constructs an Operand awaiting the result of slot id.
func FromSlot(id int) Operand { return Operand{IsSlot: true, Slot: id} }

// SlotTag identifies which state machine a Slot runs. Reg and Imm
// instruction kinds share the Alu tag — both are resolved-operand binary
// arithmetic, differing only in where the second operand comes from, which
// buildSlot already normalizes into Operands[1].
type SlotTag int

const (
	TagAlu SlotTag = iota
	TagLoad
	TagStore
	TagFlush
	TagBranch
	TagCyclecount
	TagFence
)

// Phase is a slot's position in its Executing -> Retiring -> (freed)
// lifecycle.
type Phase int

const (
	Executing Phase = iota
	Retiring
)

// FaultKind identifies which slot variant produced a FaultInfo.
type FaultKind int

const (
	FaultLoad FaultKind = iota
	FaultStore
	FaultFlush
	FaultBranch
)

func (k FaultKind) String() string {
	switch k {
	case FaultLoad:
		return "load"
	case FaultStore:
		return "store"
	case FaultFlush:
		return "flush"
	case FaultBranch:
		return "branch"
	default:
		return "unknown"
	}
}

// FaultInfo is the payload surfaced to the CPU driver when a slot faults.
type FaultInfo struct {
	PC         int
	Kind       FaultKind
	Prediction *bool
	Address    *word.Word
}

// Slot is the flat tagged reservation-station entry. Only the fields
// relevant to Tag are meaningful for a given slot.
type Slot struct {
	Tag    SlotTag
	Kind   insts.Kind
	Dest   int // destination register index, -1 if none
	Phase  Phase
	Result *word.Word

	// Operands holds up to 3 source slots, meaning depends on Tag:
	//   Alu:    [0]=src1 [1]=src2
	//   Load:   [0]=base [1]=offset
	//   Store:  [0]=value [1]=base [2]=offset
	//   Flush:  [0]=base [1]=offset
	//   Branch: [0]=src1 [1]=src2
	Operands [3]Operand

	// Alu / Branch execute countdown.
	CyclesRemaining int

	// Memory common (Load/Store/Flush).
	AddressKnown   bool
	Address        word.Word
	HazardsPending map[int]bool
	AccessDone     bool
	MemValue       word.Word
	MemFault       bool
	CyclesValue    int
	CyclesFault    int

	// Faulting-kind common (Load/Store/Flush/Branch).
	RegSnapshot       [32]Operand
	PC                int
	FaultingPreceding map[int]bool

	// Branch.
	LabelPC        int
	PredictedTaken bool
	Taken          *bool

	// Fence.
	Preceding map[int]bool
}

func isFaultingTag(t SlotTag) bool {
	return t == TagLoad || t == TagStore || t == TagFlush || t == TagBranch
}

func isMemoryTag(t SlotTag) bool {
	return t == TagLoad || t == TagStore || t == TagFlush
}

func byteWidth(k insts.Kind) int {
	if k.ByteWidth == 0 {
		return 2
	}
	return k.ByteWidth
}

// Engine is the reservation-station execution engine.
type Engine struct {
	Cycle            uint64
	Registers        [32]Operand
	Slots            []*Slot
	FaultingInflight map[int]bool

	mem       *memsys.Subsystem
	predictor bpu.Predictor
}

// New constructs an Engine with the given number of reservation-station
// slots and the fixed 32-entry register file, backed by mem for memory
// operations and predictor for branch resolution bookkeeping.
func New(mem *memsys.Subsystem, predictor bpu.Predictor, numSlots int) *Engine {
	return &Engine{
		Slots:            make([]*Slot, numSlots),
		FaultingInflight: make(map[int]bool),
		mem:              mem,
		predictor:        predictor,
	}
}

func (e *Engine) occupiedSlotIDs() map[int]bool {
	out := make(map[int]bool)
	for i, s := range e.Slots {
		if s != nil {
			out[i] = true
		}
	}
	return out
}

func (e *Engine) hasFence() bool {
	for _, s := range e.Slots {
		if s != nil && s.Tag == TagFence {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the engine's mutable state — registers,
// every occupied slot, the faulting-inflight set, and the predictor — bound
// to mem, which the caller supplies (the external undo stack passes its own
// clone of the memory subsystem).
func (e *Engine) Clone(mem *memsys.Subsystem) *Engine {
	clone := &Engine{
		Cycle:            e.Cycle,
		Registers:        e.Registers,
		Slots:            make([]*Slot, len(e.Slots)),
		FaultingInflight: copyIntSet(e.FaultingInflight),
		mem:              mem,
		predictor:        e.predictor.Clone(),
	}
	for i, s := range e.Slots {
		if s != nil {
			clone.Slots[i] = s.clone()
		}
	}
	return clone
}

func (s *Slot) clone() *Slot {
	cp := *s
	if s.Result != nil {
		v := *s.Result
		cp.Result = &v
	}
	if s.Taken != nil {
		v := *s.Taken
		cp.Taken = &v
	}
	cp.HazardsPending = copyIntSet(s.HazardsPending)
	cp.FaultingPreceding = copyIntSet(s.FaultingPreceding)
	cp.Preceding = copyIntSet(s.Preceding)
	return &cp
}

// Predictor returns the branch predictor the engine updates on every
// branch retirement.
func (e *Engine) Predictor() bpu.Predictor {
	return e.predictor
}

// Idle reports whether every reservation-station slot is empty.
func (e *Engine) Idle() bool {
	for _, s := range e.Slots {
		if s != nil {
			return false
		}
	}
	return true
}

func (e *Engine) freeSlot() int {
	for i, s := range e.Slots {
		if s == nil {
			return i
		}
	}
	return -1
}

// TryIssue attempts to install instr (fetched at pc, with prediction for
// branches) into the lowest-index free slot. It refuses while any slot
// holds a Fence, and when no slot is free.
func (e *Engine) TryIssue(instr insts.Instruction, pc int, prediction *bool) bool {
	if e.hasFence() {
		return false
	}
	idx := e.freeSlot()
	if idx < 0 {
		return false
	}

	slot := e.buildSlot(instr, pc, prediction)
	snapshot := e.Registers

	e.Slots[idx] = slot
	if slot.Dest >= 0 {
		e.Registers[slot.Dest] = FromSlot(idx)
	}
	if isFaultingTag(slot.Tag) {
		slot.FaultingPreceding = e.FaultingInflight
		e.FaultingInflight = copyIntSet(e.FaultingInflight)
		e.FaultingInflight[idx] = true
		slot.RegSnapshot = snapshot
		slot.PC = pc
	}
	if slot.Tag == TagFence {
		slot.Preceding = e.occupiedSlotIDsExcluding(idx)
	}
	return true
}

func (e *Engine) occupiedSlotIDsExcluding(excl int) map[int]bool {
	out := make(map[int]bool)
	for i, s := range e.Slots {
		if s != nil && i != excl {
			out[i] = true
		}
	}
	return out
}

func copyIntSet(m map[int]bool) map[int]bool {
	out := make(map[int]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (e *Engine) regOperand(reg int) Operand {
	return e.Registers[reg]
}

func (e *Engine) buildSlot(instr insts.Instruction, pc int, prediction *bool) *Slot {
	k := instr.Kind
	ops := instr.Operands
	s := &Slot{Kind: k, Dest: -1, Phase: Executing}

	switch k.Tag {
	case insts.TagReg:
		s.Tag = TagAlu
		s.Dest = ops[0]
		s.Operands[0] = e.regOperand(ops[1])
		s.Operands[1] = e.regOperand(ops[2])
		s.CyclesRemaining = k.Cycles
	case insts.TagImm:
		s.Tag = TagAlu
		s.Dest = ops[0]
		s.Operands[0] = e.regOperand(ops[1])
		s.Operands[1] = Concrete(word.New(ops[2]))
		s.CyclesRemaining = k.Cycles
	case insts.TagLoad:
		s.Tag = TagLoad
		s.Dest = ops[0]
		s.Operands[0] = e.regOperand(ops[1])
		s.Operands[1] = Concrete(word.New(ops[2]))
		s.HazardsPending = map[int]bool{}
	case insts.TagStore:
		s.Tag = TagStore
		s.Operands[0] = e.regOperand(ops[0])
		s.Operands[1] = e.regOperand(ops[1])
		s.Operands[2] = Concrete(word.New(ops[2]))
		s.HazardsPending = map[int]bool{}
	case insts.TagFlush:
		s.Tag = TagFlush
		s.Operands[0] = e.regOperand(ops[0])
		s.Operands[1] = Concrete(word.New(ops[1]))
		s.HazardsPending = map[int]bool{}
	case insts.TagBranch:
		s.Tag = TagBranch
		s.Operands[0] = e.regOperand(ops[0])
		s.Operands[1] = e.regOperand(ops[1])
		s.LabelPC = ops[2]
		s.CyclesRemaining = k.Cycles
		if prediction != nil {
			s.PredictedTaken = *prediction
		}
	case insts.TagCyclecount:
		s.Tag = TagCyclecount
		s.Dest = ops[0]
	case insts.TagFence:
		s.Tag = TagFence
	}
	return s
}

// Tick advances the engine by one cycle: it executes every occupied slot,
// broadcasts completed results, retires finished slots, and rolls back on
// the first fault encountered. Slots are scanned in ascending index order,
// so a result broadcast by a lower-index slot is visible to every
// higher-index slot in the same tick.
func (e *Engine) Tick() *FaultInfo {
	e.Cycle++

	for i, slot := range e.Slots {
		if slot == nil {
			continue
		}
		switch slot.Phase {
		case Executing:
			if result := e.tickExecute(i, slot); result != nil {
				slot.Phase = Retiring
				slot.Result = result
				e.broadcast(i, *result)
			}
		case Retiring:
			done, fault := e.tickRetire(i, slot)
			if fault != nil {
				e.rollback(i, slot)
				return fault
			}
			if done {
				e.notifyRetired(i)
			}
		}
	}
	return nil
}

func (e *Engine) broadcast(producer int, value word.Word) {
	for i := range e.Registers {
		if e.Registers[i].IsSlot && e.Registers[i].Slot == producer {
			e.Registers[i] = Concrete(value)
		}
	}
	for _, slot := range e.Slots {
		if slot == nil {
			continue
		}
		for k := range slot.Operands {
			if slot.Operands[k].IsSlot && slot.Operands[k].Slot == producer {
				slot.Operands[k] = Concrete(value)
			}
		}
		if isFaultingTag(slot.Tag) {
			for k := range slot.RegSnapshot {
				if slot.RegSnapshot[k].IsSlot && slot.RegSnapshot[k].Slot == producer {
					slot.RegSnapshot[k] = Concrete(value)
				}
			}
		}
	}
}

func (e *Engine) notifyRetired(retired int) {
	for _, slot := range e.Slots {
		if slot == nil {
			continue
		}
		delete(slot.FaultingPreceding, retired)
		delete(slot.HazardsPending, retired)
		delete(slot.Preceding, retired)
	}
	delete(e.FaultingInflight, retired)
	e.Slots[retired] = nil
}

func (e *Engine) rollback(faultSlot int, slot *Slot) {
	e.Registers = slot.RegSnapshot
	for i := range e.Slots {
		e.Slots[i] = nil
	}
	e.FaultingInflight = make(map[int]bool)
}

func snapshotConcrete(snap [32]Operand) bool {
	for _, op := range snap {
		if op.IsSlot {
			return false
		}
	}
	return true
}

func overlaps(addrA word.Word, widthA int, addrB word.Word, widthB int) bool {
	a0, a1 := addrA.Unsigned(), addrA.Unsigned()+widthA
	b0, b1 := addrB.Unsigned(), addrB.Unsigned()+widthB
	return a0 < b1 && b0 < a1
}

// tickExecute dispatches the Executing-phase step for slot i, returning a
// broadcastable result once available, or nil if the slot needs more time.
func (e *Engine) tickExecute(i int, s *Slot) *word.Word {
	switch s.Tag {
	case TagAlu:
		if s.Operands[0].IsSlot || s.Operands[1].IsSlot {
			return nil
		}
		if s.CyclesRemaining > 0 {
			s.CyclesRemaining--
			return nil
		}
		v := s.Kind.Op(s.Operands[0].Value, s.Operands[1].Value)
		return &v

	case TagLoad, TagStore, TagFlush:
		return e.tickExecuteMemory(i, s)

	case TagBranch:
		if s.Operands[0].IsSlot || s.Operands[1].IsSlot {
			return nil
		}
		if s.CyclesRemaining > 0 {
			s.CyclesRemaining--
			return nil
		}
		taken := s.Kind.Cond(s.Operands[0].Value, s.Operands[1].Value)
		s.Taken = &taken
		zero := word.New(0)
		return &zero

	case TagCyclecount:
		v := word.New(int(e.Cycle))
		return &v

	case TagFence:
		if len(s.Preceding) > 0 {
			return nil
		}
		zero := word.New(0)
		return &zero
	}
	return nil
}

func (e *Engine) tickExecuteMemory(i int, s *Slot) *word.Word {
	baseIdx, offsetIdx := 0, 1
	if s.Tag == TagStore {
		baseIdx, offsetIdx = 1, 2
	}

	if !s.AddressKnown {
		base := s.Operands[baseIdx]
		if base.IsSlot {
			return nil
		}
		offset := s.Operands[offsetIdx]
		s.Address = base.Value.Add(offset.Value)
		s.AddressKnown = true
	}

	// Hold the hazard set open until every older potentially-faulting memory
	// peer has a resolved address, so a peer that resolves late is never
	// silently missed.
	for id := range s.FaultingPreceding {
		peer := e.Slots[id]
		if peer == nil || !isMemoryTag(peer.Tag) {
			continue
		}
		if !peer.AddressKnown {
			return nil
		}
		if overlaps(s.Address, byteWidth(s.Kind), peer.Address, byteWidth(peer.Kind)) {
			s.HazardsPending[id] = true
		}
	}

	if len(s.HazardsPending) > 0 {
		return nil
	}

	if s.Tag == TagStore {
		if s.Operands[0].IsSlot {
			return nil
		}
		// Stores are irrevocable: wait for every older potentially-faulting
		// instruction to retire before writing through.
		if len(s.FaultingPreceding) > 0 {
			return nil
		}
	}

	if !s.AccessDone {
		e.performAccess(s)
		s.AccessDone = true
		return nil
	}

	if s.CyclesValue > 0 {
		s.CyclesValue--
		return nil
	}
	v := s.MemValue
	return &v
}

func (e *Engine) performAccess(s *Slot) {
	width := byteWidth(s.Kind)
	switch s.Tag {
	case TagLoad:
		var r memsys.Result
		if width == 1 {
			r = e.mem.ReadByte(s.Address)
		} else {
			r = e.mem.ReadWord(s.Address)
		}
		s.MemValue, s.MemFault = r.Value, r.Fault
		s.CyclesValue, s.CyclesFault = int(r.CyclesValue), int(r.CyclesFault)
	case TagStore:
		value := s.Operands[0].Value
		var r memsys.Result
		if width == 1 {
			r = e.mem.WriteByte(s.Address, word.NewByte(value.Unsigned()))
		} else {
			r = e.mem.WriteWord(s.Address, value)
		}
		s.MemValue, s.MemFault = r.Value, r.Fault
		s.CyclesValue, s.CyclesFault = int(r.CyclesValue), int(r.CyclesFault)
	case TagFlush:
		r := e.mem.FlushLine(s.Address)
		s.MemValue, s.MemFault = r.Value, r.Fault
		s.CyclesValue, s.CyclesFault = int(r.CyclesValue), int(r.CyclesFault)
	}
}

// tickRetire dispatches the Retiring-phase step for slot i. done indicates
// the slot finished without fault and may be freed; a non-nil FaultInfo
// means the slot instead triggers rollback.
func (e *Engine) tickRetire(i int, s *Slot) (done bool, fault *FaultInfo) {
	switch s.Tag {
	case TagAlu, TagCyclecount, TagFence:
		return true, nil

	case TagLoad, TagStore, TagFlush:
		if s.CyclesFault > 0 {
			s.CyclesFault--
			return false, nil
		}
		if !s.MemFault {
			return true, nil
		}
		if len(s.FaultingPreceding) > 0 || !snapshotConcrete(s.RegSnapshot) {
			return false, nil
		}
		addr := s.Address
		return true, &FaultInfo{PC: s.PC, Kind: memoryFaultKind(s.Tag), Address: &addr}

	case TagBranch:
		if s.Taken == nil {
			return false, nil
		}
		// A micro-program branch (PC == -1) is taken unconditionally: it
		// never consults the predictor at enqueue time and never faults,
		// however its condition evaluates, and it carries no architectural
		// PC to update the predictor with.
		if s.PC == -1 {
			return true, nil
		}
		mispredicted := *s.Taken != s.PredictedTaken
		if !mispredicted {
			e.predictor.Update(s.PC, *s.Taken)
			return true, nil
		}
		if len(s.FaultingPreceding) > 0 || !snapshotConcrete(s.RegSnapshot) {
			return false, nil
		}
		e.predictor.Update(s.PC, *s.Taken)
		pred := s.PredictedTaken
		return true, &FaultInfo{PC: s.PC, Kind: FaultBranch, Prediction: &pred}
	}
	return true, nil
}

func memoryFaultKind(t SlotTag) FaultKind {
	switch t {
	case TagLoad:
		return FaultLoad
	case TagStore:
		return FaultStore
	default:
		return FaultFlush
	}
}
