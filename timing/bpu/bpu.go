// Package bpu implements the branch prediction unit: a Simple single-counter
// predictor and an Indexed multi-counter predictor, sharing the exact
// bimodal state-table transition required by the core.
package bpu

// Counter is a 2-bit bimodal predictor state in {0,1,2,3}.
type Counter uint8

// Predict reports whether the counter predicts taken (counter >= 2).
func (c Counter) Predict() bool {
	return c >= 2
}

// bimodalUpdate computes the next counter state from the current state and
// the observed branch outcome.
//
// This is deliberately not a standard 2-bit saturating counter: on a taken
// outcome the state only ever moves 0->1 or jumps straight to 3; on a
// not-taken outcome it only ever moves 3->2 or jumps straight to 0.
func bimodalUpdate(state Counter, taken bool) Counter {
	if taken {
		if state == 0 {
			return 1
		}
		return 3
	}
	if state == 3 {
		return 2
	}
	return 0
}

// Predictor is the interface shared by Simple and Indexed.
type Predictor interface {
	// Predict reports whether the branch at pc is predicted taken.
	Predict(pc int) bool
	// Update records the actual outcome of the branch at pc.
	Update(pc int, taken bool)
	// Set forces the counter responsible for pc to val, bypassing the
	// bimodal transition function.
	Set(pc int, val Counter)
	// Clone returns an independent copy of the predictor's state.
	Clone() Predictor
}

// Simple is a single 2-bit counter shared by every program counter.
type Simple struct {
	counter Counter
}

// NewSimple constructs a Simple predictor with the given initial counter
// state.
func NewSimple(initCounter Counter) *Simple {
	return &Simple{counter: initCounter}
}

// Predict implements Predictor.
func (s *Simple) Predict(pc int) bool {
	return s.counter.Predict()
}

// Update implements Predictor.
func (s *Simple) Update(pc int, taken bool) {
	s.counter = bimodalUpdate(s.counter, taken)
}

// Set implements Predictor.
func (s *Simple) Set(pc int, val Counter) {
	s.counter = val
}

// Clone implements Predictor.
func (s *Simple) Clone() Predictor {
	clone := *s
	return &clone
}

// Indexed holds 2^indexBits independent counters, selected by pc mod
// 2^indexBits.
type Indexed struct {
	indexBits int
	counters  []Counter
}

// NewIndexed constructs an Indexed predictor with 2^indexBits counters, all
// initialized to initCounter.
func NewIndexed(indexBits int, initCounter Counter) *Indexed {
	size := 1 << indexBits
	counters := make([]Counter, size)
	for i := range counters {
		counters[i] = initCounter
	}
	return &Indexed{indexBits: indexBits, counters: counters}
}

func (idx *Indexed) index(pc int) int {
	size := len(idx.counters)
	return ((pc % size) + size) % size
}

// Predict implements Predictor.
func (idx *Indexed) Predict(pc int) bool {
	return idx.counters[idx.index(pc)].Predict()
}

// Update implements Predictor.
func (idx *Indexed) Update(pc int, taken bool) {
	i := idx.index(pc)
	idx.counters[i] = bimodalUpdate(idx.counters[i], taken)
}

// Set implements Predictor.
func (idx *Indexed) Set(pc int, val Counter) {
	idx.counters[idx.index(pc)] = val
}

// Counters returns a copy of the counter table, for inspection in tests.
func (idx *Indexed) Counters() []Counter {
	out := make([]Counter, len(idx.counters))
	copy(out, idx.counters)
	return out
}

// Clone implements Predictor.
func (idx *Indexed) Clone() Predictor {
	counters := make([]Counter, len(idx.counters))
	copy(counters, idx.counters)
	return &Indexed{indexBits: idx.indexBits, counters: counters}
}
