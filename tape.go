package seqdecode

import (
	"fmt"

	"github.com/unixpickle/anyvec"
)

// An OutputTape accumulates one vector per timestep while
// the total number of timesteps is still unknown.
//
// Each time index may be written at most once, every
// index below the highest written one must eventually be
// written, and the tape may not be read before Finalize.
// Finalize may be called exactly once.
type OutputTape interface {
	// Write stores the vector for a time index.
	Write(time int, v anyvec.Vector)

	// Finalize returns all stored vectors in time order.
	Finalize() []anyvec.Vector
}

// NewOutputTape creates an OutputTape that retains
// references to the written vectors.
func NewOutputTape() OutputTape {
	return newReferenceTape(0)
}

type referenceTape struct {
	slots     []anyvec.Vector
	written   []bool
	finalized bool
}

func newReferenceTape(slack int) *referenceTape {
	return &referenceTape{
		slots:   make([]anyvec.Vector, 0, slack),
		written: make([]bool, 0, slack),
	}
}

func (r *referenceTape) Write(time int, v anyvec.Vector) {
	r.grow(time)
	r.slots[time] = v
	r.written[time] = true
}

func (r *referenceTape) Finalize() []anyvec.Vector {
	checkTapeComplete(r.written, &r.finalized)
	return r.slots
}

func (r *referenceTape) grow(time int) {
	checkTapeWrite(time, r.written, r.finalized)
	for time >= len(r.slots) {
		r.slots = append(r.slots, nil)
		r.written = append(r.written, false)
	}
}

// A statusTape is the compound tape for per-step beam
// search status records.
type statusTape struct {
	slots     []*SearchStep
	written   []bool
	finalized bool
}

func newStatusTape(slack int) *statusTape {
	return &statusTape{
		slots:   make([]*SearchStep, 0, slack),
		written: make([]bool, 0, slack),
	}
}

func (s *statusTape) Write(time int, step *SearchStep) {
	checkTapeWrite(time, s.written, s.finalized)
	for time >= len(s.slots) {
		s.slots = append(s.slots, nil)
		s.written = append(s.written, false)
	}
	s.slots[time] = step
	s.written[time] = true
}

func (s *statusTape) Finalize() []*SearchStep {
	checkTapeComplete(s.written, &s.finalized)
	return s.slots
}

func checkTapeWrite(time int, written []bool, finalized bool) {
	if finalized {
		panic("write to finalized tape")
	}
	if time < 0 {
		panic("negative time index")
	}
	if time < len(written) && written[time] {
		panic(fmt.Sprintf("duplicate write at time %d", time))
	}
}

func checkTapeComplete(written []bool, finalized *bool) {
	if *finalized {
		panic("tape finalized twice")
	}
	*finalized = true
	for t, w := range written {
		if !w {
			panic(fmt.Sprintf("missing write at time %d", t))
		}
	}
}
