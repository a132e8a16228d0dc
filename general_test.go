package seqdecode

import (
	"math"
	"testing"

	"github.com/unixpickle/anyvec"
)

// testState is a packed-vector decoder state.
type testState struct {
	vec   anyvec.Vector
	lanes int
}

func (t *testState) Stack(beamSize int) State {
	return &testState{
		vec:   StackLanes(t.vec, t.lanes, beamSize),
		lanes: t.lanes * beamSize,
	}
}

func (t *testState) Gather(parents []int) State {
	return &testState{
		vec:   GatherLanes(t.vec, t.lanes, parents),
		lanes: len(parents),
	}
}

// sumTransition keeps a one-component running sum per
// lane and adds its input to it at every step.
type sumTransition struct {
	creator anyvec.Creator
	steps   int
}

func (s *sumTransition) OutputFields() []string {
	return []string{"sum", "input"}
}

func (s *sumTransition) IgnoreFields() []string {
	return []string{"input"}
}

func (s *sumTransition) Prepare(enc EncoderOutput, bridge Bridge,
	fb Feedback) (State, Params) {
	_, symbols := fb.InitSymbols()
	lanes := len(symbols) / fb.BeamSize()
	return &testState{vec: s.creator.MakeVector(lanes), lanes: lanes}, nil
}

func (s *sumTransition) Step(in anyvec.Vector, st State, p Params) (Output, State) {
	s.steps++
	old := st.(*testState)
	sum := old.vec.Copy()
	sum.Add(in)
	out := Output{"sum": sum, "input": in}
	return out, &testState{vec: sum, lanes: old.lanes}
}

func (s *sumTransition) MergeTopFeatures(out Output) anyvec.Vector {
	return out["sum"]
}

// prevAddTransition is a sumTransition whose
// post-processing adds the previous step's input to the
// next one.
type prevAddTransition struct {
	*sumTransition
}

func (p *prevAddTransition) PreprocessInput(time int, in anyvec.Vector) anyvec.Vector {
	return in
}

func (p *prevAddTransition) PostprocessInput(prev, next anyvec.Vector) anyvec.Vector {
	if prev == nil {
		return next
	}
	res := next.Copy()
	res.Add(prev)
	return res
}

// testModality embeds a symbol as its numeric value and
// produces logits peaked at the nearest integer of the
// one-component feature.
type testModality struct {
	c     anyvec.Creator
	vocab int
}

func (t *testModality) Embed(symbols []int, time int) anyvec.Vector {
	data := make([]float64, len(symbols))
	for i, s := range symbols {
		data[i] = float64(s)
	}
	return floatsVector(t.c, data)
}

func (t *testModality) Project(features anyvec.Vector) anyvec.Vector {
	f := vecData(features)
	data := make([]float64, len(f)*t.vocab)
	for i, x := range f {
		for v := 0; v < t.vocab; v++ {
			d := x - float64(v)
			data[i*t.vocab+v] = -d * d
		}
	}
	return floatsVector(t.c, data)
}

// scriptedFeedback replays fixed sampling decisions.
type scriptedStep struct {
	sampleIDs []int
	beamIDs   []int
	finished  []bool
}

type scriptedFeedback struct {
	batch      int
	beam       int
	start      int
	logProbAdd float64
	script     []scriptedStep

	seenFinished [][]bool
}

func (s *scriptedFeedback) BeamSize() int {
	return s.beam
}

func (s *scriptedFeedback) InitSymbols() ([]bool, []int) {
	lanes := s.batch * s.beam
	finished := make([]bool, lanes)
	symbols := make([]int, lanes)
	for i := range symbols {
		symbols[i] = s.start
	}
	return finished, symbols
}

func (s *scriptedFeedback) SampleSymbols(logits, logProbs anyvec.Vector,
	finished []bool, lengths []int, time int) ([]int, []int, anyvec.Vector, []int) {
	s.seenFinished = append(s.seenFinished, append([]bool{}, finished...))
	step := s.script[time]
	lp := vecData(logProbs)
	nextLP := make([]float64, len(lp))
	nextLengths := make([]int, len(lengths))
	for i := range lp {
		nextLP[i] = lp[i] + s.logProbAdd
		nextLengths[i] = lengths[i]
		if !finished[i] {
			nextLengths[i]++
		}
	}
	return append([]int{}, step.sampleIDs...), append([]int{}, step.beamIDs...),
		floatsVector(logProbs.Creator(), nextLP), nextLengths
}

func (s *scriptedFeedback) NextSymbols(time int, sampleIDs []int) ([]bool, []int) {
	step := s.script[time]
	return append([]bool{}, step.finished...), append([]int{}, sampleIDs...)
}

func assertVec(t *testing.T, v anyvec.Vector, expected ...float64) {
	t.Helper()
	actual := vecData(v)
	if len(actual) != len(expected) {
		t.Errorf("expected %v but got %v", expected, actual)
		return
	}
	for i, x := range expected {
		if math.Abs(actual[i]-x) > 1e-4 {
			t.Errorf("expected %v but got %v", expected, actual)
			return
		}
	}
}

func mustPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	f()
}
