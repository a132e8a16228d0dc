package seqrnn

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"

	"github.com/unixpickle/seqdecode"
)

// An Elman is a simple recurrent transition:
//
//	h[t] = tanh(W*x[t] + U*h[t-1] + b)
//
// Its state is a VecState, so it works under beam search.
//
// The step records carry both the hidden state and the
// input that produced it; the input field is dropped
// during inference.
type Elman struct {
	Creator    anyvec.Creator
	InputLayer *anynet.FC
	StateLayer *anynet.FC
	StateSize  int
}

// NewElman creates an Elman transition with randomly
// initialized layers.
func NewElman(c anyvec.Creator, inSize, stateSize int) *Elman {
	return &Elman{
		Creator:    c,
		InputLayer: anynet.NewFC(c, inSize, stateSize),
		StateLayer: anynet.NewFC(c, stateSize, stateSize),
		StateSize:  stateSize,
	}
}

func (e *Elman) OutputFields() []string {
	return []string{"hidden", "input"}
}

func (e *Elman) IgnoreFields() []string {
	return []string{"input"}
}

// Prepare derives the initial hidden state, using the
// bridge if it implements Bridge and zeros otherwise.
func (e *Elman) Prepare(enc seqdecode.EncoderOutput, bridge seqdecode.Bridge,
	fb seqdecode.Feedback) (seqdecode.State, seqdecode.Params) {
	_, symbols := fb.InitSymbols()
	lanes := len(symbols) / fb.BeamSize()
	var vec anyvec.Vector
	if b, ok := bridge.(Bridge); ok {
		vec = b.InitialState(enc, lanes, e.StateSize)
	} else {
		vec = e.Creator.MakeVector(lanes * e.StateSize)
	}
	return &VecState{Vector: vec, Lanes: lanes}, nil
}

func (e *Elman) Step(in anyvec.Vector, s seqdecode.State,
	p seqdecode.Params) (seqdecode.Output, seqdecode.State) {
	st := s.(*VecState)
	n := st.Lanes
	sum := anydiff.Add(
		e.InputLayer.Apply(anydiff.NewConst(in), n),
		e.StateLayer.Apply(anydiff.NewConst(st.Vector), n),
	)
	hidden := anydiff.Tanh(sum).Output()
	out := seqdecode.Output{"hidden": hidden, "input": in}
	return out, &VecState{Vector: hidden, Lanes: n}
}

func (e *Elman) MergeTopFeatures(out seqdecode.Output) anyvec.Vector {
	return out["hidden"]
}
