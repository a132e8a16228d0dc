package seqrnn

import (
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"

	"github.com/unixpickle/seqdecode"
)

// A BlockTransition adapts an anyrnn.Block (an LSTM, for
// example) as a seqdecode.Transition.
//
// Generic anyrnn states cannot be reordered across beam
// lanes, so a BlockTransition only supports teacher
// forcing and beam-1 inference; wider beams panic.
//
// The block owns its start state, so the bridge argument
// of Prepare is ignored.
type BlockTransition struct {
	Block anyrnn.Block
}

func (b *BlockTransition) OutputFields() []string {
	return []string{"output"}
}

func (b *BlockTransition) IgnoreFields() []string {
	return nil
}

func (b *BlockTransition) Prepare(enc seqdecode.EncoderOutput,
	bridge seqdecode.Bridge, fb seqdecode.Feedback) (seqdecode.State, seqdecode.Params) {
	_, symbols := fb.InitSymbols()
	lanes := len(symbols) / fb.BeamSize()
	return &blockState{state: b.Block.Start(lanes)}, nil
}

func (b *BlockTransition) Step(in anyvec.Vector, s seqdecode.State,
	p seqdecode.Params) (seqdecode.Output, seqdecode.State) {
	st := s.(*blockState)
	res := b.Block.Step(st.state, in)
	out := seqdecode.Output{"output": res.Output()}
	return out, &blockState{state: res.State()}
}

func (b *BlockTransition) MergeTopFeatures(out seqdecode.Output) anyvec.Vector {
	return out["output"]
}

type blockState struct {
	state anyrnn.State
}

func (b *blockState) Stack(beamSize int) seqdecode.State {
	if beamSize != 1 {
		panic("anyrnn states do not support beam stacking")
	}
	return b
}

func (b *blockState) Gather(parents []int) seqdecode.State {
	for i, p := range parents {
		if p != i {
			panic("anyrnn states do not support beam reordering")
		}
	}
	return b
}
