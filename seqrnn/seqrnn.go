// Package seqrnn provides recurrent transition
// implementations for the seqdecode loop.
package seqrnn

import (
	"github.com/unixpickle/anyvec"

	"github.com/unixpickle/seqdecode"
)

// A VecState is a decoder state backed by a single packed
// lane-major vector.
// It supports full beam stacking and reordering.
type VecState struct {
	Vector anyvec.Vector
	Lanes  int
}

func (v *VecState) Stack(beamSize int) seqdecode.State {
	return &VecState{
		Vector: seqdecode.StackLanes(v.Vector, v.Lanes, beamSize),
		Lanes:  v.Lanes * beamSize,
	}
}

func (v *VecState) Gather(parents []int) seqdecode.State {
	return &VecState{
		Vector: seqdecode.GatherLanes(v.Vector, v.Lanes, parents),
		Lanes:  len(parents),
	}
}

// A Bridge derives initial recurrent state vectors from
// an encoder output.
type Bridge interface {
	InitialState(enc seqdecode.EncoderOutput, lanes, stateSize int) anyvec.Vector
}

// A ZeroBridge initializes recurrent states to zero,
// ignoring the encoder output.
type ZeroBridge struct {
	Creator anyvec.Creator
}

func (z *ZeroBridge) InitialState(enc seqdecode.EncoderOutput, lanes,
	stateSize int) anyvec.Vector {
	return z.Creator.MakeVector(lanes * stateSize)
}
