package seqdecode

import (
	"fmt"

	"github.com/unixpickle/anyvec"
)

// A SearchStep records the beam search status after one
// inference step.
type SearchStep struct {
	// LogProbs holds the accumulated log probability of
	// every lane's partial hypothesis.
	LogProbs anyvec.Vector

	// PredictedIDs holds the symbol chosen for every
	// lane at this step.
	PredictedIDs []int

	// BeamIDs maps every lane to the previous step's
	// lane it descends from.
	BeamIDs []int

	// Lengths holds the length of every lane's
	// hypothesis after this step.
	Lengths []int
}

// StackLanes replicates every lane of a packed vector
// beamSize times, so that lane i becomes lanes
// i*beamSize through i*beamSize+beamSize-1 of the result.
//
// The vector must contain lanes equally sized rows.
func StackLanes(v anyvec.Vector, lanes, beamSize int) anyvec.Vector {
	if beamSize == 1 {
		return v
	}
	if lanes == 0 {
		return v.Creator().MakeVector(0)
	}
	rows := make([]anyvec.Vector, 0, lanes*beamSize)
	for i := 0; i < lanes; i++ {
		start, end := laneRange(v, lanes, i)
		row := v.Slice(start, end)
		for j := 0; j < beamSize; j++ {
			rows = append(rows, row)
		}
	}
	return v.Creator().Concat(rows...)
}

// GatherLanes produces a packed vector whose lane i is
// lane parents[i] of v.
//
// A parent index outside [0, lanes) indicates a feedback
// policy bug and triggers a panic.
func GatherLanes(v anyvec.Vector, lanes int, parents []int) anyvec.Vector {
	CheckParents(lanes, parents)
	if len(parents) == 0 {
		return v.Creator().MakeVector(0)
	}
	rows := make([]anyvec.Vector, len(parents))
	for i, p := range parents {
		start, end := laneRange(v, lanes, p)
		rows[i] = v.Slice(start, end)
	}
	return v.Creator().Concat(rows...)
}

// CheckParents panics if any parent index is not a valid
// lane index.
func CheckParents(lanes int, parents []int) {
	for _, p := range parents {
		if p < 0 || p >= lanes {
			panic(fmt.Sprintf("parent beam index out of range: %d (lanes: %d)",
				p, lanes))
		}
	}
}

func laneRange(v anyvec.Vector, lanes, i int) (start, end int) {
	rowSize := v.Len() / lanes
	return i * rowSize, (i + 1) * rowSize
}
