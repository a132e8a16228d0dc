package seqdecode

import (
	"reflect"
	"testing"

	"github.com/unixpickle/anyvec/anyvec64"
)

func TestStackLanes(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	v := floatsVector(c, []float64{1, 2, 3, 4})

	stacked := StackLanes(v, 2, 3)
	assertVec(t, stacked, 1, 2, 1, 2, 1, 2, 3, 4, 3, 4, 3, 4)

	if StackLanes(v, 2, 1) != v {
		t.Error("beam size 1 should be a no-op")
	}

	empty := StackLanes(c.MakeVector(0), 0, 3)
	if empty.Len() != 0 {
		t.Error("expected empty result")
	}
}

func TestGatherLanes(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	v := floatsVector(c, []float64{1, 2, 3, 4})

	swapped := GatherLanes(v, 2, []int{1, 0})
	assertVec(t, swapped, 3, 4, 1, 2)

	// Pruning keeps lane 1 twice, dropping lane 0.
	pruned := GatherLanes(v, 2, []int{1, 1})
	assertVec(t, pruned, 3, 4, 3, 4)

	empty := GatherLanes(c.MakeVector(0), 0, nil)
	if empty.Len() != 0 {
		t.Error("expected empty result")
	}
}

func TestGatherLanesOutOfRange(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	v := floatsVector(c, []float64{1, 2})

	mustPanic(t, func() {
		GatherLanes(v, 2, []int{0, 2})
	})
	mustPanic(t, func() {
		GatherLanes(v, 2, []int{-1, 0})
	})
}

func TestHypotheses(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	status := []*SearchStep{
		{
			LogProbs:     c.MakeVector(2),
			PredictedIDs: []int{10, 20},
			BeamIDs:      []int{0, 0},
			Lengths:      []int{1, 1},
		},
		{
			LogProbs:     c.MakeVector(2),
			PredictedIDs: []int{30, 40},
			BeamIDs:      []int{1, 0},
			Lengths:      []int{2, 2},
		},
	}

	hyps := Hypotheses(status)
	expected := [][]int{{20, 30}, {10, 40}}
	if !reflect.DeepEqual(hyps, expected) {
		t.Errorf("expected %v but got %v", expected, hyps)
	}

	if Hypotheses(nil) != nil {
		t.Error("expected nil for empty status")
	}
}

func TestHypothesesTruncation(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	// Lane 1 finished after a single step and then only
	// produced padding.
	status := []*SearchStep{
		{
			LogProbs:     c.MakeVector(2),
			PredictedIDs: []int{10, 0},
			BeamIDs:      []int{0, 1},
			Lengths:      []int{1, 1},
		},
		{
			LogProbs:     c.MakeVector(2),
			PredictedIDs: []int{30, 0},
			BeamIDs:      []int{0, 1},
			Lengths:      []int{2, 1},
		},
	}

	hyps := Hypotheses(status)
	expected := [][]int{{10, 30}, {0}}
	if !reflect.DeepEqual(hyps, expected) {
		t.Errorf("expected %v but got %v", expected, hyps)
	}
}
