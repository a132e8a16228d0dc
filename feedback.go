package seqdecode

import (
	"fmt"
	"math"
	"sort"

	"github.com/unixpickle/anyvec"
)

// A TrainingFeedback feeds ground-truth target symbols as
// next-step inputs regardless of the model's own
// predictions (teacher forcing).
// A lane finishes once its target sequence is exhausted.
type TrainingFeedback struct {
	// Start is the start-of-sequence symbol.
	Start int

	// Targets holds the ground-truth target sequence for
	// every lane.
	Targets [][]int
}

func (t *TrainingFeedback) BeamSize() int {
	return 1
}

func (t *TrainingFeedback) InitSymbols() ([]bool, []int) {
	finished := make([]bool, len(t.Targets))
	symbols := make([]int, len(t.Targets))
	for i, tgt := range t.Targets {
		finished[i] = len(tgt) == 0
		symbols[i] = t.Start
	}
	return finished, symbols
}

func (t *TrainingFeedback) SampleSymbols(logits, logProbs anyvec.Vector,
	finished []bool, lengths []int, time int) ([]int, []int, anyvec.Vector, []int) {
	panic("teacher forcing does not sample")
}

func (t *TrainingFeedback) NextSymbols(time int, sampleIDs []int) ([]bool, []int) {
	finished := make([]bool, len(t.Targets))
	symbols := make([]int, len(t.Targets))
	for i, tgt := range t.Targets {
		finished[i] = time+1 >= len(tgt)
		if time < len(tgt) {
			symbols[i] = tgt[time]
		} else {
			symbols[i] = t.Start
		}
	}
	return finished, symbols
}

// A GreedyFeedback samples the highest-probability symbol
// for every lane.
// A lane finishes when it samples End or reaches
// MaxLength.
type GreedyFeedback struct {
	// Batch is the number of lanes.
	Batch int

	// Start and End are the start-of-sequence and
	// terminal symbols.
	Start int
	End   int

	// MaxLength force-finishes every lane, guaranteeing
	// termination of the decoding loop.
	MaxLength int
}

func (g *GreedyFeedback) BeamSize() int {
	return 1
}

func (g *GreedyFeedback) InitSymbols() ([]bool, []int) {
	finished := make([]bool, g.Batch)
	symbols := make([]int, g.Batch)
	for i := range symbols {
		symbols[i] = g.Start
	}
	return finished, symbols
}

func (g *GreedyFeedback) SampleSymbols(logits, logProbs anyvec.Vector,
	finished []bool, lengths []int, time int) ([]int, []int, anyvec.Vector, []int) {
	lanes := len(finished)
	logitData := vecData(logits)
	lpData := vecData(logProbs)

	sampleIDs := make([]int, lanes)
	beamIDs := make([]int, lanes)
	nextLP := make([]float64, lanes)
	nextLengths := make([]int, lanes)
	for i := range sampleIDs {
		beamIDs[i] = i
		if finished[i] {
			sampleIDs[i] = g.End
			nextLP[i] = lpData[i]
			nextLengths[i] = lengths[i]
			continue
		}
		row := laneLogits(logitData, lanes, i)
		best := 0
		for v, x := range row {
			if x > row[best] {
				best = v
			}
		}
		sampleIDs[i] = best
		nextLP[i] = lpData[i] + row[best] - logSumExp(row)
		nextLengths[i] = lengths[i] + 1
	}
	return sampleIDs, beamIDs, floatsVector(logProbs.Creator(), nextLP), nextLengths
}

func (g *GreedyFeedback) NextSymbols(time int, sampleIDs []int) ([]bool, []int) {
	finished := make([]bool, g.Batch)
	symbols := make([]int, g.Batch)
	for i := range symbols {
		symbols[i] = sampleIDs[i]
		finished[i] = sampleIDs[i] == g.End || time+1 >= g.MaxLength
	}
	return finished, symbols
}

// A BeamFeedback is a reference beam search policy.
// Per sequence, it expands the beam-width best candidates
// over vocabulary times beam by cumulative log
// probability, optionally length normalized.
// A finished lane contributes exactly one continuation
// candidate at its current score.
//
// The decoding loop does not depend on this scoring rule;
// any Feedback can replace it.
type BeamFeedback struct {
	// Batch is the number of sequences; the lane count
	// is Batch times BeamWidth.
	Batch     int
	BeamWidth int

	// Start and End are the start-of-sequence and
	// terminal symbols.
	Start int
	End   int

	// MaxLength force-finishes every lane, guaranteeing
	// termination of the decoding loop.
	MaxLength int

	// LengthPenalty, when non-zero, ranks candidates by
	// score/length^LengthPenalty instead of raw score.
	LengthPenalty float64
}

type beamCandidate struct {
	parent int
	symbol int
	score  float64
	length int
}

func (b *BeamFeedback) BeamSize() int {
	return b.BeamWidth
}

func (b *BeamFeedback) InitSymbols() ([]bool, []int) {
	lanes := b.Batch * b.BeamWidth
	finished := make([]bool, lanes)
	symbols := make([]int, lanes)
	for i := range symbols {
		symbols[i] = b.Start
	}
	return finished, symbols
}

func (b *BeamFeedback) SampleSymbols(logits, logProbs anyvec.Vector,
	finished []bool, lengths []int, time int) ([]int, []int, anyvec.Vector, []int) {
	lanes := b.Batch * b.BeamWidth
	logitData := vecData(logits)
	lpData := vecData(logProbs)

	sampleIDs := make([]int, lanes)
	beamIDs := make([]int, lanes)
	nextLP := make([]float64, lanes)
	nextLengths := make([]int, lanes)
	for seq := 0; seq < b.Batch; seq++ {
		var cands []beamCandidate
		for w := 0; w < b.BeamWidth; w++ {
			lane := seq*b.BeamWidth + w
			if finished[lane] {
				cands = append(cands, beamCandidate{
					parent: lane,
					symbol: b.End,
					score:  lpData[lane],
					length: lengths[lane],
				})
				continue
			}
			if time == 0 && w != 0 {
				// All beams start out identical, so only
				// the first one contributes candidates.
				continue
			}
			row := laneLogits(logitData, lanes, lane)
			lse := logSumExp(row)
			for sym, x := range row {
				cands = append(cands, beamCandidate{
					parent: lane,
					symbol: sym,
					score:  lpData[lane] + x - lse,
					length: lengths[lane] + 1,
				})
			}
		}
		sort.SliceStable(cands, func(i, j int) bool {
			return b.rank(cands[i]) > b.rank(cands[j])
		})
		for w := 0; w < b.BeamWidth; w++ {
			idx := w
			if idx >= len(cands) {
				idx = len(cands) - 1
			}
			lane := seq*b.BeamWidth + w
			chosen := cands[idx]
			sampleIDs[lane] = chosen.symbol
			beamIDs[lane] = chosen.parent
			nextLP[lane] = chosen.score
			nextLengths[lane] = chosen.length
		}
	}
	return sampleIDs, beamIDs, floatsVector(logProbs.Creator(), nextLP), nextLengths
}

func (b *BeamFeedback) NextSymbols(time int, sampleIDs []int) ([]bool, []int) {
	lanes := b.Batch * b.BeamWidth
	finished := make([]bool, lanes)
	symbols := make([]int, lanes)
	for i := range symbols {
		symbols[i] = sampleIDs[i]
		finished[i] = sampleIDs[i] == b.End || time+1 >= b.MaxLength
	}
	return finished, symbols
}

func (b *BeamFeedback) rank(c beamCandidate) float64 {
	if b.LengthPenalty == 0 || c.length == 0 {
		return c.score
	}
	return c.score / math.Pow(float64(c.length), b.LengthPenalty)
}

func laneLogits(data []float64, lanes, lane int) []float64 {
	vocab := len(data) / lanes
	return data[lane*vocab : (lane+1)*vocab]
}

// logSumExp computes the log of the summed exponentials
// of a row, shifted for numeric stability.
func logSumExp(row []float64) float64 {
	max := math.Inf(-1)
	for _, x := range row {
		if x > max {
			max = x
		}
	}
	if math.IsInf(max, -1) {
		return max
	}
	var sum float64
	for _, x := range row {
		sum += math.Exp(x - max)
	}
	return max + math.Log(sum)
}

func vecData(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float64:
		return data
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	default:
		panic(fmt.Sprintf("unsupported anyvec.NumericList: %T", data))
	}
}

func floatsVector(c anyvec.Creator, data []float64) anyvec.Vector {
	return c.MakeVectorData(c.MakeNumericList(data))
}
