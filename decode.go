package seqdecode

import (
	"compress/flate"

	"github.com/unixpickle/anyvec"
)

// A Mode selects the behavior of the decoding loop.
type Mode int

const (
	// Train and Eval decode with teacher forcing: no
	// beam bookkeeping, and the decode produces logits
	// for every step.
	Train Mode = iota
	Eval

	// Infer decodes with sampling and beam bookkeeping
	// active.
	Infer
)

// Options holds performance knobs for the decoding loop.
// Neither knob affects the decoded output.
type Options struct {
	// StepSlack is a capacity hint for the per-step
	// accumulation tapes.
	StepSlack int

	// CompressOutputs stores accumulated outputs in
	// compressed form, trading time for memory on very
	// long sequences.
	CompressOutputs bool
}

func (o *Options) newTape() OutputTape {
	if o.CompressOutputs {
		return newCompressedTape(flate.DefaultCompression, o.StepSlack)
	}
	return newReferenceTape(o.StepSlack)
}

// Decode runs the decoding loop to completion.
//
// Prepare is called once and Step repeatedly on the
// Transition until the Feedback reports every lane
// finished.
// During inference the Feedback must eventually finish
// every lane or Decode will not return; see Feedback.
//
// Contract violations by the collaborators (schema
// mismatches, wrong lane counts, out-of-range parent
// beam indices) trigger panics.
func Decode(d Transition, enc EncoderOutput, bridge Bridge, fb Feedback,
	mod Modality, mode Mode, opts *Options) *Result {
	if opts == nil {
		opts = &Options{}
	}
	infer := mode == Infer

	finished, symbols := fb.InitSymbols()
	if len(finished) != len(symbols) {
		panic("mismatching finished mask and symbol count")
	}
	lanes := len(symbols)
	inputs := mod.Embed(symbols, 0)
	c := inputs.Creator()

	ip, _ := d.(InputProcessor)
	if ip != nil {
		inputs = ip.PostprocessInput(nil, inputs)
	}

	state, params := d.Prepare(enc, bridge, fb)
	if infer {
		beam := fb.BeamSize()
		state = state.Stack(beam)
		if params != nil {
			params = params.Stack(beam)
		}
	}

	filter := newOutputFilter(mode, d.OutputFields(), d.IgnoreFields())
	tapes := map[string]OutputTape{}
	for _, f := range filter.Fields() {
		tapes[f] = opts.newTape()
	}

	var status *statusTape
	var logProbs anyvec.Vector
	var lengths []int
	if infer {
		status = newStatusTape(opts.StepSlack)
		logProbs = c.MakeVector(lanes)
		lengths = make([]int, lanes)
	}

	time := 0
	for !allTrue(finished) {
		in := inputs
		if ip != nil {
			in = ip.PreprocessInput(time, in)
		}
		out, newState := d.Step(in, state, params)
		for f, v := range filter.Apply(out) {
			tapes[f].Write(time, v)
		}

		var sampleIDs []int
		prevInputs := in
		if infer {
			logits := mod.Project(d.MergeTopFeatures(out))
			var beamIDs, nextLengths []int
			var nextLogProbs anyvec.Vector
			sampleIDs, beamIDs, nextLogProbs, nextLengths =
				fb.SampleSymbols(logits, logProbs, finished, lengths, time)
			checkLaneCount(lanes, len(sampleIDs), len(beamIDs), len(nextLengths))
			CheckParents(lanes, beamIDs)

			// Both the new state and the input that
			// produced this step follow the chosen
			// parent lanes, so post-processing sees
			// values aligned with the new lane order.
			newState = newState.Gather(beamIDs)
			prevInputs = GatherLanes(prevInputs, lanes, beamIDs)

			status.Write(time, &SearchStep{
				LogProbs:     nextLogProbs,
				PredictedIDs: sampleIDs,
				BeamIDs:      beamIDs,
				Lengths:      nextLengths,
			})
			logProbs, lengths = nextLogProbs, nextLengths
		}

		nextFinished, nextSymbols := fb.NextSymbols(time, sampleIDs)
		checkLaneCount(lanes, len(nextFinished), len(nextSymbols))
		nextInputs := mod.Embed(nextSymbols, time+1)
		if ip != nil {
			nextInputs = ip.PostprocessInput(prevInputs, nextInputs)
		}

		finished = orMasks(finished, nextFinished)
		state = newState
		inputs = nextInputs
		time++
	}

	res := &Result{
		Mode:       mode,
		Lanes:      lanes,
		NumSteps:   time,
		FieldNames: filter.Fields(),
		Fields:     map[string][]anyvec.Vector{},
		creator:    c,
	}
	for f, tape := range tapes {
		res.Fields[f] = tape.Finalize()
	}
	if infer {
		res.Status = status.Finalize()
	} else {
		res.Logits = batchedLogits(d, mod, res)
	}
	return res
}

// batchedLogits merges the top features of every step and
// projects them to logits in one batched call.
func batchedLogits(d Transition, mod Modality, r *Result) anyvec.Vector {
	if r.NumSteps == 0 {
		return r.creator.MakeVector(0)
	}
	feats := make([]anyvec.Vector, r.NumSteps)
	for t := range feats {
		rec := Output{}
		for _, f := range r.FieldNames {
			rec[f] = r.Fields[f][t]
		}
		feats[t] = d.MergeTopFeatures(rec)
	}
	return mod.Project(r.creator.Concat(feats...))
}

// orMasks combines newly finished lanes into the running
// mask, keeping the mask monotonic.
func orMasks(old, new []bool) []bool {
	res := make([]bool, len(old))
	for i, x := range old {
		res[i] = x || new[i]
	}
	return res
}

func allTrue(mask []bool) bool {
	for _, x := range mask {
		if !x {
			return false
		}
	}
	return true
}

func checkLaneCount(lanes int, counts ...int) {
	for _, n := range counts {
		if n != lanes {
			panic("feedback produced wrong lane count")
		}
	}
}
