// Package seqdecode implements the sequential decoding
// loop of a sequence-to-sequence model: it repeatedly
// steps an architecture-specific transition function,
// accumulates the per-step outputs, and (during
// inference) performs the bookkeeping for beam search.
//
// The loop itself is architecture-agnostic.
// The decoder cell, the symbol embedding/projection
// layers, and the symbol sampling policy are supplied
// through the Transition, Modality and Feedback
// interfaces.
// Concrete RNN transitions are provided by the seqrnn
// sub-package, but those are not the only possible
// implementations.
//
// All per-lane data is packed lane-major into a single
// anyvec.Vector, the same layout as a packed
// anyseq.Batch.
// A lane is one sequence during training or evaluation,
// and one (sequence, beam) pair during inference.
package seqdecode

import "github.com/unixpickle/anyvec"

// An EncoderOutput is an opaque encoded source
// representation, produced by an encoder and consumed
// only by a Transition's Prepare method.
type EncoderOutput interface{}

// A Bridge is an opaque value that a Transition may use
// to derive its initial state from an EncoderOutput.
// Transitions that own their initial state may ignore it.
type Bridge interface{}

// An Output holds the tensors produced by one transition
// step, keyed by the field names the Transition declares.
// Every field is a packed lane-major vector.
type Output map[string]anyvec.Vector

// A State is the carried decoder state between steps.
//
// The decoding loop owns the state exclusively: a
// Transition receives it for a single step and must
// produce a fresh value rather than mutate it.
//
// The loop only manipulates states through the two lane
// operations below; everything else about a state is
// opaque and architecture-defined.
type State interface {
	// Stack replicates every lane beamSize times, so
	// that lane i of the receiver becomes lanes
	// i*beamSize through i*beamSize+beamSize-1 of the
	// result.
	Stack(beamSize int) State

	// Gather produces a state whose lane i is lane
	// parents[i] of the receiver.
	// An out-of-range parent is a contract violation
	// and must trigger a panic.
	Gather(parents []int) State
}

// Params holds side context computed once by Prepare
// (attention memory, for example) and read for the rest
// of the decode.
// No lane may mutate it after Prepare returns.
type Params interface {
	// Stack replicates every lane beamSize times, in the
	// same order as State.Stack.
	Stack(beamSize int) Params
}

// A Transition is the architecture-specific per-step
// decoder function driven by the loop.
type Transition interface {
	// OutputFields declares the field names of the
	// records produced by Step.
	OutputFields() []string

	// IgnoreFields names declared fields that should not
	// be accumulated during inference, to save memory.
	// It may return nil.
	IgnoreFields() []string

	// Prepare derives the initial state and the
	// read-only side params.
	// The params may be nil for architectures with no
	// side context.
	//
	// During inference the loop stacks both results
	// across beam lanes, so Prepare should size them for
	// the raw batch, not batch times beam.
	Prepare(enc EncoderOutput, bridge Bridge, fb Feedback) (State, Params)

	// Step decodes one timestep.
	// The returned Output must contain exactly the
	// declared fields, and the new state must have the
	// same lane count as the old one.
	Step(in anyvec.Vector, s State, p Params) (Output, State)

	// MergeTopFeatures merges an Output's top-layer
	// features into a single packed feature vector, the
	// input of the vocabulary projection.
	MergeTopFeatures(out Output) anyvec.Vector
}

// An InputProcessor is a Transition that transforms the
// input vector around each step.
// Transitions that do not implement it get pass-through
// behavior.
type InputProcessor interface {
	// PreprocessInput transforms the input right before
	// it is passed to Step.
	PreprocessInput(time int, in anyvec.Vector) anyvec.Vector

	// PostprocessInput transforms the embedded symbols
	// for the next step.
	// The prev argument is the (preprocessed, and during
	// inference beam-reordered) input that produced the
	// current step; it is nil for the first step.
	PostprocessInput(prev, next anyvec.Vector) anyvec.Vector
}

// A Feedback supplies input symbols to the loop and, for
// inference, samples next symbols from logits.
//
// The loop terminates only once every lane is finished,
// so a Feedback used for inference must guarantee
// eventual termination, typically by force-finishing all
// lanes at a maximum length.
// The loop imposes no cap of its own.
type Feedback interface {
	// BeamSize is the number of beam lanes per sequence.
	// It is 1 for non-beam decoding.
	BeamSize() int

	// InitSymbols produces the initial finished mask and
	// the start symbols, one entry per lane.
	// The loop calls it before the first step; it must
	// be repeatable.
	InitSymbols() (finished []bool, symbols []int)

	// SampleSymbols samples the next symbols from the
	// current step's logits.
	// It is only called during inference.
	//
	// The logits and logProbs arguments are packed
	// per-lane vectors; finished and lengths have one
	// entry per lane.
	// The returned beamIDs map every new lane to the
	// previous lane it descends from.
	// Log probabilities are opaque to the loop, so
	// sentinel values such as negative infinity pass
	// through untouched.
	SampleSymbols(logits, logProbs anyvec.Vector, finished []bool,
		lengths []int, time int) (sampleIDs, beamIDs []int,
		nextLogProbs anyvec.Vector, nextLengths []int)

	// NextSymbols produces the newly finished lanes and
	// the input symbols for time+1.
	// The sampleIDs argument is the result of
	// SampleSymbols during inference and nil otherwise.
	NextSymbols(time int, sampleIDs []int) (finished []bool, symbols []int)
}

// A Modality maps between symbols and vectors at the
// decoder's bottom and top.
type Modality interface {
	// Embed embeds one symbol per lane into a packed
	// vector.
	// It must produce an empty vector for zero lanes.
	Embed(symbols []int, time int) anyvec.Vector

	// Project maps packed top features to packed
	// per-lane vocabulary logits.
	Project(features anyvec.Vector) anyvec.Vector
}
