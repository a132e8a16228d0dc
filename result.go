package seqdecode

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

// A Result holds the finalized outputs of a decode.
type Result struct {
	// Mode is the mode the decode ran in.
	Mode Mode

	// Lanes is the constant lane count of the decode.
	Lanes int

	// NumSteps is the number of executed steps.
	NumSteps int

	// FieldNames lists the retained output fields in
	// declaration order.
	FieldNames []string

	// Fields maps every retained field to its
	// accumulated vectors, ordered by time.
	// Every entry has exactly NumSteps vectors.
	Fields map[string][]anyvec.Vector

	// Logits holds the per-step vocabulary logits,
	// packed time-major, for Train and Eval decodes.
	Logits anyvec.Vector

	// Status holds the per-step beam search status for
	// Infer decodes.
	Status []*SearchStep

	creator anyvec.Creator
}

// Field returns the accumulated vectors of a retained
// field.
// It panics if the field was not retained.
func (r *Result) Field(name string) []anyvec.Vector {
	res, ok := r.Fields[name]
	if !ok {
		panic("no such output field: " + name)
	}
	return res
}

// FieldSeq exposes a retained field as an anyseq.Seq
// with every lane present, for consumers that operate on
// batched sequences.
func (r *Result) FieldSeq(name string) anyseq.Seq {
	vecs := r.Field(name)
	present := make([]bool, r.Lanes)
	for i := range present {
		present[i] = true
	}
	batches := make([]*anyseq.ResBatch, len(vecs))
	for t, v := range vecs {
		batches[t] = &anyseq.ResBatch{
			Packed:  anydiff.NewConst(v),
			Present: present,
		}
	}
	return anyseq.ResSeq(r.creator, batches)
}
