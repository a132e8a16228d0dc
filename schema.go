package seqdecode

import "fmt"

// An outputFilter knows which declared output fields are
// retained for accumulation.
// The retained set is computed once per decode; filtering
// only drops fields during inference, matching the
// memory-saving intent of Transition.IgnoreFields.
type outputFilter struct {
	declared []string
	retained []string
	drop     map[string]bool
}

func newOutputFilter(mode Mode, fields, ignore []string) *outputFilter {
	declared := map[string]bool{}
	for _, f := range fields {
		if declared[f] {
			panic("duplicate output field: " + f)
		}
		declared[f] = true
	}
	drop := map[string]bool{}
	if mode == Infer {
		for _, f := range ignore {
			if !declared[f] {
				panic("ignored field not in output schema: " + f)
			}
			drop[f] = true
		}
	}
	res := &outputFilter{declared: fields, drop: drop}
	for _, f := range fields {
		if !drop[f] {
			res.retained = append(res.retained, f)
		}
	}
	return res
}

// Fields returns the retained field names in declaration
// order.
func (o *outputFilter) Fields() []string {
	return o.retained
}

// Apply checks a step record against the declared schema
// and returns the retained subset.
// A record with missing or undeclared fields indicates a
// Transition bug.
func (o *outputFilter) Apply(out Output) Output {
	if len(out) != len(o.declared) {
		panic(fmt.Sprintf("output record has %d fields (schema declares %d)",
			len(out), len(o.declared)))
	}
	res := Output{}
	for _, f := range o.declared {
		v, ok := out[f]
		if !ok {
			panic("output record missing field: " + f)
		}
		if !o.drop[f] {
			res[f] = v
		}
	}
	return res
}
