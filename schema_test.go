package seqdecode

import (
	"reflect"
	"testing"

	"github.com/unixpickle/anyvec/anyvec64"
)

func TestSchemaFilterRetained(t *testing.T) {
	fields := []string{"hidden", "attention", "input"}
	ignore := []string{"input"}

	inferFilter := newOutputFilter(Infer, fields, ignore)
	if !reflect.DeepEqual(inferFilter.Fields(), []string{"hidden", "attention"}) {
		t.Errorf("unexpected retained fields: %v", inferFilter.Fields())
	}

	// Filtering is a memory-saving measure for
	// inference; training keeps everything.
	trainFilter := newOutputFilter(Train, fields, ignore)
	if !reflect.DeepEqual(trainFilter.Fields(), fields) {
		t.Errorf("unexpected retained fields: %v", trainFilter.Fields())
	}
}

func TestSchemaFilterIdempotent(t *testing.T) {
	fields := []string{"hidden", "input"}
	filter := newOutputFilter(Infer, fields, []string{"input"})

	c := anyvec64.DefaultCreator{}
	out := Output{
		"hidden": c.MakeVector(3),
		"input":  c.MakeVector(3),
	}
	once := filter.Apply(out)
	if len(once) != 1 || once["hidden"] == nil {
		t.Fatalf("unexpected filtered record: %v", once)
	}

	again := newOutputFilter(Infer, fields, []string{"input"})
	if !reflect.DeepEqual(filter.Fields(), again.Fields()) {
		t.Error("retained set is not stable")
	}
}

func TestSchemaFilterViolations(t *testing.T) {
	c := anyvec64.DefaultCreator{}

	mustPanic(t, func() {
		newOutputFilter(Infer, []string{"hidden"}, []string{"bogus"})
	})
	mustPanic(t, func() {
		newOutputFilter(Train, []string{"hidden", "hidden"}, nil)
	})

	filter := newOutputFilter(Infer, []string{"hidden", "input"}, nil)
	mustPanic(t, func() {
		filter.Apply(Output{"hidden": c.MakeVector(3)})
	})
	mustPanic(t, func() {
		filter.Apply(Output{
			"hidden": c.MakeVector(3),
			"bogus":  c.MakeVector(3),
		})
	})
}
