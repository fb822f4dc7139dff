package integer

import (
	"errors"
	"math/rand/v2"
	"testing"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

func TestIntegerValidate(t *testing.T) {
	g := New(generators.Deps{})

	tests := []struct {
		name    string
		params  synthgen.Params
		wantErr bool
	}{
		{"max only", synthgen.Params{"maxValue": 10}, false},
		{"both", synthgen.Params{"minValue": "2", "maxValue": "5"}, false},
		{"equal", synthgen.Params{"minValue": 3, "maxValue": 3}, false},
		{"missing max", synthgen.Params{"minValue": 3}, true},
		{"min above max", synthgen.Params{"minValue": 5, "maxValue": 2}, true},
		{"not a number", synthgen.Params{"maxValue": "ten"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Validate(tt.params)
			if tt.wantErr != (err != nil) {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, synthgen.ErrInvalidParameter) {
				t.Errorf("Expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestIntegerGenerate(t *testing.T) {
	g := New(generators.Deps{})
	params := synthgen.Params{"minValue": 2, "maxValue": 5}
	call := &synthgen.Call{Params: params, Rand: rand.New(rand.NewPCG(7, 7))}

	seen := make(map[string]bool)
	for i := 1; i <= 200; i++ {
		call.Iteration = i
		e, err := g.Generate(call)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		v := e.String("value")
		if v < "2" || v > "5" || len(v) != 1 {
			t.Fatalf("Value %q out of [2, 5]", v)
		}
		seen[v] = true
	}
	if len(seen) != 4 {
		t.Errorf("Expected 4 distinct values, got %d", len(seen))
	}

	if got := g.Capacity(params); got != 4 {
		t.Errorf("Capacity = %d, want 4", got)
	}
	if got := g.PartitionKey(params); got != "[2-5]" {
		t.Errorf("PartitionKey = %q, want [2-5]", got)
	}
}
