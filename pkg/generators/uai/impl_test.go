package uai

import (
	"errors"
	"math/rand/v2"
	"regexp"
	"testing"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

func TestUAIWithRoot(t *testing.T) {
	g := New(generators.Deps{})
	params := synthgen.Params{"root": "029"}
	pattern := regexp.MustCompile(`^029[0-9]{4}[A-Z]$`)
	call := &synthgen.Call{Params: params, Rand: rand.New(rand.NewPCG(29, 29))}

	seen := make(map[string]bool)
	for i := 1; i <= 3; i++ {
		call.Iteration = i
		e, err := g.Generate(call)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		code := e.String("uai")
		if !pattern.MatchString(code) {
			t.Errorf("Code %q does not match %s", code, pattern)
		}
		seen[code] = true
	}
	if len(seen) != 3 {
		t.Errorf("Expected 3 distinct codes, got %v", seen)
	}

	if got := g.Capacity(params); got != 10000*26 {
		t.Errorf("Capacity = %d, want %d", got, 10000*26)
	}
	if got := g.PartitionKey(params); got != "029" {
		t.Errorf("PartitionKey = %q", got)
	}
}

func TestUAIDefaultRoot(t *testing.T) {
	g := New(generators.Deps{})
	e, err := g.Generate(&synthgen.Call{Params: synthgen.Params{}, Rand: rand.New(rand.NewPCG(1, 2))})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !regexp.MustCompile(`^035[0-9]{4}[A-Z]$`).MatchString(e.String("uai")) {
		t.Errorf("Unexpected code %q", e.String("uai"))
	}
	if g.PartitionKey(synthgen.Params{}) != DefaultRoot {
		t.Errorf("Expected default root partition")
	}
}

func TestUAIValidate(t *testing.T) {
	g := New(generators.Deps{})
	for _, r := range []string{"03A", "1234567", "-1"} {
		if err := g.Validate(synthgen.Params{"root": r}); !errors.Is(err, synthgen.ErrInvalidParameter) {
			t.Errorf("root %q: expected ErrInvalidParameter, got %v", r, err)
		}
	}
}
