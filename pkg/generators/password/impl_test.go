package password

import (
	"bytes"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

func TestPasswordGenerate(t *testing.T) {
	g := New(generators.Deps{})
	params := synthgen.Params{"length": 12, "symbols": "digits, lowercase"}
	call := &synthgen.Call{Params: params, Rand: rand.New(rand.NewPCG(5, 9))}

	for i := 1; i <= 50; i++ {
		call.Iteration = i
		e, err := g.Generate(call)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		pw := e.String("password")
		if len(pw) != 12 {
			t.Fatalf("Expected length 12, got %q", pw)
		}
		if strings.Trim(pw, classes["DIGITS"]+classes["LOWERCASE"]) != "" {
			t.Fatalf("Password %q uses unselected classes", pw)
		}
	}
}

func TestPasswordPartitionAndCapacity(t *testing.T) {
	g := New(generators.Deps{})

	params := synthgen.Params{"length": "4", "symbols": "UPPERCASE,digits,UPPERCASE"}
	if got := g.PartitionKey(params); got != "DIGITS,UPPERCASE:4" {
		t.Errorf("PartitionKey = %q", got)
	}
	if got := g.Capacity(params); got != 26*26*26*26 {
		t.Errorf("Capacity = %d, want %d", got, 26*26*26*26)
	}

	all := synthgen.Params{"length": 2}
	if got := g.PartitionKey(all); got != "DIGITS,LOWERCASE,SPECIALS,UPPERCASE:2" {
		t.Errorf("Expected every class by default, got %q", got)
	}
	if got := g.Capacity(all); got != int64(len(classes["SPECIALS"])*len(classes["SPECIALS"])) {
		t.Errorf("Expected the longest class to drive capacity, got %d", got)
	}
}

func TestPasswordUnknownSymbolsWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	g := New(generators.Deps{Logger: logger})

	params := synthgen.Params{"length": 3, "symbols": "digits,emoji"}
	if err := g.Validate(params); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !strings.Contains(buf.String(), "EMOJI") {
		t.Errorf("Expected a warning naming the unknown class, got %q", buf.String())
	}
	if got := g.PartitionKey(params); got != "DIGITS:3" {
		t.Errorf("PartitionKey = %q", got)
	}
}

func TestPasswordValidate(t *testing.T) {
	g := New(generators.Deps{})

	for _, params := range []synthgen.Params{
		{},
		{"length": 0},
		{"length": -3},
		{"length": maxLength + 1},
	} {
		if err := g.Validate(params); !errors.Is(err, synthgen.ErrInvalidParameter) {
			t.Errorf("Validate(%v) = %v, want ErrInvalidParameter", params, err)
		}
	}
}
