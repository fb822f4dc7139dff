package uid

import (
	"errors"
	"testing"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

func TestUIDFormats(t *testing.T) {
	g := New(generators.Deps{})

	tests := []struct {
		name      string
		params    synthgen.Params
		iteration int
		want      string
	}{
		{"short", synthgen.Params{"firstName": "Yann", "lastName": "Le Cleac'h"}, 1, "ylecleac"},
		{"short retry", synthgen.Params{"firstName": "Yann", "lastName": "Le Cleac'h"}, 2, "ylecleac2"},
		{"short brief name", synthgen.Params{"firstName": "Élodie", "lastName": "Riou"}, 1, "eriou"},
		{"long", synthgen.Params{"firstName": "Jean", "lastName": "Quéré", "format": "long"}, 1, "jean.quere"},
		{"long retry", synthgen.Params{"firstName": "Jean", "lastName": "Quéré", "format": "LONG"}, 3, "jean.quere3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.Validate(tt.params); err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
			e, err := g.Generate(&synthgen.Call{Params: tt.params, Iteration: tt.iteration})
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if got := e.String("uid"); got != tt.want {
				t.Errorf("uid = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUIDRejectsUnknownFormat(t *testing.T) {
	g := New(generators.Deps{})
	err := g.Validate(synthgen.Params{"firstName": "a", "lastName": "b", "format": "MEDIUM"})

	var pe *synthgen.ParameterError
	if !errors.As(err, &pe) || pe.Param != ParamFormat {
		t.Errorf("Expected format ParameterError, got %v", err)
	}
}
