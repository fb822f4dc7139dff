package registry

import (
	"errors"
	"testing"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
	"pkg.jsn.cam/synthgen/pkg/synthgen/dictionary"
)

func TestEveryKindIsRegistered(t *testing.T) {
	r := New(nil)
	deps := generators.Deps{Dictionaries: dictionary.Default()}

	for _, kind := range synthgen.Kinds {
		g, err := r.Build(kind, deps)
		if err != nil {
			t.Fatalf("Build(%s) failed: %v", kind, err)
		}
		if g.Kind() != kind {
			t.Errorf("Build(%s) returned a %s generator", kind, g.Kind())
		}
		if desc, err := r.Description(kind); err != nil || desc == "" {
			t.Errorf("Description(%s) = %q, %v", kind, desc, err)
		}
	}

	if got := r.List(); len(got) != len(synthgen.Kinds) || got[0] != synthgen.Kinds[0] {
		t.Errorf("List() = %v", got)
	}
}

func TestBuildUnknownKind(t *testing.T) {
	r := New(map[synthgen.Kind]Factory{})
	if _, err := r.Build(synthgen.KindMail, generators.Deps{}); !errors.Is(err, synthgen.ErrUnsupportedKind) {
		t.Errorf("Expected ErrUnsupportedKind, got %v", err)
	}
	if r.IsValid(synthgen.KindMail) {
		t.Error("Expected empty registry to reject MAIL")
	}
}

func TestNewCopiesFactories(t *testing.T) {
	custom := map[synthgen.Kind]Factory{synthgen.KindMail: Generators[synthgen.KindMail]}
	r := New(custom)
	delete(custom, synthgen.KindMail)

	if !r.IsValid(synthgen.KindMail) {
		t.Error("Registry must not observe later changes to the input map")
	}
}
