package user

import (
	"errors"
	"math/rand/v2"
	"testing"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/generators/identity"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
	"pkg.jsn.cam/synthgen/pkg/synthgen/dictionary"
)

func TestUserMergesIdentityAndAddress(t *testing.T) {
	deps := generators.Deps{Dictionaries: dictionary.Default()}
	g := New(deps)
	params := synthgen.Params{"gender": "M"}

	e, err := g.Generate(&synthgen.Call{Params: params, Iteration: 1, Rand: rand.New(rand.NewPCG(10, 20))})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for _, key := range []string{"firstName", "lastName", "gender", "postalCode", "city"} {
		if e.String(key) == "" {
			t.Errorf("Expected %q in merged payload %v", key, e.Payload)
		}
	}
	if _, ok := e.Payload["street"]; !ok {
		t.Errorf("Expected street in merged payload")
	}

	// Same seed, identity only: the user hash must be the identity hash.
	who, err := identity.New(deps).Generate(&synthgen.Call{Params: params, Iteration: 1, Rand: rand.New(rand.NewPCG(10, 20))})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if e.Hash != who.Hash {
		t.Errorf("Expected identity hash %s, got %s", who.Hash, e.Hash)
	}

	ident := identity.New(deps)
	if g.Capacity(params) != ident.Capacity(params) || g.PartitionKey(params) != ident.PartitionKey(params) {
		t.Error("Expected capacity and partition to follow the identity")
	}
}

func TestUserUsesLookup(t *testing.T) {
	var asked []synthgen.Kind
	deps := generators.Deps{Dictionaries: dictionary.Default()}
	deps.Lookup = func(kind synthgen.Kind) (generators.Generator, error) {
		asked = append(asked, kind)
		return identity.New(deps), nil
	}

	New(deps)
	if len(asked) != 2 || asked[0] != synthgen.KindIdentity || asked[1] != synthgen.KindAddress {
		t.Errorf("Expected identity and address lookups, got %v", asked)
	}
}

func TestUserValidatesIdentityParams(t *testing.T) {
	g := New(generators.Deps{Dictionaries: dictionary.Default()})
	if err := g.Validate(synthgen.Params{"gender": "unknown"}); !errors.Is(err, synthgen.ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter, got %v", err)
	}
}
