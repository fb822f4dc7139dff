// Package registry maps generator kinds to their constructors.
package registry

import (
	"fmt"
	"maps"
	"slices"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/generators/address"
	"pkg.jsn.cam/synthgen/pkg/generators/date"
	"pkg.jsn.cam/synthgen/pkg/generators/identity"
	"pkg.jsn.cam/synthgen/pkg/generators/image"
	"pkg.jsn.cam/synthgen/pkg/generators/integer"
	"pkg.jsn.cam/synthgen/pkg/generators/mail"
	"pkg.jsn.cam/synthgen/pkg/generators/password"
	"pkg.jsn.cam/synthgen/pkg/generators/uai"
	"pkg.jsn.cam/synthgen/pkg/generators/uid"
	"pkg.jsn.cam/synthgen/pkg/generators/unik"
	"pkg.jsn.cam/synthgen/pkg/generators/user"
	"pkg.jsn.cam/synthgen/pkg/generators/uuid"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

// Factory builds a generator from its dependencies.
type Factory func(generators.Deps) generators.Generator

// Generators is the built-in set of variants.
var Generators = map[synthgen.Kind]Factory{
	synthgen.KindAddress:  address.New,
	synthgen.KindDate:     date.New,
	synthgen.KindIdentity: identity.New,
	synthgen.KindPassword: password.New,
	synthgen.KindUID:      uid.New,
	synthgen.KindUUID:     uuid.New,
	synthgen.KindInteger:  integer.New,
	synthgen.KindUnik:     unik.New,
	synthgen.KindMail:     mail.New,
	synthgen.KindUAI:      uai.New,
	synthgen.KindImage:    image.New,
	synthgen.KindUser:     user.New,
}

// Registry resolves kinds to generators.
type Registry struct {
	factories map[synthgen.Kind]Factory
}

// New returns a registry over factories, or the built-in set when nil.
func New(factories map[synthgen.Kind]Factory) *Registry {
	if factories == nil {
		factories = Generators
	}
	return &Registry{factories: maps.Clone(factories)}
}

// IsValid reports whether kind has a constructor.
func (r *Registry) IsValid(kind synthgen.Kind) bool {
	_, ok := r.factories[kind]
	return ok
}

// Build constructs the generator for kind. Composite generators resolve their
// parts through the same registry.
func (r *Registry) Build(kind synthgen.Kind, deps generators.Deps) (generators.Generator, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", synthgen.ErrUnsupportedKind, kind)
	}
	if deps.Lookup == nil {
		deps.Lookup = func(k synthgen.Kind) (generators.Generator, error) {
			return r.Build(k, deps)
		}
	}
	return factory(deps), nil
}

// List returns the registered kinds, built-in kinds first in declaration
// order.
func (r *Registry) List() []synthgen.Kind {
	var kinds []synthgen.Kind
	for _, k := range synthgen.Kinds {
		if r.IsValid(k) {
			kinds = append(kinds, k)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(r.factories)) {
		if !slices.Contains(kinds, k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Description returns the human readable description of kind.
func (r *Registry) Description(kind synthgen.Kind) (string, error) {
	g, err := r.Build(kind, generators.Deps{})
	if err != nil {
		return "", err
	}
	return g.Description(), nil
}
