package user

import (
	"errors"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/generators/address"
	"pkg.jsn.cam/synthgen/pkg/generators/identity"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

// UserGenerator composes an identity and an address into one record. The
// identity drives uniqueness: the merged entity carries the identity hash,
// capacity and partition.
type UserGenerator struct {
	identity generators.Generator
	address  generators.Generator
}

func New(deps generators.Deps) generators.Generator {
	resolve := func(kind synthgen.Kind, fallback func(generators.Deps) generators.Generator) generators.Generator {
		if deps.Lookup != nil {
			if g, err := deps.Lookup(kind); err == nil {
				return g
			}
		}
		return fallback(deps)
	}
	return UserGenerator{
		identity: resolve(synthgen.KindIdentity, identity.New),
		address:  resolve(synthgen.KindAddress, address.New),
	}
}

func (UserGenerator) Kind() synthgen.Kind { return synthgen.KindUser }

func (UserGenerator) Description() string {
	return "Identity and address merged into one user record"
}

func (g UserGenerator) Validate(p synthgen.Params) error {
	if err := g.identity.Validate(p); err != nil {
		return err
	}
	return g.address.Validate(p)
}

func (g UserGenerator) Generate(call *synthgen.Call) (*synthgen.Entity, error) {
	who, err := g.identity.Generate(call)
	if err != nil {
		return nil, err
	}
	where, err := g.address.Generate(call)
	if err != nil {
		return nil, err
	}
	merged, err := synthgen.Merge(who, where)
	if err != nil {
		return nil, err
	}
	return merged.WithHash(who.Hash), nil
}

func (g UserGenerator) Capacity(p synthgen.Params) int64 {
	return g.identity.Capacity(p)
}

func (g UserGenerator) PartitionKey(p synthgen.Params) string {
	return g.identity.PartitionKey(p)
}

func (g UserGenerator) Revoke(e *synthgen.Entity) error {
	return errors.Join(g.identity.Revoke(e), g.address.Revoke(e))
}
