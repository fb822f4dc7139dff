package unik

import (
	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

// UnikGenerator builds the upper-case LAST_FIRST identifier used by
// directory reconciliation.
type UnikGenerator struct {
	generators.Base
}

func New(generators.Deps) generators.Generator {
	return UnikGenerator{}
}

func (UnikGenerator) Kind() synthgen.Kind { return synthgen.KindUnik }

func (UnikGenerator) Description() string {
	return "Upper-case LAST_FIRST identifier from firstName and lastName"
}

func (UnikGenerator) Validate(p synthgen.Params) error {
	_, _, err := generators.Names(p)
	return generators.Wrap(synthgen.KindUnik, err)
}

func (UnikGenerator) Generate(call *synthgen.Call) (*synthgen.Entity, error) {
	first, last, err := generators.Names(call.Params)
	if err != nil {
		return nil, err
	}
	return synthgen.NewEntity(map[string]any{
		"unik": generators.Upper(last+"_"+first) + call.Suffix(),
	})
}
