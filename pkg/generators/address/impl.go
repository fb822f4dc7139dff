package address

import (
	"fmt"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
	"pkg.jsn.cam/synthgen/pkg/synthgen/dictionary"
)

const (
	Partition = "ADDRESS"

	maxStreetNumber = 999
)

// AddressGenerator draws postal addresses from the reference dictionaries.
type AddressGenerator struct {
	generators.Base
	dicts dictionary.Dictionaries
}

func New(deps generators.Deps) generators.Generator {
	return AddressGenerator{dicts: deps.Dictionaries}
}

func (AddressGenerator) Kind() synthgen.Kind { return synthgen.KindAddress }

func (AddressGenerator) Description() string {
	return "Postal address: street number, type and name, postal code and city"
}

func (AddressGenerator) Validate(synthgen.Params) error { return nil }

func (g AddressGenerator) Generate(call *synthgen.Call) (*synthgen.Entity, error) {
	streetType, err := generators.Pick(call.Rand, g.dicts, dictionary.StreetType)
	if err != nil {
		return nil, err
	}
	streetName, err := generators.Pick(call.Rand, g.dicts, dictionary.StreetName)
	if err != nil {
		return nil, err
	}
	city, err := generators.Pick(call.Rand, g.dicts, dictionary.City)
	if err != nil {
		return nil, err
	}
	postal := generators.Between(call.Rand, int64(city.PostalFrom), int64(city.PostalTo))

	return synthgen.NewEntity(map[string]any{
		"street": map[string]any{
			"number": 1 + call.Rand.IntN(maxStreetNumber),
			"type":   streetType.Value,
			"name":   streetName.Value,
		},
		"postalCode": fmt.Sprintf("%05d", postal),
		"city":       city.Value,
	})
}

func (g AddressGenerator) Capacity(synthgen.Params) int64 {
	c := int64(maxStreetNumber)
	for _, kind := range []dictionary.ElementKind{dictionary.StreetType, dictionary.StreetName, dictionary.City} {
		c = generators.Mul(c, int64(g.dicts.Size(kind)))
	}
	return c
}

func (AddressGenerator) PartitionKey(synthgen.Params) string { return Partition }
