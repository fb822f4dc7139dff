package identity

import (
	"strings"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
	"pkg.jsn.cam/synthgen/pkg/synthgen/dictionary"
)

const (
	ParamGender = "gender"

	Male   = "M"
	Female = "F"

	// AnyGender is the partition of requests that let the gender be drawn.
	AnyGender = "ANY"
)

// IdentityGenerator draws a first name, last name and gender from the
// reference dictionaries.
type IdentityGenerator struct {
	dicts dictionary.Dictionaries
}

func New(deps generators.Deps) generators.Generator {
	return IdentityGenerator{dicts: deps.Dictionaries}
}

func (IdentityGenerator) Kind() synthgen.Kind { return synthgen.KindIdentity }

func (IdentityGenerator) Description() string {
	return "Person identity (firstName, lastName, gender); gender M or F, drawn when absent"
}

func gender(p synthgen.Params) (string, error) {
	g, ok := p.String(ParamGender)
	if !ok {
		return "", nil
	}
	switch g = strings.ToUpper(g); g {
	case Male, Female:
		return g, nil
	}
	return "", synthgen.Invalid(ParamGender, "must be %s or %s, got %q", Male, Female, g)
}

func pool(g string) dictionary.ElementKind {
	if g == Female {
		return dictionary.FirstNameFemale
	}
	return dictionary.FirstNameMale
}

func (IdentityGenerator) Validate(p synthgen.Params) error {
	_, err := gender(p)
	return generators.Wrap(synthgen.KindIdentity, err)
}

func (g IdentityGenerator) Generate(call *synthgen.Call) (*synthgen.Entity, error) {
	gen, err := gender(call.Params)
	if err != nil {
		return nil, err
	}
	if gen == "" {
		// Weighted by pool size so every (first, last) pair is equally likely.
		male := g.dicts.Size(dictionary.FirstNameMale)
		gen = Male
		if call.Rand.IntN(max(1, male+g.dicts.Size(dictionary.FirstNameFemale))) >= male {
			gen = Female
		}
	}

	first, err := generators.Pick(call.Rand, g.dicts, pool(gen))
	if err != nil {
		return nil, err
	}
	last, err := generators.Pick(call.Rand, g.dicts, dictionary.LastName)
	if err != nil {
		return nil, err
	}

	return synthgen.NewEntity(map[string]any{
		"firstName": first.Value,
		"lastName":  last.Value,
		"gender":    gen,
	})
}

func (g IdentityGenerator) Capacity(p synthgen.Params) int64 {
	gen, err := gender(p)
	if err != nil {
		return 0
	}
	var firsts int
	if gen == "" {
		firsts = g.dicts.Size(dictionary.FirstNameMale) + g.dicts.Size(dictionary.FirstNameFemale)
	} else {
		firsts = g.dicts.Size(pool(gen))
	}
	return generators.Mul(int64(firsts), int64(g.dicts.Size(dictionary.LastName)))
}

func (IdentityGenerator) PartitionKey(p synthgen.Params) string {
	gen, err := gender(p)
	if err != nil {
		return ""
	}
	if gen == "" {
		return AnyGender
	}
	return gen
}

func (IdentityGenerator) Revoke(*synthgen.Entity) error { return nil }
