package integer

import (
	"fmt"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

const (
	ParamMin = "minValue"
	ParamMax = "maxValue"
)

// IntegerGenerator draws integers uniformly between minValue and maxValue.
type IntegerGenerator struct {
	generators.Base
}

func New(generators.Deps) generators.Generator {
	return IntegerGenerator{}
}

func (IntegerGenerator) Kind() synthgen.Kind { return synthgen.KindInteger }

func (IntegerGenerator) Description() string {
	return "Uniform integer in [minValue, maxValue]; minValue defaults to 0"
}

func bounds(p synthgen.Params) (lo, hi int64, err error) {
	hi, err = p.RequiredInt(ParamMax)
	if err != nil {
		return 0, 0, err
	}
	lo, err = p.IntOr(ParamMin, 0)
	if err != nil {
		return 0, 0, err
	}
	if lo > hi {
		return 0, 0, synthgen.Invalid(ParamMin, "must not exceed %s (%d > %d)", ParamMax, lo, hi)
	}
	return lo, hi, nil
}

func (IntegerGenerator) Validate(p synthgen.Params) error {
	_, _, err := bounds(p)
	return generators.Wrap(synthgen.KindInteger, err)
}

func (IntegerGenerator) Generate(call *synthgen.Call) (*synthgen.Entity, error) {
	lo, hi, err := bounds(call.Params)
	if err != nil {
		return nil, err
	}
	return synthgen.NewEntity(map[string]any{
		"value": generators.Between(call.Rand, lo, hi),
	})
}

func (IntegerGenerator) Capacity(p synthgen.Params) int64 {
	lo, hi, err := bounds(p)
	if err != nil {
		return 0
	}
	return generators.Span(lo, hi)
}

func (IntegerGenerator) PartitionKey(p synthgen.Params) string {
	lo, hi, err := bounds(p)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("[%d-%d]", lo, hi)
}
