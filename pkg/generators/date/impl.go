package date

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

const (
	ParamLowerYear = "lowerYear"
	ParamUpperYear = "upperYear"
	ParamTimezone  = "timezone"

	minYear = 1
	maxYear = 9999
)

// DateGenerator draws a calendar day between two years inclusive and emits it
// as epoch milliseconds at local midnight.
type DateGenerator struct {
	generators.Base
}

func New(generators.Deps) generators.Generator {
	return DateGenerator{}
}

func (DateGenerator) Kind() synthgen.Kind { return synthgen.KindDate }

func (DateGenerator) Description() string {
	return "Uniform day within [lowerYear, upperYear] as epoch millis plus timezone"
}

type window struct {
	lower, upper int
	loc          *time.Location
}

func parse(p synthgen.Params) (window, error) {
	lower, err := p.RequiredInt(ParamLowerYear)
	if err != nil {
		return window{}, err
	}
	upper, err := p.RequiredInt(ParamUpperYear)
	if err != nil {
		return window{}, err
	}
	if lower < minYear || lower > maxYear {
		return window{}, synthgen.Invalid(ParamLowerYear, "must be between %d and %d, got %d", minYear, maxYear, lower)
	}
	if upper < minYear || upper > maxYear {
		return window{}, synthgen.Invalid(ParamUpperYear, "must be between %d and %d, got %d", minYear, maxYear, upper)
	}
	if lower > upper {
		return window{}, synthgen.Invalid(ParamLowerYear, "must not exceed %s (%d > %d)", ParamUpperYear, lower, upper)
	}

	loc, err := time.LoadLocation(p.StringOr(ParamTimezone, "UTC"))
	if err != nil {
		return window{}, synthgen.Invalid(ParamTimezone, "%v", err)
	}
	return window{lower: int(lower), upper: int(upper), loc: loc}, nil
}

func daysIn(year int) int {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(start.AddDate(1, 0, 0).Sub(start) / (24 * time.Hour))
}

func (DateGenerator) Validate(p synthgen.Params) error {
	_, err := parse(p)
	return generators.Wrap(synthgen.KindDate, err)
}

func (DateGenerator) Generate(call *synthgen.Call) (*synthgen.Entity, error) {
	w, err := parse(call.Params)
	if err != nil {
		return nil, err
	}

	year := w.lower + call.Rand.IntN(w.upper-w.lower+1)
	day := call.Rand.IntN(daysIn(year))
	t := time.Date(year, time.January, 1+day, 0, 0, 0, 0, w.loc)

	e, err := synthgen.NewEntity(map[string]any{
		"date":     t.UnixMilli(),
		"timezone": w.loc.String(),
	})
	if err != nil {
		return nil, err
	}
	// The partition ignores the timezone, so the hash names the day alone.
	key, err := synthgen.NewEntity(map[string]any{"day": t.Format(time.DateOnly)})
	if err != nil {
		return nil, err
	}
	return e.WithHash(key.Hash), nil
}

func (DateGenerator) Capacity(p synthgen.Params) int64 {
	w, err := parse(p)
	if err != nil {
		return 0
	}
	var total int64
	for y := w.lower; y <= w.upper; y++ {
		total += int64(daysIn(y))
	}
	return total
}

func (DateGenerator) PartitionKey(p synthgen.Params) string {
	w, err := parse(p)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("[%d-%d]", w.lower, w.upper)
}
