package uid

import (
	"strings"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

const (
	ParamFormat = "format"

	FormatShort = "SHORT"
	FormatLong  = "LONG"

	shortLength = 8
)

// UIDGenerator derives login identifiers from a person's name.
//
// SHORT is the first initial followed by the last name, separators removed
// and cut to eight characters. LONG is "first.last". Retries within a request
// append the iteration ordinal.
type UIDGenerator struct {
	generators.Base
}

func New(generators.Deps) generators.Generator {
	return UIDGenerator{}
}

func (UIDGenerator) Kind() synthgen.Kind { return synthgen.KindUID }

func (UIDGenerator) Description() string {
	return "Login identifier from firstName/lastName, SHORT (jdupont) or LONG (jean.dupont)"
}

func format(p synthgen.Params) (string, error) {
	f := strings.ToUpper(p.StringOr(ParamFormat, FormatShort))
	if f != FormatShort && f != FormatLong {
		return "", synthgen.Invalid(ParamFormat, "must be %s or %s, got %q", FormatShort, FormatLong, f)
	}
	return f, nil
}

func (UIDGenerator) Validate(p synthgen.Params) error {
	if _, _, err := generators.Names(p); err != nil {
		return generators.Wrap(synthgen.KindUID, err)
	}
	_, err := format(p)
	return generators.Wrap(synthgen.KindUID, err)
}

func (UIDGenerator) Generate(call *synthgen.Call) (*synthgen.Entity, error) {
	first, last, err := generators.Names(call.Params)
	if err != nil {
		return nil, err
	}
	f, err := format(call.Params)
	if err != nil {
		return nil, err
	}

	var uid string
	if f == FormatLong {
		uid = first + "." + last
	} else {
		uid = generators.Truncate(first[:1]+strings.ReplaceAll(last, "-", ""), shortLength)
	}
	return synthgen.NewEntity(map[string]any{"uid": uid + call.Suffix()})
}
