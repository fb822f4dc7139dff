package uai

import (
	"fmt"
	"strings"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

const (
	ParamRoot   = "root"
	DefaultRoot = "035"

	// codeDigits is the number of digits in an institution code before the
	// control letter.
	codeDigits = 7
)

// UAIGenerator produces school institution codes: a caller root, a numeric
// suffix completing seven digits and a trailing letter.
type UAIGenerator struct {
	generators.Base
}

func New(generators.Deps) generators.Generator {
	return UAIGenerator{}
}

func (UAIGenerator) Kind() synthgen.Kind { return synthgen.KindUAI }

func (UAIGenerator) Description() string {
	return "Institution code: root (default 035) + digits up to 7 + letter A-Z"
}

func root(p synthgen.Params) (string, error) {
	r := p.StringOr(ParamRoot, DefaultRoot)
	if len(r) < 1 || len(r) >= codeDigits {
		return "", synthgen.Invalid(ParamRoot, "must have 1 to %d digits, got %q", codeDigits-1, r)
	}
	if strings.Trim(r, "0123456789") != "" {
		return "", synthgen.Invalid(ParamRoot, "must be numeric, got %q", r)
	}
	return r, nil
}

func (UAIGenerator) Validate(p synthgen.Params) error {
	_, err := root(p)
	return generators.Wrap(synthgen.KindUAI, err)
}

func (UAIGenerator) Generate(call *synthgen.Call) (*synthgen.Entity, error) {
	r, err := root(call.Params)
	if err != nil {
		return nil, err
	}
	width := codeDigits - len(r)
	n := call.Rand.Int64N(generators.Pow(10, int64(width)))
	letter := byte('A' + call.Rand.IntN(26))

	return synthgen.NewEntity(map[string]any{
		"uai": fmt.Sprintf("%s%0*d%c", r, width, n, letter),
	})
}

func (UAIGenerator) Capacity(p synthgen.Params) int64 {
	r, err := root(p)
	if err != nil {
		return 0
	}
	return generators.Mul(generators.Pow(10, int64(codeDigits-len(r))), 26)
}

func (UAIGenerator) PartitionKey(p synthgen.Params) string {
	r, err := root(p)
	if err != nil {
		return ""
	}
	return r
}
