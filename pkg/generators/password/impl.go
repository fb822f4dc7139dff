package password

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

const (
	ParamLength  = "length"
	ParamSymbols = "symbols"

	maxLength = 1024
)

// Symbol classes a password position can be drawn from.
var classes = map[string]string{
	"LOWERCASE": "abcdefghijklmnopqrstuvwxyz",
	"UPPERCASE": "ABCDEFGHIJKLMNOPQRSTUVWXYZ",
	"DIGITS":    "0123456789",
	"SPECIALS":  "!#$%&()*+,-./:;<=>?@[]^_{|}~",
}

// PasswordGenerator builds passwords position by position: a symbol class
// is drawn first, then a character inside it.
type PasswordGenerator struct {
	generators.Base
	log *slog.Logger
}

func New(deps generators.Deps) generators.Generator {
	return PasswordGenerator{log: deps.Log(synthgen.KindPassword)}
}

func (PasswordGenerator) Kind() synthgen.Kind { return synthgen.KindPassword }

func (PasswordGenerator) Description() string {
	return "Random password of the given length over LOWERCASE, UPPERCASE, DIGITS, SPECIALS"
}

type policy struct {
	length int
	names  []string
}

// parse resolves the length and the sorted set of selected class names.
// Unknown names are returned separately so the caller decides whether to warn.
func parse(p synthgen.Params) (policy, []string, error) {
	length, err := p.RequiredInt(ParamLength)
	if err != nil {
		return policy{}, nil, err
	}
	if length < 1 || length > maxLength {
		return policy{}, nil, synthgen.Invalid(ParamLength, "must be between 1 and %d, got %d", maxLength, length)
	}

	var names, unknown []string
	if raw, ok := p.String(ParamSymbols); ok {
		for _, name := range strings.Split(raw, ",") {
			name = strings.ToUpper(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			if _, known := classes[name]; !known {
				unknown = append(unknown, name)
				continue
			}
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	if len(names) == 0 {
		for name := range classes {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	return policy{length: int(length), names: names}, unknown, nil
}

func (g PasswordGenerator) Validate(p synthgen.Params) error {
	_, unknown, err := parse(p)
	if err != nil {
		return generators.Wrap(synthgen.KindPassword, err)
	}
	if len(unknown) > 0 {
		g.log.Warn("ignoring unknown symbol classes", "event", "password.symbols", "unknown", unknown)
	}
	return nil
}

func (PasswordGenerator) Generate(call *synthgen.Call) (*synthgen.Entity, error) {
	pol, _, err := parse(call.Params)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, pol.length)
	for i := range buf {
		set := classes[pol.names[call.Rand.IntN(len(pol.names))]]
		buf[i] = set[call.Rand.IntN(len(set))]
	}
	return synthgen.NewEntity(map[string]any{"password": string(buf)})
}

func (PasswordGenerator) Capacity(p synthgen.Params) int64 {
	pol, _, err := parse(p)
	if err != nil {
		return 0
	}
	longest := 0
	for _, name := range pol.names {
		longest = max(longest, len(classes[name]))
	}
	return generators.Pow(int64(longest), int64(pol.length))
}

func (PasswordGenerator) PartitionKey(p synthgen.Params) string {
	pol, _, err := parse(p)
	if err != nil {
		return ""
	}
	return strings.Join(pol.names, ",") + ":" + strconv.Itoa(pol.length)
}
