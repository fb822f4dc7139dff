package mail

import (
	"strings"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

const ParamDomain = "domain"

// MailGenerator builds "first.last@domain" addresses. Retries within a
// request append the iteration ordinal to the local part.
type MailGenerator struct {
	generators.Base
}

func New(generators.Deps) generators.Generator {
	return MailGenerator{}
}

func (MailGenerator) Kind() synthgen.Kind { return synthgen.KindMail }

func (MailGenerator) Description() string {
	return "Mail address first.last@domain from firstName, lastName and domain"
}

func domain(p synthgen.Params) (string, error) {
	d, err := p.RequiredString(ParamDomain)
	if err != nil {
		return "", err
	}
	d = strings.ToLower(strings.TrimPrefix(d, "@"))
	if strings.ContainsAny(d, "@ \t") || !strings.Contains(d, ".") {
		return "", synthgen.Invalid(ParamDomain, "not a mail domain: %q", d)
	}
	return d, nil
}

func (MailGenerator) Validate(p synthgen.Params) error {
	if _, _, err := generators.Names(p); err != nil {
		return generators.Wrap(synthgen.KindMail, err)
	}
	_, err := domain(p)
	return generators.Wrap(synthgen.KindMail, err)
}

func (MailGenerator) Generate(call *synthgen.Call) (*synthgen.Entity, error) {
	first, last, err := generators.Names(call.Params)
	if err != nil {
		return nil, err
	}
	d, err := domain(call.Params)
	if err != nil {
		return nil, err
	}
	return synthgen.NewEntity(map[string]any{
		"mail": first + "." + last + call.Suffix() + "@" + d,
	})
}
