package generators

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

var ligatures = strings.NewReplacer(
	"æ", "ae",
	"œ", "oe",
	"ß", "ss",
	"ø", "o",
	"đ", "d",
	"ł", "l",
)

// Normalize folds a person name into the ASCII form used by login and mail
// identifiers: "Le Cleac'h" becomes "le-cleach", "Gwenaëlle" "gwenaelle".
func Normalize(name string) string {
	lower := cases.Lower(language.Und).String(name)
	lower = ligatures.Replace(lower)

	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), lower)
	if err != nil {
		stripped = lower
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range stripped {
		switch {
		case unicode.IsSpace(r) || r == '-':
			pendingDash = b.Len() > 0
		case r == '\'' || r == '’' || r == 'ʼ':
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash {
				b.WriteByte('-')
				pendingDash = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Compact is Normalize without separators.
func Compact(name string) string {
	return strings.ReplaceAll(Normalize(name), "-", "")
}

// Upper upper-cases a normalized identifier.
func Upper(s string) string {
	return cases.Upper(language.Und).String(s)
}

// Truncate keeps at most n bytes of an ASCII identifier.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

const (
	ParamFirstName = "firstName"
	ParamLastName  = "lastName"
)

// Names returns the normalized first and last name parameters. Both must
// keep at least one character after normalization.
func Names(p synthgen.Params) (first, last string, err error) {
	for _, param := range []struct {
		name string
		dst  *string
	}{{ParamFirstName, &first}, {ParamLastName, &last}} {
		raw, err := p.RequiredString(param.name)
		if err != nil {
			return "", "", err
		}
		if *param.dst = Normalize(raw); *param.dst == "" {
			return "", "", synthgen.Invalid(param.name, "has no usable characters: %q", raw)
		}
	}
	return first, last, nil
}
