package synthgen

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Kind names a generator family.
type Kind string

const (
	KindAddress  Kind = "ADDRESS"
	KindDate     Kind = "DATE"
	KindIdentity Kind = "IDENTITY"
	KindPassword Kind = "PASSWORD"
	KindUID      Kind = "UID"
	KindUUID     Kind = "UUID"
	KindInteger  Kind = "INTEGER"
	KindUnik     Kind = "UNIK"
	KindMail     Kind = "MAIL"
	KindUAI      Kind = "UAI"
	KindImage    Kind = "IMAGE"
	KindUser     Kind = "USER"
)

// Kinds lists every generator kind in declaration order.
var Kinds = []Kind{
	KindAddress,
	KindDate,
	KindIdentity,
	KindPassword,
	KindUID,
	KindUUID,
	KindInteger,
	KindUnik,
	KindMail,
	KindUAI,
	KindImage,
	KindUser,
}

// ParseKind resolves a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
}

// UnboundedPartition is the partition key of generators whose output space is
// practically unlimited. Capacity is never checked for it.
const UnboundedPartition = "NONE"

// Scope selects which previously issued entities count as "already used".
type Scope int

const (
	// ScopeNone disables duplicate and capacity checks.
	ScopeNone Scope = iota
	// ScopeProcess dedupes against entities issued to the same process id.
	ScopeProcess
	// ScopeProcessAll dedupes against entities issued to any process.
	ScopeProcessAll
)

func (s Scope) String() string {
	switch s {
	case ScopeNone:
		return "NONE"
	case ScopeProcess:
		return "PROCESS"
	case ScopeProcessAll:
		return "PROCESS_ALL"
	default:
		return "Scope(" + strconv.Itoa(int(s)) + ")"
	}
}

// ParseScope parses NONE, PROCESS or PROCESS_ALL case-insensitively.
func ParseScope(s string) (Scope, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE":
		return ScopeNone, nil
	case "PROCESS":
		return ScopeProcess, nil
	case "PROCESS_ALL", "ALL":
		return ScopeProcessAll, nil
	}
	return ScopeNone, Invalid("scope", "unknown scope %q", s)
}

func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Scope) UnmarshalText(text []byte) error {
	parsed, err := ParseScope(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Call carries everything a generator needs to produce one candidate.
type Call struct {
	Params    Params
	ProcessID string
	Scope     Scope
	// Iteration is the 1-based ordinal of the candidate within the request.
	Iteration int
	Rand      *rand.Rand
}

// Suffix returns the ordinal to append to name-derived values, empty for the
// first candidate.
func (c *Call) Suffix() string {
	if c.Iteration <= 1 {
		return ""
	}
	return strconv.Itoa(c.Iteration)
}
