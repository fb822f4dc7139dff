// Package generators defines the contract shared by every generator variant
// and the helpers the variants build on.
package generators

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"pkg.jsn.cam/synthgen/pkg/synthgen"
	"pkg.jsn.cam/synthgen/pkg/synthgen/dictionary"
)

// DefaultCapacity is used by variants whose output space cannot be computed
// from their parameters.
const DefaultCapacity int64 = 1000

// Generator produces candidate entities for one kind. Implementations do no
// duplicate checking and no persistence; the service owns both.
type Generator interface {
	Kind() synthgen.Kind
	Description() string

	// Validate rejects missing or contradictory parameters.
	Validate(p synthgen.Params) error

	// Generate draws one candidate.
	Generate(call *synthgen.Call) (*synthgen.Entity, error)

	// Capacity is the number of distinct entities the parameters allow.
	Capacity(p synthgen.Params) int64

	// PartitionKey groups entities that compete for the same capacity.
	PartitionKey(p synthgen.Params) string

	// Revoke is called for a candidate that turned out to be already issued.
	Revoke(e *synthgen.Entity) error
}

// Deps are handed to every constructor.
type Deps struct {
	Dictionaries dictionary.Dictionaries
	Logger       *slog.Logger
	// Lookup resolves another variant; composite generators use it.
	Lookup func(kind synthgen.Kind) (Generator, error)
}

// Log returns the configured logger tagged with the variant kind.
func (d Deps) Log(kind synthgen.Kind) *slog.Logger {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("module", "generator", "kind", string(kind))
}

// Base supplies the default capacity, partition and revoke behaviour.
type Base struct{}

func (Base) Capacity(synthgen.Params) int64 { return DefaultCapacity }

func (Base) PartitionKey(synthgen.Params) string { return synthgen.UnboundedPartition }

func (Base) Revoke(*synthgen.Entity) error { return nil }

// Between draws uniformly in [lo, hi].
func Between(r *rand.Rand, lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	span := uint64(hi-lo) + 1
	if span == 0 {
		return int64(r.Uint64())
	}
	return lo + int64(r.Uint64N(span))
}

// Span returns hi-lo+1, saturated at math.MaxInt64.
func Span(lo, hi int64) int64 {
	if hi < lo {
		return 0
	}
	span := uint64(hi-lo) + 1
	if span == 0 || span > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(span)
}

// Mul multiplies non-negative values, saturating at math.MaxInt64.
func Mul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}

// Pow raises a non-negative base, saturating at math.MaxInt64.
func Pow(base, exp int64) int64 {
	result := int64(1)
	for range exp {
		result = Mul(result, base)
		if result == math.MaxInt64 {
			break
		}
	}
	return result
}

// Pick returns a uniformly drawn dictionary row.
func Pick(r *rand.Rand, dicts dictionary.Dictionaries, kind dictionary.ElementKind) (dictionary.Element, error) {
	size := dicts.Size(kind)
	if size == 0 {
		return dictionary.Element{}, fmt.Errorf("%w: %s", dictionary.ErrEmptyPool, kind)
	}
	return dicts.Get(kind, 1+r.IntN(size))
}

// Wrap prefixes a validation error with the kind it came from while keeping
// it matchable with errors.Is and errors.As.
func Wrap(kind synthgen.Kind, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", kind, err)
}
