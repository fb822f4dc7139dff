package uuid

import (
	"math"

	"github.com/google/uuid"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

// UUIDGenerator emits random version 4 UUIDs.
type UUIDGenerator struct {
	generators.Base
}

func New(generators.Deps) generators.Generator {
	return UUIDGenerator{}
}

func (UUIDGenerator) Kind() synthgen.Kind { return synthgen.KindUUID }

func (UUIDGenerator) Description() string {
	return "Random version 4 UUID"
}

func (UUIDGenerator) Validate(synthgen.Params) error { return nil }

func (UUIDGenerator) Generate(*synthgen.Call) (*synthgen.Entity, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	return synthgen.NewEntity(map[string]any{"uuid": id.String()})
}

func (UUIDGenerator) Capacity(synthgen.Params) int64 { return math.MaxInt64 }
