package synthgen

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Payload is the structured content of a generated entity.
type Payload map[string]any

// Entity is one generated record plus the content hash used for duplicate
// detection and reuse lookups.
type Entity struct {
	Hash    string  `json:"hash"`
	Payload Payload `json:"payload"`

	raw []byte
}

// NewEntity canonicalises payload and derives its content hash.
//
// The payload is round-tripped through JSON so that an entity produced in
// memory and one reloaded from a ledger compare equal.
func NewEntity(payload map[string]any) (*Entity, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	sum := sha256.Sum256(raw)
	return LoadEntity(hex.EncodeToString(sum[:]), raw)
}

// LoadEntity rebuilds an entity from its stored hash and canonical JSON.
func LoadEntity(hash string, raw []byte) (*Entity, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var payload Payload
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &Entity{
		Hash:    hash,
		Payload: payload,
		raw:     bytes.Clone(raw),
	}, nil
}

// Raw returns the canonical JSON encoding of the payload.
func (e *Entity) Raw() []byte {
	return e.raw
}

// WithHash returns a copy of e carrying a different content hash.
func (e *Entity) WithHash(hash string) *Entity {
	return &Entity{
		Hash:    hash,
		Payload: maps.Clone(e.Payload),
		raw:     e.raw,
	}
}

// String returns the string form of a top-level payload value.
func (e *Entity) String(key string) string {
	v, ok := e.Payload[key]
	if !ok || v == nil {
		return ""
	}
	return scalarString(v)
}

// Merge combines several entities' payloads into a new entity. Earlier
// entities win on key collisions.
func Merge(entities ...*Entity) (*Entity, error) {
	merged := make(map[string]any)
	for i := len(entities) - 1; i >= 0; i-- {
		maps.Copy(merged, entities[i].Payload)
	}
	return NewEntity(merged)
}

// Flatten converts the payload into key→values form for downstream
// templating. Nested keys are joined with "_" and arrays expand to multiple
// values.
func (e *Entity) Flatten() map[string][]string {
	return Flatten(e.Payload)
}

// Flatten converts a nested document into key→values form.
func Flatten(doc map[string]any) map[string][]string {
	out := make(map[string][]string)
	for _, k := range slices.Sorted(maps.Keys(doc)) {
		flattenValue(out, k, doc[k])
	}
	return out
}

func flattenValue(out map[string][]string, key string, v any) {
	switch t := v.(type) {
	case nil:
		return
	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(t)) {
			flattenValue(out, key+"_"+k, t[k])
		}
	case Payload:
		flattenValue(out, key, map[string]any(t))
	case []any:
		for _, item := range t {
			flattenValue(out, key, item)
		}
	default:
		out[key] = append(out[key], scalarString(t))
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
