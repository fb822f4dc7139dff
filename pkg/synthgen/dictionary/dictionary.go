// Package dictionary provides the read-only reference pools consumed by the
// identity and address generators.
package dictionary

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// ElementKind enumerates the pools a dictionary exposes.
type ElementKind int

const (
	FirstNameMale ElementKind = iota
	FirstNameFemale
	LastName
	StreetType
	StreetName
	City
)

func (k ElementKind) String() string {
	switch k {
	case FirstNameMale:
		return "first_name_male"
	case FirstNameFemale:
		return "first_name_female"
	case LastName:
		return "last_name"
	case StreetType:
		return "street_type"
	case StreetName:
		return "street_name"
	case City:
		return "city"
	default:
		return fmt.Sprintf("ElementKind(%d)", int(k))
	}
}

var (
	ErrIndexOutOfRange = errors.New("dictionary index out of range")
	ErrEmptyPool       = errors.New("dictionary pool is empty")
)

// Element is one dictionary row. PostalFrom/PostalTo are only set for cities.
type Element struct {
	Value      string `yaml:"name"`
	PostalFrom int    `yaml:"postal_from"`
	PostalTo   int    `yaml:"postal_to"`
}

// Dictionaries addresses reference values by kind and 1-based index.
type Dictionaries interface {
	Size(kind ElementKind) int
	Get(kind ElementKind, index int) (Element, error)
}

type document struct {
	FirstNames struct {
		Male   []string `yaml:"male"`
		Female []string `yaml:"female"`
	} `yaml:"first_names"`
	LastNames   []string  `yaml:"last_names"`
	StreetTypes []string  `yaml:"street_types"`
	StreetNames []string  `yaml:"street_names"`
	Cities      []Element `yaml:"cities"`
}

// Dictionary is an immutable in-memory Dictionaries.
type Dictionary struct {
	pools map[ElementKind][]Element
}

// Default returns the embedded dictionary.
func Default() *Dictionary {
	d, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("dictionary: embedded default is invalid: %v", err))
	}
	return d
}

// Load reads a dictionary from a YAML file.
func Load(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML dictionary document.
func Parse(data []byte) (*Dictionary, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode dictionary: %w", err)
	}

	for i, c := range doc.Cities {
		if c.PostalTo == 0 {
			doc.Cities[i].PostalTo = c.PostalFrom
		}
		if doc.Cities[i].PostalTo < c.PostalFrom {
			return nil, fmt.Errorf("city %q: postal_to %d < postal_from %d", c.Value, c.PostalTo, c.PostalFrom)
		}
	}

	return &Dictionary{
		pools: map[ElementKind][]Element{
			FirstNameMale:   names(doc.FirstNames.Male),
			FirstNameFemale: names(doc.FirstNames.Female),
			LastName:        names(doc.LastNames),
			StreetType:      names(doc.StreetTypes),
			StreetName:      names(doc.StreetNames),
			City:            doc.Cities,
		},
	}, nil
}

func names(values []string) []Element {
	out := make([]Element, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, Element{Value: v})
		}
	}
	return out
}

// Size returns the number of rows in a pool.
func (d *Dictionary) Size(kind ElementKind) int {
	return len(d.pools[kind])
}

// Get returns the row at the 1-based index.
func (d *Dictionary) Get(kind ElementKind, index int) (Element, error) {
	pool := d.pools[kind]
	if len(pool) == 0 {
		return Element{}, fmt.Errorf("%w: %s", ErrEmptyPool, kind)
	}
	if index < 1 || index > len(pool) {
		return Element{}, fmt.Errorf("%w: %s[%d] (size %d)", ErrIndexOutOfRange, kind, index, len(pool))
	}
	return pool[index-1], nil
}
