package dictionary

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultDictionary(t *testing.T) {
	d := Default()

	for _, kind := range []ElementKind{FirstNameMale, FirstNameFemale, LastName, StreetType, StreetName, City} {
		if d.Size(kind) == 0 {
			t.Errorf("Expected non-empty %s pool", kind)
		}
	}

	first, err := d.Get(LastName, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if first.Value != "Le Cleac'h" {
		t.Errorf("Expected first last name Le Cleac'h, got %q", first.Value)
	}

	brest, err := d.Get(City, 2)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if brest.PostalFrom != 29200 || brest.PostalTo != 29200 {
		t.Errorf("Expected single postal code range for Brest, got %d-%d", brest.PostalFrom, brest.PostalTo)
	}
}

func TestGetIsOneBased(t *testing.T) {
	d := Default()
	size := d.Size(StreetType)

	if _, err := d.Get(StreetType, 0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Expected index 0 to be out of range, got %v", err)
	}
	if _, err := d.Get(StreetType, size); err != nil {
		t.Errorf("Expected last index %d to be valid, got %v", size, err)
	}
	if _, err := d.Get(StreetType, size+1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Expected index %d to be out of range, got %v", size+1, err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.yaml")
	content := `
first_names:
  male: [Alan]
  female: [Ada, " "]
last_names: [Turing]
cities:
  - name: Cambridge
    postal_from: 100
    postal_to: 200
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if d.Size(FirstNameFemale) != 1 {
		t.Errorf("Expected blank names to be skipped, got %d", d.Size(FirstNameFemale))
	}
	if _, err := d.Get(StreetName, 1); !errors.Is(err, ErrEmptyPool) {
		t.Errorf("Expected ErrEmptyPool, got %v", err)
	}
}

func TestParseRejectsInvertedPostalRange(t *testing.T) {
	_, err := Parse([]byte("cities:\n  - name: X\n    postal_from: 20\n    postal_to: 10\n"))
	if err == nil {
		t.Error("Expected inverted postal range to be rejected")
	}
}
