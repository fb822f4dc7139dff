package generators

import (
	"math"
	"math/rand/v2"
	"testing"

	"pkg.jsn.cam/synthgen/pkg/synthgen/dictionary"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Yann", "yann"},
		{"Le Cleac'h", "le-cleach"},
		{"Gwenaëlle", "gwenaelle"},
		{"Jean-Pierre", "jean-pierre"},
		{"  Anne   Marie  ", "anne-marie"},
		{"Lætitia", "laetitia"},
		{"Œdipe", "oedipe"},
		{"Strauß", "strauss"},
		{"O’Neil", "oneil"},
		{"Ødegaard", "odegaard"},
		{"Renée (dite) Lefèvre!", "renee-dite-lefevre"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompactAndUpper(t *testing.T) {
	if got := Compact("Le Cleac'h"); got != "lecleach" {
		t.Errorf("Compact = %q", got)
	}
	if got := Upper("le-cleach_yann"); got != "LE-CLEACH_YANN" {
		t.Errorf("Upper = %q", got)
	}
	if got := Truncate("ylecleach", 8); got != "ylecleac" {
		t.Errorf("Truncate = %q", got)
	}
}

func TestSaturatingMath(t *testing.T) {
	if got := Span(2, 5); got != 4 {
		t.Errorf("Span(2, 5) = %d, want 4", got)
	}
	if got := Span(math.MinInt64, math.MaxInt64); got != math.MaxInt64 {
		t.Errorf("Expected full range to saturate, got %d", got)
	}
	if got := Span(5, 2); got != 0 {
		t.Errorf("Expected empty span, got %d", got)
	}
	if got := Pow(10, 4); got != 10000 {
		t.Errorf("Pow(10, 4) = %d", got)
	}
	if got := Pow(26, 40); got != math.MaxInt64 {
		t.Errorf("Expected Pow to saturate, got %d", got)
	}
	if got := Mul(math.MaxInt64/2, 3); got != math.MaxInt64 {
		t.Errorf("Expected Mul to saturate, got %d", got)
	}
}

func TestBetweenStaysInBounds(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	seen := make(map[int64]bool)

	for range 1000 {
		v := Between(r, -2, 3)
		if v < -2 || v > 3 {
			t.Fatalf("Between returned %d outside [-2, 3]", v)
		}
		seen[v] = true
	}
	if len(seen) != 6 {
		t.Errorf("Expected all 6 values to be drawn, got %d", len(seen))
	}
	if got := Between(r, 7, 7); got != 7 {
		t.Errorf("Between(7, 7) = %d", got)
	}
}

func TestPick(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	dicts := dictionary.Default()

	for range 100 {
		e, err := Pick(r, dicts, dictionary.City)
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		if e.Value == "" || e.PostalFrom == 0 {
			t.Fatalf("Unexpected city %+v", e)
		}
	}

	empty, err := dictionary.Parse([]byte("{}"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Pick(r, empty, dictionary.LastName); err == nil {
		t.Error("Expected an error on an empty pool")
	}
}
