package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/png"
	"math/rand/v2"
	"testing"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

func TestImageGenerate(t *testing.T) {
	g := New(generators.Deps{})
	params := synthgen.Params{"width": 16, "height": "8"}
	if err := g.Validate(params); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	e, err := g.Generate(&synthgen.Call{Params: params, Iteration: 1, Rand: rand.New(rand.NewPCG(4, 2))})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	data, err := base64.StdEncoding.DecodeString(e.String("image"))
	if err != nil {
		t.Fatalf("Image is not base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Image is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Errorf("Expected 16x8, got %dx%d", b.Dx(), b.Dy())
	}
	if e.String("mimeType") != "image/png" || e.String("width") != "16" {
		t.Errorf("Unexpected metadata %v", e.Payload)
	}
}

func TestImageValidate(t *testing.T) {
	g := New(generators.Deps{})
	for _, params := range []synthgen.Params{{"width": 0}, {"height": MaxSize + 1}, {"width": "wide"}} {
		if err := g.Validate(params); !errors.Is(err, synthgen.ErrInvalidParameter) {
			t.Errorf("Validate(%v) = %v, want ErrInvalidParameter", params, err)
		}
	}
}
