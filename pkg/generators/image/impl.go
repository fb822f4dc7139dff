package image

import (
	"encoding/base64"
	"math"

	"github.com/brianvoe/gofakeit/v6"

	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

const (
	ParamWidth  = "width"
	ParamHeight = "height"

	DefaultSize = 64
	MaxSize     = 1024
)

// ImageGenerator produces random-pixel PNG images, base64 encoded.
type ImageGenerator struct {
	generators.Base
}

func New(generators.Deps) generators.Generator {
	return ImageGenerator{}
}

func (ImageGenerator) Kind() synthgen.Kind { return synthgen.KindImage }

func (ImageGenerator) Description() string {
	return "Random PNG image (width/height default 64, max 1024), base64 encoded"
}

func dimension(p synthgen.Params, name string) (int, error) {
	n, err := p.IntOr(name, DefaultSize)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > MaxSize {
		return 0, synthgen.Invalid(name, "must be between 1 and %d, got %d", MaxSize, n)
	}
	return int(n), nil
}

func size(p synthgen.Params) (w, h int, err error) {
	if w, err = dimension(p, ParamWidth); err != nil {
		return 0, 0, err
	}
	if h, err = dimension(p, ParamHeight); err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

func (ImageGenerator) Validate(p synthgen.Params) error {
	_, _, err := size(p)
	return generators.Wrap(synthgen.KindImage, err)
}

func (ImageGenerator) Generate(call *synthgen.Call) (*synthgen.Entity, error) {
	w, h, err := size(call.Params)
	if err != nil {
		return nil, err
	}
	faker := gofakeit.New(call.Rand.Int64())

	return synthgen.NewEntity(map[string]any{
		"image":    base64.StdEncoding.EncodeToString(faker.ImagePng(w, h)),
		"mimeType": "image/png",
		"width":    w,
		"height":   h,
	})
}

func (ImageGenerator) Capacity(synthgen.Params) int64 { return math.MaxInt64 }
