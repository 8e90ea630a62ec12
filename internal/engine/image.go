package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
)

// imageEngine renders deterministic PNGs in the image_base64 result shape.
// Prompt and parameters seed the output, so identical requests produce
// identical images.
type imageEngine struct {
	id          string
	footprintMB float64
	loaded      bool
}

func newImageEngine(id string) Engine { return &imageEngine{id: id} }

func (e *imageEngine) Load(path string) error {
	mb, err := artifactFootprintMB(path)
	if err != nil {
		return ErrLoad(e.id, err)
	}
	e.footprintMB = mb
	e.loaded = true
	return nil
}

func (e *imageEngine) Unload() {
	e.loaded = false
	e.footprintMB = 0
}

func (e *imageEngine) MemoryFootprintMB() float64 { return e.footprintMB }

func (e *imageEngine) Infer(ctx context.Context, input any, params map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrInfer(e.id, err)
	}
	if !e.loaded {
		return nil, ErrInfer(e.id, errNotLoaded)
	}
	prompt, ok := input.(string)
	if !ok {
		return nil, ErrInfer(e.id, fmt.Errorf("image input must be a prompt string"))
	}
	width := clampDim(paramInt(params, "width", 512))
	height := clampDim(paramInt(params, "height", 512))
	steps := paramInt(params, "num_inference_steps", 50)
	guidance := paramFloat(params, "guidance_scale", 7.5)

	h := fnv.New64a()
	_, _ = h.Write([]byte(prompt))
	_, _ = h.Write([]byte(fmt.Sprintf("%d|%.2f", steps, guidance)))
	seed := h.Sum64()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((uint64(x)*7 + seed) % 256),
				G: uint8((uint64(y)*13 + seed>>8) % 256),
				B: uint8((uint64(x+y)*3 + seed>>16) % 256),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, ErrInfer(e.id, err)
	}
	return map[string]any{
		"image_base64": base64.StdEncoding.EncodeToString(buf.Bytes()),
		"format":       "png",
	}, nil
}

// clampDim keeps requested dimensions inside the renderable range.
func clampDim(v int) int {
	if v < 64 {
		return 64
	}
	if v > 1024 {
		return 1024
	}
	return v
}
