//go:build !llama

package engine

// Reference text runtime for builds without the llama backend. It loads
// and budgets the artifact for real and emits deterministic continuations
// in the generated_text shape. The 'llama' build tag replaces it with the
// llama.cpp implementation in text_llama.go.

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
)

var continuationVocab = []string{
	"the", "model", "returns", "a", "sequence", "of", "tokens", "that",
	"extends", "prompt", "with", "plausible", "text", "until", "length",
	"limit", "is", "reached", "and", "generation", "stops",
}

type textEngine struct {
	id          string
	footprintMB float64
	loaded      bool
}

func newTextEngine(id string, _ Options) Engine { return &textEngine{id: id} }

func (e *textEngine) Load(path string) error {
	mb, err := artifactFootprintMB(path)
	if err != nil {
		return ErrLoad(e.id, err)
	}
	e.footprintMB = mb
	e.loaded = true
	return nil
}

func (e *textEngine) Unload() {
	e.loaded = false
	e.footprintMB = 0
}

func (e *textEngine) MemoryFootprintMB() float64 { return e.footprintMB }

func (e *textEngine) Infer(ctx context.Context, input any, params map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrInfer(e.id, err)
	}
	if !e.loaded {
		return nil, ErrInfer(e.id, errNotLoaded)
	}
	prompt, ok := input.(string)
	if !ok {
		return nil, ErrInfer(e.id, fmt.Errorf("text input must be a string"))
	}
	maxLength := paramInt(params, "max_length", 100)
	temperature := paramFloat(params, "temperature", 0.7)

	// Same prompt and params always produce the same continuation.
	h := fnv.New64a()
	_, _ = h.Write([]byte(prompt))
	_, _ = h.Write([]byte(fmt.Sprintf("%.3f", temperature)))
	seed := h.Sum64()

	words := maxLength / 8
	if words < 1 {
		words = 1
	}
	if words > 64 {
		words = 64
	}
	var b strings.Builder
	b.WriteString(prompt)
	for i := 0; i < words; i++ {
		seed = seed*6364136223846793005 + 1442695040888963407
		idx := int(seed % uint64(len(continuationVocab)))
		b.WriteByte(' ')
		b.WriteString(continuationVocab[idx])
	}
	return map[string]any{"generated_text": b.String()}, nil
}
