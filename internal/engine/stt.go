package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"strings"
)

var transcriptVocab = []string{
	"hello", "there", "please", "note", "the", "recording", "contains",
	"speech", "about", "a", "topic", "of", "interest", "thank", "you",
}

// sttEngine produces deterministic transcripts in the text result shape.
// Input is base64-encoded audio, matching the execute API contract.
type sttEngine struct {
	id          string
	footprintMB float64
	loaded      bool
}

func newSTTEngine(id string) Engine { return &sttEngine{id: id} }

func (e *sttEngine) Load(path string) error {
	mb, err := artifactFootprintMB(path)
	if err != nil {
		return ErrLoad(e.id, err)
	}
	e.footprintMB = mb
	e.loaded = true
	return nil
}

func (e *sttEngine) Unload() {
	e.loaded = false
	e.footprintMB = 0
}

func (e *sttEngine) MemoryFootprintMB() float64 { return e.footprintMB }

func (e *sttEngine) Infer(ctx context.Context, input any, params map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrInfer(e.id, err)
	}
	if !e.loaded {
		return nil, ErrInfer(e.id, errNotLoaded)
	}
	encoded, ok := input.(string)
	if !ok || encoded == "" {
		return nil, ErrInfer(e.id, fmt.Errorf("stt input must be base64 audio"))
	}
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInfer(e.id, fmt.Errorf("decode audio: %w", err))
	}
	language := paramString(params, "language", "en")
	mode := paramString(params, "task", "transcribe")

	h := fnv.New64a()
	_, _ = h.Write(audio)
	_, _ = h.Write([]byte(language))
	_, _ = h.Write([]byte(mode))
	seed := h.Sum64()

	// One word per ~2KB of audio, between 3 and 32 words.
	words := len(audio) / 2048
	if words < 3 {
		words = 3
	}
	if words > 32 {
		words = 32
	}
	out := make([]string, 0, words)
	for i := 0; i < words; i++ {
		seed = seed*6364136223846793005 + 1442695040888963407
		out = append(out, transcriptVocab[seed%uint64(len(transcriptVocab))])
	}
	return map[string]any{"text": strings.Join(out, " ")}, nil
}
