//go:build llama

package engine

import (
	"context"
	"fmt"

	llama "github.com/go-skynet/go-llama.cpp"
)

// textEngine drives an in-process llama.cpp model. Compiled only with the
// 'llama' build tag so default builds stay CGO-free.
type textEngine struct {
	id          string
	ctxSize     int
	threads     int
	model       *llama.LLama
	footprintMB float64
}

func newTextEngine(id string, opts Options) Engine {
	ctxSize := opts.CtxSize
	if ctxSize <= 0 {
		ctxSize = 2048
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = 4
	}
	return &textEngine{id: id, ctxSize: ctxSize, threads: threads}
}

func (e *textEngine) Load(path string) error {
	mb, err := artifactFootprintMB(path)
	if err != nil {
		return ErrLoad(e.id, err)
	}
	wf, err := weightsFile(path)
	if err != nil {
		return ErrLoad(e.id, err)
	}
	m, err := llama.New(wf, llama.SetContext(e.ctxSize))
	if err != nil {
		return ErrLoad(e.id, err)
	}
	e.model = m
	e.footprintMB = mb
	return nil
}

func (e *textEngine) Unload() {
	if e.model != nil {
		e.model.Free()
		e.model = nil
	}
	e.footprintMB = 0
}

func (e *textEngine) MemoryFootprintMB() float64 { return e.footprintMB }

func (e *textEngine) Infer(ctx context.Context, input any, params map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrInfer(e.id, err)
	}
	m := e.model
	if m == nil {
		return nil, ErrInfer(e.id, errNotLoaded)
	}
	prompt, ok := input.(string)
	if !ok {
		return nil, ErrInfer(e.id, fmt.Errorf("text input must be a string"))
	}

	// Stop generating when the request is cancelled.
	m.SetTokenCallback(func(string) bool {
		return ctx.Err() == nil
	})

	po := []llama.PredictOption{
		llama.SetTokens(paramInt(params, "max_length", 100)),
		llama.SetThreads(e.threads),
		llama.SetTemperature(float32(paramFloat(params, "temperature", 0.7))),
	}
	if topP := paramFloat(params, "top_p", 0); topP > 0 {
		po = append(po, llama.SetTopP(float32(topP)))
	}
	if topK := paramInt(params, "top_k", 0); topK > 0 {
		po = append(po, llama.SetTopK(topK))
	}
	if seed := paramInt(params, "seed", 0); seed != 0 {
		po = append(po, llama.SetSeed(seed))
	}

	text, err := m.Predict(prompt, po...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrInfer(e.id, ctx.Err())
		}
		return nil, ErrInfer(e.id, err)
	}
	return map[string]any{"generated_text": prompt + text}, nil
}
