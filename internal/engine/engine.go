// Package engine defines the capability contract between the lifecycle
// manager and concrete model runtimes, plus one engine per supported task
// kind. Default builds ship reference runtimes that validate artifacts and
// produce deterministic, correctly shaped results; the 'llama' build tag
// swaps in a real llama.cpp backend for text.
package engine

import (
	"context"

	"inferd/pkg/types"
)

// Engine is a loaded (or loadable) model runtime for one task kind.
// Implementations are not safe for concurrent Load/Unload; the manager
// serializes lifecycle calls per model.
type Engine interface {
	// Load reads the artifact directory into device memory. After a
	// successful Load the engine can serve Infer and reports a footprint.
	Load(path string) error
	// Unload releases device memory. Safe to call more than once.
	Unload()
	// Infer executes one request. Input and result shapes depend on the
	// task kind. Implementations must return promptly when ctx is done.
	Infer(ctx context.Context, input any, params map[string]any) (any, error)
	// MemoryFootprintMB is the device memory held after Load, zero before.
	MemoryFootprintMB() float64
}

// Options carries backend tuning shared by engine constructors.
// Zero values select backend defaults.
type Options struct {
	CtxSize int
	Threads int
	Device  string
}

// New constructs the engine for a task kind. Kinds with no runtime in this
// build return an unsupported-task error before any I/O happens.
func New(task types.TaskType, modelID string, opts Options) (Engine, error) {
	switch task {
	case types.TaskText:
		return newTextEngine(modelID, opts), nil
	case types.TaskImage:
		return newImageEngine(modelID), nil
	case types.TaskAudioTTS:
		return newTTSEngine(modelID), nil
	case types.TaskAudioSTT:
		return newSTTEngine(modelID), nil
	case types.TaskVideo:
		return nil, ErrUnsupportedTask(task)
	default:
		return nil, ErrUnsupportedTask(task)
	}
}
