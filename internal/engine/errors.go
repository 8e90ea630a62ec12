package engine

import (
	"errors"
	"fmt"

	"inferd/pkg/types"
)

// errNotLoaded is the cause inside infer errors raised after an engine was
// unloaded (eviction can race an in-flight request).
var errNotLoaded = errors.New("model not loaded")

// loadError wraps a failure to bring a model into device memory.
type loadError struct {
	id  string
	err error
}

func (e loadError) Error() string { return fmt.Sprintf("load %s: %v", e.id, e.err) }
func (e loadError) Unwrap() error { return e.err }

// ErrLoad constructs a load failure for the given model.
func ErrLoad(id string, err error) error { return loadError{id: id, err: err} }

// IsLoadError reports whether err is (or wraps) a model load failure.
func IsLoadError(err error) bool {
	var le loadError
	return errors.As(err, &le)
}

// inferError wraps a failure during inference on a loaded model.
type inferError struct {
	id  string
	err error
}

func (e inferError) Error() string { return fmt.Sprintf("infer %s: %v", e.id, e.err) }
func (e inferError) Unwrap() error { return e.err }

// ErrInfer constructs an inference failure for the given model.
func ErrInfer(id string, err error) error { return inferError{id: id, err: err} }

// IsInferError reports whether err is (or wraps) an inference failure.
func IsInferError(err error) bool {
	var ie inferError
	return errors.As(err, &ie)
}

// unsupportedTaskError signals a task kind with no runtime in this build,
// mapped to 501 by the HTTP layer.
type unsupportedTaskError struct{ task types.TaskType }

func (e unsupportedTaskError) Error() string {
	return fmt.Sprintf("task %q is not supported by this build", e.task)
}

// ErrUnsupportedTask constructs an unsupported-task error.
func ErrUnsupportedTask(task types.TaskType) error { return unsupportedTaskError{task: task} }

// IsUnsupportedTask reports whether err indicates a task kind this build
// cannot serve.
func IsUnsupportedTask(err error) bool {
	var ue unsupportedTaskError
	return errors.As(err, &ue)
}
