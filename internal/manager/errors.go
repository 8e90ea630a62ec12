package manager

import (
	"errors"
	"fmt"

	"inferd/pkg/types"
)

// taskMismatchError rejects a request whose task kind disagrees with the
// kind a model id is already registered under. The kind is immutable for
// the lifetime of a record.
type taskMismatchError struct {
	id        string
	have      types.TaskType
	requested types.TaskType
}

func (e taskMismatchError) Error() string {
	return fmt.Sprintf("model %s serves task %q, not %q", e.id, e.have, e.requested)
}

// ErrTaskMismatch constructs a task-kind mismatch error.
func ErrTaskMismatch(id string, have, requested types.TaskType) error {
	return taskMismatchError{id: id, have: have, requested: requested}
}

// IsTaskMismatch reports whether err rejects a conflicting task kind.
func IsTaskMismatch(err error) bool {
	var te taskMismatchError
	return errors.As(err, &te)
}
