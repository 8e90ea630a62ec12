package artifact

import (
	"errors"
	"fmt"
)

// fetchError wraps a failed artifact download, mapped to 404 by the HTTP
// layer (model could not be obtained).
type fetchError struct {
	id  string
	err error
}

func (e fetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.id, e.err) }
func (e fetchError) Unwrap() error { return e.err }

// ErrFetch constructs a fetch failure for the given model.
func ErrFetch(id string, err error) error { return fetchError{id: id, err: err} }

// IsFetchError reports whether err is (or wraps) an artifact fetch failure.
func IsFetchError(err error) bool {
	var fe fetchError
	return errors.As(err, &fe)
}

// invalidIDError rejects ids the cache will not map to a directory.
type invalidIDError struct {
	id     string
	reason string
}

func (e invalidIDError) Error() string {
	return fmt.Sprintf("invalid model id %q: %s", e.id, e.reason)
}

// ErrInvalidID constructs an invalid-id error.
func ErrInvalidID(id, reason string) error { return invalidIDError{id: id, reason: reason} }

// IsInvalidID reports whether err rejects a malformed model id.
func IsInvalidID(err error) bool {
	var ie invalidIDError
	return errors.As(err, &ie)
}
