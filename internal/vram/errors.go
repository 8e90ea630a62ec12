package vram

import (
	"errors"
	"fmt"
)

// capacityError means the budget cannot fit a request even after draining
// every resident model. Mapped to 507 by the HTTP layer.
type capacityError struct {
	requiredMB  float64
	availableMB float64
}

func (e capacityError) Error() string {
	return fmt.Sprintf("vram exhausted: %.1f MB required, %.1f MB available", e.requiredMB, e.availableMB)
}

// ErrCapacity constructs a capacity error. available is clamped at zero so
// over-budget states never report negative headroom.
func ErrCapacity(requiredMB, availableMB float64) error {
	if availableMB < 0 {
		availableMB = 0
	}
	return capacityError{requiredMB: requiredMB, availableMB: availableMB}
}

// IsCapacityError reports whether err is (or wraps) a budget exhaustion.
func IsCapacityError(err error) bool {
	var ce capacityError
	return errors.As(err, &ce)
}

// CapacityDetails extracts the numbers from a capacity error for logs and
// tests. ok is false when err is not a capacity error.
func CapacityDetails(err error) (requiredMB, availableMB float64, ok bool) {
	var ce capacityError
	if !errors.As(err, &ce) {
		return 0, 0, false
	}
	return ce.requiredMB, ce.availableMB, true
}

// alreadyRegisteredError guards against double bookkeeping of one model.
type alreadyRegisteredError struct{ id string }

func (e alreadyRegisteredError) Error() string {
	return "model already registered: " + e.id
}

// ErrAlreadyRegistered constructs a double-registration error.
func ErrAlreadyRegistered(id string) error { return alreadyRegisteredError{id: id} }

// IsAlreadyRegistered reports whether err is a double-registration guard.
func IsAlreadyRegistered(err error) bool {
	var ae alreadyRegisteredError
	return errors.As(err, &ae)
}
