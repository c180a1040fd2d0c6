package workspace

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the workspace state document does not exist.
// Callers must initialize the workspace before operating on it.
var ErrNotFound = errors.New("workspace state not found")

// ErrWaitTimeout indicates a lock did not become free within the wait window.
var ErrWaitTimeout = errors.New("timed out waiting for workspace lock release")

// AlreadyLockedError indicates another operation holds the workspace lock.
// It carries the holder's operation label and process id for diagnostics so
// the caller can decide whether to wait or abort. The lock is never
// overwritten.
type AlreadyLockedError struct {
	// Operation is the label of the operation holding the lock.
	Operation string

	// OwnerPID is the process id of the lock holder.
	OwnerPID int
}

// Error implements the error interface.
func (e *AlreadyLockedError) Error() string {
	return fmt.Sprintf("workspace locked by operation %q (pid %d)", e.Operation, e.OwnerPID)
}

// Is implements error equality checking for errors.Is.
func (e *AlreadyLockedError) Is(target error) bool {
	_, ok := target.(*AlreadyLockedError)
	return ok
}

// IsAlreadyLocked returns true if the error indicates a held workspace lock.
func IsAlreadyLocked(err error) bool {
	var e *AlreadyLockedError
	return errors.As(err, &e)
}
