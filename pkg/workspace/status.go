package workspace

import "fmt"

// Status represents the lifecycle state of a deployment workspace.
type Status string

const (
	// StatusInitialized indicates the workspace was created but nothing
	// has been deployed yet.
	StatusInitialized Status = "initialized"

	// StatusReady indicates a deploy completed and the deployment is usable.
	StatusReady Status = "ready"

	// StatusStopped indicates the deployment's resources are halted.
	StatusStopped Status = "stopped"

	// StatusDestroyed indicates the underlying infrastructure was torn down.
	// The state document itself is preserved for inspection.
	StatusDestroyed Status = "destroyed"

	// StatusDeployFailed indicates a deploy operation did not complete.
	StatusDeployFailed Status = "deploy_failed"

	// StatusStopFailed indicates a stop operation did not complete.
	StatusStopFailed Status = "stop_failed"

	// StatusStartFailed indicates a start operation did not complete.
	StatusStartFailed Status = "start_failed"

	// StatusDestroyFailed indicates a destroy operation did not complete.
	StatusDestroyFailed Status = "destroy_failed"
)

// Validate checks if the status is one of the persisted lifecycle states.
// In-progress statuses are derived from lock presence and are never
// persisted, so they are not valid here.
func (s Status) Validate() error {
	switch s {
	case StatusInitialized, StatusReady, StatusStopped, StatusDestroyed,
		StatusDeployFailed, StatusStopFailed, StatusStartFailed, StatusDestroyFailed:
		return nil
	default:
		return fmt.Errorf("invalid workspace status: %s", s)
	}
}

// IsFailure returns true if the status records an operation that did not
// complete.
func (s Status) IsFailure() bool {
	switch s {
	case StatusDeployFailed, StatusStopFailed, StatusStartFailed, StatusDestroyFailed:
		return true
	default:
		return false
	}
}

// InProgress derives the externally visible status for a held lock. It is
// computed from the holder's operation label and never written to the state
// document.
func InProgress(operation string) Status {
	return Status(operation + "_in_progress")
}

// DerivedStatus reports the externally visible workspace status. Any stale
// lock is reclaimed first; then, if a lock is present, the holder's operation
// determines an in-progress status, otherwise the persisted status field is
// authoritative. Deriving rather than persisting in-progress avoids a write
// race between lock acquisition and the status update.
func DerivedStatus(store *Store, locks *LockManager) (Status, error) {
	if _, err := locks.ReclaimStale(); err != nil {
		return "", fmt.Errorf("failed to reclaim stale lock: %w", err)
	}

	lock, err := locks.Holder()
	if err != nil {
		return "", err
	}
	if lock != nil {
		return InProgress(lock.Operation), nil
	}

	state, err := store.Read()
	if err != nil {
		return "", err
	}
	return state.Status, nil
}
