// Package workspace provides the persisted lifecycle state, locking, and
// crash-safe cleanup for a single deployment workspace directory.
// It includes the JSON state document with its status enum, a lock manager
// enforcing single-writer access with stale-lock reclamation, and the
// operation guard that forces a failure status and releases the lock when
// an operation ends without recording success.
package workspace
