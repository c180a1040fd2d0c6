// Package orchestrator ties the workspace, progress, calibration, and
// history packages into the deployment operations the CLI exposes.
//
// Every mutating operation follows the same lifecycle: reclaim any stale
// lock, acquire the workspace lock, arm the operation guard and signal
// relay, stream the external tools through the progress engine, record the
// terminal status, and append a history row plus calibration sample. The
// guard guarantees the lock is released and a failure status recorded on
// every exit path, including interrupts.
package orchestrator
