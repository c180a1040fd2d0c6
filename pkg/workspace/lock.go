package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stackform/stackform/pkg/telemetry"
)

// lockFileName is the lock sentinel document inside the workspace directory.
const lockFileName = "lock.json"

// DefaultPollInterval is how often WaitForRelease re-checks the lock when
// filesystem notifications are unavailable or missed.
const DefaultPollInterval = 5 * time.Second

// Lock is the sentinel document recording which operation holds a workspace.
// At most one lock document exists per workspace at any time.
type Lock struct {
	Operation string    `json:"operation"`
	OwnerPID  int       `json:"ownerPid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"startedAt"`
}

// LockManager enforces single-writer access to one workspace directory.
type LockManager struct {
	dir          string
	pollInterval time.Duration
	logger       *telemetry.Logger
}

// NewLockManager creates a lock manager for the given workspace directory.
func NewLockManager(dir string, logger *telemetry.Logger) *LockManager {
	return &LockManager{
		dir:          dir,
		pollInterval: DefaultPollInterval,
		logger:       logger.NewComponentLogger("lock"),
	}
}

// SetPollInterval overrides the WaitForRelease poll interval. Intended for
// tests.
func (m *LockManager) SetPollInterval(d time.Duration) {
	m.pollInterval = d
}

// path returns the location of the lock document.
func (m *LockManager) path() string {
	return filepath.Join(m.dir, lockFileName)
}

// Acquire takes the workspace lock for the named operation. It fails closed:
// if a lock document already exists the holder's operation and pid are
// returned in an AlreadyLockedError and the existing lock is left untouched.
// There is no blocking or retry; the caller decides whether to wait or abort.
func (m *LockManager) Acquire(operation string) (*Lock, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("failed to determine hostname: %w", err)
	}

	lock := &Lock{
		Operation: operation,
		OwnerPID:  os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now().UTC(),
	}

	// O_EXCL guarantees at most one lock document per workspace even when
	// two processes race on acquisition.
	f, err := os.OpenFile(m.path(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			holder, readErr := m.Holder()
			if readErr != nil || holder == nil {
				return nil, &AlreadyLockedError{Operation: "unknown", OwnerPID: 0}
			}
			return nil, &AlreadyLockedError{Operation: holder.Operation, OwnerPID: holder.OwnerPID}
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		_ = f.Close()
		_ = os.Remove(m.path())
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}
	data = append(data, '\n')

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(m.path())
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(m.path())
		return nil, fmt.Errorf("failed to sync lock file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(m.path())
		return nil, fmt.Errorf("failed to close lock file: %w", err)
	}

	m.logger.WithField("operation", operation).Debug("Acquired workspace lock")
	return lock, nil
}

// Release removes the lock document. Releasing a workspace that is not
// locked is not an error.
func (m *LockManager) Release() error {
	err := os.Remove(m.path())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	if err == nil {
		m.logger.Debug("Released workspace lock")
	}
	return nil
}

// Holder returns the current lock document, or nil when the workspace is
// unlocked.
func (m *LockManager) Holder() (*Lock, error) {
	data, err := os.ReadFile(m.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lock file: %w", err)
	}

	lock := &Lock{}
	if err := json.Unmarshal(data, lock); err != nil {
		// An unparseable lock has no verifiable owner; report it with a
		// zero pid so reclamation treats it as stale.
		m.logger.WithError(err).Warn("Lock file is unreadable")
		return &Lock{Operation: "unknown"}, nil
	}
	return lock, nil
}

// ReclaimStale removes the lock if its owner process is no longer alive on
// this host, reporting whether a lock was reclaimed. A lock recorded by
// another hostname cannot be verified locally and is never auto-removed. A
// missing or unparseable owner pid is treated as stale unconditionally.
func (m *LockManager) ReclaimStale() (bool, error) {
	lock, err := m.Holder()
	if err != nil {
		return false, err
	}
	if lock == nil {
		return false, nil
	}

	hostname, err := os.Hostname()
	if err != nil {
		return false, fmt.Errorf("failed to determine hostname: %w", err)
	}
	if lock.Hostname != "" && lock.Hostname != hostname {
		m.logger.WithFields(map[string]interface{}{
			"operation": lock.Operation,
			"hostname":  lock.Hostname,
		}).Debug("Lock held on another host, not reclaiming")
		return false, nil
	}

	if lock.OwnerPID > 0 && processAlive(lock.OwnerPID) {
		return false, nil
	}

	m.logger.WithFields(map[string]interface{}{
		"operation": lock.Operation,
		"owner_pid": lock.OwnerPID,
	}).Warn("Reclaiming stale workspace lock from dead process")
	if err := m.Release(); err != nil {
		return false, err
	}
	return true, nil
}

// WaitForRelease blocks until the lock disappears or the timeout elapses.
// It is advisory tooling for callers that choose to wait rather than abort
// on AlreadyLockedError. The lock file is watched for removal so release is
// noticed promptly; polling remains the correctness backstop.
func (m *LockManager) WaitForRelease(ctx context.Context, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	var events chan fsnotify.Event
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if err := watcher.Add(m.dir); err == nil {
			events = make(chan fsnotify.Event)
			go func() {
				defer close(events)
				for ev := range watcher.Events {
					if ev.Name == m.path() && ev.Op.Has(fsnotify.Remove|fsnotify.Rename) {
						events <- ev
						return
					}
				}
			}()
		}
	}

	for {
		lock, err := m.Holder()
		if err != nil {
			return err
		}
		if lock == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: operation %q (pid %d) after %s",
				ErrWaitTimeout, lock.Operation, lock.OwnerPID, timeout)
		case <-ticker.C:
		case <-events:
		}
	}
}

// processAlive reports whether a process with the given pid exists on the
// local host. Signal 0 performs the existence check without delivering
// anything; EPERM still proves the process exists.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
