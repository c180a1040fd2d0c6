package workspace

import (
	"syscall"
	"testing"
	"time"

	"github.com/stackform/stackform/pkg/telemetry"
)

func setupGuard(t *testing.T, failureStatus Status) (*Guard, *Store, *LockManager) {
	t.Helper()

	dir := t.TempDir()
	store := NewStore(dir)
	if err := store.Init(State{ProviderName: "aws"}); err != nil {
		t.Fatalf("failed to init state: %v", err)
	}

	locks := NewLockManager(dir, telemetry.NopLogger())
	if _, err := locks.Acquire("deploy"); err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	return NewGuard(store, locks, failureStatus, telemetry.NopLogger()), store, locks
}

func TestFinishWithoutSuccessRecordsFailure(t *testing.T) {
	guard, store, locks := setupGuard(t, StatusDeployFailed)

	guard.Finish()

	state, err := store.Read()
	if err != nil {
		t.Fatalf("failed to read state: %v", err)
	}
	if state.Status != StatusDeployFailed {
		t.Errorf("expected deploy_failed, got %s", state.Status)
	}

	holder, err := locks.Holder()
	if err != nil {
		t.Fatalf("failed to read holder: %v", err)
	}
	if holder != nil {
		t.Error("expected lock to be released")
	}
}

func TestFinishAfterSucceedKeepsStatus(t *testing.T) {
	guard, store, locks := setupGuard(t, StatusDeployFailed)

	if err := store.SetStatus(StatusReady); err != nil {
		t.Fatalf("failed to set status: %v", err)
	}
	guard.Succeed()
	guard.Finish()

	state, err := store.Read()
	if err != nil {
		t.Fatalf("failed to read state: %v", err)
	}
	if state.Status != StatusReady {
		t.Errorf("expected ready, got %s", state.Status)
	}

	holder, err := locks.Holder()
	if err != nil {
		t.Fatalf("failed to read holder: %v", err)
	}
	if holder != nil {
		t.Error("expected lock to be released even on success")
	}
}

func TestFinishRunsOnce(t *testing.T) {
	guard, store, _ := setupGuard(t, StatusDeployFailed)

	guard.Finish()

	first, err := store.Read()
	if err != nil {
		t.Fatalf("failed to read state: %v", err)
	}

	// A later success must not undo the recorded failure, and a second
	// Finish must not rewrite the document.
	guard.Succeed()
	guard.Finish()

	second, err := store.Read()
	if err != nil {
		t.Fatalf("failed to read state: %v", err)
	}
	if second.Status != StatusDeployFailed {
		t.Errorf("expected deploy_failed to stick, got %s", second.Status)
	}
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Error("expected second Finish to be a no-op")
	}
}

func TestWatchSignalsRunsFinalizer(t *testing.T) {
	guard, store, locks := setupGuard(t, StatusDeployFailed)

	stop := guard.WatchSignals(syscall.SIGUSR1)
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("failed to deliver signal: %v", err)
	}

	// The watcher runs Finish on its own goroutine; poll until the lock
	// disappears.
	deadline := time.Now().Add(5 * time.Second)
	for {
		holder, err := locks.Holder()
		if err != nil {
			t.Fatalf("failed to read holder: %v", err)
		}
		if holder == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("lock still held after termination signal")
		}
		time.Sleep(10 * time.Millisecond)
	}

	state, err := store.Read()
	if err != nil {
		t.Fatalf("failed to read state: %v", err)
	}
	if state.Status != StatusDeployFailed {
		t.Errorf("expected deploy_failed after signal, got %s", state.Status)
	}
}

func TestWatchSignalsStopDetaches(t *testing.T) {
	guard, store, locks := setupGuard(t, StatusDeployFailed)

	stop := guard.WatchSignals(syscall.SIGUSR1)
	stop()
	guard.Succeed()
	guard.Finish()

	state, err := store.Read()
	if err != nil {
		t.Fatalf("failed to read state: %v", err)
	}
	if state.Status != StatusInitialized {
		t.Errorf("expected status untouched after detach, got %s", state.Status)
	}

	holder, err := locks.Holder()
	if err != nil {
		t.Fatalf("failed to read holder: %v", err)
	}
	if holder != nil {
		t.Error("expected lock to be released")
	}
}

func TestFinishConcurrent(t *testing.T) {
	guard, store, _ := setupGuard(t, StatusStopFailed)

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			guard.Finish()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	state, err := store.Read()
	if err != nil {
		t.Fatalf("failed to read state: %v", err)
	}
	if state.Status != StatusStopFailed {
		t.Errorf("expected stop_failed, got %s", state.Status)
	}
}
