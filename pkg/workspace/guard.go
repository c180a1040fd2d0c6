package workspace

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"github.com/stackform/stackform/pkg/telemetry"
)

// Guard is the finalizer bound to one operation's lifetime. Unless the
// operation explicitly records success before its execution ends, Finish
// forces the workspace into the configured failure status; in every case it
// releases the workspace lock. This is the single mechanism preventing
// orphaned locks and stuck in-progress statuses after crashes, interrupts,
// or unhandled errors.
type Guard struct {
	store         *Store
	locks         *LockManager
	failureStatus Status
	logger        *telemetry.Logger

	succeeded atomic.Bool
	once      sync.Once
}

// NewGuard creates a guard for an operation on the given workspace. The
// caller must arrange for Finish to run on every exit path, normally via
// defer plus WatchSignals for external termination.
func NewGuard(store *Store, locks *LockManager, failureStatus Status, logger *telemetry.Logger) *Guard {
	return &Guard{
		store:         store,
		locks:         locks,
		failureStatus: failureStatus,
		logger:        logger.NewComponentLogger("guard"),
	}
}

// Succeed records that the operation completed fully. It must be called
// before the operation body returns normally; it disarms the failure path
// of Finish.
func (g *Guard) Succeed() {
	g.succeeded.Store(true)
}

// Finish runs the finalizer exactly once, no matter how many exit paths
// reach it. If the operation did not record success, the workspace status
// is forced to the configured failure status. The lock is released in all
// cases.
func (g *Guard) Finish() {
	g.once.Do(func() {
		if !g.succeeded.Load() {
			g.logger.WithField("status", string(g.failureStatus)).
				Warn("Operation ended without success, recording failure status")
			if err := g.store.SetStatus(g.failureStatus); err != nil {
				g.logger.WithError(err).Error("Failed to record failure status")
			}
		}
		if err := g.locks.Release(); err != nil {
			g.logger.WithError(err).Error("Failed to release workspace lock")
		}
	})
}

// WatchSignals runs Finish when one of the given termination signals is
// delivered, so the failure status is recorded and the lock released even
// when the process is asked to terminate externally. The returned stop
// function detaches the watcher; it must be called once the operation body
// has completed and Finish has run through the normal path.
func (g *Guard) WatchSignals(signals ...os.Signal) func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-ch:
			g.logger.WithField("signal", sig.String()).
				Warn("Termination signal received, running operation finalizer")
			g.Finish()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(ch)
		close(done)
	}
}
