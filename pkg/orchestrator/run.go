package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/stackform/stackform/pkg/calibration"
	"github.com/stackform/stackform/pkg/history"
	"github.com/stackform/stackform/pkg/progress"
	"github.com/stackform/stackform/pkg/telemetry"
	"github.com/stackform/stackform/pkg/workspace"
)

// RunOptions tune one operation run.
type RunOptions struct {
	// Nodes is the node count of the deployment, used to pick the
	// calibration estimate and recorded with the sample afterwards.
	// Values below one are treated as one.
	Nodes int

	// WaitForLock makes the operation wait for a concurrent holder to
	// release the workspace instead of failing immediately.
	WaitForLock bool
}

// operationSpec binds an operation name to its stage, terminal statuses,
// and step body.
type operationSpec struct {
	name          string
	stage         string
	successStatus workspace.Status
	failureStatus workspace.Status
	steps         func(ctx context.Context, rc *runContext) error
}

// runContext carries the per-run machinery through the step body.
type runContext struct {
	name    string
	dir     string
	state   *workspace.State
	tracker *progress.Tracker
	runner  *progress.Runner
	nodes   int
}

// lineCountingWriter counts forwarded output lines on the way to the
// real writer, so a finished run knows its total volume for history and
// calibration.
type lineCountingWriter struct {
	w     io.Writer
	lines atomic.Int64
}

func (c *lineCountingWriter) Write(p []byte) (int, error) {
	c.lines.Add(int64(bytes.Count(p, []byte{'\n'})))
	return c.w.Write(p)
}

func (c *lineCountingWriter) Lines() int {
	return int(c.lines.Load())
}

// run executes one operation through the full lifecycle. The guard
// guarantees failure status and lock release on every exit path.
func (o *Orchestrator) run(ctx context.Context, name string, op operationSpec, opts RunOptions) error {
	if opts.Nodes < 1 {
		opts.Nodes = 1
	}

	dir := o.WorkspaceDir(name)
	logger := o.logger.WithWorkspace(name).WithOperation(op.name)

	store := workspace.NewStore(dir)
	state, err := store.Read()
	if err != nil {
		return err
	}

	locks := workspace.NewLockManager(dir, o.tel.Logger)
	locks.SetPollInterval(o.cfg.Workspace.LockPollInterval)

	reclaimed, err := locks.ReclaimStale()
	if err != nil {
		return err
	}
	if reclaimed {
		o.tel.Metrics.RecordStaleLockReclaimed()
	}

	if _, err := locks.Acquire(op.name); err != nil {
		if !workspace.IsAlreadyLocked(err) {
			return err
		}
		o.tel.Metrics.RecordLockContention(op.name)
		if !opts.WaitForLock {
			return err
		}
		logger.Info("Workspace is locked, waiting for release")
		if err := locks.WaitForRelease(ctx, o.cfg.Workspace.LockWaitTimeout); err != nil {
			return err
		}
		if _, err := locks.Acquire(op.name); err != nil {
			return err
		}
	}

	guard := workspace.NewGuard(store, locks, op.failureStatus, o.tel.Logger)
	defer guard.Finish()
	stopSignals := guard.WatchSignals(syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	tracker, err := progress.NewTracker(dir, op.stage, o.tel)
	if err != nil {
		return err
	}

	ctx, span := o.tel.Tracer.StartOperationSpan(ctx, tracker.RunID(), op.name, name)
	defer span.End()

	counted := &lineCountingWriter{w: o.out}
	rc := &runContext{
		name:    name,
		dir:     dir,
		state:   state,
		tracker: tracker,
		runner:  progress.NewRunner(tracker, counted),
		nodes:   opts.Nodes,
	}

	timer := telemetry.NewTimer()
	startedAt := time.Now().UTC()
	o.tel.Metrics.RecordOperationStarted(op.name)
	logger.WithRunID(tracker.RunID()).Info("Operation started")

	if err := tracker.Emit(progress.StepBegin, progress.StatusStarted, 0, op.name+" started"); err != nil {
		return err
	}
	if err := tracker.Emit(progress.StepBegin, progress.StatusInProgress, 100, "workspace locked, state loaded"); err != nil {
		return err
	}

	if err := op.steps(ctx, rc); err != nil {
		telemetry.RecordError(span, err)
		o.tel.Metrics.RecordOperationCompleted(op.name, "failed", timer.Duration())
		if !progress.IsSubprocessFailure(err) {
			// Subprocess failures already emitted their terminal record
			// in the runner.
			if emitErr := tracker.Failed(progress.StepComplete, err.Error()); emitErr != nil {
				logger.WithError(emitErr).Error("Failed to emit failure record")
			}
		}
		o.appendHistory(ctx, rc, op, history.OutcomeFailed, startedAt, timer.Duration(), counted.Lines(), err)
		logger.WithError(err).Error("Operation failed")
		return err
	}

	if err := store.SetStatus(op.successStatus); err != nil {
		return fmt.Errorf("failed to record terminal status: %w", err)
	}
	guard.Succeed()

	duration := timer.Duration()
	o.appendHistory(ctx, rc, op, history.OutcomeSucceeded, startedAt, duration, counted.Lines(), nil)
	o.recordSample(rc, op, counted.Lines(), duration)

	if err := tracker.Completed(op.name + " complete"); err != nil {
		return err
	}

	telemetry.RecordSuccess(span)
	o.tel.Metrics.RecordOperationCompleted(op.name, "succeeded", duration)
	logger.WithField("duration", duration.String()).Info("Operation completed")
	return nil
}

// appendHistory records one finished run. History failures are logged,
// never fatal: the operation outcome stands on its own.
func (o *Orchestrator) appendHistory(ctx context.Context, rc *runContext, op operationSpec, outcome history.Outcome, startedAt time.Time, duration time.Duration, lines int, runErr error) {
	if o.history == nil {
		return
	}

	completedAt := startedAt.Add(duration)
	entry := &history.Entry{
		ID:              rc.tracker.RunID(),
		Workspace:       rc.name,
		Operation:       op.name,
		Provider:        rc.state.ProviderName,
		Nodes:           rc.nodes,
		Outcome:         outcome,
		StartedAt:       startedAt,
		CompletedAt:     &completedAt,
		DurationSeconds: duration.Seconds(),
		OutputLines:     lines,
	}
	if runErr != nil {
		msg := runErr.Error()
		entry.Error = &msg
	}

	if err := o.history.Append(ctx, entry); err != nil {
		o.logger.WithError(err).Warn("Failed to append history entry")
	}
}

// recordSample captures a successful run as a calibration sample so
// future runs of the same shape get better progress estimates.
func (o *Orchestrator) recordSample(rc *runContext, op operationSpec, lines int, duration time.Duration) {
	if rc.state.ProviderName == "" || lines == 0 {
		return
	}
	err := o.estimator().Record(calibration.Sample{
		Provider:   rc.state.ProviderName,
		Operation:  op.name,
		Nodes:      rc.nodes,
		TotalLines: lines,
		Duration:   duration,
	})
	if err != nil {
		o.logger.WithError(err).Warn("Failed to record calibration sample")
	}
}
