package progress

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// SubprocessError indicates a wrapped tool returned a non-zero exit status.
// It carries the last-seen progress message so the operator knows how far
// the tool got before failing.
type SubprocessError struct {
	Tool        string
	ExitCode    int
	LastMessage string
}

// Error implements the error interface.
func (e *SubprocessError) Error() string {
	if e.LastMessage != "" {
		return fmt.Sprintf("%s exited with status %d (last progress: %s)", e.Tool, e.ExitCode, e.LastMessage)
	}
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
}

// IsSubprocessFailure returns true if the error indicates a failed tool
// invocation.
func IsSubprocessFailure(err error) bool {
	var e *SubprocessError
	return errors.As(err, &e)
}

// Invocation describes one external tool run reported through a tracker.
type Invocation struct {
	// Tool is a short label for the wrapped tool, used in errors and
	// metrics.
	Tool string

	// Command and Args form the exec invocation.
	Command string
	Args    []string

	// Dir is the working directory, empty for the current one.
	Dir string

	// Env appends to the inherited environment when non-nil.
	Env []string

	// Step is the stage step this invocation reports under.
	Step string

	// Parser extracts progress from the combined output stream.
	Parser LineParser
}

// Runner executes external tool invocations, forwarding their combined
// stdout+stderr line-by-line to an output writer while feeding the same
// lines to a progress parser. The tool's native output always remains
// visible: transparency is a hard requirement.
type Runner struct {
	tracker *Tracker
	out     io.Writer
}

// NewRunner creates a runner reporting through the given tracker. Every
// consumed line is echoed to out.
func NewRunner(tracker *Tracker, out io.Writer) *Runner {
	return &Runner{tracker: tracker, out: out}
}

// Run executes one invocation to completion, blocking until the stream is
// drained and the process has exited. The exit status is taken from the
// process handle itself, never from any stage of the output pipeline. On a
// non-zero exit a terminal failed record is emitted before the error is
// returned.
func (r *Runner) Run(ctx context.Context, inv Invocation) error {
	cmd := exec.CommandContext(ctx, inv.Command, inv.Args...)
	cmd.Dir = inv.Dir
	if inv.Env != nil {
		cmd.Env = inv.Env
	}

	// One pipe carries both streams so line order matches what the tool
	// interleaved.
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := r.tracker.Emit(inv.Step, StatusStarted, 0, fmt.Sprintf("running %s", inv.Tool)); err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", inv.Tool, err)
	}

	scanErr := make(chan error, 1)
	go func() {
		err := r.consume(pr, inv)
		// An early consumer exit must unblock the exec copy goroutine
		// writing into the pipe, or Wait below never returns.
		pr.CloseWithError(err)
		scanErr <- err
	}()

	// Wait reads the exit status directly from the process handle; the
	// pipe is closed afterwards so the consumer sees EOF once the last
	// buffered output has been drained.
	waitErr := cmd.Wait()
	_ = pw.Close()
	if err := <-scanErr; err != nil {
		return err
	}

	if waitErr != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		r.tracker.metrics.RecordSubprocessExit(inv.Tool, "failed")
		subErr := &SubprocessError{
			Tool:        inv.Tool,
			ExitCode:    code,
			LastMessage: r.tracker.LastMessage(),
		}
		if err := r.tracker.Failed(inv.Step, subErr.Error()); err != nil {
			return err
		}
		return subErr
	}

	r.tracker.metrics.RecordSubprocessExit(inv.Tool, "succeeded")
	return r.tracker.Emit(inv.Step, StatusInProgress, 100, fmt.Sprintf("%s finished", inv.Tool))
}

// consume reads the combined stream line-by-line, forwarding each line
// unmodified before updating progress state.
func (r *Runner) consume(pr io.Reader, inv Invocation) error {
	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if _, err := fmt.Fprintln(r.out, line); err != nil {
			return fmt.Errorf("failed to forward tool output: %w", err)
		}
		r.tracker.metrics.RecordSubprocessLine(inv.Tool)

		update, ok := inv.Parser.ParseLine(line)
		if !ok {
			continue
		}
		status := StatusInProgress
		percent := update.Percent
		if !update.Scaled {
			// Without a declared total the running count cannot be
			// scaled; hold the step at zero and let the message carry
			// the raw count.
			percent = 0
		}
		if err := r.tracker.Emit(inv.Step, status, percent, update.Message); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read tool output: %w", err)
	}
	return nil
}
