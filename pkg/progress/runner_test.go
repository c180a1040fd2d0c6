package progress

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTestScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestRunnerForwardsOutput(t *testing.T) {
	tracker, _ := newTestTracker(t, StageDeploy)
	out := &bytes.Buffer{}
	runner := NewRunner(tracker, out)

	script := writeTestScript(t, `echo "line one"
echo "line two" >&2
echo "line three"`)

	err := runner.Run(context.Background(), Invocation{
		Tool:    "tool",
		Command: script,
		Step:    StepProvisionApply,
		Parser:  NewLineCountParser(10, 0),
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, want := range []string{"line one", "line two", "line three"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected output to contain %q, got %q", want, out.String())
		}
	}
}

func TestRunnerEmitsProgressFromParser(t *testing.T) {
	tracker, dir := newTestTracker(t, StageDeploy)
	runner := NewRunner(tracker, &bytes.Buffer{})

	script := writeTestScript(t, `echo "Plan: 1 to add, 0 to change, 0 to destroy."
echo "node_a: Creating..."
echo "node_a: Creation complete after 1s"`)

	err := runner.Run(context.Background(), Invocation{
		Tool:    "provisioner",
		Command: script,
		Step:    StepProvisionApply,
		Parser:  NewProvisionParser(),
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	records, err := ReadLog(dir)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}

	// Started, parsed updates, and the finishing emission.
	if len(records) < 3 {
		t.Fatalf("expected multiple records, got %d", len(records))
	}
	if records[0].Status != StatusStarted {
		t.Errorf("expected first record started, got %s", records[0].Status)
	}
	last := records[len(records)-1]
	// provision-apply at 100% within deploy: 15 + 40 = 55 overall.
	if last.OverallPercent != 55 {
		t.Errorf("expected overall 55 at step end, got %.1f", last.OverallPercent)
	}
}

func TestRunnerReportsExitStatus(t *testing.T) {
	tracker, dir := newTestTracker(t, StageDeploy)
	runner := NewRunner(tracker, &bytes.Buffer{})

	script := writeTestScript(t, `echo "some progress"
exit 3`)

	err := runner.Run(context.Background(), Invocation{
		Tool:    "provisioner",
		Command: script,
		Step:    StepProvisionInit,
		Parser:  NewLineCountParser(10, 0),
	})
	if err == nil {
		t.Fatal("expected run to fail")
	}

	var subErr *SubprocessError
	if !errors.As(err, &subErr) {
		t.Fatalf("expected SubprocessError, got %v", err)
	}
	if subErr.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", subErr.ExitCode)
	}
	if subErr.LastMessage == "" {
		t.Error("expected last progress message to be carried")
	}
	if !IsSubprocessFailure(err) {
		t.Error("expected IsSubprocessFailure to match")
	}

	rec := lastRecord(t, dir)
	if rec.Status != StatusFailed {
		t.Errorf("expected terminal failed record, got %s", rec.Status)
	}
}

func TestRunnerExitStatusDespiteOutput(t *testing.T) {
	tracker, _ := newTestTracker(t, StageDeploy)
	runner := NewRunner(tracker, &bytes.Buffer{})

	// Plenty of successful-looking output must not mask the exit code.
	script := writeTestScript(t, `for i in 1 2 3 4 5; do echo "ok $i"; done
exit 1`)

	err := runner.Run(context.Background(), Invocation{
		Tool:    "tool",
		Command: script,
		Step:    StepProvisionInit,
		Parser:  NewLineCountParser(10, 0),
	})
	var subErr *SubprocessError
	if !errors.As(err, &subErr) || subErr.ExitCode != 1 {
		t.Fatalf("expected exit code 1 through the pipeline, got %v", err)
	}
}

// failingWriter accepts a few writes, then rejects everything.
type failingWriter struct {
	writes int
	limit  int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.writes > w.limit {
		return 0, errors.New("no space left on device")
	}
	return len(p), nil
}

func TestRunnerOutputWriterFailure(t *testing.T) {
	tracker, _ := newTestTracker(t, StageDeploy)
	runner := NewRunner(tracker, &failingWriter{limit: 3})

	// Enough output to fill every pipe buffer between the tool and the
	// broken writer.
	script := writeTestScript(t, `seq 1 200000`)

	done := make(chan error, 1)
	go func() {
		done <- runner.Run(context.Background(), Invocation{
			Tool:    "tool",
			Command: script,
			Step:    StepProvisionInit,
			Parser:  NewLineCountParser(10, 0),
		})
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected a forwarding error")
		}
		if !strings.Contains(err.Error(), "failed to forward tool output") {
			t.Errorf("expected forwarding error, got %v", err)
		}
		if IsSubprocessFailure(err) {
			t.Error("a broken output writer is not a tool failure")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after the output writer failed")
	}
}

func TestRunnerMissingCommand(t *testing.T) {
	tracker, _ := newTestTracker(t, StageDeploy)
	runner := NewRunner(tracker, &bytes.Buffer{})

	err := runner.Run(context.Background(), Invocation{
		Tool:    "tool",
		Command: "/nonexistent/tool",
		Step:    StepProvisionInit,
		Parser:  NewLineCountParser(10, 0),
	})
	if err == nil {
		t.Fatal("expected error for missing command")
	}
	if IsSubprocessFailure(err) {
		t.Error("a command that never started is not a subprocess failure")
	}
}

func TestRunnerContextCancellation(t *testing.T) {
	tracker, _ := newTestTracker(t, StageDeploy)
	runner := NewRunner(tracker, &bytes.Buffer{})

	script := writeTestScript(t, `sleep 30`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runner.Run(ctx, Invocation{
		Tool:    "tool",
		Command: script,
		Step:    StepProvisionInit,
		Parser:  NewLineCountParser(10, 0),
	})
	if err == nil {
		t.Fatal("expected error on cancelled context")
	}
}
