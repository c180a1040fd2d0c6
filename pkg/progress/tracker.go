package progress

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stackform/stackform/pkg/telemetry"
)

// logFileName is the append-only progress log inside the workspace directory.
const logFileName = "progress.ndjson"

// Status classifies a progress record.
type Status string

const (
	// StatusStarted marks the first record of a step.
	StatusStarted Status = "started"

	// StatusInProgress marks an intermediate percentage update.
	StatusInProgress Status = "in_progress"

	// StatusCompleted marks a step or stage as done. Terminal.
	StatusCompleted Status = "completed"

	// StatusFailed marks a step or stage as failed. Terminal.
	StatusFailed Status = "failed"
)

// IsTerminal returns true for statuses that override monotonicity.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record is one structured progress emission, the durable audit trail a
// separate status-polling consumer can replay.
type Record struct {
	Timestamp      time.Time `json:"timestamp"`
	RunID          string    `json:"runId"`
	Stage          string    `json:"stage"`
	Step           string    `json:"step"`
	Status         Status    `json:"status"`
	Message        string    `json:"message,omitempty"`
	StepPercent    *float64  `json:"stepPercent,omitempty"`
	OverallPercent float64   `json:"overallPercent"`
}

// Tracker owns the progress state of one in-flight operation. It enforces
// that the overall percentage never decreases for a given (stage, step) key
// and appends every emission to the workspace's progress log. It is owned
// by the operation instance, never process-wide state, and is discarded
// when the operation ends.
type Tracker struct {
	mu sync.Mutex

	dir     string
	stage   string
	runID   string
	last    map[string]float64
	lastMsg string

	logger  *telemetry.Logger
	metrics *telemetry.Metrics
}

// NewTracker creates a tracker for one operation on the given workspace
// directory. The run id stamps every emitted record.
func NewTracker(dir, stage string, tel *telemetry.Telemetry) (*Tracker, error) {
	if _, err := Steps(stage); err != nil {
		return nil, err
	}
	return &Tracker{
		dir:     dir,
		stage:   stage,
		runID:   uuid.NewString(),
		last:    make(map[string]float64),
		logger:  tel.Logger.NewComponentLogger("progress"),
		metrics: tel.Metrics,
	}, nil
}

// RunID returns the identifier stamped into every record of this tracker.
func (t *Tracker) RunID() string {
	return t.runID
}

// Stage returns the stage this tracker reports on.
func (t *Tracker) Stage() string {
	return t.stage
}

// LastMessage returns the most recently emitted human-readable message.
// Surfaced with subprocess failures so the operator sees how far the tool
// got.
func (t *Tracker) LastMessage() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastMsg
}

// Emit reports progress for one step. A non-terminal emission is accepted
// only when its overall percentage is >= the last accepted value for the
// (stage, step) key; terminal statuses always override, and completed
// forces the overall percentage to 100. Every accepted emission is appended
// to the progress log.
func (t *Tracker) Emit(step string, status Status, stepPercent float64, message string) error {
	overall, err := OverallPercent(t.stage, step, stepPercent)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := t.stage + "/" + step
	if !status.IsTerminal() && overall < t.last[key] {
		// Stale or regressing update; progress only ever moves forward.
		return nil
	}
	if status == StatusCompleted {
		// A completed emission is terminal for the stage and always
		// reports 100 regardless of the last non-terminal value.
		overall = 100
	}
	if overall > t.last[key] || status.IsTerminal() {
		t.last[key] = overall
	}
	if message != "" {
		t.lastMsg = message
	}

	sp := stepPercent
	rec := Record{
		Timestamp:      time.Now().UTC(),
		RunID:          t.runID,
		Stage:          t.stage,
		Step:           step,
		Status:         status,
		Message:        message,
		StepPercent:    &sp,
		OverallPercent: overall,
	}

	if err := t.append(&rec); err != nil {
		return err
	}

	t.metrics.SetProgress(t.stage, overall)
	t.metrics.RecordProgressEmission(t.stage, string(status))
	t.logger.WithStage(t.stage, step).
		WithField("overall_percent", overall).
		Debug(message)
	return nil
}

// Completed emits the terminal success record for the whole stage.
func (t *Tracker) Completed(message string) error {
	return t.Emit(StepComplete, StatusCompleted, 100, message)
}

// Failed emits the terminal failure record for a step.
func (t *Tracker) Failed(step, message string) error {
	return t.Emit(step, StatusFailed, 100, message)
}

// append writes one record to the progress log. The file is opened in
// append mode per record so a killed process loses at most a partial final
// line, which readers tolerate. The log may be written without the
// workspace lock since records are only ever added.
func (t *Tracker) append(rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal progress record: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(logPath(t.dir), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open progress log: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append progress record: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close progress log: %w", err)
	}
	return nil
}

// logPath returns the progress log location for a workspace directory.
func logPath(dir string) string {
	return filepath.Join(dir, logFileName)
}

// ReadLog replays the progress log of a workspace. A missing file yields an
// empty slice (no progress emitted yet) and a partially-written final line
// is skipped: the process may have been killed mid-write.
func ReadLog(dir string) ([]Record, error) {
	f, err := os.Open(logPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open progress log: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			// Truncated or torn line, skip it.
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read progress log: %w", err)
	}
	return records, nil
}
