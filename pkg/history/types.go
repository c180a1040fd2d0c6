package history

import "time"

// Outcome classifies how an operation ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Entry is one finished workspace operation.
type Entry struct {
	ID              string     `json:"id"`
	Workspace       string     `json:"workspace"`
	Operation       string     `json:"operation"`
	Provider        string     `json:"provider"`
	Nodes           int        `json:"nodes"`
	Outcome         Outcome    `json:"outcome"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`
	OutputLines     int        `json:"output_lines"`
	Error           *string    `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
