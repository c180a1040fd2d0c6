package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// stateFileName is the JSON state document inside the workspace directory.
const stateFileName = "state.json"

// SchemaVersion is the current version of the state document schema.
const SchemaVersion = "1"

// State is the persisted lifecycle document of a deployment workspace.
// There is exactly one per workspace; it is created at initialization and
// never deleted by this package (destroying infrastructure transitions the
// status, it does not remove the document).
type State struct {
	SchemaVersion  string    `json:"schemaVersion"`
	Status         Status    `json:"status"`
	TargetVersion  string    `json:"targetVersion"`
	TargetPlatform string    `json:"targetPlatform"`
	ProviderName   string    `json:"providerName"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Store provides access to the state document of one workspace directory.
// The store performs no locking itself; callers must hold the workspace
// lock around any multi-step state transition.
type Store struct {
	dir string
}

// NewStore creates a store for the given workspace directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the workspace directory this store operates on.
func (s *Store) Dir() string {
	return s.dir
}

// path returns the location of the state document.
func (s *Store) path() string {
	return filepath.Join(s.dir, stateFileName)
}

// Init creates the state document. It fails if the document already exists.
func (s *Store) Init(state State) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	if _, err := os.Stat(s.path()); err == nil {
		return fmt.Errorf("workspace already initialized: %s", s.dir)
	}

	now := time.Now().UTC()
	state.SchemaVersion = SchemaVersion
	state.CreatedAt = now
	state.UpdatedAt = now
	if state.Status == "" {
		state.Status = StatusInitialized
	}
	if err := state.Status.Validate(); err != nil {
		return err
	}

	return s.write(&state)
}

// Read returns the current state document. It returns ErrNotFound when the
// workspace has not been initialized.
func (s *Store) Read() (*State, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.dir)
		}
		return nil, fmt.Errorf("failed to read workspace state: %w", err)
	}

	state := &State{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to parse workspace state: %w", err)
	}
	return state, nil
}

// Update applies a read-modify-write mutation to the state document and
// bumps the updatedAt timestamp. updatedAt increases on every write even
// when the clock has not advanced past the previous value.
func (s *Store) Update(mutate func(*State)) (*State, error) {
	state, err := s.Read()
	if err != nil {
		return nil, err
	}

	mutate(state)
	if err := state.Status.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if !now.After(state.UpdatedAt) {
		now = state.UpdatedAt.Add(time.Millisecond)
	}
	state.UpdatedAt = now

	if err := s.write(state); err != nil {
		return nil, err
	}
	return state, nil
}

// SetStatus transitions the persisted status field.
func (s *Store) SetStatus(status Status) error {
	_, err := s.Update(func(state *State) {
		state.Status = status
	})
	return err
}

// write persists the document atomically via a temp file and rename so a
// crash mid-write never leaves a truncated state document behind.
func (s *Store) write(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workspace state: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, stateFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write workspace state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync workspace state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close workspace state: %w", err)
	}

	if err := os.Rename(tmpName, s.path()); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace workspace state: %w", err)
	}
	return nil
}
