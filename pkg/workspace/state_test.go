package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir())
}

func initTestState(t *testing.T, store *Store) {
	t.Helper()
	err := store.Init(State{
		TargetVersion:  "1.2.3",
		TargetPlatform: "linux",
		ProviderName:   "aws",
	})
	if err != nil {
		t.Fatalf("failed to init state: %v", err)
	}
}

func TestInitCreatesState(t *testing.T) {
	store := newTestStore(t)
	initTestState(t, store)

	state, err := store.Read()
	if err != nil {
		t.Fatalf("failed to read state: %v", err)
	}

	if state.SchemaVersion != SchemaVersion {
		t.Errorf("expected schema version %s, got %s", SchemaVersion, state.SchemaVersion)
	}
	if state.Status != StatusInitialized {
		t.Errorf("expected initialized, got %s", state.Status)
	}
	if state.ProviderName != "aws" {
		t.Errorf("expected provider aws, got %s", state.ProviderName)
	}
	if state.CreatedAt.IsZero() || state.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestInitFailsWhenAlreadyInitialized(t *testing.T) {
	store := newTestStore(t)
	initTestState(t, store)

	if err := store.Init(State{}); err == nil {
		t.Fatal("expected error on double init")
	}
}

func TestReadMissingStateReturnsNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Read()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateBumpsUpdatedAt(t *testing.T) {
	store := newTestStore(t)
	initTestState(t, store)

	before, err := store.Read()
	if err != nil {
		t.Fatalf("failed to read state: %v", err)
	}

	after, err := store.Update(func(s *State) {
		s.TargetVersion = "1.3.0"
	})
	if err != nil {
		t.Fatalf("failed to update state: %v", err)
	}

	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Errorf("expected updatedAt to advance: before=%s after=%s", before.UpdatedAt, after.UpdatedAt)
	}
	if after.TargetVersion != "1.3.0" {
		t.Errorf("expected mutated version, got %s", after.TargetVersion)
	}
	if after.CreatedAt != before.CreatedAt {
		t.Error("expected createdAt to be immutable")
	}
}

func TestUpdatedAtMonotonicAcrossRapidWrites(t *testing.T) {
	store := newTestStore(t)
	initTestState(t, store)

	prev, err := store.Read()
	if err != nil {
		t.Fatalf("failed to read state: %v", err)
	}

	for i := 0; i < 10; i++ {
		next, err := store.Update(func(s *State) {})
		if err != nil {
			t.Fatalf("failed to update state: %v", err)
		}
		if !next.UpdatedAt.After(prev.UpdatedAt) {
			t.Fatalf("updatedAt did not advance on write %d: %s -> %s", i, prev.UpdatedAt, next.UpdatedAt)
		}
		prev = next
	}
}

func TestSetStatus(t *testing.T) {
	store := newTestStore(t)
	initTestState(t, store)

	if err := store.SetStatus(StatusReady); err != nil {
		t.Fatalf("failed to set status: %v", err)
	}

	state, err := store.Read()
	if err != nil {
		t.Fatalf("failed to read state: %v", err)
	}
	if state.Status != StatusReady {
		t.Errorf("expected ready, got %s", state.Status)
	}
}

func TestSetStatusRejectsInvalid(t *testing.T) {
	store := newTestStore(t)
	initTestState(t, store)

	if err := store.SetStatus(Status("deploy_in_progress")); err == nil {
		t.Fatal("expected error persisting a derived status")
	}
	if err := store.SetStatus(Status("bogus")); err == nil {
		t.Fatal("expected error persisting an unknown status")
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)
	initTestState(t, store)

	if _, err := store.Update(func(s *State) {}); err != nil {
		t.Fatalf("failed to update state: %v", err)
	}

	entries, err := os.ReadDir(store.Dir())
	if err != nil {
		t.Fatalf("failed to read workspace dir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != stateFileName {
			t.Errorf("unexpected file in workspace: %s", e.Name())
		}
	}

	if _, err := os.Stat(filepath.Join(store.Dir(), stateFileName)); err != nil {
		t.Errorf("expected state document to exist: %v", err)
	}
}
