package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(Config{Path: filepath.Join(t.TempDir(), "history.db")})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func testEntry(workspace, operation string, outcome Outcome) *Entry {
	started := time.Now().UTC().Add(-2 * time.Minute)
	completed := time.Now().UTC()
	return &Entry{
		ID:              uuid.NewString(),
		Workspace:       workspace,
		Operation:       operation,
		Provider:        "aws",
		Nodes:           3,
		Outcome:         outcome,
		StartedAt:       started,
		CompletedAt:     &completed,
		DurationSeconds: 120,
		OutputLines:     1500,
	}
}

func TestNewStoreRequiresPath(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestAppendAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	entry := testEntry("prod", "deploy", OutcomeSucceeded)
	if err := store.Append(ctx, entry); err != nil {
		t.Fatalf("failed to append entry: %v", err)
	}

	got, err := store.Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("failed to get entry: %v", err)
	}

	if got.Workspace != "prod" {
		t.Errorf("expected workspace prod, got %s", got.Workspace)
	}
	if got.Operation != "deploy" {
		t.Errorf("expected operation deploy, got %s", got.Operation)
	}
	if got.Outcome != OutcomeSucceeded {
		t.Errorf("expected outcome succeeded, got %s", got.Outcome)
	}
	if got.Nodes != 3 {
		t.Errorf("expected 3 nodes, got %d", got.Nodes)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to be populated")
	}
}

func TestGetNotFound(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.Get(context.Background(), uuid.NewString()); err == nil {
		t.Fatal("expected error for missing entry")
	}
}

func TestAppendFailedEntry(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	entry := testEntry("prod", "destroy", OutcomeFailed)
	msg := "terraform exited with status 1"
	entry.Error = &msg

	if err := store.Append(ctx, entry); err != nil {
		t.Fatalf("failed to append entry: %v", err)
	}

	got, err := store.Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("failed to get entry: %v", err)
	}
	if got.Error == nil || *got.Error != msg {
		t.Errorf("expected error message %q, got %v", msg, got.Error)
	}
}

func TestListByWorkspace(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		entry := testEntry("prod", "deploy", OutcomeSucceeded)
		entry.StartedAt = time.Now().UTC().Add(time.Duration(-i) * time.Hour)
		if err := store.Append(ctx, entry); err != nil {
			t.Fatalf("failed to append entry: %v", err)
		}
	}
	if err := store.Append(ctx, testEntry("staging", "stop", OutcomeSucceeded)); err != nil {
		t.Fatalf("failed to append entry: %v", err)
	}

	entries, err := store.List(ctx, "prod", 10, 0)
	if err != nil {
		t.Fatalf("failed to list entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	for i := 1; i < len(entries); i++ {
		if entries[i].StartedAt.After(entries[i-1].StartedAt) {
			t.Error("expected entries sorted newest first")
		}
	}
}

func TestListAllWorkspaces(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, testEntry("prod", "deploy", OutcomeSucceeded)); err != nil {
		t.Fatalf("failed to append entry: %v", err)
	}
	if err := store.Append(ctx, testEntry("staging", "deploy", OutcomeSucceeded)); err != nil {
		t.Fatalf("failed to append entry: %v", err)
	}

	entries, err := store.List(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("failed to list entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestListPagination(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		entry := testEntry("prod", "deploy", OutcomeSucceeded)
		entry.StartedAt = time.Now().UTC().Add(time.Duration(-i) * time.Hour)
		if err := store.Append(ctx, entry); err != nil {
			t.Fatalf("failed to append entry: %v", err)
		}
	}

	page, err := store.List(ctx, "prod", 2, 2)
	if err != nil {
		t.Fatalf("failed to list entries: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page))
	}
}

func TestHealthCheck(t *testing.T) {
	store := setupTestStore(t)

	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy store, got %v", err)
	}
}
