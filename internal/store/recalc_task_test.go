package store

import (
	"testing"
	"time"

	"github.com/ebenavides/ekklesia/internal/database"
)

func setupRecalcTaskTestDB(t *testing.T) (*RecalcTaskStore, *ChurchStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRecalcTaskStore(db), NewChurchStore(db)
}

func TestRecalcTaskEnqueue(t *testing.T) {
	ts, cs := setupRecalcTaskTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	year := 2026
	task, err := ts.Enqueue(church.ID, "faith_decisions", &year)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if task.Kind != "faith_decisions" {
		t.Errorf("kind = %q, want %q", task.Kind, "faith_decisions")
	}
	if task.Year == nil || *task.Year != 2026 {
		t.Errorf("year = %v, want 2026", task.Year)
	}
	if task.Attempts != 0 {
		t.Errorf("attempts = %d, want 0", task.Attempts)
	}
	if task.DoneAt != nil {
		t.Error("expected nil done_at on a new task")
	}
}

func TestRecalcTaskEnqueueNoYear(t *testing.T) {
	ts, cs := setupRecalcTaskTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	task, err := ts.Enqueue(church.ID, "membership", nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if task.Year != nil {
		t.Errorf("year = %v, want nil", task.Year)
	}
}

func TestRecalcTaskListDue(t *testing.T) {
	ts, cs := setupRecalcTaskTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	task, _ := ts.Enqueue(church.ID, "membership", nil)

	due, err := ts.ListDue(time.Now().UTC().Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("len(due) = %d, want 1", len(due))
	}
	if due[0].ID != task.ID {
		t.Errorf("id = %d, want %d", due[0].ID, task.ID)
	}
}

func TestRecalcTaskRescheduleDefersAndCounts(t *testing.T) {
	ts, cs := setupRecalcTaskTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	task, _ := ts.Enqueue(church.ID, "membership", nil)

	future := time.Now().UTC().Add(time.Hour)
	if err := ts.Reschedule(task.ID, future, "db locked"); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	due, err := ts.ListDue(time.Now().UTC().Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("len(due) = %d, want 0 after reschedule", len(due))
	}

	got, _ := ts.GetByID(task.ID)
	if got.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", got.Attempts)
	}
	if got.LastError != "db locked" {
		t.Errorf("last_error = %q, want %q", got.LastError, "db locked")
	}
}

func TestRecalcTaskMarkDone(t *testing.T) {
	ts, cs := setupRecalcTaskTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	task, _ := ts.Enqueue(church.ID, "membership", nil)

	if err := ts.MarkDone(task.ID); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	due, _ := ts.ListDue(time.Now().UTC().Add(time.Minute), 10)
	if len(due) != 0 {
		t.Errorf("len(due) = %d, want 0 after done", len(due))
	}

	pending, err := ts.CountPending()
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if pending != 0 {
		t.Errorf("pending = %d, want 0", pending)
	}
}

func TestRecalcTaskDeleteCompleted(t *testing.T) {
	ts, cs := setupRecalcTaskTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	task, _ := ts.Enqueue(church.ID, "membership", nil)
	ts.MarkDone(task.ID)

	n, err := ts.DeleteCompleted(time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("delete completed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}

	got, err := ts.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}
