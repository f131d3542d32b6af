package stats

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ebenavides/ekklesia/internal/database"
	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/store"
)

func setupWorkerTest(t *testing.T) (*Worker, *store.RecalcTaskStore, *store.ChurchStore, *store.MemberStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tasks := store.NewRecalcTaskStore(db)
	recalc := NewRecalculator(db)
	logger := slog.New(slog.DiscardHandler)
	return NewWorker(tasks, recalc, logger), tasks, store.NewChurchStore(db), store.NewMemberStore(db)
}

func TestWorkerProcessMarksDone(t *testing.T) {
	w, tasks, cs, ms := setupWorkerTest(t)

	church, _ := cs.Create("Iglesia Central", "")
	ms.Create(church.ID, store.MemberParams{Name: "Uno"})
	ms.Create(church.ID, store.MemberParams{Name: "Dos"})

	task, err := tasks.Enqueue(church.ID, model.RecalcMembership, nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	w.process(context.Background(), *task)

	pending, _ := tasks.CountPending()
	if pending != 0 {
		t.Errorf("pending = %d, want 0", pending)
	}
	got, _ := cs.GetByID(church.ID)
	if got.MembershipCount != 2 {
		t.Errorf("membership_count = %d, want 2", got.MembershipCount)
	}
}

func TestWorkerTickDrainsDueTasks(t *testing.T) {
	w, tasks, cs, ms := setupWorkerTest(t)

	church, _ := cs.Create("Iglesia Central", "")
	ms.Create(church.ID, store.MemberParams{Name: "Uno"})

	tasks.Enqueue(church.ID, model.RecalcMembership, nil)
	tasks.Enqueue(church.ID, model.RecalcRoleCounts, nil)

	w.tick(context.Background())

	pending, _ := tasks.CountPending()
	if pending != 0 {
		t.Errorf("pending = %d, want 0", pending)
	}
}

func TestWorkerProcessReschedulesFailure(t *testing.T) {
	w, tasks, cs, _ := setupWorkerTest(t)

	church, _ := cs.Create("Iglesia Central", "")
	task, err := tasks.Enqueue(church.ID, "bogus_kind", nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	w.process(context.Background(), *task)

	got, err := tasks.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.DoneAt != nil {
		t.Error("task marked done after failure")
	}
	if got.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", got.Attempts)
	}
	if got.LastError == "" {
		t.Error("last_error not recorded")
	}

	due, _ := tasks.ListDue(time.Now(), 10)
	if len(due) != 0 {
		t.Errorf("due = %d, want 0 (rescheduled into the future)", len(due))
	}
}

func TestWorkerProcessExhaustsAfterMaxAttempts(t *testing.T) {
	w, tasks, cs, _ := setupWorkerTest(t)

	church, _ := cs.Create("Iglesia Central", "")
	task, err := tasks.Enqueue(church.ID, "bogus_kind", nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task.Attempts = workerMaxAttempts - 1
	w.process(context.Background(), *task)

	got, _ := tasks.GetByID(task.ID)
	if got.DoneAt == nil {
		t.Error("exhausted task not closed")
	}
}

func TestWorkerStartStop(t *testing.T) {
	w, _, _, _ := setupWorkerTest(t)
	w.interval = 10 * time.Millisecond

	w.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	w.Stop()
}

func TestRetryDelay(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
		{5, 16 * time.Minute},
		{6, 30 * time.Minute},
		{8, 30 * time.Minute},
	}
	for _, tc := range cases {
		if got := retryDelay(tc.attempt); got != tc.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}
