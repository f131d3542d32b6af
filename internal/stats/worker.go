package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/store"
)

const (
	workerBatchSize   = 20
	workerMaxAttempts = 8
)

// Worker drains the recalculation outbox: due tasks are executed with
// in-attempt backoff, rescheduled with a growing delay on failure, and
// closed on success. Delivery is at-least-once; the derivations themselves
// are idempotent, so replays are harmless.
type Worker struct {
	mu       sync.RWMutex
	tasks    *store.RecalcTaskStore
	recalc   *Recalculator
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewWorker(tasks *store.RecalcTaskStore, recalc *Recalculator, logger *slog.Logger) *Worker {
	return &Worker{
		tasks:    tasks,
		recalc:   recalc,
		interval: 30 * time.Second,
		logger:   logger,
	}
}

// Start begins the worker loop.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.mu.Unlock()

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.mu.RLock()
	cancel := w.cancel
	done := w.done
	w.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (w *Worker) tick(ctx context.Context) {
	due, err := w.tasks.ListDue(time.Now(), workerBatchSize)
	if err != nil {
		w.logger.Error("list due recalc tasks", "error", err)
		return
	}

	for _, task := range due {
		w.process(ctx, task)
	}

	if pending, err := w.tasks.CountPending(); err == nil {
		outboxPending.Set(float64(pending))
	}
}

func (w *Worker) process(ctx context.Context, task model.RecalcTask) {
	start := time.Now()
	backoff := retry.WithMaxRetries(2, retry.NewExponential(250*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return retry.RetryableError(w.recalc.Run(task.ChurchID, task.Kind, task.Year))
	})
	recalcDuration.WithLabelValues(task.Kind).Observe(time.Since(start).Seconds())
	recalcTotal.WithLabelValues(task.Kind, statusLabel(err)).Inc()

	if err == nil {
		if err := w.tasks.MarkDone(task.ID); err != nil {
			w.logger.Error("mark recalc task done", "task_id", task.ID, "error", err)
		}
		return
	}

	if task.Attempts+1 >= workerMaxAttempts {
		// Give up. The task stays visible with its last error; the hourly
		// sweep still corrects the aggregate.
		w.logger.Error("recalc task exhausted", "task_id", task.ID, "kind", task.Kind,
			"church_id", task.ChurchID, "attempts", task.Attempts+1, "error", err)
		if merr := w.tasks.MarkDone(task.ID); merr != nil {
			w.logger.Error("close exhausted recalc task", "task_id", task.ID, "error", merr)
		}
		return
	}

	delay := retryDelay(task.Attempts + 1)
	w.logger.Warn("recalc task failed, rescheduling",
		"task_id", task.ID, "kind", task.Kind, "church_id", task.ChurchID,
		"attempt", task.Attempts+1, "retry_in", delay, "error", err)
	if rerr := w.tasks.Reschedule(task.ID, time.Now().Add(delay), fmt.Sprintf("%v", err)); rerr != nil {
		w.logger.Error("reschedule recalc task", "task_id", task.ID, "error", rerr)
	}
}

// retryDelay doubles per attempt from 1 minute, capped at 30 minutes.
func retryDelay(attempt int) time.Duration {
	d := time.Minute << (attempt - 1)
	if d > 30*time.Minute {
		return 30 * time.Minute
	}
	return d
}
