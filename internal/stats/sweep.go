package stats

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ebenavides/ekklesia/internal/store"
)

// Sweeper is the consistency backstop: once an hour it recomputes every
// derived field of every church from scratch, correcting any drift left by
// missed or failed mutation hooks. It also prunes expired reset codes and
// closed outbox rows.
type Sweeper struct {
	churches   *store.ChurchStore
	recalc     *Recalculator
	resetCodes *store.ResetCodeStore
	tasks      *store.RecalcTaskStore
	logger     *slog.Logger
	cron       *cron.Cron
}

func NewSweeper(churches *store.ChurchStore, recalc *Recalculator, resetCodes *store.ResetCodeStore, tasks *store.RecalcTaskStore, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		churches:   churches,
		recalc:     recalc,
		resetCodes: resetCodes,
		tasks:      tasks,
		logger:     logger,
		cron:       cron.New(),
	}
}

// Start schedules the hourly sweep.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc("@hourly", s.Run); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule, waiting for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Run executes one full sweep. A failing church is logged and skipped, it
// never aborts the rest.
func (s *Sweeper) Run() {
	start := time.Now()

	ids, err := s.churches.ListIDs()
	if err != nil {
		s.logger.Error("sweep: list churches", "error", err)
		sweepTotal.WithLabelValues("error").Inc()
		return
	}

	failed := 0
	for _, id := range ids {
		if err := s.recalc.RecalculateAll(id); err != nil {
			s.logger.Error("sweep: recalculate church", "church_id", id, "error", err)
			failed++
		}
	}

	if n, err := s.resetCodes.DeleteExpired(); err != nil {
		s.logger.Error("sweep: delete expired reset codes", "error", err)
	} else if n > 0 {
		s.logger.Info("sweep: pruned expired reset codes", "count", n)
	}

	if n, err := s.tasks.DeleteCompleted(time.Now().Add(-24 * time.Hour)); err != nil {
		s.logger.Error("sweep: prune recalc tasks", "error", err)
	} else if n > 0 {
		s.logger.Info("sweep: pruned completed recalc tasks", "count", n)
	}

	duration := time.Since(start)
	sweepDuration.Observe(duration.Seconds())
	if failed > 0 {
		sweepTotal.WithLabelValues("partial").Inc()
	} else {
		sweepTotal.WithLabelValues("ok").Inc()
	}
	s.logger.Info("sweep complete", "churches", len(ids), "failed", failed, "duration", duration)
}
