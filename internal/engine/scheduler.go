package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/amul-stock-tracker/internal/metrics"
	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

// Checker runs one stock check. *Engine implements it.
type Checker interface {
	RunCheck(ctx context.Context) (*domain.RunResult, error)
}

// Scheduler runs stock checks on a fixed interval.
type Scheduler struct {
	cron    *cron.Cron
	checker Checker
	entryID cron.EntryID
	log     *slog.Logger
}

// NewScheduler creates a Scheduler that calls checker every interval.
func NewScheduler(checker Checker, interval time.Duration, log *slog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("schedule interval must be positive (got %s)", interval)
	}

	c := cron.New()

	s := &Scheduler{
		cron:    c,
		checker: checker,
		log:     log,
	}

	id, err := c.AddFunc("@every "+interval.String(), s.runCheck)
	if err != nil {
		return nil, fmt.Errorf("registering check job: %w", err)
	}
	s.entryID = id

	return s, nil
}

// Start begins running scheduled checks.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.cron.Start()
	s.syncNextRun()
}

// Stop gracefully stops the scheduler, waiting for a running check to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// NextRun returns when the next scheduled check fires. It is zero until the
// scheduler has started.
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// RunNow runs a check immediately, outside the schedule.
func (s *Scheduler) RunNow() {
	s.runCheck()
}

func (s *Scheduler) runCheck() {
	ctx := context.Background()
	s.log.Info("scheduled check starting")

	res, err := s.checker.RunCheck(ctx)
	if err != nil {
		s.log.Error("scheduled check failed", "error", err)
	} else {
		s.log.Info("scheduled check finished",
			"run_id", res.RunID,
			"alerts", len(res.Alerts),
			"notified", res.Notified,
		)
	}

	s.syncNextRun()
}

func (s *Scheduler) syncNextRun() {
	if next := s.NextRun(); !next.IsZero() {
		metrics.SchedulerNextCheckTimestamp.Set(float64(next.Unix()))
	}
}
