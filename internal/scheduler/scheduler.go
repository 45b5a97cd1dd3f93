// Package scheduler runs the daily projection job on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/nhl-picks/internal/logger"
)

// Job is a unit of scheduled work. The date passed in is the slate date the
// job should operate on.
type Job func(ctx context.Context, slateDate time.Time) error

// SlateDateFunc picks the slate date for a run starting at now
type SlateDateFunc func(now time.Time) time.Time

// Scheduler manages cron-based scheduling of daily runs
type Scheduler struct {
	cron            *cron.Cron
	location        *time.Location
	slateDate       SlateDateFunc
	now             func() time.Time
	logger          *logrus.Entry
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	jobTimeout      time.Duration
	gracefulTimeout time.Duration
}

// NewScheduler creates a scheduler evaluating cron specs in loc. A nil
// slateDate falls back to the local calendar date of the trigger time.
func NewScheduler(loc *time.Location, slateDate SlateDateFunc, log *logrus.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if slateDate == nil {
		slateDate = func(now time.Time) time.Time {
			y, m, d := now.In(loc).Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		}
	}
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(loc)),
		location:        loc,
		slateDate:       slateDate,
		now:             time.Now,
		logger:          logger.OrDiscard(log).WithField("component", "scheduler"),
		jobTimeout:      30 * time.Minute,
		gracefulTimeout: 30 * time.Second,
	}
}

// WithJobTimeout bounds a single job execution
func (s *Scheduler) WithJobTimeout(d time.Duration) *Scheduler {
	if d > 0 {
		s.jobTimeout = d
	}
	return s
}

// ScheduleDaily registers job under name at the given cron expression
func (s *Scheduler) ScheduleDaily(cronExpr, name string, job Job) (cron.EntryID, error) {
	if job == nil {
		return 0, fmt.Errorf("job %q is nil", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return 0, fmt.Errorf("cannot add job while scheduler is running")
	}

	id, err := s.cron.AddFunc(cronExpr, func() { s.execute(name, job) })
	if err != nil {
		return 0, fmt.Errorf("failed to schedule %s: %w", name, err)
	}

	s.jobIDs = append(s.jobIDs, id)
	s.logger.WithFields(logrus.Fields{
		"job":      name,
		"cron":     cronExpr,
		"timezone": s.location.String(),
		"entry_id": id,
	}).Info("Scheduled job")

	return id, nil
}

// RunNow executes job once outside the cron loop and returns its error
func (s *Scheduler) RunNow(name string, job Job) error {
	return s.run(name, job)
}

func (s *Scheduler) execute(name string, job Job) {
	if err := s.run(name, job); err != nil {
		s.logger.WithError(err).WithField("job", name).Error("Scheduled job failed")
	}
}

func (s *Scheduler) run(name string, job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	start := s.now()
	date := s.slateDate(start)
	entry := s.logger.WithFields(logrus.Fields{
		"job":        name,
		"slate_date": date.Format(time.DateOnly),
	})
	entry.Info("Starting job")

	if err := job(ctx, date); err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}

	entry.WithField("duration", time.Since(start).String()).Info("Job completed")
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs up to the
// graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return fmt.Errorf("scheduler is not running")
	}

	s.logger.Info("Stopping scheduler...")
	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
		s.logger.Info("All jobs completed")
	case <-time.After(s.gracefulTimeout):
		s.logger.Warn("Graceful shutdown timeout exceeded")
	}

	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}
