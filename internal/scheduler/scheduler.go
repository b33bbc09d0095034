// Package scheduler runs the lifecycle sweeps on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"

	"github.com/example/efiling/internal/logging"
)

// Job is a named sweep run on a cron spec.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Scheduler runs jobs on their specs. A job still running when its next
// tick arrives is skipped, so a slow sweep never overlaps itself.
type Scheduler struct {
	cron    *cron.Cron
	log     logr.Logger
	timeout time.Duration
}

// New creates a scheduler. Each run gets a context bounded by timeout.
func New(log logr.Logger, timeout time.Duration) *Scheduler {
	log = log.WithName("scheduler")
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(log),
			cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
		),
		log:     log,
		timeout: timeout,
	}
}

// Add registers a job. An empty spec disables the job.
func (s *Scheduler) Add(job Job) error {
	if job.Spec == "" {
		s.log.Info("job disabled, no schedule", "job", job.Name)
		return nil
	}
	if _, err := s.cron.AddFunc(job.Spec, s.wrap(job)); err != nil {
		return fmt.Errorf("failed to schedule %s with %q: %w", job.Name, job.Spec, err)
	}
	s.log.V(logging.VERBOSE).Info("job scheduled", "job", job.Name, "spec", job.Spec)
	return nil
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	s.log.Info("scheduler started", "jobs", s.Jobs())

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) wrap(job Job) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		log := s.log.WithValues("job", job.Name)
		ctx = logr.NewContext(ctx, log)

		start := time.Now()
		if err := job.Run(ctx); err != nil {
			log.Error(err, "job failed", "duration", time.Since(start))
			return
		}
		log.V(logging.VERBOSE).Info("job finished", "duration", time.Since(start))
	}
}
