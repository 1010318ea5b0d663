// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with a cron schedule
// Schedule examples:
//   - "*/5 * * * *"     - Every 5 minutes
//   - "@hourly"         - Every hour
//   - "0 22 * * *"      - 10 PM daily
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.runJob(job)
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")
	return nil
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	runID := uuid.New().String()
	log := s.log.With().Str("job", job.Name()).Str("run_id", runID).Logger()
	log.Info().Msg("Running job immediately")
	return job.Run()
}

func (s *Scheduler) runJob(job Job) {
	runID := uuid.New().String()
	log := s.log.With().Str("job", job.Name()).Str("run_id", runID).Logger()

	start := time.Now()
	log.Debug().Msg("Running job")

	if err := job.Run(); err != nil {
		log.Error().
			Err(err).
			Dur("duration", time.Since(start)).
			Msg("Job failed")
		return
	}
	log.Debug().
		Dur("duration", time.Since(start)).
		Msg("Job completed")
}
