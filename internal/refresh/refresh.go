package refresh

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/lox/aqidash/internal/dashboard"
)

// Applier re-fetches the dashboard with its current filters.
type Applier interface {
	Apply(ctx context.Context) *dashboard.Round
}

// Cleaner prunes archived response bodies.
type Cleaner interface {
	CleanupOldRawPayloads(retentionDays int) (int64, error)
}

// Scheduler periodically re-applies the dashboard filters and prunes the
// payload archive.
type Scheduler struct {
	scheduler     *gocron.Scheduler
	applier       Applier
	cleaner       Cleaner
	interval      time.Duration
	retentionDays int
	timeout       time.Duration
}

// New creates a scheduler. A zero interval disables re-applying; a nil
// cleaner or zero retention disables pruning.
func New(applier Applier, interval time.Duration, cleaner Cleaner, retentionDays int) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler:     s,
		applier:       applier,
		cleaner:       cleaner,
		interval:      interval,
		retentionDays: retentionDays,
		timeout:       2 * time.Minute,
	}
}

// Start schedules the jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	jobs := 0
	if s.applier != nil && s.interval > 0 {
		if _, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.reapply); err != nil {
			return err
		}
		jobs++
	}
	if s.cleaner != nil && s.retentionDays > 0 {
		if _, err := s.scheduler.Every(1).Day().At("03:15").Do(s.cleanup); err != nil {
			return err
		}
		jobs++
	}
	if jobs == 0 {
		log.Println("refresh: nothing to schedule")
		return nil
	}

	s.scheduler.StartAsync()
	log.Printf("refresh: started (%d jobs, re-apply every %s)", jobs, s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) reapply() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	r := s.applier.Apply(ctx)
	r.Wait()
	log.Printf("refresh: round %d settled in %s", r.ID, time.Since(start).Round(time.Millisecond))
}

func (s *Scheduler) cleanup() {
	n, err := s.cleaner.CleanupOldRawPayloads(s.retentionDays)
	if err != nil {
		log.Printf("refresh: payload cleanup failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("refresh: pruned %d payloads older than %d days", n, s.retentionDays)
	}
}
