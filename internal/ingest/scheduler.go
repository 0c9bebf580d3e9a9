package ingest

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one ingestion pass.
type Job interface {
	Name() string
	Run(ctx context.Context) (int64, error)
}

// Schedule runs a job every Interval.
type Schedule struct {
	Job      Job
	Interval time.Duration
	// RunAtStart runs the job once before the first tick.
	RunAtStart bool
}

// Scheduler runs jobs on their own tickers. A run never overlaps an earlier
// run of the same job.
type Scheduler struct {
	schedules []Schedule
	logger    *zap.SugaredLogger
}

// NewScheduler returns a scheduler for schedules.
func NewScheduler(logger *zap.SugaredLogger, schedules ...Schedule) *Scheduler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scheduler{schedules: schedules, logger: logger}
}

// Run blocks until ctx ends.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, sch := range s.schedules {
		if sch.Interval <= 0 {
			s.logger.Warnw("job has no interval; not scheduling", "job", sch.Job.Name())
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, sch)
		}()
	}
	wg.Wait()
	s.logger.Info("ingest scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, sch Schedule) {
	s.logger.Infow("scheduling job", "job", sch.Job.Name(), "interval", sch.Interval)
	if sch.RunAtStart {
		s.runOnce(ctx, sch.Job)
	}

	ticker := time.NewTicker(sch.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx, sch.Job)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	started := time.Now()
	n, err := job.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Errorw("ingest job failed", "job", job.Name(), "error", err, "duration", time.Since(started))
		return
	}
	s.logger.Infow("ingest job finished", "job", job.Name(), "rows", n, "duration", time.Since(started))
}

func orNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}
