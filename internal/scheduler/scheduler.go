package scheduler

import (
	"context"
	"time"

	"questbot/pkg/logger"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

const DefaultInterval = time.Minute

// Job is one scheduler pass. now is the tick instant.
type Job func(ctx context.Context, now time.Time)

// Scheduler runs a single job at a fixed cadence. A tick never overlaps the
// previous one.
type Scheduler struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
}

func New(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	return &Scheduler{
		scheduler: s,
		interval:  interval,
	}
}

// Start registers job and begins ticking without blocking. Cancelling ctx
// stops new runs; a run already in progress keeps its values but not its
// cancellation, so Stop can wait for it to finish cleanly.
func (s *Scheduler) Start(ctx context.Context, job Job) error {
	_, err := s.scheduler.Every(s.interval).Do(func() {
		if ctx.Err() != nil {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				logger.Logger().Error("scheduled job panicked", zap.Any("panic", r))
			}
		}()
		job(context.WithoutCancel(ctx), time.Now())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	logger.Logger().Info("scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop prevents future ticks and waits for a running one to finish.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	logger.Logger().Info("scheduler stopped")
}
