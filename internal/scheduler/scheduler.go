package scheduler

import (
	"context"
	"time"

	"github.com/dripmail/dripmail/internal/config"
	"github.com/dripmail/dripmail/internal/logger"
	"github.com/dripmail/dripmail/internal/service"
)

// sweepLockKey is the Redis key guarding sweep execution across processes
const sweepLockKey = "dispatch:sweep:lock"

// Sweeper runs one dispatch sweep over the store
type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepReport, error)
}

// Locker provides the advisory lock that keeps overlapping sweep runs from
// racing each other
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// Scheduler triggers the dispatch sweep on a fixed period. The sweep is a
// pure function over the store, so it is also safe to trigger on demand or
// from an external cron via the HTTP surface.
type Scheduler struct {
	sweeper  Sweeper
	locker   Locker
	interval time.Duration
	lockTTL  time.Duration
	log      *logger.Logger
}

// New creates a new Scheduler
func New(sweeper Sweeper, locker Locker, cfg config.SchedulerConfig, log *logger.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		locker:   locker,
		interval: cfg.Interval,
		lockTTL:  cfg.LockTTL,
		log:      log.WithComponent("scheduler"),
	}
}

// Run blocks, sweeping on every tick until the context is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("dispatch scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("dispatch scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single locked sweep. When the lock is already held, an
// overlapping run is in progress somewhere and this invocation is skipped.
func (s *Scheduler) RunOnce(ctx context.Context) {
	acquired, err := s.locker.AcquireLock(ctx, sweepLockKey, s.lockTTL)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to acquire sweep lock")
		return
	}
	if !acquired {
		s.log.Debug().Msg("sweep already running elsewhere, skipping")
		return
	}
	defer func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), sweepLockKey); err != nil {
			s.log.Error().Err(err).Msg("failed to release sweep lock")
		}
	}()

	report, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep aborted")
		return
	}
	s.log.Info().
		Int("selected", report.Selected).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Msg("scheduled sweep finished")
}
