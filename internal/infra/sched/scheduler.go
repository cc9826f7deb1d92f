package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linkbio-billing/internal/config"
	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/ports/adapter"
	"linkbio-billing/internal/infra/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs cron jobs under a distributed lock, so with several app
// instances each tick executes once. Overlapping runs in one process are
// skipped by the cron chain.
type Scheduler struct {
	cron    *cron.Cron
	locker  adapter.Locker
	lockTTL time.Duration
	ctx     context.Context
	log     *zerolog.Logger
}

func New(cfg config.SchedulerConfig, locker adapter.Locker, logger *zerolog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone: %w", err)
	}
	l := logger.With().Str("component", "Scheduler").Logger()
	cl := cronLogger{log: &l}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Scheduler{cron: c, locker: locker, lockTTL: ttl, ctx: context.Background(), log: &l}, nil
}

// Add registers job under name on a standard 5-field cron spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, func() { _ = s.RunOnce(s.ctx, name, job) }); err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	s.log.Info().Str("job", name).Str("spec", spec).Msg("job scheduled")
	return nil
}

// Start begins firing jobs; they receive ctx, so cancelling it aborts runs in flight.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
}

// Stop prevents new runs and waits for running ones until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timed out with jobs still running")
	}
}

// RunOnce executes job if the lock for name is free. A held lock is not an error.
func (s *Scheduler) RunOnce(ctx context.Context, name string, job Job) error {
	key := "lock:sched:" + name
	token, err := s.locker.TryLock(ctx, key, s.lockTTL)
	if errors.Is(err, domain.ErrLockNotAcquired) {
		metrics.IncSchedulerRun(name, "locked")
		s.log.Debug().Str("job", name).Msg("job skipped; lock held elsewhere")
		return nil
	}
	if err != nil {
		metrics.IncSchedulerRun(name, "error")
		s.log.Error().Err(err).Str("job", name).Msg("job lock failed")
		return err
	}
	defer func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn().Err(err).Str("job", name).Msg("job unlock failed; lock will expire")
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, s.lockTTL)
	defer cancel()

	start := time.Now()
	if err := job(runCtx); err != nil {
		metrics.IncSchedulerRun(name, "error")
		s.log.Error().Err(err).Str("job", name).Dur("took", time.Since(start)).Msg("job failed")
		return err
	}
	metrics.IncSchedulerRun(name, "ok")
	s.log.Info().Str("job", name).Dur("took", time.Since(start)).Msg("job finished")
	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log *zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
