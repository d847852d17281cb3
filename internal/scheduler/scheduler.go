// Package scheduler sweeps the delivery job table for due retries and
// dispatches them to the delivery service on a bounded worker pool.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/PayStell/paystell-webhooks/internal/core/ports"
	"github.com/PayStell/paystell-webhooks/internal/metrics"

	"github.com/rs/zerolog"
)

// Config tunes the retry scheduler.
type Config struct {
	// PollInterval is the time between sweeps.
	PollInterval time.Duration
	// BatchSize caps how many due jobs one sweep claims.
	BatchSize int
	// Workers bounds concurrent delivery attempts per scheduler.
	Workers int
	// ClaimLease is how far claimed jobs are pushed into the future.
	// If this process dies mid-attempt, the jobs become due again once
	// the lease expires and another sweep picks them up.
	ClaimLease time.Duration
}

// Scheduler polls for PENDING jobs whose next retry time has passed.
// Multiple replicas can run concurrently: claiming uses row locks and
// the lease keeps claimed jobs invisible to other sweeps.
type Scheduler struct {
	jobs     ports.DeliveryJobRepository
	delivery ports.DeliveryService
	cfg      Config
	logger   zerolog.Logger
	now      func() time.Time
}

func New(jobs ports.DeliveryJobRepository, delivery ports.DeliveryService, cfg Config, logger zerolog.Logger) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	if cfg.ClaimLease <= 0 {
		cfg.ClaimLease = 5 * time.Minute
	}
	return &Scheduler{
		jobs:     jobs,
		delivery: delivery,
		cfg:      cfg,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps until the context is cancelled. It blocks; callers start
// it on its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().
		Dur("poll_interval", s.cfg.PollInterval).
		Int("batch_size", s.cfg.BatchSize).
		Int("workers", s.cfg.Workers).
		Msg("retry scheduler started")

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("retry scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				metrics.SchedulerErrors.Inc()
				s.logger.Error().Err(err).Msg("scheduler sweep failed")
			}
		}
	}
}

// Sweep claims one batch of due jobs and attempts them all, returning
// the number of jobs claimed. Exposed so tests and operational tooling
// can drive a single sweep directly.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	claimed, err := s.jobs.ClaimDue(ctx, now, now.Add(s.cfg.ClaimLease), s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	metrics.SchedulerClaims.Observe(float64(len(claimed)))
	if len(claimed) == 0 {
		return 0, nil
	}

	s.logger.Debug().Int("claimed", len(claimed)).Msg("claimed due delivery jobs")

	sem := make(chan struct{}, s.cfg.Workers)
	var wg sync.WaitGroup
	for i := range claimed {
		job := claimed[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := s.delivery.Attempt(ctx, &job); err != nil {
				s.logger.Error().Err(err).
					Str("job_id", job.ID.String()).
					Msg("scheduled delivery attempt failed")
			}
		}()
	}
	wg.Wait()

	return len(claimed), nil
}
