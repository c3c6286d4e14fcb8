// Package expiry moves active jobs whose listing period has ended to expired.
package expiry

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Store expires jobs in batches.
type Store interface {
	ExpireJobs(ctx context.Context, now time.Time, limit int) (int, error)
}

// MetricsSink records how many jobs each sweep expired.
type MetricsSink interface {
	JobsExpired(count int)
}

type Config struct {
	// BatchSize bounds each update. A sweep repeats batches until one
	// comes back short. Default: 500.
	BatchSize int

	// MaxBatches bounds the work of one sweep. Default: 100.
	MaxBatches int
}

type Sweeper struct {
	config   Config
	store    Store
	schedule Schedule
	metrics  MetricsSink
	clock    func() time.Time
}

func New(config Config, store Store, schedule Schedule) *Sweeper {
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}
	if config.MaxBatches <= 0 {
		config.MaxBatches = 100
	}
	return &Sweeper{
		config:   config,
		store:    store,
		schedule: schedule,
		clock:    time.Now,
	}
}

// WithMetrics sets the metrics sink.
func (s *Sweeper) WithMetrics(sink MetricsSink) *Sweeper {
	s.metrics = sink
	return s
}

// Run sweeps at every scheduled time until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	logger := log.With().Str("component", "expiry").Logger()
	logger.Info().Int("batch", s.config.BatchSize).Msg("started")

	for {
		now := s.clock().UTC()
		next := s.schedule.Next(now)
		logger.Debug().Time("next", next).Msg("waiting for next sweep")

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info().Msg("stopped")
			return
		case <-timer.C:
		}

		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("sweep failed")
		}
	}
}

// Sweep expires every due job and returns how many were moved.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.clock().UTC()
	total := 0

	for i := 0; i < s.config.MaxBatches; i++ {
		n, err := s.store.ExpireJobs(ctx, now, s.config.BatchSize)
		total += n
		if err != nil {
			s.record(total)
			return total, err
		}
		if n < s.config.BatchSize {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	s.record(total)
	if total > 0 {
		log.Info().Str("component", "expiry").Int("expired", total).Msg("expired jobs")
	}
	return total, nil
}

func (s *Sweeper) record(n int) {
	if s.metrics != nil && n > 0 {
		s.metrics.JobsExpired(n)
	}
}
