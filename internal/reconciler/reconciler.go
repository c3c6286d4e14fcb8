// Package reconciler repairs and reports payments that are out of step with
// their jobs.
//
// A completed payment whose job is still draft can only come from a write
// made outside the activation transaction (a manual fix or a restored
// backup). The reconciler activates such jobs with the same conditional
// update verification uses, so it can never activate a job twice.
//
// A pending payment older than the threshold is an orphan: its order was
// never created, or the client never returned from checkout. Orphans are
// counted and logged for operators, never failed automatically.
package reconciler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
)

// Store defines the queries the reconciler needs.
type Store interface {
	ListCompletedDraftPayments(ctx context.Context, limit int) ([]domain.Payment, error)
	ActivateJob(ctx context.Context, jobID uuid.UUID, gatewayPaymentID string, expiresAt, now time.Time) (bool, error)
	CountOrphanedPayments(ctx context.Context, olderThan time.Time) (int, error)
	ListOrphanedPayments(ctx context.Context, olderThan time.Time, limit int) ([]domain.Payment, error)
}

// MetricsSink records reconciliation results.
type MetricsSink interface {
	OrphanedPaymentsUpdate(count int)
	ActivationsRepaired(count int)
}

// Config holds reconciler configuration.
type Config struct {
	// Interval is how often the reconciler runs.
	// Default: 5 minutes.
	Interval time.Duration

	// Threshold is the age after which a pending payment is considered orphaned.
	// Default: 30 minutes.
	Threshold time.Duration

	// BatchSize is the maximum number of payments to process per cycle.
	// Default: 100.
	BatchSize int

	// ListingDuration sets the expiry of repaired jobs.
	// Default: 30 days.
	ListingDuration time.Duration
}

// DefaultConfig returns the default reconciler configuration.
func DefaultConfig() Config {
	return Config{
		Interval:        5 * time.Minute,
		Threshold:       30 * time.Minute,
		BatchSize:       100,
		ListingDuration: 30 * 24 * time.Hour,
	}
}

// Reconciler repairs split activations and reports orphaned payments.
type Reconciler struct {
	config  Config
	store   Store
	metrics MetricsSink
	clock   func() time.Time
}

// New creates a new Reconciler.
func New(config Config, store Store) *Reconciler {
	return &Reconciler{
		config: config,
		store:  store,
		clock:  time.Now,
	}
}

// WithMetrics sets the metrics sink.
func (r *Reconciler) WithMetrics(sink MetricsSink) *Reconciler {
	r.metrics = sink
	return r
}

// Run starts the reconciliation loop. It blocks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	log.Info().Str("component", "reconciler").
		Dur("interval", r.config.Interval).
		Dur("threshold", r.config.Threshold).
		Int("batch", r.config.BatchSize).
		Msg("started")

	// Run immediately on startup, then on ticker
	r.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("component", "reconciler").Msg("stopped")
			return
		case <-ticker.C:
			r.runCycle(ctx)
		}
	}
}

// runCycle executes one reconciliation cycle.
func (r *Reconciler) runCycle(ctx context.Context) {
	now := r.clock().UTC()
	r.repairActivations(ctx, now)
	if ctx.Err() != nil {
		return
	}
	r.reportOrphans(ctx, now)
}

func (r *Reconciler) repairActivations(ctx context.Context, now time.Time) {
	logger := log.With().Str("component", "reconciler").Logger()

	payments, err := r.store.ListCompletedDraftPayments(ctx, r.config.BatchSize)
	if err != nil {
		// DB error: log and abort. Will retry next interval.
		logger.Error().Err(err).Msg("failed to list completed payments of draft jobs")
		return
	}
	if len(payments) == 0 {
		return
	}

	repaired := 0
	for _, p := range payments {
		if ctx.Err() != nil {
			logger.Warn().Int("processed", repaired).Int("total", len(payments)).Msg("cycle interrupted")
			break
		}

		ok, err := r.store.ActivateJob(ctx, p.JobID, p.GatewayPaymentID, now.Add(r.config.ListingDuration), now)
		if err != nil {
			logger.Error().Err(err).Str("payment_id", p.ID.String()).Str("job_id", p.JobID.String()).Msg("failed to activate job")
			continue
		}
		if !ok {
			// Moved out of draft since the listing was read.
			continue
		}

		logger.Warn().
			Str("payment_id", p.ID.String()).
			Str("job_id", p.JobID.String()).
			Str("gateway_payment_id", p.GatewayPaymentID).
			Msg("activated job of completed payment")
		repaired++
	}

	if repaired > 0 && r.metrics != nil {
		r.metrics.ActivationsRepaired(repaired)
	}
	logger.Info().Int("repaired", repaired).Int("candidates", len(payments)).Msg("activation repair complete")
}

func (r *Reconciler) reportOrphans(ctx context.Context, now time.Time) {
	logger := log.With().Str("component", "reconciler").Logger()
	olderThan := now.Add(-r.config.Threshold)

	count, err := r.store.CountOrphanedPayments(ctx, olderThan)
	if err != nil {
		logger.Error().Err(err).Msg("failed to count orphaned payments")
		return
	}
	if r.metrics != nil {
		r.metrics.OrphanedPaymentsUpdate(count)
	}
	if count == 0 {
		return
	}

	orphans, err := r.store.ListOrphanedPayments(ctx, olderThan, r.config.BatchSize)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list orphaned payments")
		return
	}

	logger.Warn().Int("count", count).Msg("orphaned pending payments")
	for _, p := range orphans {
		logger.Warn().
			Str("payment_id", p.ID.String()).
			Str("job_id", p.JobID.String()).
			Str("gateway_order_id", p.GatewayOrderID).
			Dur("age", now.Sub(p.CreatedAt).Round(time.Second)).
			Msg("orphaned payment")
	}
}
