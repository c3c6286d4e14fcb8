// Package leaderelection picks the single instance that runs the background
// duties (activation repair, orphan reporting, listing expiry).
//
// Leadership is a Postgres session-level advisory lock taken on a dedicated
// connection. The lock has no TTL: it is held until it is released or the
// session ends. The heartbeat only notices a dead connection so duties stop
// promptly.
package leaderelection

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Reasons reported to LeaderLost.
const (
	ReasonShutdown = "shutdown"
	ReasonConnLost = "conn_lost"
)

// MetricsSink records leadership changes. Methods must not block.
type MetricsSink interface {
	LeaderStatusChanged(isLeader bool)
	LeaderAcquired()
	LeaderLost(reason string)
}

// Duties are started when this instance becomes leader.
//
// Start runs in its own goroutine; ctx is cancelled when leadership ends.
// Stop is called synchronously after ctx is cancelled and must block until
// every duty has returned. Stop may be called before Start has run.
type Duties interface {
	Start(ctx context.Context)
	Stop()
}

type Config struct {
	// LockKey must be the same on every instance sharing the database.
	LockKey int64

	// RetryInterval is how often a follower tries to take the lock.
	// Default: 5 seconds.
	RetryInterval time.Duration

	// HeartbeatInterval is how often the leader pings its connection.
	// Default: 2 seconds.
	HeartbeatInterval time.Duration
}

type Elector struct {
	db      *sql.DB
	config  Config
	duties  Duties
	metrics MetricsSink // optional
	leader  atomic.Bool
	logger  zerolog.Logger
}

func New(db *sql.DB, cfg Config, duties Duties) *Elector {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 2 * time.Second
	}
	return &Elector{
		db:     db,
		config: cfg,
		duties: duties,
		logger: log.With().Str("component", "leader").Int64("lock_key", cfg.LockKey).Logger(),
	}
}

// WithMetrics sets the metrics sink.
func (e *Elector) WithMetrics(sink MetricsSink) *Elector {
	e.metrics = sink
	return e
}

// IsLeader reports whether this instance currently holds the lock.
func (e *Elector) IsLeader() bool {
	return e.leader.Load()
}

// Run campaigns for leadership until ctx is cancelled. Duties are stopped
// before Run returns.
func (e *Elector) Run(ctx context.Context) {
	e.logger.Info().
		Dur("retry", e.config.RetryInterval).
		Dur("heartbeat", e.config.HeartbeatInterval).
		Msg("campaigning")

	for ctx.Err() == nil {
		if reason := e.campaign(ctx); reason != "" && ctx.Err() == nil {
			e.logger.Warn().Str("reason", reason).Msg("lost leadership")
		}

		select {
		case <-ctx.Done():
		case <-time.After(e.config.RetryInterval):
		}
	}
	e.logger.Info().Msg("stopped campaigning")
}

// campaign tries the lock once and, if it is won, leads until the lock or
// ctx is lost. It returns why leadership ended, or "" if it never began.
func (e *Elector) campaign(ctx context.Context) string {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Error().Err(err).Msg("dedicated connection unavailable")
		}
		return ""
	}
	defer conn.Close()

	var won bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", e.config.LockKey).Scan(&won); err != nil {
		if ctx.Err() == nil {
			e.logger.Error().Err(err).Msg("advisory lock query failed")
		}
		return ""
	}
	if !won {
		e.logger.Debug().Msg("another instance is leader")
		return ""
	}

	e.setLeader(true)
	e.logger.Info().Msg("elected")

	dutyCtx, stopDuties := context.WithCancel(ctx)
	go e.duties.Start(dutyCtx)

	reason := e.heartbeat(ctx, conn)

	stopDuties()
	e.duties.Stop()
	if reason == ReasonConnLost {
		discard(conn)
	} else {
		e.unlock(conn)
	}

	e.setLeader(false)
	if e.metrics != nil {
		e.metrics.LeaderLost(reason)
	}
	e.logger.Info().Str("reason", reason).Msg("stepped down")
	return reason
}

// heartbeat blocks while the dedicated connection stays alive.
func (e *Elector) heartbeat(ctx context.Context, conn *sql.Conn) string {
	ticker := time.NewTicker(e.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ReasonShutdown
		case <-ticker.C:
			if err := conn.PingContext(ctx); err != nil {
				if ctx.Err() != nil {
					return ReasonShutdown
				}
				e.logger.Error().Err(err).Msg("dedicated connection ping failed")
				return ReasonConnLost
			}
		}
	}
}

// unlock releases the lock before the connection goes back to the pool,
// where the session and its lock would otherwise outlive leadership.
func (e *Elector) unlock(conn *sql.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var released bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", e.config.LockKey).Scan(&released); err != nil {
		e.logger.Error().Err(err).Msg("advisory unlock failed")
		discard(conn)
		return
	}
	if !released {
		e.logger.Warn().Msg("advisory lock was not held at release")
	}
}

// discard closes the session instead of returning it to the pool. Postgres
// drops the lock with the session.
func discard(conn *sql.Conn) {
	_ = conn.Raw(func(any) error { return driver.ErrBadConn })
}

func (e *Elector) setLeader(v bool) {
	e.leader.Store(v)
	if e.metrics == nil {
		return
	}
	e.metrics.LeaderStatusChanged(v)
	if v {
		e.metrics.LeaderAcquired()
	}
}
