package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/2001Abhinav/job-posting-platform/internal/api"
	"github.com/2001Abhinav/job-posting-platform/internal/circuitbreaker"
	"github.com/2001Abhinav/job-posting-platform/internal/config"
	"github.com/2001Abhinav/job-posting-platform/internal/expiry"
	"github.com/2001Abhinav/job-posting-platform/internal/gateway"
	"github.com/2001Abhinav/job-posting-platform/internal/identity"
	"github.com/2001Abhinav/job-posting-platform/internal/leaderelection"
	"github.com/2001Abhinav/job-posting-platform/internal/logger"
	"github.com/2001Abhinav/job-posting-platform/internal/metrics"
	"github.com/2001Abhinav/job-posting-platform/internal/reconciler"
	"github.com/2001Abhinav/job-posting-platform/internal/store/postgres"
	"github.com/2001Abhinav/job-posting-platform/internal/workflow"
)

func serve(cfg config.Config, autoMigrate bool) error {
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	mainLog := logger.Component("main")
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := config.Validate(cfg); err != nil {
		return invalidConfig(err)
	}
	logConfigWarnings(cfg)

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	mainLog.Info().
		Int("max_open", cfg.DBMaxOpenConns).
		Int("max_idle", cfg.DBMaxIdleConns).
		Dur("max_lifetime", cfg.DBConnMaxLifetime).
		Dur("max_idle_time", cfg.DBConnMaxIdleTime).
		Msg("db pool configured")

	store := postgres.New(db)
	if autoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := store.Migrate(ctx)
		cancel()
		if err != nil {
			return err
		}
		mainLog.Info().Msg("schema applied")
	}

	var sink metrics.Sink = metrics.NewNoopSink()
	var metricsServer *http.Server
	if cfg.MetricsEnabled {
		sink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)

		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.MetricsPath, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              ":" + cfg.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("component", "metrics").Str("port", cfg.MetricsPort).Str("path", cfg.MetricsPath).Msg("metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Str("component", "metrics").Err(err).Msg("metrics server error")
			}
		}()
	}

	razorpay := gateway.NewRazorpay(gateway.Config{
		BaseURL:           cfg.GatewayBaseURL,
		KeyID:             cfg.GatewayKeyID,
		KeySecret:         cfg.GatewayKeySecret,
		Timeout:           cfg.GatewayTimeout,
		RequestsPerSecond: cfg.GatewayRPS,
	}).WithMetrics(sink)
	if cfg.CircuitBreakerThreshold > 0 {
		razorpay = razorpay.WithCircuitBreaker(circuitbreaker.New(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown))
	}

	provider := identity.NewProvider(identity.Config{
		UserInfoURL: cfg.IdentityUserInfoURL,
		LoginURL:    cfg.IdentityLoginURL,
		Timeout:     cfg.IdentityTimeout,
		CacheTTL:    cfg.SessionCacheTTL,
	})
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			mainLog.Warn().Err(err).Str("redis", cfg.RedisAddr).Msg("redis unreachable; session cache will fall through to the identity provider")
		}
		cancel()

		provider = provider.WithCache(identity.NewRedisCache(redisClient))
		mainLog.Info().Str("redis", cfg.RedisAddr).Msg("session cache enabled")
	}

	svc := workflow.New(workflow.Config{
		Currency:        cfg.Currency,
		PostingFee:      cfg.PostingFee,
		EnforceFee:      cfg.EnforceFee,
		ListingDuration: cfg.ListingDuration,
	}, store, razorpay).WithMetrics(sink)

	duties, err := newLeaderDuties(cfg, store, sink)
	if err != nil {
		return invalidConfig(err)
	}
	elector := leaderelection.New(db, leaderelection.Config{
		LockKey:           cfg.LeaderLockKey,
		RetryInterval:     cfg.LeaderRetryInterval,
		HeartbeatInterval: cfg.LeaderHeartbeatInterval,
	}, duties).WithMetrics(sink)

	handler := api.NewHandler(svc, provider, api.Options{
		SessionCookie: cfg.SessionCookie,
		SecureCookie:  cfg.SessionSecure,
	}).WithHealthChecker(db).WithLeaderStatus(elector).WithMetrics(sink)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("component", "http").Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Str("component", "http").Err(err).Msg("http server error")
		}
	}()

	electorCtx, cancelElector := context.WithCancel(context.Background())
	var electorWg sync.WaitGroup
	electorWg.Add(1)
	go func() {
		defer electorWg.Done()
		elector.Run(electorCtx)
	}()

	mainLog.Info().Str("version", version).Str("http", cfg.HTTPAddr).Msg("started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig
	mainLog.Info().Str("signal", received.String()).Msg("shutting down")

	// Phase 1: stop accepting requests and let in-flight verifications finish.
	httpShutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer httpShutdownCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		log.Error().Str("component", "http").Err(err).Msg("http server shutdown error")
	}
	log.Info().Str("component", "http").Msg("http server stopped")

	// Phase 2: release leadership; the elector stops the background duties.
	cancelElector()
	electorWg.Wait()
	log.Info().Str("component", "leader").Msg("leader duties stopped")

	// Phase 3: metrics last, so shutdown is still observable.
	if metricsServer != nil {
		metricsShutdownCtx, metricsShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer metricsShutdownCancel()
		if err := metricsServer.Shutdown(metricsShutdownCtx); err != nil {
			log.Error().Str("component", "metrics").Err(err).Msg("metrics server shutdown error")
		}
	}

	mainLog.Info().Msg("stopped")
	return nil
}

var (
	_ workflow.Store          = (*postgres.Store)(nil)
	_ reconciler.Store        = (*postgres.Store)(nil)
	_ expiry.Store            = (*postgres.Store)(nil)
	_ workflow.PaymentGateway = (*gateway.Razorpay)(nil)
	_ api.Authenticator       = (*identity.Provider)(nil)
	_ leaderelection.Duties   = (*leaderDuties)(nil)
	_ api.LeaderStatus        = (*leaderelection.Elector)(nil)
)

// leaderDuties are the background loops only one instance may run.
type leaderDuties struct {
	reconciler *reconciler.Reconciler // nil when disabled
	sweeper    *expiry.Sweeper

	mu sync.Mutex
	wg sync.WaitGroup
}

func newLeaderDuties(cfg config.Config, store *postgres.Store, sink metrics.Sink) (*leaderDuties, error) {
	schedule, err := expiry.ParseSchedule(cfg.ExpirySchedule)
	if err != nil {
		return nil, err
	}

	d := &leaderDuties{
		sweeper: expiry.New(expiry.Config{BatchSize: cfg.ExpiryBatchSize}, store, schedule).WithMetrics(sink),
	}
	if cfg.ReconcileEnabled {
		d.reconciler = reconciler.New(reconciler.Config{
			Interval:        cfg.ReconcileInterval,
			Threshold:       cfg.ReconcileThreshold,
			BatchSize:       cfg.ReconcileBatchSize,
			ListingDuration: cfg.ListingDuration,
		}, store).WithMetrics(sink)
	}
	return d, nil
}

// Start launches the duties. ctx is cancelled on demotion.
func (d *leaderDuties) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	if d.reconciler != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.reconciler.Run(ctx)
		}()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.sweeper.Run(ctx)
	}()
}

// Stop blocks until every duty has returned.
func (d *leaderDuties) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wg.Wait()
}
