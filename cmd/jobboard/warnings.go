package main

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/2001Abhinav/job-posting-platform/internal/config"
)

// logConfigWarnings logs operational risks of a valid configuration.
// P0 warnings can lose or strand paid listings; P1 warnings reduce visibility.
func logConfigWarnings(cfg config.Config) {
	logger := log.With().Str("component", "config").Logger()

	if !cfg.ReconcileEnabled {
		logger.Warn().Str("severity", "P0").
			Msg("RECONCILE_ENABLED=false: completed payments whose job is still draft are not repaired and orphaned payments are not reported")
	}

	if !strings.HasPrefix(cfg.GatewayBaseURL, "https://") {
		logger.Warn().Str("severity", "P0").Str("gateway_base_url", cfg.GatewayBaseURL).
			Msg("GATEWAY_BASE_URL is not https: gateway credentials are sent in clear text")
	}

	if !cfg.EnforceFee {
		logger.Warn().Str("severity", "P1").Int64("posting_fee", cfg.PostingFee).
			Msg("PAYMENT_ENFORCE_FEE=false: clients choose the order amount")
	}

	if !cfg.MetricsEnabled {
		logger.Warn().Str("severity", "P1").
			Msg("METRICS_ENABLED=false: no metrics are exported")
	}

	if !cfg.SessionSecure {
		logger.Warn().Str("severity", "P1").
			Msg("SESSION_COOKIE_SECURE=false: session cookies are sent over plain http")
	}

	if cfg.RedisAddr == "" {
		logger.Info().Msg("REDIS_ADDR not set: every request is authenticated at the identity provider")
	}
}
