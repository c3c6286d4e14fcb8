package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// scheduleParser accepts standard 5-field cron expressions plus descriptors.
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors

	required := []struct{ field, value string }{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"RAZORPAY_KEY_ID", cfg.GatewayKeyID},
		{"RAZORPAY_KEY_SECRET", cfg.GatewayKeySecret},
		{"IDENTITY_USERINFO_URL", cfg.IdentityUserInfoURL},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, ValidationError{Field: r.field, Message: "required"})
		}
	}

	durations := []struct{ field, value string }{
		{"DB_OP_TIMEOUT", cfg.DBOpTimeoutStr},
		{"DB_CONN_MAX_LIFETIME", cfg.DBConnMaxLifetimeStr},
		{"DB_CONN_MAX_IDLE_TIME", cfg.DBConnMaxIdleTimeStr},
		{"HTTP_SHUTDOWN_TIMEOUT", cfg.HTTPShutdownTimeoutStr},
		{"GATEWAY_TIMEOUT", cfg.GatewayTimeoutStr},
		{"LISTING_DURATION", cfg.ListingDurationStr},
		{"IDENTITY_TIMEOUT", cfg.IdentityTimeoutStr},
		{"SESSION_CACHE_TTL", cfg.SessionCacheTTLStr},
		{"CIRCUIT_BREAKER_COOLDOWN", cfg.CircuitBreakerCooldownStr},
		{"RECONCILE_INTERVAL", cfg.ReconcileIntervalStr},
		{"RECONCILE_THRESHOLD", cfg.ReconcileThresholdStr},
		{"LEADER_RETRY_INTERVAL", cfg.LeaderRetryIntervalStr},
		{"LEADER_HEARTBEAT_INTERVAL", cfg.LeaderHeartbeatIntervalStr},
	}
	for _, d := range durations {
		if err := validateDuration(d.field, d.value); err != nil {
			errs = append(errs, *err)
		}
	}

	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "LOG_LEVEL",
			Message: fmt.Sprintf("must be one of debug, info, warn, error, got %q", cfg.LogLevel),
		})
	}

	if cfg.LogFormat != "" && cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		errs = append(errs, ValidationError{
			Field:   "LOG_FORMAT",
			Message: fmt.Sprintf("must be 'json' or 'console', got %q", cfg.LogFormat),
		})
	}

	if !isCurrencyCode(cfg.Currency) {
		errs = append(errs, ValidationError{
			Field:   "PAYMENT_CURRENCY",
			Message: fmt.Sprintf("must be a 3-letter ISO 4217 code, got %q", cfg.Currency),
		})
	}

	if cfg.ExpirySchedule != "" {
		if _, err := scheduleParser.Parse(cfg.ExpirySchedule); err != nil {
			errs = append(errs, ValidationError{
				Field:   "EXPIRY_SCHEDULE",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	if cfg.ReconcileEnabled && cfg.ReconcileThreshold > 0 && cfg.ReconcileThreshold <= cfg.GatewayTimeout {
		errs = append(errs, ValidationError{
			Field:   "RECONCILE_THRESHOLD",
			Message: fmt.Sprintf("must exceed GATEWAY_TIMEOUT (%s)", cfg.GatewayTimeout),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateDuration(field, value string) *ValidationError {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return &ValidationError{Field: field, Message: fmt.Sprintf("invalid duration: %v", err)}
	}
	if d <= 0 {
		return &ValidationError{Field: field, Message: "must be positive"}
	}
	return nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
