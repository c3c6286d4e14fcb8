package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all configuration for the jobboard application.
// Values are loaded from environment variables (see the serve command help).
type Config struct {
	DatabaseURL string `json:"database_url"`
	RedisAddr   string `json:"redis_addr,omitempty"`
	HTTPAddr    string `json:"http_addr"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`

	DBOpTimeout    time.Duration `json:"-"`
	DBOpTimeoutStr string        `json:"db_op_timeout"`

	DBMaxOpenConns       int           `json:"db_max_open_conns"`
	DBMaxIdleConns       int           `json:"db_max_idle_conns"`
	DBConnMaxLifetime    time.Duration `json:"-"`
	DBConnMaxLifetimeStr string        `json:"db_conn_max_lifetime"`
	DBConnMaxIdleTime    time.Duration `json:"-"`
	DBConnMaxIdleTimeStr string        `json:"db_conn_max_idle_time"`

	HTTPShutdownTimeout    time.Duration `json:"-"`
	HTTPShutdownTimeoutStr string        `json:"http_shutdown_timeout"`

	// Payment gateway.
	GatewayKeyID      string        `json:"gateway_key_id"`
	GatewayKeySecret  string        `json:"gateway_key_secret"`
	GatewayBaseURL    string        `json:"gateway_base_url"`
	GatewayTimeout    time.Duration `json:"-"`
	GatewayTimeoutStr string        `json:"gateway_timeout"`
	GatewayRPS        float64       `json:"gateway_rps"`

	// Pricing. PostingFee is in minor currency units.
	Currency           string        `json:"currency"`
	PostingFee         int64         `json:"posting_fee"`
	EnforceFee         bool          `json:"enforce_fee"`
	ListingDuration    time.Duration `json:"-"`
	ListingDurationStr string        `json:"listing_duration"`

	// Identity provider.
	IdentityUserInfoURL string        `json:"identity_userinfo_url"`
	IdentityLoginURL    string        `json:"identity_login_url,omitempty"`
	IdentityTimeout     time.Duration `json:"-"`
	IdentityTimeoutStr  string        `json:"identity_timeout"`
	SessionCookie       string        `json:"session_cookie"`
	SessionSecure       bool          `json:"session_secure"`
	SessionCacheTTL     time.Duration `json:"-"`
	SessionCacheTTLStr  string        `json:"session_cache_ttl"`

	// CircuitBreakerThreshold: 0 disables the circuit breaker.
	CircuitBreakerThreshold   int           `json:"circuit_breaker_threshold"`
	CircuitBreakerCooldown    time.Duration `json:"-"`
	CircuitBreakerCooldownStr string        `json:"circuit_breaker_cooldown"`

	MetricsEnabled bool   `json:"metrics_enabled"`
	MetricsPath    string `json:"metrics_path"`
	MetricsPort    string `json:"metrics_port"`

	ReconcileEnabled     bool          `json:"reconcile_enabled"`
	ReconcileInterval    time.Duration `json:"-"`
	ReconcileIntervalStr string        `json:"reconcile_interval"`

	// ReconcileThreshold must exceed GatewayTimeout, otherwise in-flight
	// orders are reported as orphans.
	ReconcileThreshold    time.Duration `json:"-"`
	ReconcileThresholdStr string        `json:"reconcile_threshold"`
	ReconcileBatchSize    int           `json:"reconcile_batch_size"`

	ExpirySchedule  string `json:"expiry_schedule"`
	ExpiryBatchSize int    `json:"expiry_batch_size"`

	// LeaderLockKey: all instances sharing the same database must use the same key.
	LeaderLockKey int64 `json:"leader_lock_key"`

	LeaderRetryInterval        time.Duration `json:"-"`
	LeaderRetryIntervalStr     string        `json:"leader_retry_interval"`
	LeaderHeartbeatInterval    time.Duration `json:"-"`
	LeaderHeartbeatIntervalStr string        `json:"leader_heartbeat_interval"`
}

// LoadEnvFile exports the variables in a dotenv file. Variables already set
// in the environment win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	cfg := Config{
		DatabaseURL:                os.Getenv("DATABASE_URL"),
		RedisAddr:                  os.Getenv("REDIS_ADDR"),
		HTTPAddr:                   os.Getenv("HTTP_ADDR"),
		LogLevel:                   envString("LOG_LEVEL", "info"),
		LogFormat:                  envString("LOG_FORMAT", "json"),
		DBOpTimeoutStr:             envString("DB_OP_TIMEOUT", "5s"),
		DBMaxOpenConns:             envInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:             envInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetimeStr:       envString("DB_CONN_MAX_LIFETIME", "30m"),
		DBConnMaxIdleTimeStr:       envString("DB_CONN_MAX_IDLE_TIME", "5m"),
		HTTPShutdownTimeoutStr:     envString("HTTP_SHUTDOWN_TIMEOUT", "10s"),
		GatewayKeyID:               os.Getenv("RAZORPAY_KEY_ID"),
		GatewayKeySecret:           os.Getenv("RAZORPAY_KEY_SECRET"),
		GatewayBaseURL:             envString("GATEWAY_BASE_URL", "https://api.razorpay.com"),
		GatewayTimeoutStr:          envString("GATEWAY_TIMEOUT", "10s"),
		Currency:                   strings.ToUpper(envString("PAYMENT_CURRENCY", "INR")),
		EnforceFee:                 os.Getenv("PAYMENT_ENFORCE_FEE") == "true",
		ListingDurationStr:         envString("LISTING_DURATION", "720h"),
		IdentityUserInfoURL:        os.Getenv("IDENTITY_USERINFO_URL"),
		IdentityLoginURL:           os.Getenv("IDENTITY_LOGIN_URL"),
		IdentityTimeoutStr:         envString("IDENTITY_TIMEOUT", "5s"),
		SessionCookie:              envString("SESSION_COOKIE", "sid"),
		SessionSecure:              os.Getenv("SESSION_COOKIE_SECURE") != "false",
		SessionCacheTTLStr:         envString("SESSION_CACHE_TTL", "5m"),
		CircuitBreakerCooldownStr:  envString("CIRCUIT_BREAKER_COOLDOWN", "30s"),
		MetricsEnabled:             os.Getenv("METRICS_ENABLED") == "true",
		MetricsPath:                envString("METRICS_PATH", "/metrics"),
		MetricsPort:                envString("METRICS_PORT", "9090"),
		ReconcileEnabled:           os.Getenv("RECONCILE_ENABLED") == "true",
		ReconcileIntervalStr:       envString("RECONCILE_INTERVAL", "5m"),
		ReconcileThresholdStr:      envString("RECONCILE_THRESHOLD", "30m"),
		ReconcileBatchSize:         envInt("RECONCILE_BATCH_SIZE", 100),
		ExpirySchedule:             envString("EXPIRY_SCHEDULE", "*/15 * * * *"),
		ExpiryBatchSize:            envInt("EXPIRY_BATCH_SIZE", 500),
		LeaderLockKey:              int64(envInt("LEADER_LOCK_KEY", 482913)),
		LeaderRetryIntervalStr:     envString("LEADER_RETRY_INTERVAL", "5s"),
		LeaderHeartbeatIntervalStr: envString("LEADER_HEARTBEAT_INTERVAL", "2s"),
	}

	if s := os.Getenv("GATEWAY_RPS"); s != "" {
		if n, err := strconv.ParseFloat(s, 64); err == nil && n >= 0 {
			cfg.GatewayRPS = n
		} else {
			log.Warn().Str("component", "config").Str("value", s).Msg("invalid GATEWAY_RPS (must be a non-negative number), using default 20")
			cfg.GatewayRPS = 20
		}
	} else {
		cfg.GatewayRPS = 20
	}

	cfg.PostingFee = 100
	if s := os.Getenv("POSTING_FEE"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			cfg.PostingFee = n
		} else {
			log.Warn().Str("component", "config").Str("value", s).Msg("invalid POSTING_FEE (must be a positive integer in minor units), using default 100")
		}
	}

	// CIRCUIT_BREAKER_THRESHOLD=0 is meaningful (disabled), so only an unset
	// variable gets the default.
	cfg.CircuitBreakerThreshold = 5
	if s, ok := os.LookupEnv("CIRCUIT_BREAKER_THRESHOLD"); ok {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			cfg.CircuitBreakerThreshold = n
		} else {
			log.Warn().Str("component", "config").Str("value", s).Msg("invalid CIRCUIT_BREAKER_THRESHOLD, using default 5")
		}
	}

	// Support the platform PORT variable as fallback for HTTP_ADDR.
	if cfg.HTTPAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.HTTPAddr = ":" + port
		} else {
			cfg.HTTPAddr = ":8080"
		}
	}

	// Parse durations; validation is handled separately by Validate().
	parseDuration(cfg.DBOpTimeoutStr, &cfg.DBOpTimeout)
	parseDuration(cfg.DBConnMaxLifetimeStr, &cfg.DBConnMaxLifetime)
	parseDuration(cfg.DBConnMaxIdleTimeStr, &cfg.DBConnMaxIdleTime)
	parseDuration(cfg.HTTPShutdownTimeoutStr, &cfg.HTTPShutdownTimeout)
	parseDuration(cfg.GatewayTimeoutStr, &cfg.GatewayTimeout)
	parseDuration(cfg.ListingDurationStr, &cfg.ListingDuration)
	parseDuration(cfg.IdentityTimeoutStr, &cfg.IdentityTimeout)
	parseDuration(cfg.SessionCacheTTLStr, &cfg.SessionCacheTTL)
	parseDuration(cfg.CircuitBreakerCooldownStr, &cfg.CircuitBreakerCooldown)
	parseDuration(cfg.ReconcileIntervalStr, &cfg.ReconcileInterval)
	parseDuration(cfg.ReconcileThresholdStr, &cfg.ReconcileThreshold)
	parseDuration(cfg.LeaderRetryIntervalStr, &cfg.LeaderRetryInterval)
	parseDuration(cfg.LeaderHeartbeatIntervalStr, &cfg.LeaderHeartbeatInterval)

	return cfg
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt returns the positive integer in key, or def when unset or invalid.
func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		log.Warn().Str("component", "config").Str("key", key).Str("value", s).
			Int("default", def).Msg("invalid value (must be a positive integer), using default")
		return def
	}
	return n
}

func parseDuration(s string, dst *time.Duration) {
	if d, err := time.ParseDuration(s); err == nil {
		*dst = d
	}
}

// MaskedJSON returns the configuration as JSON with secrets masked.
func (c Config) MaskedJSON() ([]byte, error) {
	masked := c
	masked.DatabaseURL = maskSecret(c.DatabaseURL)
	masked.GatewayKeySecret = maskSecret(c.GatewayKeySecret)
	return json.MarshalIndent(masked, "", "  ")
}

// maskSecret masks a secret value, preserving only the URI scheme if present.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(s, scheme) {
			return scheme + "***"
		}
	}
	return "***"
}
