package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/2001Abhinav/job-posting-platform/internal/config"
	"github.com/2001Abhinav/job-posting-platform/internal/logger"
	"github.com/2001Abhinav/job-posting-platform/internal/store/postgres"

	_ "github.com/lib/pq"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

// CLI is the jobboard command line.
type CLI struct {
	EnvFile string `name:"env-file" help:"Load environment variables from this file when it exists." default:".env" type:"path"`

	Serve    ServeCmd    `cmd:"" help:"Start the HTTP API and the leader-elected background duties."`
	Migrate  MigrateCmd  `cmd:"" help:"Apply the database schema and exit."`
	Validate ValidateCmd `cmd:"" help:"Validate configuration (no connections made)."`
	Config   ConfigCmd   `cmd:"" help:"Print effective configuration as JSON (secrets masked)."`
	Version  VersionCmd  `cmd:"" help:"Print version information."`
}

// runContext is bound into every command's Run method.
type runContext struct {
	cfg    config.Config
	stdout io.Writer
	stderr io.Writer
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func invalidConfig(err error) error {
	return &exitError{code: exitInvalidConfig, err: fmt.Errorf("configuration error: %w", err)}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("jobboard"),
		kong.Description("Job board with payment-gated listings."),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitRuntimeError
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitRuntimeError
	}
	if kctx.Command() == "" {
		return exitSuccess
	}

	if err := config.LoadEnvFile(cli.EnvFile); err != nil {
		fmt.Fprintln(stderr, err)
		return exitRuntimeError
	}

	rc := &runContext{cfg: config.Load(), stdout: stdout, stderr: stderr}
	if err := kctx.Run(rc); err != nil {
		fmt.Fprintln(stderr, err)
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return exitRuntimeError
	}
	return exitSuccess
}

// ServeCmd runs the API server.
type ServeCmd struct {
	AutoMigrate bool `name:"auto-migrate" help:"Apply the database schema before serving." env:"AUTO_MIGRATE"`
}

func (c *ServeCmd) Run(rc *runContext) error {
	return serve(rc.cfg, c.AutoMigrate)
}

// MigrateCmd applies the schema.
type MigrateCmd struct{}

func (c *MigrateCmd) Run(rc *runContext) error {
	cfg := rc.cfg
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	if cfg.DatabaseURL == "" {
		return invalidConfig(config.ValidationErrors{{Field: "DATABASE_URL", Message: "required"}})
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := postgres.New(db).Migrate(ctx); err != nil {
		return err
	}
	fmt.Fprintln(rc.stdout, "schema applied")
	return nil
}

// ValidateCmd checks configuration without side effects.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(rc *runContext) error {
	if err := config.Validate(rc.cfg); err != nil {
		return &exitError{code: exitInvalidConfig, err: err}
	}
	fmt.Fprintln(rc.stdout, "configuration valid")
	return nil
}

// ConfigCmd prints the effective configuration.
type ConfigCmd struct{}

func (c *ConfigCmd) Run(rc *runContext) error {
	data, err := rc.cfg.MaskedJSON()
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Fprintln(rc.stdout, string(data))
	return nil
}

// VersionCmd prints build information.
type VersionCmd struct{}

func (c *VersionCmd) Run(rc *runContext) error {
	fmt.Fprintf(rc.stdout, "jobboard version %s (commit: %s)\n", version, commit)
	return nil
}

// openDB opens and pings a pooled PostgreSQL handle.
func openDB(cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	timeout := cfg.DBOpTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}
