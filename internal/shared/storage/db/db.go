package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"careaudit-backend/internal/shared/telemetry"
)

// Options sizes the pool for one binary. Each field can be overridden by
// the DB_-prefixed variable named in its tag.
type Options struct {
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME"`
	PingTimeout     time.Duration `env:"PING_TIMEOUT"`
	// ConnectRetries is how many extra pings Connect makes while Postgres
	// is still starting.
	ConnectRetries uint64 `env:"CONNECT_RETRIES"`
}

var (
	openDB     = sql.Open
	newBackOff = func() backoff.BackOff { return backoff.NewExponentialBackOff() }
)

// DefaultServerOptions is the API profile: short requests, many of them.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
		ConnectRetries:  3,
	}
}

// DefaultWorkerOptions is the worker profile. A worker holds one claimed
// job plus the sweeper and retention loops.
func DefaultWorkerOptions() Options {
	return Options{
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxIdleTime: 5 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
		ConnectRetries:  5,
	}
}

// DefaultMigrateOptions is the single-connection profile for cmd/migrate.
func DefaultMigrateOptions() Options {
	return Options{
		MaxOpenConns:   1,
		MaxIdleConns:   1,
		PingTimeout:    5 * time.Second,
		ConnectRetries: 5,
	}
}

// OptionsFromEnv applies DB_* overrides on top of defaults. A malformed
// variable is logged and the defaults are kept whole.
func OptionsFromEnv(defaults Options) Options {
	opts := defaults
	if err := env.ParseWithOptions(&opts, env.Options{Prefix: "DB_"}); err != nil {
		telemetry.Error("db.env_invalid", map[string]any{"error": err.Error()})
		return defaults
	}
	return opts
}

// Connect opens the shared pool for databaseURL and pings it, retrying with
// exponential backoff up to opts.ConnectRetries times.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	pool, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	configurePool(pool, opts)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	attempt := 0
	ping := func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		err := pool.PingContext(pingCtx)
		if err != nil {
			telemetry.Error("db.ping_failed", map[string]any{"attempt": attempt, "error": err.Error()})
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), opts.ConnectRetries), ctx)
	if err := backoff.Retry(ping, policy); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping database after %d attempts: %w", attempt, err)
	}

	LogPoolStats(pool, "db.connected")
	return pool, nil
}

func configurePool(pool *sql.DB, opts Options) {
	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	maxIdle := opts.MaxIdleConns
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	lifetime := opts.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	pool.SetMaxOpenConns(maxOpen)
	pool.SetMaxIdleConns(maxIdle)
	pool.SetConnMaxLifetime(lifetime)
	if opts.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

// LogPoolStats writes the pool counters under label.
func LogPoolStats(pool *sql.DB, label string) {
	if pool == nil {
		return
	}
	stats := pool.Stats()
	telemetry.Info(label, map[string]any{
		"open":          stats.OpenConnections,
		"in_use":        stats.InUse,
		"idle":          stats.Idle,
		"wait_count":    stats.WaitCount,
		"wait_duration": stats.WaitDuration,
		"max_open":      stats.MaxOpenConnections,
	})
}
