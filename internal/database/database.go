package database

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"storefront/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

//go:embed schema.sql
var schema string

const applicationName = "storefront"

// PoolConfig turns cfg into pgxpool settings. Zero durations keep the pgx
// defaults. Sessions report as the storefront and run in UTC so order
// timestamps compare the same way in SQL and Go.
func PoolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	if d := seconds(cfg.MaxConnLifetime); d > 0 {
		poolConfig.MaxConnLifetime = d
	}
	if d := seconds(cfg.MaxConnIdleTime); d > 0 {
		poolConfig.MaxConnIdleTime = d
	}
	if d := seconds(cfg.HealthCheckPeriod); d > 0 {
		poolConfig.HealthCheckPeriod = d
	}
	if d := seconds(cfg.ConnectTimeout); d > 0 {
		poolConfig.ConnConfig.ConnectTimeout = d
	}

	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName
	poolConfig.ConnConfig.RuntimeParams["timezone"] = "UTC"

	return poolConfig, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// NewPool opens the connection pool and checks the server answers.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	logger = logger.With().Str("component", "database").Logger()
	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Str("sslmode", cfg.SSLMode).
		Int32("max_conns", poolConfig.MaxConns).
		Int32("min_conns", poolConfig.MinConns).
		Dur("max_conn_idle_time", poolConfig.MaxConnIdleTime).
		Msg("opening connection pool")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	logger.Info().Int32("total_conns", pool.Stat().TotalConns()).Msg("connection pool ready")
	return pool, nil
}

// Migrate applies the embedded schema. Every statement is idempotent, so it
// runs on each start.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Info().Msg("database schema applied")
	return nil
}
