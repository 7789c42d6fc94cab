package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps pgxpool.Pool and provides a shared connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// Option tunes the pool before it connects.
type Option func(*pgxpool.Config)

// WithMaxConns caps the pool size. Non-positive values keep the default.
func WithMaxConns(n int32) Option {
	return func(cfg *pgxpool.Config) {
		if n > 0 {
			cfg.MaxConns = n
		}
	}
}

// WithConnMaxLifetime recycles connections older than d.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(cfg *pgxpool.Config) {
		if d > 0 {
			cfg.MaxConnLifetime = d
		}
	}
}

// New connects to dsn and pings it, closing the pool again if the ping fails.
func New(ctx context.Context, dsn string, opts ...Option) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Ping checks the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Stat exposes pool statistics for the metrics gauges.
func (db *DB) Stat() *pgxpool.Stat {
	return db.Pool.Stat()
}

// Close releases pool resources.
func (db *DB) Close() {
	db.Pool.Close()
}
