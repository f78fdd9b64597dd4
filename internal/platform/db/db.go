package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrMissingDSN = errors.New("DATABASE_URL is required")

// Options tunes the pool. Zero values use the defaults below.
type Options struct {
	// MaxConns caps open connections (default 10).
	MaxConns int32
	// AppName is reported to Postgres as application_name.
	AppName     string
	PingTimeout time.Duration
}

// Open parses dsn, opens a pool and pings it before returning.
func Open(ctx context.Context, dsn string, opts Options) (*pgxpool.Pool, error) {
	if dsn = strings.TrimSpace(dsn); dsn == "" {
		return nil, ErrMissingDSN
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}

	cfg.MaxConns = 10
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	if opts.AppName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = opts.AppName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}
