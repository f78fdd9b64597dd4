package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/anime-crud/internal/platform/db"
)

// Options selects and configures the repository backend.
type Options struct {
	DatabaseURL string
	SQLitePath  string
	RedisURL    string
	CacheTTL    time.Duration
	// AppName is reported to Postgres as application_name.
	AppName    string
	Production bool
	Logger     *zap.Logger
}

// ErrDurableStoreRequired is returned in production when neither DATABASE_URL
// nor SQLITE_PATH yields a working store.
var ErrDurableStoreRequired = errors.New("production requires DATABASE_URL or SQLITE_PATH; in-memory store is not allowed")

// Open builds the best available repository: Postgres > SQLite > in-memory.
// Outside production an unreachable Postgres falls back to memory. When
// RedisURL is set the result is wrapped in a read-through cache. The returned
// close func is never nil.
func Open(ctx context.Context, opts Options) (AnimeRepository, func(), error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	repo, closeFn, err := openBackend(ctx, opts, log)
	if err != nil {
		return nil, nil, err
	}
	if opts.RedisURL == "" {
		return repo, closeFn, nil
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	client := NewRedisClient(opts.RedisURL)
	log.Info("redis cache enabled", zap.String("addr", client.Options().Addr), zap.Duration("ttl", ttl))
	cached := NewCachedAnimeRepository(repo, client, ttl, log)
	return cached, func() {
		_ = client.Close()
		closeFn()
	}, nil
}

func openBackend(ctx context.Context, opts Options, log *zap.Logger) (AnimeRepository, func(), error) {
	if opts.DatabaseURL != "" {
		pool, err := db.Open(ctx, opts.DatabaseURL, db.Options{AppName: opts.AppName})
		if err == nil {
			pg := NewPostgresAnimeRepository(pool)
			if err = pg.Migrate(ctx); err == nil {
				log.Info("using postgres anime store")
				return pg, pg.Close, nil
			}
			pool.Close()
		}
		if opts.Production {
			return nil, nil, fmt.Errorf("postgres is required in production but unavailable: %w", err)
		}
		log.Warn("postgres unavailable, falling back to in-memory store", zap.Error(err))
		return NewInMemoryAnimeRepository(), func() {}, nil
	}

	if opts.SQLitePath != "" {
		lite, err := OpenSQLite(ctx, opts.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using sqlite anime store", zap.String("path", opts.SQLitePath))
		return lite, func() { _ = lite.Close() }, nil
	}

	if opts.Production {
		return nil, nil, ErrDurableStoreRequired
	}
	log.Warn("DATABASE_URL not set, using in-memory anime store (development only)")
	return NewInMemoryAnimeRepository(), func() {}, nil
}
