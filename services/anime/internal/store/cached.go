package store

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/anime-crud/services/anime/internal/domain"
)

const cacheKeyPrefix = "anime:"

// A write replaces the key with heldMarker for writeHold. While the marker is
// present reads go to the inner repository and never fill the key, so a read
// that loaded the row before the write cannot put the old value back.
const (
	heldMarker = "-"
	writeHold  = 10 * time.Second
)

// CachedAnimeRepository puts a Redis read-through cache in front of FindByID.
// Writes go to the inner repository first and then hold the affected keys.
// Fills use SET NX so they never overwrite a hold. Redis failures are logged
// and never fail the request.
type CachedAnimeRepository struct {
	inner  AnimeRepository
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisClient parses url as a redis:// URL, treating anything that does
// not parse as a plain host:port.
func NewRedisClient(url string) *redis.Client {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	return redis.NewClient(opts)
}

func NewCachedAnimeRepository(inner AnimeRepository, client *redis.Client, ttl time.Duration, log *zap.Logger) *CachedAnimeRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedAnimeRepository{inner: inner, client: client, ttl: ttl, log: log}
}

func cacheKey(id int) string {
	return cacheKeyPrefix + strconv.Itoa(id)
}

// FindAll is not cached.
func (c *CachedAnimeRepository) FindAll(ctx context.Context) iter.Seq2[domain.Anime, error] {
	return c.inner.FindAll(ctx)
}

func (c *CachedAnimeRepository) FindByID(ctx context.Context, id int) (domain.Anime, error) {
	key := cacheKey(id)
	fill := true
	val, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil && string(val) == heldMarker:
		fill = false
	case err == nil:
		var a domain.Anime
		if jerr := json.Unmarshal(val, &a); jerr == nil {
			return a, nil
		}
		c.log.Warn("discarding corrupt cache entry", zap.String("key", key))
		c.hold(ctx, id)
		fill = false
	case !errors.Is(err, redis.Nil):
		c.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		fill = false
	}

	a, err := c.inner.FindByID(ctx, id)
	if err != nil {
		return domain.Anime{}, err
	}
	if fill {
		c.fill(ctx, a)
	}
	return a, nil
}

func (c *CachedAnimeRepository) Save(ctx context.Context, a domain.Anime) (domain.Anime, error) {
	saved, err := c.inner.Save(ctx, a)
	if err != nil {
		return domain.Anime{}, err
	}
	c.hold(ctx, saved.ID)
	return saved, nil
}

func (c *CachedAnimeRepository) SaveAll(ctx context.Context, list []domain.Anime) ([]domain.Anime, error) {
	saved, err := c.inner.SaveAll(ctx, list)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(saved))
	for _, a := range saved {
		ids = append(ids, a.ID)
	}
	c.hold(ctx, ids...)
	return saved, nil
}

func (c *CachedAnimeRepository) Delete(ctx context.Context, a domain.Anime) error {
	if err := c.inner.Delete(ctx, a); err != nil {
		return err
	}
	c.hold(ctx, a.ID)
	return nil
}

// Ping reports the inner repository's health only; the cache is optional.
func (c *CachedAnimeRepository) Ping(ctx context.Context) error {
	return Ping(ctx, c.inner)
}

// Unwrap returns the decorated repository.
func (c *CachedAnimeRepository) Unwrap() AnimeRepository { return c.inner }

// fill stores a only if the key is absent.
func (c *CachedAnimeRepository) fill(ctx context.Context, a domain.Anime) {
	b, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := c.client.SetNX(ctx, cacheKey(a.ID), b, c.ttl).Err(); err != nil {
		c.log.Warn("cache fill failed", zap.Int("id", a.ID), zap.Error(err))
	}
}

func (c *CachedAnimeRepository) hold(ctx context.Context, ids ...int) {
	if len(ids) == 0 {
		return
	}
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range ids {
			p.Set(ctx, cacheKey(id), heldMarker, writeHold)
		}
		return nil
	})
	if err != nil {
		c.log.Warn("cache hold failed", zap.Ints("ids", ids), zap.Error(err))
	}
}
