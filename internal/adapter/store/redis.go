package store

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/apperr"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/applog"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/pattern"
)

const redisOpTimeout = 5 * time.Second

// RedisStore is a Redis-backed DedupStore keeping the processed set in a
// Redis SET. Like the file store, it mirrors the set in memory so lookups
// stay pure and the in-memory view survives flush failures.
//
// Single-writer assumption: only one listener instance may use a given
// dedup key.
type RedisStore struct {
	rdb *redis.Client
	log applog.AppLogger
	cfg RedisConfig

	mu        sync.Mutex
	processed map[string]struct{}
}

// NewRedisStore creates a Redis client from the provided config, validates
// it, optionally enables TLS, and loads the existing processed set.
func NewRedisStore(ctx context.Context, log applog.AppLogger, cfg RedisConfig, v *validator.Validate) (*RedisStore, error) {
	if err := v.Struct(cfg); err != nil {
		log.Error("invalid redis store config", "err", err)
		return nil, apperr.NewInvalidArgErr("invalid redis store config", err)
	}

	opts := &redis.Options{
		Addr:        net.JoinHostPort(cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		MaxRetries:  cfg.MaxRetries,
		DialTimeout: time.Duration(cfg.DialTimeoutSeconds) * time.Second,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rs := &RedisStore{
		rdb:       redis.NewClient(opts),
		log:       log,
		cfg:       cfg,
		processed: make(map[string]struct{}),
	}
	if err := rs.load(ctx); err != nil {
		return nil, err
	}
	log.Info("Dedup store initialized", "backend", "redis", "key", cfg.DedupKey, "processed", len(rs.processed))
	return rs, nil
}

func (rs *RedisStore) load(ctx context.Context) error {
	loadCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	ids, err := rs.rdb.SMembers(loadCtx, rs.cfg.DedupKey).Result()
	if err != nil {
		return apperr.NewPersistenceErr("failed to load dedup set from redis", err)
	}
	for _, id := range ids {
		rs.processed[id] = struct{}{}
	}
	return nil
}

// IsProcessed reports whether id has already been acted upon.
func (rs *RedisStore) IsProcessed(id string) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	_, ok := rs.processed[id]
	return ok
}

// MarkProcessed records id in memory first, then appends it to the Redis
// set with a short retry. The in-memory record stands even when the flush
// fails.
func (rs *RedisStore) MarkProcessed(id string) error {
	rs.mu.Lock()
	rs.processed[id] = struct{}{}
	rs.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	err := pattern.Retry(ctx, func(attempt int) error {
		if err := rs.rdb.SAdd(ctx, rs.cfg.DedupKey, id).Err(); err != nil {
			rs.log.Warn("Redis SADD failed", "key", rs.cfg.DedupKey, "attempt", attempt, "err", err)
			return err
		}
		return nil
	},
		pattern.WithMaxAttempts(3),
		pattern.WithInitialDelay(100*time.Millisecond),
		pattern.WithMaxDelay(500*time.Millisecond),
		pattern.WithJitter(0.2),
	)
	if err != nil {
		return apperr.NewPersistenceErr("failed to persist processed id to redis", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (rs *RedisStore) Close() error {
	return rs.rdb.Close()
}
