package settlement

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyPrefix = "settlement:ref:v1:"

// Index deduplicates externally supplied payment references on the read path.
// It is an optimization only: the unique constraint on the ledger's external
// reference is the correctness mechanism, so a cache miss or failure simply
// falls through to the store.
type Index interface {
	Lookup(ctx context.Context, ref string) (CreditResult, bool)
	Remember(ctx context.Context, ref string, result CreditResult)
}

// RedisIndex caches settled credit results in Redis keyed by payment reference.
type RedisIndex struct {
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisIndex builds a Redis-backed idempotency index.
func NewRedisIndex(cache *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisIndex {
	return &RedisIndex{cache: cache, ttl: ttl, logger: logger}
}

// Lookup returns the previously settled result for the reference, if cached.
func (i *RedisIndex) Lookup(ctx context.Context, ref string) (CreditResult, bool) {
	payload, err := i.cache.Get(ctx, idempotencyPrefix+ref).Result()
	if err != nil {
		if err != redis.Nil {
			i.logger.Warn("idempotency lookup failed", slog.String("ref", ref), slog.Any("error", err))
		}
		return CreditResult{}, false
	}

	var result CreditResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		i.logger.Warn("decode cached settlement", slog.String("ref", ref), slog.Any("error", err))
		return CreditResult{}, false
	}
	return result, true
}

// Remember caches the settled result under the reference. Failures are logged
// and ignored; the store constraint still protects replays.
func (i *RedisIndex) Remember(ctx context.Context, ref string, result CreditResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		i.logger.Warn("encode settlement for cache", slog.String("ref", ref), slog.Any("error", err))
		return
	}
	if err := i.cache.Set(ctx, idempotencyPrefix+ref, payload, i.ttl).Err(); err != nil {
		i.logger.Warn("cache settlement", slog.String("ref", ref), slog.Any("error", err))
	}
}

// NoopIndex disables read-path deduplication. Every lookup misses, leaving
// duplicate detection entirely to the store.
type NoopIndex struct{}

// Lookup always misses.
func (NoopIndex) Lookup(context.Context, string) (CreditResult, bool) { return CreditResult{}, false }

// Remember does nothing.
func (NoopIndex) Remember(context.Context, string, CreditResult) {}
