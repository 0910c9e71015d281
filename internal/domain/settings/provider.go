package settings

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Provider resolves named settings with caller-supplied defaults.
// Lookups go through an optional Redis cache; any cache or store error
// falls back to the default so a settings outage never fails a request.
type Provider struct {
	repo  Repository
	cache *redis.Client
	ttl   time.Duration
}

func NewProvider(repo Repository, cache *redis.Client, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Provider{repo: repo, cache: cache, ttl: ttl}
}

// GetString returns the raw value for key, or def when unset or unavailable
func (p *Provider) GetString(ctx context.Context, key, def string) string {
	if p.cache != nil {
		if cached, err := p.cache.Get(ctx, cacheKey(key)).Result(); err == nil {
			return cached
		}
	}

	value, err := p.repo.Get(ctx, key)
	if err != nil {
		if err != ErrNotFound {
			log.Warn().Err(err).Str("key", key).Msg("settings lookup failed, using default")
		}
		return def
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, cacheKey(key), value, p.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("settings cache write failed")
		}
	}

	return value
}

// GetDecimal returns the value for key parsed as a decimal, or def
func (p *Provider) GetDecimal(ctx context.Context, key string, def decimal.Decimal) decimal.Decimal {
	raw := p.GetString(ctx, key, "")
	if raw == "" {
		return def
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("setting is not a valid decimal, using default")
		return def
	}
	return d
}

// GetInt returns the value for key parsed as an int, or def
func (p *Provider) GetInt(ctx context.Context, key string, def int) int {
	raw := p.GetString(ctx, key, "")
	if raw == "" {
		return def
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("setting is not a valid int, using default")
		return def
	}
	return n
}

// Set updates a setting and invalidates its cache entry
func (p *Provider) Set(ctx context.Context, key, value string) error {
	if err := p.repo.Set(ctx, key, value); err != nil {
		return err
	}
	if p.cache != nil {
		if err := p.cache.Del(ctx, cacheKey(key)).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("settings cache invalidation failed")
		}
	}
	return nil
}

func cacheKey(key string) string {
	return "settings:" + key
}
