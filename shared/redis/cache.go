package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ViewCache is a generic JSON-backed Redis cache for read models. Keys are
// prefix+id; pass ttl 0 for keys that should not expire.
type ViewCache[T any] struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
	log    zerolog.Logger
}

func NewViewCache[T any](client *goredis.Client, prefix string, ttl time.Duration, log zerolog.Logger) *ViewCache[T] {
	return &ViewCache[T]{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		log:    log.With().Str("component", "view_cache").Str("prefix", prefix).Logger(),
	}
}

// Get returns (nil, false) on any miss or deserialisation error.
func (c *ViewCache[T]) Get(ctx context.Context, id string) (*T, bool) {
	data, err := c.client.Get(ctx, c.prefix+id).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn().Err(err).Str("id", id).Msg("cache read failed")
		}
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.log.Warn().Err(err).Str("id", id).Msg("cache entry is corrupt")
		return nil, false
	}
	return &v, true
}

// Set stores value under id. A failed cache write is logged, not returned.
func (c *ViewCache[T]) Set(ctx context.Context, id string, value *T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Error().Err(err).Str("id", id).Msg("cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, c.prefix+id, data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("id", id).Msg("cache write failed")
	}
}

func (c *ViewCache[T]) Delete(ctx context.Context, id string) {
	if err := c.client.Del(ctx, c.prefix+id).Err(); err != nil {
		c.log.Warn().Err(err).Str("id", id).Msg("cache delete failed")
	}
}
