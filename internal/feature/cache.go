package feature

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/riskline/decisionengine/internal/ast"
	"github.com/riskline/decisionengine/internal/value"
)

// Cache is the write-through cache the Extractor consults before recomputing
// a feature, keyed by the canonicalized (feature_id, parameter tuple) (spec
// §4.6). spec carries the feature's declared strategy ("none" | "ttl" |
// "request_scoped") so one Cache can serve every feature regardless of its
// individual strategy.
type Cache interface {
	Get(ctx context.Context, key string, spec ast.CacheSpec) (value.Value, bool)
	Set(ctx context.Context, key string, v value.Value, spec ast.CacheSpec)
}

// NoneCache never caches; every Compute call recomputes (spec §4.6
// strategy "none").
type NoneCache struct{}

func (NoneCache) Get(context.Context, string, ast.CacheSpec) (value.Value, bool) {
	return value.Null, false
}
func (NoneCache) Set(context.Context, string, value.Value, ast.CacheSpec) {}

// RequestScopedCache backs the "request_scoped" strategy (spec §4.6). One
// instance is shared by every request of an engine; requests are kept
// apart because the Extractor puts system.request_id into each key (see
// cacheKey).
type RequestScopedCache struct {
	mu      sync.Mutex
	entries map[string]value.Value
}

func NewRequestScopedCache() *RequestScopedCache {
	return &RequestScopedCache{entries: map[string]value.Value{}}
}

func (c *RequestScopedCache) Get(_ context.Context, key string, spec ast.CacheSpec) (value.Value, bool) {
	if spec.Strategy != "request_scoped" {
		return value.Null, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *RequestScopedCache) Set(_ context.Context, key string, v value.Value, spec ast.CacheSpec) {
	if spec.Strategy != "request_scoped" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
}

// RedisTTLCache backs the "ttl" strategy with a write-through SETEX against
// Redis (spec §4.6 strategy "TTL(d)"). Calls for any other strategy are
// no-ops so a single Cache instance can serve every feature regardless of
// its declared strategy.
type RedisTTLCache struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisTTLCache(client *redis.Client, keyPrefix string) *RedisTTLCache {
	return &RedisTTLCache{client: client, keyPrefix: keyPrefix}
}

func (c *RedisTTLCache) Get(ctx context.Context, key string, spec ast.CacheSpec) (value.Value, bool) {
	if spec.Strategy != "ttl" {
		return value.Null, false
	}
	raw, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		return value.Null, false
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return value.Null, false
	}
	return value.FromRaw(decoded), true
}

func (c *RedisTTLCache) Set(ctx context.Context, key string, v value.Value, spec ast.CacheSpec) {
	if spec.Strategy != "ttl" || spec.TTLSeconds <= 0 {
		return
	}
	raw, err := json.Marshal(v.Raw())
	if err != nil {
		return
	}
	_ = c.client.SetEx(ctx, c.keyPrefix+key, raw, time.Duration(spec.TTLSeconds)*time.Second).Err()
}

// TieredCache dispatches Get/Set to whichever sub-cache matches the
// feature's declared strategy, so a single Extractor can mix "none", "ttl",
// and "request_scoped" features without per-feature wiring.
type TieredCache struct {
	ttl           Cache
	requestScoped Cache
	none          Cache
}

func NewTieredCache(ttl Cache, requestScoped Cache) *TieredCache {
	return &TieredCache{ttl: ttl, requestScoped: requestScoped, none: NoneCache{}}
}

func (t *TieredCache) pick(spec ast.CacheSpec) Cache {
	switch spec.Strategy {
	case "ttl":
		if t.ttl != nil {
			return t.ttl
		}
	case "request_scoped":
		if t.requestScoped != nil {
			return t.requestScoped
		}
	}
	return t.none
}

func (t *TieredCache) Get(ctx context.Context, key string, spec ast.CacheSpec) (value.Value, bool) {
	return t.pick(spec).Get(ctx, key, spec)
}

func (t *TieredCache) Set(ctx context.Context, key string, v value.Value, spec ast.CacheSpec) {
	t.pick(spec).Set(ctx, key, v, spec)
}
