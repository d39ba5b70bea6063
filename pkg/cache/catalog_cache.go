package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// DefaultCatalogTTL is used when NewCatalogCache is given a non-positive TTL.
const DefaultCatalogTTL = 10 * time.Minute

const catalogKeyPrefix = "catalog"

// generationTTL bounds how long an invalidation is remembered. It only has to
// outlive the gap between a Fence call and the matching Set.
const generationTTL = 24 * time.Hour

// fencedSet writes the hash only while the generation still equals the fence.
// KEYS[1] entry, KEYS[2] generation; ARGV[1] fence, ARGV[2] ttl ms, then field/value pairs.
var fencedSet = redis.NewScript(`
local gen = tonumber(redis.call('GET', KEYS[2]) or '0')
if gen ~= tonumber(ARGV[1]) then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], unpack(ARGV, 3))
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// Cache entity kinds, used as the middle key segment.
const (
	KindProduct     = "product"
	KindRawMaterial = "raw_material"
)

// CachedProduct is the read model stored in Redis for GET /products/{code}.
type CachedProduct struct {
	Code      string
	Name      string
	Value     decimal.Decimal
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CachedRawMaterial is the read model stored in Redis for GET /raw-materials/{code}.
type CachedRawMaterial struct {
	Code          string
	Name          string
	StockQuantity decimal.Decimal
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CatalogCache stores catalog read models as Redis hashes.
// Key format: "catalog:{kind}:{code}"
//
// Every entry has a generation counter that Invalidate bumps. A reader that
// misses takes a Fence before loading from PostgreSQL and passes it to Set,
// so a slow cache fill never overwrites a newer invalidation.
type CatalogCache struct {
	client *RedisClient
	ttl    time.Duration
}

// NewCatalogCache creates a CatalogCache backed by the given RedisClient.
func NewCatalogCache(r *RedisClient, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &CatalogCache{client: r, ttl: ttl}
}

// GetProduct returns redis.Nil when the key does not exist or has expired.
func (c *CatalogCache) GetProduct(ctx context.Context, code string) (*CachedProduct, error) {
	vals, err := c.get(ctx, Key(KindProduct, code))
	if err != nil {
		return nil, err
	}
	var h hashReader
	p := &CachedProduct{
		Code:      vals["code"],
		Name:      vals["name"],
		Value:     h.decimal(vals["value"]),
		Version:   h.int(vals["version"]),
		CreatedAt: h.time(vals["created_at"]),
		UpdatedAt: h.time(vals["updated_at"]),
	}
	if h.err != nil {
		return nil, fmt.Errorf("cache parse product %s: %w", code, h.err)
	}
	return p, nil
}

// SetProduct writes p with the cache TTL unless the product was invalidated
// after fence was taken. It reports whether the entry was written.
func (c *CatalogCache) SetProduct(ctx context.Context, p *CachedProduct, fence int64) (bool, error) {
	return c.set(ctx, KindProduct, p.Code, fence,
		"code", p.Code,
		"name", p.Name,
		"value", p.Value.String(),
		"version", strconv.FormatInt(p.Version, 10),
		"created_at", p.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at", p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
}

// GetRawMaterial returns redis.Nil when the key does not exist or has expired.
func (c *CatalogCache) GetRawMaterial(ctx context.Context, code string) (*CachedRawMaterial, error) {
	vals, err := c.get(ctx, Key(KindRawMaterial, code))
	if err != nil {
		return nil, err
	}
	var h hashReader
	m := &CachedRawMaterial{
		Code:          vals["code"],
		Name:          vals["name"],
		StockQuantity: h.decimal(vals["stock_quantity"]),
		Version:       h.int(vals["version"]),
		CreatedAt:     h.time(vals["created_at"]),
		UpdatedAt:     h.time(vals["updated_at"]),
	}
	if h.err != nil {
		return nil, fmt.Errorf("cache parse raw material %s: %w", code, h.err)
	}
	return m, nil
}

// SetRawMaterial writes m with the cache TTL unless the raw material was
// invalidated after fence was taken. It reports whether the entry was written.
func (c *CatalogCache) SetRawMaterial(ctx context.Context, m *CachedRawMaterial, fence int64) (bool, error) {
	return c.set(ctx, KindRawMaterial, m.Code, fence,
		"code", m.Code,
		"name", m.Name,
		"stock_quantity", m.StockQuantity.String(),
		"version", strconv.FormatInt(m.Version, 10),
		"created_at", m.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at", m.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
}

// Fence returns the current generation of an entry, 0 if it was never invalidated.
func (c *CatalogCache) Fence(ctx context.Context, kind, code string) (int64, error) {
	n, err := c.client.Client().Get(ctx, generationKey(kind, code)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache fence %s: %w", kind, err)
	}
	return n, nil
}

// Invalidate deletes the cached entries of the given kind and bumps their
// generations, so fills fenced before this call are dropped. Missing keys are ignored.
func (c *CatalogCache) Invalidate(ctx context.Context, kind string, codes ...string) error {
	if len(codes) == 0 {
		return nil
	}
	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = Key(kind, code)
	}
	_, err := c.client.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, code := range codes {
			gen := generationKey(kind, code)
			pipe.Incr(ctx, gen)
			pipe.Expire(ctx, gen, generationTTL)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache invalidate %s: %w", kind, err)
	}
	return nil
}

func (c *CatalogCache) get(ctx context.Context, key string) (map[string]string, error) {
	vals, err := c.client.Client().HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	if len(vals) == 0 {
		return nil, redis.Nil
	}
	return vals, nil
}

// set writes all fields and the TTL atomically if the generation matches fence.
func (c *CatalogCache) set(ctx context.Context, kind, code string, fence int64, fields ...any) (bool, error) {
	args := make([]any, 0, len(fields)+2)
	args = append(args, fence, c.ttl.Milliseconds())
	args = append(args, fields...)
	n, err := fencedSet.Run(ctx, c.client.Client(), []string{Key(kind, code), generationKey(kind, code)}, args...).Int()
	if err != nil {
		return false, fmt.Errorf("cache set %s: %w", kind, err)
	}
	return n == 1, nil
}

// Key builds the Redis key: "catalog:{kind}:{code}"
func Key(kind, code string) string {
	return fmt.Sprintf("%s:%s:%s", catalogKeyPrefix, kind, code)
}

func generationKey(kind, code string) string {
	return Key(kind, code) + ":gen"
}

// hashReader parses hash fields and keeps the first error.
type hashReader struct{ err error }

func (h *hashReader) decimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil && h.err == nil {
		h.err = err
	}
	return d
}

func (h *hashReader) int(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil && h.err == nil {
		h.err = err
	}
	return n
}

func (h *hashReader) time(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil && h.err == nil {
		h.err = err
	}
	return t
}
