package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/autoflex-io/inventory/pkg/config"
)

func newTestConfig(url string) *config.Config {
	return &config.Config{
		ServiceName:   "inventory-test",
		RedisURL:      url,
		RedisPoolSize: 4,
	}
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), newTestConfig("not-a-valid-url"))
	if err == nil {
		t.Fatal("expected error for invalid URL, got nil")
	}
}

func TestNewRedisClient_UnreachableHost(t *testing.T) {
	_, err := NewRedisClient(context.Background(), newTestConfig("redis://localhost:19999"))
	if err == nil {
		t.Fatal("expected error when Redis is unreachable, got nil")
	}
}

// Integration tests: skipped unless REDIS_URL is set.
func TestRedisIntegration(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set; skipping integration tests")
	}

	t.Run("NewRedisClient_Success", func(t *testing.T) {
		rc, err := NewRedisClient(context.Background(), newTestConfig(redisURL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer rc.Close() //nolint:errcheck
	})

	t.Run("Ping_Success", func(t *testing.T) {
		rc, err := NewRedisClient(context.Background(), newTestConfig(redisURL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer rc.Close() //nolint:errcheck

		if err := rc.Ping(context.Background()); err != nil {
			t.Fatalf("Ping failed: %v", err)
		}
	})

	t.Run("Close_Idempotent", func(t *testing.T) {
		rc, err := NewRedisClient(context.Background(), newTestConfig(redisURL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := rc.Close(); err != nil {
			t.Fatalf("first Close failed: %v", err)
		}
	})

	t.Run("CatalogCache_RoundTripAndInvalidate", func(t *testing.T) {
		rc, err := NewRedisClient(context.Background(), newTestConfig(redisURL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer rc.Close() //nolint:errcheck

		ctx := context.Background()
		c := NewCatalogCache(rc, time.Minute)
		code := "RM-TEST-" + time.Now().Format("150405.000000")
		want := &CachedRawMaterial{
			Code:          code,
			Name:          "Steel",
			StockQuantity: decimal.RequireFromString("12.50"),
			Version:       3,
			CreatedAt:     time.Now().UTC(),
			UpdatedAt:     time.Now().UTC(),
		}
		fence, err := c.Fence(ctx, KindRawMaterial, code)
		if err != nil {
			t.Fatalf("Fence: %v", err)
		}
		if ok, err := c.SetRawMaterial(ctx, want, fence); err != nil || !ok {
			t.Fatalf("SetRawMaterial: written %v, err %v", ok, err)
		}
		got, err := c.GetRawMaterial(ctx, code)
		if err != nil {
			t.Fatalf("GetRawMaterial: %v", err)
		}
		if !got.StockQuantity.Equal(want.StockQuantity) || got.Version != 3 {
			t.Errorf("unexpected cached value: %+v", got)
		}

		if err := c.Invalidate(ctx, KindRawMaterial, code); err != nil {
			t.Fatalf("Invalidate: %v", err)
		}
		if _, err := c.GetRawMaterial(ctx, code); !errors.Is(err, redis.Nil) {
			t.Fatalf("expected redis.Nil after invalidate, got %v", err)
		}
	})

	t.Run("CatalogCache_FillAfterInvalidateIsDropped", func(t *testing.T) {
		rc, err := NewRedisClient(context.Background(), newTestConfig(redisURL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer rc.Close() //nolint:errcheck

		ctx := context.Background()
		c := NewCatalogCache(rc, time.Minute)
		code := "P-TEST-" + time.Now().Format("150405.000000")
		t.Cleanup(func() { _ = rc.Client().Del(context.Background(), Key(KindProduct, code), generationKey(KindProduct, code)).Err() })

		fence, err := c.Fence(ctx, KindProduct, code)
		if err != nil {
			t.Fatalf("Fence: %v", err)
		}
		// A confirmation lands between the database read and the fill.
		if err := c.Invalidate(ctx, KindProduct, code); err != nil {
			t.Fatalf("Invalidate: %v", err)
		}
		stale := &CachedProduct{Code: code, Name: "Table", Value: decimal.NewFromInt(50), Version: 1,
			CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
		if ok, err := c.SetProduct(ctx, stale, fence); err != nil || ok {
			t.Fatalf("stale fill: written %v, err %v", ok, err)
		}
		if _, err := c.GetProduct(ctx, code); !errors.Is(err, redis.Nil) {
			t.Fatalf("expected redis.Nil after a dropped fill, got %v", err)
		}

		fresh, err := c.Fence(ctx, KindProduct, code)
		if err != nil || fresh != fence+1 {
			t.Fatalf("fence = %d (err %v), want %d", fresh, err, fence+1)
		}
		if ok, err := c.SetProduct(ctx, stale, fresh); err != nil || !ok {
			t.Fatalf("fresh fill: written %v, err %v", ok, err)
		}
		ttl, err := rc.Client().PTTL(ctx, Key(KindProduct, code)).Result()
		if err != nil || ttl <= 0 || ttl > time.Minute {
			t.Fatalf("entry ttl = %v (err %v), want within a minute", ttl, err)
		}
	})

	t.Run("Client_NotNil", func(t *testing.T) {
		rc, err := NewRedisClient(context.Background(), newTestConfig(redisURL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer rc.Close() //nolint:errcheck

		if rc.Client() == nil {
			t.Fatal("expected non-nil underlying client")
		}
	})
}

func TestKey(t *testing.T) {
	if got := Key(KindProduct, "P001"); got != "catalog:product:P001" {
		t.Errorf("unexpected key %q", got)
	}
	if got := Key(KindRawMaterial, "RM010"); got != "catalog:raw_material:RM010" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestHashReader_KeepsFirstError(t *testing.T) {
	var h hashReader
	h.decimal("not-a-number")
	first := h.err
	h.int("also-bad")
	if first == nil || h.err != first {
		t.Fatalf("expected first error to be kept, got %v", h.err)
	}
}

func TestNewCatalogCache_DefaultTTL(t *testing.T) {
	if c := NewCatalogCache(nil, 0); c.ttl != DefaultCatalogTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, DefaultCatalogTTL)
	}
}
