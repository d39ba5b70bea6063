package services

import (
	"context"

	"github.com/autoflex-io/inventory/pkg/cache"
)

// ReadCache is the part of *cache.CatalogCache the catalog services use.
// Get methods return redis.Nil on a miss. Set methods drop the write and
// return false when the entry was invalidated after fence was taken.
type ReadCache interface {
	GetProduct(ctx context.Context, code string) (*cache.CachedProduct, error)
	SetProduct(ctx context.Context, p *cache.CachedProduct, fence int64) (bool, error)
	GetRawMaterial(ctx context.Context, code string) (*cache.CachedRawMaterial, error)
	SetRawMaterial(ctx context.Context, m *cache.CachedRawMaterial, fence int64) (bool, error)
	Fence(ctx context.Context, kind, code string) (int64, error)
	Invalidate(ctx context.Context, kind string, codes ...string) error
}
