package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/autoflex-io/inventory/pkg/cache"
	"github.com/autoflex-io/inventory/pkg/logger"
	"github.com/autoflex-io/inventory/services/catalog/domain"
	"github.com/autoflex-io/inventory/services/catalog/domain/repositories"
	"github.com/autoflex-io/inventory/services/catalog/infrastructure/persistence/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fakeCache is an in-process ReadCache with per-key generations. Every Set
// attempt is announced on written; a non-nil gate holds Sets until closed.
type fakeCache struct {
	mu          sync.Mutex
	products    map[string]cache.CachedProduct
	materials   map[string]cache.CachedRawMaterial
	gens        map[string]int64
	invalidated []string
	written     chan string
	gate        chan struct{}
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		products:  make(map[string]cache.CachedProduct),
		materials: make(map[string]cache.CachedRawMaterial),
		gens:      make(map[string]int64),
		written:   make(chan string, 16),
	}
}

func (c *fakeCache) GetProduct(_ context.Context, code string) (*cache.CachedProduct, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[code]
	if !ok {
		return nil, redis.Nil
	}
	return &p, nil
}

func (c *fakeCache) SetProduct(_ context.Context, p *cache.CachedProduct, fence int64) (bool, error) {
	key := cache.Key(cache.KindProduct, p.Code)
	c.hold()
	c.mu.Lock()
	stored := c.gens[key] == fence
	if stored {
		c.products[p.Code] = *p
	}
	c.mu.Unlock()
	c.written <- key
	return stored, nil
}

func (c *fakeCache) GetRawMaterial(_ context.Context, code string) (*cache.CachedRawMaterial, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.materials[code]
	if !ok {
		return nil, redis.Nil
	}
	return &m, nil
}

func (c *fakeCache) SetRawMaterial(_ context.Context, m *cache.CachedRawMaterial, fence int64) (bool, error) {
	key := cache.Key(cache.KindRawMaterial, m.Code)
	c.hold()
	c.mu.Lock()
	stored := c.gens[key] == fence
	if stored {
		c.materials[m.Code] = *m
	}
	c.mu.Unlock()
	c.written <- key
	return stored, nil
}

func (c *fakeCache) Fence(_ context.Context, kind, code string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[cache.Key(kind, code)], nil
}

func (c *fakeCache) Invalidate(_ context.Context, kind string, codes ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, code := range codes {
		switch kind {
		case cache.KindProduct:
			delete(c.products, code)
		case cache.KindRawMaterial:
			delete(c.materials, code)
		}
		key := cache.Key(kind, code)
		c.gens[key]++
		c.invalidated = append(c.invalidated, key)
	}
	return nil
}

func (c *fakeCache) hold() {
	if c.gate != nil {
		<-c.gate
	}
}

func (c *fakeCache) waitWrite(t *testing.T) string {
	t.Helper()
	select {
	case key := <-c.written:
		return key
	case <-time.After(2 * time.Second):
		t.Fatal("cache was not warmed")
		return ""
	}
}

func newServices(readCache ReadCache) (*Services, *memory.Store) {
	store := memory.NewStore()
	log := logger.Nop()
	products, materials := store.Products(), store.RawMaterials()
	return &Services{
		Products:     NewProductService(products, readCache, nil, log),
		RawMaterials: NewRawMaterialService(materials, readCache, nil, log),
		Recipes:      NewRecipeService(store.Recipes(), products, materials, nil, log),
	}, store
}

func TestProductService_CreateAssignsSequentialCodes(t *testing.T) {
	svcs, _ := newServices(nil)
	ctx := context.Background()

	for _, want := range []string{"P001", "P002", "P003"} {
		p, err := svcs.Products.Create(ctx, "Table "+want, dec("10"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if p.Code != want {
			t.Errorf("code = %s, want %s", p.Code, want)
		}
	}
}

func TestProductService_CreateRejectsInvalidInput(t *testing.T) {
	svcs, _ := newServices(nil)
	tests := []struct {
		name  string
		pname string
		value string
	}{
		{"zero value", "Table", "0"},
		{"three decimals", "Table", "1.005"},
		{"padded name", " Table", "10"},
		{"double space", "Steel  Table", "10"},
		{"empty name", "", "10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svcs.Products.Create(context.Background(), tt.pname, dec(tt.value))
			if !errors.Is(err, domain.ErrInvalidProduct) {
				t.Fatalf("expected ErrInvalidProduct, got %v", err)
			}
		})
	}
}

func TestProductService_GetReadThroughCache(t *testing.T) {
	fc := newFakeCache()
	svcs, _ := newServices(fc)
	ctx := context.Background()

	p, err := svcs.Products.Create(ctx, "Table", dec("150.00"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svcs.Products.Get(ctx, p.Code); err != nil {
		t.Fatalf("get: %v", err)
	}
	if key := fc.waitWrite(t); key != "catalog:product:P001" {
		t.Fatalf("warmed %s", key)
	}

	// Served from the cache now, even with a different value in it.
	fc.mu.Lock()
	entry := fc.products[p.Code]
	entry.Name = "Cached Table"
	fc.products[p.Code] = entry
	fc.mu.Unlock()

	got, err := svcs.Products.Get(ctx, p.Code)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Cached Table" || !got.Value.Equal(dec("150")) {
		t.Fatalf("expected cached product, got %+v", got)
	}

	name := "Desk"
	if _, err := svcs.Products.Update(ctx, p.Code, &name, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = svcs.Products.Get(ctx, p.Code)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Desk" {
		t.Fatalf("update must invalidate the cache, got name %q", got.Name)
	}
}

func TestProductService_UpdateAndDelete(t *testing.T) {
	svcs, _ := newServices(nil)
	ctx := context.Background()
	p, _ := svcs.Products.Create(ctx, "Table", dec("100"))

	value := dec("120.50")
	updated, err := svcs.Products.Update(ctx, p.Code, nil, &value)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Value.Equal(value) || updated.Name != "Table" || updated.Version != 1 {
		t.Fatalf("unexpected product: %+v", updated)
	}

	bad := dec("-1")
	if _, err := svcs.Products.Update(ctx, p.Code, nil, &bad); !errors.Is(err, domain.ErrInvalidProduct) {
		t.Fatalf("expected ErrInvalidProduct, got %v", err)
	}
	if _, err := svcs.Products.Update(ctx, "P999", nil, &value); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	if err := svcs.Products.Delete(ctx, p.Code); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svcs.Products.Get(ctx, p.Code); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound after delete, got %v", err)
	}
	if err := svcs.Products.Delete(ctx, p.Code); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("second delete: expected ErrProductNotFound, got %v", err)
	}
}

func TestProductService_ListSortsAndPages(t *testing.T) {
	svcs, _ := newServices(nil)
	ctx := context.Background()
	for _, in := range []struct{ name, value string }{
		{"Chair", "30"}, {"Table", "150"}, {"Bench", "80"}, {"Stool", "30"},
	} {
		if _, err := svcs.Products.Create(ctx, in.name, dec(in.value)); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		opts repositories.QueryOpts
		want []string
	}{
		{"default by code", repositories.QueryOpts{Limit: 10}, []string{"P001", "P002", "P003", "P004"}},
		{"by name", repositories.QueryOpts{Limit: 10, Sort: "name"}, []string{"P003", "P001", "P004", "P002"}},
		{"by value desc, code tie-break", repositories.QueryOpts{Limit: 10, Sort: "value", Desc: true}, []string{"P002", "P003", "P001", "P004"}},
		{"code desc", repositories.QueryOpts{Limit: 10, Sort: "code", Desc: true}, []string{"P004", "P003", "P002", "P001"}},
		{"second page", repositories.QueryOpts{Limit: 3, Offset: 3}, []string{"P004"}},
		{"past the end", repositories.QueryOpts{Limit: 3, Offset: 9}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps, total, err := svcs.Products.List(ctx, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if total != 4 {
				t.Errorf("total = %d, want 4", total)
			}
			got := make([]string, len(ps))
			for i, p := range ps {
				got[i] = p.Code
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRawMaterialService_StockUpdates(t *testing.T) {
	fc := newFakeCache()
	svcs, store := newServices(fc)
	ctx := context.Background()

	m, err := svcs.RawMaterials.Create(ctx, "Steel", dec("0"))
	if err != nil {
		t.Fatalf("zero stock must be accepted: %v", err)
	}
	if m.Code != "RM001" {
		t.Fatalf("code = %s", m.Code)
	}
	if _, err := svcs.RawMaterials.Create(ctx, "Steel", dec("-1")); !errors.Is(err, domain.ErrInvalidRawMaterial) {
		t.Fatalf("expected ErrInvalidRawMaterial, got %v", err)
	}

	stock := dec("250.5")
	updated, err := svcs.RawMaterials.Update(ctx, m.Code, nil, &stock)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.StockQuantity.Equal(stock) || updated.Version != 1 {
		t.Fatalf("unexpected material: %+v", updated)
	}
	if len(fc.invalidated) != 1 || fc.invalidated[0] != "catalog:raw_material:RM001" {
		t.Fatalf("unexpected invalidations: %v", fc.invalidated)
	}

	// A writer holding an older version loses.
	stale, _ := store.RawMaterials().GetByCode(ctx, m.Code)
	stale.Version = 0
	if err := store.RawMaterials().Update(ctx, stale); !errors.Is(err, domain.ErrStaleVersion) {
		t.Fatalf("expected ErrStaleVersion, got %v", err)
	}
}

func TestRawMaterialService_FillRacingInvalidateIsDropped(t *testing.T) {
	fc := newFakeCache()
	fc.gate = make(chan struct{})
	svcs, store := newServices(fc)
	ctx := context.Background()

	m, err := svcs.RawMaterials.Create(ctx, "Steel", dec("20"))
	if err != nil {
		t.Fatal(err)
	}

	// The miss loads 20 from the database; its fill is held back.
	got, err := svcs.RawMaterials.Get(ctx, m.Code)
	if err != nil || !got.StockQuantity.Equal(dec("20")) {
		t.Fatalf("get: %+v %v", got, err)
	}

	// A confirmation deducts stock and invalidates before the fill runs.
	current, _ := store.RawMaterials().GetByCode(ctx, m.Code)
	current.StockQuantity = dec("5")
	if err := store.RawMaterials().Update(ctx, current); err != nil {
		t.Fatal(err)
	}
	if err := fc.Invalidate(ctx, cache.KindRawMaterial, m.Code); err != nil {
		t.Fatal(err)
	}

	close(fc.gate)
	fc.waitWrite(t)
	if _, err := fc.GetRawMaterial(ctx, m.Code); !errors.Is(err, redis.Nil) {
		t.Fatalf("stale fill must be dropped, got %v", err)
	}

	got, err = svcs.RawMaterials.Get(ctx, m.Code)
	if err != nil || !got.StockQuantity.Equal(dec("5")) {
		t.Fatalf("get after invalidate: %+v %v", got, err)
	}
	fc.waitWrite(t)
	cached, err := fc.GetRawMaterial(ctx, m.Code)
	if err != nil || !cached.StockQuantity.Equal(dec("5")) {
		t.Fatalf("expected fresh stock 5 cached, got %+v %v", cached, err)
	}
}

func TestProductService_FillRacingInvalidateIsDropped(t *testing.T) {
	fc := newFakeCache()
	fc.gate = make(chan struct{})
	svcs, _ := newServices(fc)
	ctx := context.Background()

	p, err := svcs.Products.Create(ctx, "Table", dec("150.00"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svcs.Products.Get(ctx, p.Code); err != nil {
		t.Fatal(err)
	}
	if err := fc.Invalidate(ctx, cache.KindProduct, p.Code); err != nil {
		t.Fatal(err)
	}
	close(fc.gate)
	fc.waitWrite(t)
	if _, err := fc.GetProduct(ctx, p.Code); !errors.Is(err, redis.Nil) {
		t.Fatalf("stale fill must be dropped, got %v", err)
	}
}

func TestRecipeService(t *testing.T) {
	svcs, _ := newServices(nil)
	ctx := context.Background()
	p, _ := svcs.Products.Create(ctx, "Table", dec("150"))
	steel, _ := svcs.RawMaterials.Create(ctx, "Steel", dec("100"))
	wood, _ := svcs.RawMaterials.Create(ctx, "Wood", dec("40"))

	l, err := svcs.Recipes.Add(ctx, p.Code, wood.Code, dec("2.5"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if l.ProductName != "Table" || l.RawMaterialName != "Wood" {
		t.Fatalf("names not filled: %+v", l)
	}
	if _, err := svcs.Recipes.Add(ctx, p.Code, steel.Code, dec("4")); err != nil {
		t.Fatalf("add: %v", err)
	}

	tests := []struct {
		name     string
		product  string
		material string
		qty      string
		want     error
	}{
		{"duplicate pair", p.Code, wood.Code, "1", domain.ErrRecipeLineAlreadyExists},
		{"unknown product", "P404", steel.Code, "1", domain.ErrProductNotFound},
		{"unknown material", p.Code, "RM404", "1", domain.ErrRawMaterialNotFound},
		{"zero quantity", p.Code, steel.Code, "0", domain.ErrInvalidRecipeLine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svcs.Recipes.Add(ctx, tt.product, tt.material, dec(tt.qty)); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	lines, err := svcs.Recipes.List(ctx, p.Code)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0].RawMaterialCode != steel.Code || lines[1].RawMaterialCode != wood.Code {
		t.Fatalf("lines must be ordered by raw material code: %+v", lines)
	}

	if _, err := svcs.Recipes.Update(ctx, p.Code, steel.Code, dec("5")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := svcs.Recipes.Update(ctx, p.Code, "RM404", dec("5")); !errors.Is(err, domain.ErrRecipeLineNotFound) {
		t.Fatalf("expected ErrRecipeLineNotFound, got %v", err)
	}

	if err := svcs.Recipes.Remove(ctx, p.Code, steel.Code); err != nil {
		t.Fatalf("remove: %v", err)
	}

	// Deleting the material cascades to the remaining line.
	if err := svcs.RawMaterials.Delete(ctx, wood.Code); err != nil {
		t.Fatal(err)
	}
	lines, _ = svcs.Recipes.List(ctx, p.Code)
	if len(lines) != 0 {
		t.Fatalf("expected empty recipe, got %+v", lines)
	}

	if _, err := svcs.Recipes.List(ctx, "P404"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductDelete_CascadesRecipe(t *testing.T) {
	svcs, store := newServices(nil)
	ctx := context.Background()
	p, _ := svcs.Products.Create(ctx, "Table", dec("150"))
	m, _ := svcs.RawMaterials.Create(ctx, "Steel", dec("100"))
	if _, err := svcs.Recipes.Add(ctx, p.Code, m.Code, dec("1")); err != nil {
		t.Fatal(err)
	}

	if err := svcs.Products.Delete(ctx, p.Code); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Recipes().Get(ctx, p.Code, m.Code); !errors.Is(err, domain.ErrRecipeLineNotFound) {
		t.Fatalf("expected the line to be gone, got %v", err)
	}
	if _, err := svcs.RawMaterials.Get(ctx, m.Code); err != nil {
		t.Fatalf("raw material must survive: %v", err)
	}
}
