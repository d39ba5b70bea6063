// Package memory holds in-process implementations of the production ports.
// Raw material rows carry their own lock so concurrent stock transactions
// behave like SELECT ... FOR UPDATE against Postgres.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/autoflex-io/inventory/services/production/domain"
	"github.com/autoflex-io/inventory/services/production/domain/models"
	"github.com/autoflex-io/inventory/services/production/domain/repositories"
)

type materialRow struct {
	lock chan struct{}
	data models.RawMaterial
}

// CatalogStore implements repositories.CatalogStore in memory.
type CatalogStore struct {
	lockTimeout time.Duration

	mu        sync.RWMutex
	products  map[string]models.Product
	materials map[string]*materialRow
	lines     map[string]models.RecipeLine // key: product code + "/" + material code
}

var _ repositories.CatalogStore = (*CatalogStore)(nil)

// NewCatalogStore returns an empty store. A positive lockTimeout bounds row
// lock waits; a timed out wait fails with domain.ErrConcurrencyConflict.
func NewCatalogStore(lockTimeout time.Duration) *CatalogStore {
	return &CatalogStore{
		lockTimeout: lockTimeout,
		products:    make(map[string]models.Product),
		materials:   make(map[string]*materialRow),
		lines:       make(map[string]models.RecipeLine),
	}
}

// AddProduct inserts or replaces a product.
func (s *CatalogStore) AddProduct(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.Code] = p
}

// AddRawMaterial inserts or replaces a raw material.
func (s *CatalogStore) AddRawMaterial(m models.RawMaterial) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.materials[m.Code]; ok {
		row.data = m
		return
	}
	s.materials[m.Code] = &materialRow{lock: make(chan struct{}, 1), data: m}
}

// AddRecipeLine inserts or replaces a recipe line.
func (s *CatalogStore) AddRecipeLine(l models.RecipeLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[l.ProductCode+"/"+l.RawMaterialCode] = l
}

// RawMaterial returns the committed state of a raw material.
func (s *CatalogStore) RawMaterial(code string) (models.RawMaterial, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.materials[code]
	if !ok {
		return models.RawMaterial{}, false
	}
	return row.data, true
}

// SetStock overwrites a stock quantity without taking the row lock and bumps
// the version, like a catalog update that bypasses stock transactions.
func (s *CatalogStore) SetStock(code string, qty decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.materials[code]
	if !ok {
		return domain.ErrRawMaterialNotFound
	}
	row.data.StockQuantity = qty
	row.data.Version++
	return nil
}

// WithinTx runs fn with a transaction whose stock writes are applied only
// when fn returns nil. Row locks are released when it returns.
func (s *CatalogStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.CatalogTx) error) error {
	tx := &catalogTx{
		store:  s,
		held:   make(map[string]*materialRow),
		writes: make(map[string]models.RawMaterial),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type catalogTx struct {
	store  *CatalogStore
	held   map[string]*materialRow
	writes map[string]models.RawMaterial
}

func (t *catalogTx) ListProducts(ctx context.Context) ([]models.Product, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	out := make([]models.Product, 0, len(t.store.products))
	for _, p := range t.store.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b models.Product) int { return cmp.Compare(a.Code, b.Code) })
	return out, nil
}

func (t *catalogTx) ListRecipeLines(ctx context.Context) ([]models.RecipeLine, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	out := make([]models.RecipeLine, 0, len(t.store.lines))
	for _, l := range t.store.lines {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b models.RecipeLine) int {
		return cmp.Or(cmp.Compare(a.ProductCode, b.ProductCode), cmp.Compare(a.RawMaterialCode, b.RawMaterialCode))
	})
	return out, nil
}

func (t *catalogTx) FindProductByCode(ctx context.Context, code string) (*models.Product, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	p, ok := t.store.products[code]
	if !ok {
		return nil, fmt.Errorf("product with code %s: %w", code, domain.ErrProductNotFound)
	}
	return &p, nil
}

func (t *catalogTx) FindRecipeLinesByProductCode(ctx context.Context, productCode string) ([]models.RecipeLine, error) {
	all, err := t.ListRecipeLines(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(l models.RecipeLine) bool { return l.ProductCode != productCode }), nil
}

func (t *catalogTx) FindRawMaterialByCodeForUpdate(ctx context.Context, code string) (*models.RawMaterial, error) {
	t.store.mu.RLock()
	row, ok := t.store.materials[code]
	t.store.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("raw material with code %s: %w", code, domain.ErrRawMaterialNotFound)
	}
	if err := t.lock(ctx, code, row); err != nil {
		return nil, err
	}
	m := t.read(code, row)
	return &m, nil
}

func (t *catalogTx) FindAllRawMaterialsForUpdate(ctx context.Context) ([]models.RawMaterial, error) {
	t.store.mu.RLock()
	codes := make([]string, 0, len(t.store.materials))
	for code := range t.store.materials {
		codes = append(codes, code)
	}
	t.store.mu.RUnlock()
	slices.Sort(codes)

	out := make([]models.RawMaterial, 0, len(codes))
	for _, code := range codes {
		m, err := t.FindRawMaterialByCodeForUpdate(ctx, code)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, nil
}

func (t *catalogTx) SaveRawMaterial(ctx context.Context, m *models.RawMaterial) error {
	t.store.mu.RLock()
	row, ok := t.store.materials[m.Code]
	t.store.mu.RUnlock()
	if !ok {
		return fmt.Errorf("raw material with code %s: %w", m.Code, domain.ErrRawMaterialNotFound)
	}
	if current := t.read(m.Code, row); current.Version != m.Version {
		return fmt.Errorf("%w: raw material %s at version %d, expected %d",
			domain.ErrConcurrencyConflict, m.Code, current.Version, m.Version)
	}
	m.Version++
	t.writes[m.Code] = *m
	return nil
}

// lock acquires the row lock once per transaction.
func (t *catalogTx) lock(ctx context.Context, code string, row *materialRow) error {
	if _, ok := t.held[code]; ok {
		return nil
	}
	if t.store.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.store.lockTimeout)
		defer cancel()
	}
	select {
	case row.lock <- struct{}{}:
		t.held[code] = row
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: lock raw material %s: %w", domain.ErrConcurrencyConflict, code, ctx.Err())
	}
}

// read returns the transaction's own pending write or the committed row.
func (t *catalogTx) read(code string, row *materialRow) models.RawMaterial {
	if w, ok := t.writes[code]; ok {
		return w
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return row.data
}

func (t *catalogTx) commit() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for code, w := range t.writes {
		if row, ok := t.store.materials[code]; ok {
			row.data = w
		}
	}
}

func (t *catalogTx) release() {
	for code, row := range t.held {
		<-row.lock
		delete(t.held, code)
	}
}
