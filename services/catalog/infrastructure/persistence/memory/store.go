// Package memory holds in-process catalog repositories for tests and local
// runs without Postgres. They follow the Postgres semantics: generated
// codes, version checks and cascading deletes.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/autoflex-io/inventory/services/catalog/domain"
	"github.com/autoflex-io/inventory/services/catalog/domain/models"
	"github.com/autoflex-io/inventory/services/catalog/domain/repositories"
)

type linkKey struct{ product, material string }

// Store holds the whole catalog behind one mutex.
type Store struct {
	mu          sync.Mutex
	products    map[string]models.Product
	materials   map[string]models.RawMaterial
	lines       map[linkKey]models.RecipeLine
	productSeq  int64
	materialSeq int64
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		products:  make(map[string]models.Product),
		materials: make(map[string]models.RawMaterial),
		lines:     make(map[linkKey]models.RecipeLine),
	}
}

// Products returns the Store's ProductRepository.
func (s *Store) Products() *ProductRepository { return &ProductRepository{s} }

// RawMaterials returns the Store's RawMaterialRepository.
func (s *Store) RawMaterials() *RawMaterialRepository { return &RawMaterialRepository{s} }

// Recipes returns the Store's RecipeRepository.
func (s *Store) Recipes() *RecipeRepository { return &RecipeRepository{s} }

var (
	_ repositories.ProductRepository     = (*ProductRepository)(nil)
	_ repositories.RawMaterialRepository = (*RawMaterialRepository)(nil)
	_ repositories.RecipeRepository      = (*RecipeRepository)(nil)
)

// ProductRepository implements repositories.ProductRepository in memory.
type ProductRepository struct{ s *Store }

func (r *ProductRepository) Create(_ context.Context, p *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.productSeq++
	p.Code = models.ProductCode(r.s.productSeq)
	p.Version = 0
	r.s.products[p.Code] = *p
	return nil
}

func (r *ProductRepository) GetByCode(_ context.Context, code string) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[code]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (r *ProductRepository) List(_ context.Context, opts repositories.QueryOpts) ([]*models.Product, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := make([]*models.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		all = append(all, &p)
	}
	slices.SortFunc(all, func(a, b *models.Product) int {
		var c int
		switch opts.Sort {
		case "name":
			c = strings.Compare(a.Name.String(), b.Name.String())
		case "value":
			c = a.Value.Cmp(b.Value)
		default:
			c = strings.Compare(a.Code, b.Code)
		}
		if opts.Desc {
			c = -c
		}
		return cmp.Or(c, strings.Compare(a.Code, b.Code))
	})
	return page(all, opts), len(all), nil
}

func (r *ProductRepository) Update(_ context.Context, p *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.products[p.Code]
	if !ok {
		return domain.ErrProductNotFound
	}
	if cur.Version != p.Version {
		return fmt.Errorf("%w: product %s", domain.ErrStaleVersion, p.Code)
	}
	p.Version++
	r.s.products[p.Code] = *p
	return nil
}

func (r *ProductRepository) Delete(_ context.Context, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[code]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.s.products, code)
	for k := range r.s.lines {
		if k.product == code {
			delete(r.s.lines, k)
		}
	}
	return nil
}

// RawMaterialRepository implements repositories.RawMaterialRepository in memory.
type RawMaterialRepository struct{ s *Store }

func (r *RawMaterialRepository) Create(_ context.Context, m *models.RawMaterial) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.materialSeq++
	m.Code = models.RawMaterialCode(r.s.materialSeq)
	m.Version = 0
	r.s.materials[m.Code] = *m
	return nil
}

func (r *RawMaterialRepository) GetByCode(_ context.Context, code string) (*models.RawMaterial, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.materials[code]
	if !ok {
		return nil, domain.ErrRawMaterialNotFound
	}
	return &m, nil
}

func (r *RawMaterialRepository) List(_ context.Context, opts repositories.QueryOpts) ([]*models.RawMaterial, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := make([]*models.RawMaterial, 0, len(r.s.materials))
	for _, m := range r.s.materials {
		all = append(all, &m)
	}
	slices.SortFunc(all, func(a, b *models.RawMaterial) int {
		var c int
		switch opts.Sort {
		case "name":
			c = strings.Compare(a.Name.String(), b.Name.String())
		case "stock_quantity":
			c = a.StockQuantity.Cmp(b.StockQuantity)
		default:
			c = strings.Compare(a.Code, b.Code)
		}
		if opts.Desc {
			c = -c
		}
		return cmp.Or(c, strings.Compare(a.Code, b.Code))
	})
	return page(all, opts), len(all), nil
}

func (r *RawMaterialRepository) Update(_ context.Context, m *models.RawMaterial) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.materials[m.Code]
	if !ok {
		return domain.ErrRawMaterialNotFound
	}
	if cur.Version != m.Version {
		return fmt.Errorf("%w: raw material %s", domain.ErrStaleVersion, m.Code)
	}
	m.Version++
	r.s.materials[m.Code] = *m
	return nil
}

func (r *RawMaterialRepository) Delete(_ context.Context, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.materials[code]; !ok {
		return domain.ErrRawMaterialNotFound
	}
	delete(r.s.materials, code)
	for k := range r.s.lines {
		if k.material == code {
			delete(r.s.lines, k)
		}
	}
	return nil
}

// RecipeRepository implements repositories.RecipeRepository in memory.
type RecipeRepository struct{ s *Store }

func (r *RecipeRepository) ListByProduct(_ context.Context, productCode string) ([]*models.RecipeLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.RecipeLine{}
	for k, l := range r.s.lines {
		if k.product == productCode {
			out = append(out, r.s.named(l))
		}
	}
	slices.SortFunc(out, func(a, b *models.RecipeLine) int {
		return strings.Compare(a.RawMaterialCode, b.RawMaterialCode)
	})
	return out, nil
}

func (r *RecipeRepository) Get(_ context.Context, productCode, rawMaterialCode string) (*models.RecipeLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lines[linkKey{productCode, rawMaterialCode}]
	if !ok {
		return nil, domain.ErrRecipeLineNotFound
	}
	return r.s.named(l), nil
}

func (r *RecipeRepository) Create(_ context.Context, l *models.RecipeLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[l.ProductCode]; !ok {
		return domain.ErrProductNotFound
	}
	if _, ok := r.s.materials[l.RawMaterialCode]; !ok {
		return domain.ErrRawMaterialNotFound
	}
	k := linkKey{l.ProductCode, l.RawMaterialCode}
	if _, ok := r.s.lines[k]; ok {
		return domain.ErrRecipeLineAlreadyExists
	}
	r.s.lines[k] = *l
	return nil
}

func (r *RecipeRepository) Update(_ context.Context, l *models.RecipeLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := linkKey{l.ProductCode, l.RawMaterialCode}
	cur, ok := r.s.lines[k]
	if !ok {
		return domain.ErrRecipeLineNotFound
	}
	cur.Quantity = l.Quantity
	r.s.lines[k] = cur
	return nil
}

func (r *RecipeRepository) Delete(_ context.Context, productCode, rawMaterialCode string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := linkKey{productCode, rawMaterialCode}
	if _, ok := r.s.lines[k]; !ok {
		return domain.ErrRecipeLineNotFound
	}
	delete(r.s.lines, k)
	return nil
}

// named copies l and fills the denormalized names. Callers hold mu.
func (s *Store) named(l models.RecipeLine) *models.RecipeLine {
	l.ProductName = s.products[l.ProductCode].Name.String()
	l.RawMaterialName = s.materials[l.RawMaterialCode].Name.String()
	return &l
}

func page[T any](all []T, opts repositories.QueryOpts) []T {
	if opts.Offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if opts.Limit > 0 && opts.Offset+opts.Limit < end {
		end = opts.Offset + opts.Limit
	}
	return all[opts.Offset:end]
}
