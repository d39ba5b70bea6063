package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/autoflex-io/inventory/services/production/domain"
	"github.com/autoflex-io/inventory/services/production/domain/events"
	"github.com/autoflex-io/inventory/services/production/domain/models"
	"github.com/autoflex-io/inventory/services/production/domain/repositories"
)

type productionRow struct {
	lock chan struct{}
	data models.Production
}

// ProductionRepository implements repositories.ProductionRepository in memory
// and records the events it would have published.
type ProductionRepository struct {
	mu          sync.Mutex
	productions map[uuid.UUID]*productionRow
	published   []events.ProductionConfirmedEvent
}

var _ repositories.ProductionRepository = (*ProductionRepository)(nil)

// NewProductionRepository returns an empty repository.
func NewProductionRepository() *ProductionRepository {
	return &ProductionRepository{productions: make(map[uuid.UUID]*productionRow)}
}

func (r *ProductionRepository) Create(ctx context.Context, p *models.Production) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.productions[p.ID]; ok {
		return fmt.Errorf("production %s already exists", p.ID)
	}
	r.productions[p.ID] = &productionRow{lock: make(chan struct{}, 1), data: clone(*p)}
	return nil
}

func (r *ProductionRepository) Get(ctx context.Context, id uuid.UUID) (*models.Production, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.productions[id]
	if !ok {
		return nil, domain.ErrProductionNotFound
	}
	p := clone(row.data)
	return &p, nil
}

func (r *ProductionRepository) List(ctx context.Context, opts repositories.QueryOpts) ([]*models.Production, int, error) {
	r.mu.Lock()
	all := make([]*models.Production, 0, len(r.productions))
	for _, row := range r.productions {
		p := clone(row.data)
		all = append(all, &p)
	}
	r.mu.Unlock()

	slices.SortFunc(all, func(a, b *models.Production) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})

	total := len(all)
	start := min(opts.Offset, total)
	end := total
	if opts.Limit > 0 {
		end = min(start+opts.Limit, total)
	}
	return all[start:end], total, nil
}

func (r *ProductionRepository) Confirm(ctx context.Context, id uuid.UUID, fn repositories.ConfirmFunc) (*models.Production, error) {
	r.mu.Lock()
	row, ok := r.productions[id]
	r.mu.Unlock()
	if !ok {
		return nil, domain.ErrProductionNotFound
	}

	select {
	case row.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: lock production %s: %w", domain.ErrConcurrencyConflict, id, ctx.Err())
	}
	defer func() { <-row.lock }()

	r.mu.Lock()
	p := clone(row.data)
	r.mu.Unlock()

	ev, err := fn(ctx, &p)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	row.data = clone(p)
	r.published = append(r.published, ev)
	r.mu.Unlock()
	return &p, nil
}

// Published returns the confirmation events recorded so far.
func (r *ProductionRepository) Published() []events.ProductionConfirmedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.published)
}

func clone(p models.Production) models.Production {
	p.Items = slices.Clone(p.Items)
	if p.ConfirmedAt != nil {
		at := *p.ConfirmedAt
		p.ConfirmedAt = &at
	}
	return p
}
