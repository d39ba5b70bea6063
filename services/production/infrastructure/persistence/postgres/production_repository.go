package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/autoflex-io/inventory/pkg/database"
	"github.com/autoflex-io/inventory/pkg/events"
	"github.com/autoflex-io/inventory/services/production/domain"
	domainevents "github.com/autoflex-io/inventory/services/production/domain/events"
	"github.com/autoflex-io/inventory/services/production/domain/models"
	"github.com/autoflex-io/inventory/services/production/domain/repositories"
)

const (
	insertProductionSQL = `INSERT INTO productions (id, status, created_at) VALUES ($1, $2, $3)`

	insertProductionItemSQL = `
INSERT INTO production_items (production_id, position, product_code, quantity)
VALUES ($1, $2, $3, $4)`

	getProductionSQL = `SELECT id, status, created_at, confirmed_at FROM productions WHERE id = $1`

	lockProductionSQL = getProductionSQL + ` FOR UPDATE`

	listProductionsSQL = `
SELECT id, status, created_at, confirmed_at
FROM productions
ORDER BY created_at DESC, id
LIMIT $1 OFFSET $2`

	countProductionsSQL = `SELECT count(*) FROM productions`

	itemsByProductionSQL = `
SELECT production_id, product_code, quantity
FROM production_items
WHERE production_id = ANY($1::uuid[])
ORDER BY production_id, position`

	confirmProductionSQL = `
UPDATE productions SET status = $1, confirmed_at = $2
WHERE id = $3 AND status = $4`
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ProductionRepository implements repositories.ProductionRepository against PostgreSQL.
type ProductionRepository struct {
	db          *database.Database
	bus         *events.EventBus
	lockTimeout time.Duration
}

var _ repositories.ProductionRepository = (*ProductionRepository)(nil)

// NewProductionRepository returns a ProductionRepository. The bus publishes
// ProductionConfirmedEvents through the outbox; it may be nil in tests.
func NewProductionRepository(db *database.Database, bus *events.EventBus, lockTimeout time.Duration) *ProductionRepository {
	return &ProductionRepository{db: db, bus: bus, lockTimeout: lockTimeout}
}

// Create persists a production and its items in one transaction.
func (r *ProductionRepository) Create(ctx context.Context, p *models.Production) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertProductionSQL, p.ID, string(p.Status), p.CreatedAt); err != nil {
			return fmt.Errorf("insert production: %w", err)
		}
		for i, it := range p.Items {
			if _, err := tx.ExecContext(ctx, insertProductionItemSQL, p.ID, i, it.ProductCode, it.Quantity); err != nil {
				return fmt.Errorf("insert production item %d: %w", i, err)
			}
		}
		return nil
	})
}

// Get retrieves a production with its items. Returns ErrProductionNotFound if not found.
func (r *ProductionRepository) Get(ctx context.Context, id uuid.UUID) (*models.Production, error) {
	return r.load(ctx, r.db.DB(), getProductionSQL, id)
}

// List retrieves a page of productions, newest first, and the total count.
func (r *ProductionRepository) List(ctx context.Context, opts repositories.QueryOpts) ([]*models.Production, int, error) {
	db := r.db.DB()

	rows, err := db.QueryContext(ctx, listProductionsSQL, opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query productions: %w", err)
	}
	var (
		out  []*models.Production
		byID = make(map[uuid.UUID]*models.Production)
		ids  []string
	)
	for rows.Next() {
		p, err := scanProduction(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		out = append(out, p)
		byID[p.ID] = p
		ids = append(ids, p.ID.String())
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate productions: %w", err)
	}

	var total int
	if err := db.QueryRowContext(ctx, countProductionsSQL).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count productions: %w", err)
	}

	if len(ids) > 0 {
		if err := loadItems(ctx, db, ids, byID); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

// Confirm holds the production row lock while fn runs. The status update and
// the production.confirmed outbox message commit together. fn opens its own
// stock transactions, so this runs as a nesting transaction.
func (r *ProductionRepository) Confirm(ctx context.Context, id uuid.UUID, fn repositories.ConfirmFunc) (*models.Production, error) {
	var confirmed *models.Production
	err := r.db.WithNestingTx(ctx, func(tx *sql.Tx) error {
		if err := database.SetLockTimeout(ctx, tx, r.lockTimeout); err != nil {
			return err
		}
		p, err := r.load(ctx, tx, lockProductionSQL, id)
		if err != nil {
			return err
		}

		ev, err := fn(ctx, p)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, confirmProductionSQL,
			string(p.Status), p.ConfirmedAt, p.ID, string(models.StatusPending))
		if err != nil {
			return fmt.Errorf("update production status: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("update production status: %w", err)
		} else if n == 0 {
			return fmt.Errorf("%w: production %s", domain.ErrProductionNotPending, p.ID)
		}

		if r.bus != nil {
			msg, err := events.NewMessage(ctx, ev.EventID.String(), ev.Version, ev)
			if err != nil {
				return err
			}
			if err := r.bus.PublishTx(tx, domainevents.TopicProductionConfirmed, msg); err != nil {
				return fmt.Errorf("publish production confirmed: %w", err)
			}
		}
		confirmed = p
		return nil
	})
	if err != nil {
		if database.IsLockConflict(err) {
			return nil, fmt.Errorf("%w: %w", domain.ErrConcurrencyConflict, err)
		}
		return nil, err
	}
	return confirmed, nil
}

func (r *ProductionRepository) load(ctx context.Context, q queryer, query string, id uuid.UUID) (*models.Production, error) {
	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query production: %w", err)
	}
	var p *models.Production
	if rows.Next() {
		p, err = scanProduction(rows)
	}
	rows.Close()
	if err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query production: %w", err)
	}
	if p == nil {
		return nil, domain.ErrProductionNotFound
	}

	if err := loadItems(ctx, q, []string{p.ID.String()}, map[uuid.UUID]*models.Production{p.ID: p}); err != nil {
		return nil, err
	}
	return p, nil
}

func loadItems(ctx context.Context, q queryer, ids []string, byID map[uuid.UUID]*models.Production) error {
	rows, err := q.QueryContext(ctx, itemsByProductionSQL, ids)
	if err != nil {
		return fmt.Errorf("query production items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pid uuid.UUID
			it  models.ProductionItem
		)
		if err := rows.Scan(&pid, &it.ProductCode, &it.Quantity); err != nil {
			return fmt.Errorf("scan production item: %w", err)
		}
		if p, ok := byID[pid]; ok {
			p.Items = append(p.Items, it)
		}
	}
	return rows.Err()
}

func scanProduction(rows *sql.Rows) (*models.Production, error) {
	var (
		p           models.Production
		status      string
		confirmedAt sql.NullTime
	)
	if err := rows.Scan(&p.ID, &status, &p.CreatedAt, &confirmedAt); err != nil {
		return nil, fmt.Errorf("scan production: %w", err)
	}
	p.Status = models.Status(status)
	if confirmedAt.Valid {
		at := confirmedAt.Time.UTC()
		p.ConfirmedAt = &at
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}
