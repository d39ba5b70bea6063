package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/autoflex-io/inventory/pkg/database"
	"github.com/autoflex-io/inventory/pkg/events"
	"github.com/autoflex-io/inventory/services/catalog/domain"
	domainevents "github.com/autoflex-io/inventory/services/catalog/domain/events"
	"github.com/autoflex-io/inventory/services/catalog/domain/models"
	"github.com/autoflex-io/inventory/services/catalog/domain/repositories"
)

const (
	nextProductSeqSQL = `SELECT nextval('product_code_sequence')`

	insertProductSQL = `
INSERT INTO products (code, name, value, version, created_at, updated_at)
VALUES ($1, $2, $3, 0, $4, $5)`

	productColumns = `code, name, value, version, created_at, updated_at`

	getProductSQL = `SELECT ` + productColumns + ` FROM products WHERE code = $1`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products %s LIMIT $1 OFFSET $2`

	countProductsSQL = `SELECT count(*) FROM products`

	updateProductSQL = `
UPDATE products
SET name = $1, value = $2, version = version + 1, updated_at = $3
WHERE code = $4 AND version = $5`

	productExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE code = $1)`

	deleteProductSQL = `DELETE FROM products WHERE code = $1`
)

var productSortColumns = map[string]string{"code": "code", "name": "name", "value": "value"}

// ProductRepository implements repositories.ProductRepository against PostgreSQL.
type ProductRepository struct {
	db  *database.Database
	bus *events.EventBus
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository returns a ProductRepository. bus may be nil.
func NewProductRepository(db *database.Database, bus *events.EventBus) *ProductRepository {
	return &ProductRepository{db: db, bus: bus}
}

// Create draws the next code from product_code_sequence and inserts p.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var seq int64
		if err := tx.QueryRowContext(ctx, nextProductSeqSQL).Scan(&seq); err != nil {
			return fmt.Errorf("next product code: %w", err)
		}
		code := models.ProductCode(seq)
		if _, err := tx.ExecContext(ctx, insertProductSQL,
			code, p.Name.String(), p.Value, p.CreatedAt, p.UpdatedAt); err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		p.Code, p.Version = code, 0
		return publishChanged(ctx, r.bus, tx,
			domainevents.NewCatalogChangedEvent(domainevents.EntityProduct, domainevents.ActionCreated, code))
	})
}

// GetByCode returns ErrProductNotFound for an unknown code.
func (r *ProductRepository) GetByCode(ctx context.Context, code string) (*models.Product, error) {
	p, err := scanProduct(r.db.DB().QueryRowContext(ctx, getProductSQL, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

// List returns one page of products and the total count.
func (r *ProductRepository) List(ctx context.Context, opts repositories.QueryOpts) ([]*models.Product, int, error) {
	db := r.db.DB()
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf(listProductsSQL, orderBy(opts, productSortColumns)), opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	out := []*models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}

	var total int
	if err := db.QueryRowContext(ctx, countProductsSQL).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	return out, total, nil
}

// Update writes p when p.Version is current and increments it.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, updateProductSQL,
			p.Name.String(), p.Value, p.UpdatedAt, p.Code, p.Version)
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if ok, err := rowsAffected(res); err != nil {
			return err
		} else if !ok {
			return r.missingOrStale(ctx, tx, p.Code)
		}
		p.Version++
		return publishChanged(ctx, r.bus, tx,
			domainevents.NewCatalogChangedEvent(domainevents.EntityProduct, domainevents.ActionUpdated, p.Code))
	})
}

// Delete removes the product; product_raw_materials rows cascade.
func (r *ProductRepository) Delete(ctx context.Context, code string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, deleteProductSQL, code)
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		if ok, err := rowsAffected(res); err != nil {
			return err
		} else if !ok {
			return domain.ErrProductNotFound
		}
		return publishChanged(ctx, r.bus, tx,
			domainevents.NewCatalogChangedEvent(domainevents.EntityProduct, domainevents.ActionDeleted, code))
	})
}

func (r *ProductRepository) missingOrStale(ctx context.Context, tx *sql.Tx, code string) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, productExistsSQL, code).Scan(&exists); err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	if !exists {
		return domain.ErrProductNotFound
	}
	return fmt.Errorf("%w: product %s", domain.ErrStaleVersion, code)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (*models.Product, error) {
	var (
		p    models.Product
		name string
	)
	if err := s.Scan(&p.Code, &name, &p.Value, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Name = models.Name(name)
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
	return &p, nil
}
