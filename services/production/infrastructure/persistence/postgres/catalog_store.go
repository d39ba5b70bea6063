package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/autoflex-io/inventory/pkg/database"
	"github.com/autoflex-io/inventory/services/production/domain"
	"github.com/autoflex-io/inventory/services/production/domain/models"
	"github.com/autoflex-io/inventory/services/production/domain/repositories"
)

const (
	listProductsSQL = `SELECT code, name, value FROM products ORDER BY code`

	listRecipeLinesSQL = `
SELECT product_code, raw_material_code, quantity
FROM product_raw_materials
ORDER BY product_code, raw_material_code`

	findProductSQL = `SELECT code, name, value FROM products WHERE code = $1`

	findRecipeLinesSQL = `
SELECT product_code, raw_material_code, quantity
FROM product_raw_materials
WHERE product_code = $1
ORDER BY raw_material_code`

	lockRawMaterialSQL = `
SELECT code, name, stock_quantity, version
FROM raw_materials
WHERE code = $1
FOR UPDATE`

	lockAllRawMaterialsSQL = `
SELECT code, name, stock_quantity, version
FROM raw_materials
ORDER BY code
FOR UPDATE`

	saveStockSQL = `
UPDATE raw_materials
SET stock_quantity = $1, version = version + 1, updated_at = now()
WHERE code = $2 AND version = $3`
)

// CatalogStore implements repositories.CatalogStore on the catalog tables.
type CatalogStore struct {
	db          *database.Database
	lockTimeout time.Duration
}

var _ repositories.CatalogStore = (*CatalogStore)(nil)

// NewCatalogStore returns a CatalogStore. lockTimeout is applied to every
// transaction with SET LOCAL lock_timeout; zero waits indefinitely.
func NewCatalogStore(db *database.Database, lockTimeout time.Duration) *CatalogStore {
	return &CatalogStore{db: db, lockTimeout: lockTimeout}
}

// WithinTx runs fn in one read-committed transaction. Lock timeouts,
// serialization failures and deadlocks are reported as ErrConcurrencyConflict.
func (s *CatalogStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.CatalogTx) error) error {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := database.SetLockTimeout(ctx, tx, s.lockTimeout); err != nil {
			return err
		}
		return fn(ctx, &catalogTx{tx: tx})
	})
	if err != nil && database.IsLockConflict(err) {
		return fmt.Errorf("%w: %w", domain.ErrConcurrencyConflict, err)
	}
	return err
}

type catalogTx struct {
	tx *sql.Tx
}

func (t *catalogTx) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := t.tx.QueryContext(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.Code, &p.Name, &p.Value); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *catalogTx) ListRecipeLines(ctx context.Context) ([]models.RecipeLine, error) {
	return t.queryLines(ctx, listRecipeLinesSQL)
}

func (t *catalogTx) FindProductByCode(ctx context.Context, code string) (*models.Product, error) {
	var p models.Product
	err := t.tx.QueryRowContext(ctx, findProductSQL, code).Scan(&p.Code, &p.Name, &p.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product with code %s: %w", code, domain.ErrProductNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query product %s: %w", code, err)
	}
	return &p, nil
}

func (t *catalogTx) FindRecipeLinesByProductCode(ctx context.Context, productCode string) ([]models.RecipeLine, error) {
	return t.queryLines(ctx, findRecipeLinesSQL, productCode)
}

func (t *catalogTx) FindRawMaterialByCodeForUpdate(ctx context.Context, code string) (*models.RawMaterial, error) {
	var m models.RawMaterial
	err := t.tx.QueryRowContext(ctx, lockRawMaterialSQL, code).Scan(&m.Code, &m.Name, &m.StockQuantity, &m.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("raw material with code %s: %w", code, domain.ErrRawMaterialNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock raw material %s: %w", code, err)
	}
	return &m, nil
}

func (t *catalogTx) FindAllRawMaterialsForUpdate(ctx context.Context) ([]models.RawMaterial, error) {
	rows, err := t.tx.QueryContext(ctx, lockAllRawMaterialsSQL)
	if err != nil {
		return nil, fmt.Errorf("lock raw materials: %w", err)
	}
	defer rows.Close()

	var out []models.RawMaterial
	for rows.Next() {
		var m models.RawMaterial
		if err := rows.Scan(&m.Code, &m.Name, &m.StockQuantity, &m.Version); err != nil {
			return nil, fmt.Errorf("scan raw material: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *catalogTx) SaveRawMaterial(ctx context.Context, m *models.RawMaterial) error {
	res, err := t.tx.ExecContext(ctx, saveStockSQL, m.StockQuantity, m.Code, m.Version)
	if err != nil {
		return fmt.Errorf("update stock %s: %w", m.Code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update stock %s: %w", m.Code, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: raw material %s changed since version %d",
			domain.ErrConcurrencyConflict, m.Code, m.Version)
	}
	m.Version++
	return nil
}

func (t *catalogTx) queryLines(ctx context.Context, query string, args ...any) ([]models.RecipeLine, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recipe lines: %w", err)
	}
	defer rows.Close()

	var out []models.RecipeLine
	for rows.Next() {
		var l models.RecipeLine
		if err := rows.Scan(&l.ProductCode, &l.RawMaterialCode, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan recipe line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
