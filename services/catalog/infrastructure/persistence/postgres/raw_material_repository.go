package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/autoflex-io/inventory/pkg/database"
	"github.com/autoflex-io/inventory/pkg/events"
	"github.com/autoflex-io/inventory/services/catalog/domain"
	domainevents "github.com/autoflex-io/inventory/services/catalog/domain/events"
	"github.com/autoflex-io/inventory/services/catalog/domain/models"
	"github.com/autoflex-io/inventory/services/catalog/domain/repositories"
)

const (
	nextRawMaterialSeqSQL = `SELECT nextval('raw_material_code_sequence')`

	insertRawMaterialSQL = `
INSERT INTO raw_materials (code, name, stock_quantity, version, created_at, updated_at)
VALUES ($1, $2, $3, 0, $4, $5)`

	rawMaterialColumns = `code, name, stock_quantity, version, created_at, updated_at`

	getRawMaterialSQL = `SELECT ` + rawMaterialColumns + ` FROM raw_materials WHERE code = $1`

	listRawMaterialsSQL = `SELECT ` + rawMaterialColumns + ` FROM raw_materials %s LIMIT $1 OFFSET $2`

	countRawMaterialsSQL = `SELECT count(*) FROM raw_materials`

	updateRawMaterialSQL = `
UPDATE raw_materials
SET name = $1, stock_quantity = $2, version = version + 1, updated_at = $3
WHERE code = $4 AND version = $5`

	rawMaterialExistsSQL = `SELECT EXISTS (SELECT 1 FROM raw_materials WHERE code = $1)`

	deleteRawMaterialSQL = `DELETE FROM raw_materials WHERE code = $1`
)

var rawMaterialSortColumns = map[string]string{"code": "code", "name": "name", "stock_quantity": "stock_quantity"}

// RawMaterialRepository implements repositories.RawMaterialRepository against PostgreSQL.
type RawMaterialRepository struct {
	db          *database.Database
	bus         *events.EventBus
	lockTimeout time.Duration
}

var _ repositories.RawMaterialRepository = (*RawMaterialRepository)(nil)

// NewRawMaterialRepository returns a RawMaterialRepository. Updates wait at
// most lockTimeout for a row held by a production confirmation.
func NewRawMaterialRepository(db *database.Database, bus *events.EventBus, lockTimeout time.Duration) *RawMaterialRepository {
	return &RawMaterialRepository{db: db, bus: bus, lockTimeout: lockTimeout}
}

// Create draws the next code from raw_material_code_sequence and inserts m.
func (r *RawMaterialRepository) Create(ctx context.Context, m *models.RawMaterial) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var seq int64
		if err := tx.QueryRowContext(ctx, nextRawMaterialSeqSQL).Scan(&seq); err != nil {
			return fmt.Errorf("next raw material code: %w", err)
		}
		code := models.RawMaterialCode(seq)
		if _, err := tx.ExecContext(ctx, insertRawMaterialSQL,
			code, m.Name.String(), m.StockQuantity, m.CreatedAt, m.UpdatedAt); err != nil {
			return fmt.Errorf("insert raw material: %w", err)
		}
		m.Code, m.Version = code, 0
		return publishChanged(ctx, r.bus, tx,
			domainevents.NewCatalogChangedEvent(domainevents.EntityRawMaterial, domainevents.ActionCreated, code))
	})
}

// GetByCode returns ErrRawMaterialNotFound for an unknown code.
func (r *RawMaterialRepository) GetByCode(ctx context.Context, code string) (*models.RawMaterial, error) {
	m, err := scanRawMaterial(r.db.DB().QueryRowContext(ctx, getRawMaterialSQL, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRawMaterialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query raw material: %w", err)
	}
	return m, nil
}

// List returns one page of raw materials and the total count.
func (r *RawMaterialRepository) List(ctx context.Context, opts repositories.QueryOpts) ([]*models.RawMaterial, int, error) {
	db := r.db.DB()
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf(listRawMaterialsSQL, orderBy(opts, rawMaterialSortColumns)), opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query raw materials: %w", err)
	}
	defer rows.Close()

	out := []*models.RawMaterial{}
	for rows.Next() {
		m, err := scanRawMaterial(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan raw material: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate raw materials: %w", err)
	}

	var total int
	if err := db.QueryRowContext(ctx, countRawMaterialsSQL).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count raw materials: %w", err)
	}
	return out, total, nil
}

// Update writes m when m.Version is current and increments it. A row held
// by a confirmation past the lock timeout, or changed by one, yields
// ErrStaleVersion.
func (r *RawMaterialRepository) Update(ctx context.Context, m *models.RawMaterial) error {
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := database.SetLockTimeout(ctx, tx, r.lockTimeout); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, updateRawMaterialSQL,
			m.Name.String(), m.StockQuantity, m.UpdatedAt, m.Code, m.Version)
		if err != nil {
			return fmt.Errorf("update raw material: %w", err)
		}
		if ok, err := rowsAffected(res); err != nil {
			return err
		} else if !ok {
			return r.missingOrStale(ctx, tx, m.Code)
		}
		m.Version++
		return publishChanged(ctx, r.bus, tx,
			domainevents.NewCatalogChangedEvent(domainevents.EntityRawMaterial, domainevents.ActionUpdated, m.Code))
	})
	if err != nil && database.IsLockConflict(err) {
		return fmt.Errorf("%w: raw material %s: %w", domain.ErrStaleVersion, m.Code, err)
	}
	return err
}

// Delete removes the raw material; product_raw_materials rows cascade.
func (r *RawMaterialRepository) Delete(ctx context.Context, code string) error {
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := database.SetLockTimeout(ctx, tx, r.lockTimeout); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, deleteRawMaterialSQL, code)
		if err != nil {
			return fmt.Errorf("delete raw material: %w", err)
		}
		if ok, err := rowsAffected(res); err != nil {
			return err
		} else if !ok {
			return domain.ErrRawMaterialNotFound
		}
		return publishChanged(ctx, r.bus, tx,
			domainevents.NewCatalogChangedEvent(domainevents.EntityRawMaterial, domainevents.ActionDeleted, code))
	})
	if err != nil && database.IsLockConflict(err) {
		return fmt.Errorf("%w: raw material %s: %w", domain.ErrStaleVersion, code, err)
	}
	return err
}

func (r *RawMaterialRepository) missingOrStale(ctx context.Context, tx *sql.Tx, code string) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, rawMaterialExistsSQL, code).Scan(&exists); err != nil {
		return fmt.Errorf("check raw material: %w", err)
	}
	if !exists {
		return domain.ErrRawMaterialNotFound
	}
	return fmt.Errorf("%w: raw material %s", domain.ErrStaleVersion, code)
}

func scanRawMaterial(s rowScanner) (*models.RawMaterial, error) {
	var (
		m    models.RawMaterial
		name string
	)
	if err := s.Scan(&m.Code, &name, &m.StockQuantity, &m.Version, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Name = models.Name(name)
	m.CreatedAt, m.UpdatedAt = m.CreatedAt.UTC(), m.UpdatedAt.UTC()
	return &m, nil
}
