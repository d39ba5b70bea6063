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
	recipeLineSelect = `
SELECT prm.product_code, prm.raw_material_code, prm.quantity, p.name, rm.name
FROM product_raw_materials prm
JOIN products p ON p.code = prm.product_code
JOIN raw_materials rm ON rm.code = prm.raw_material_code`

	listRecipeLinesSQL = recipeLineSelect + `
WHERE prm.product_code = $1
ORDER BY prm.raw_material_code`

	getRecipeLineSQL = recipeLineSelect + `
WHERE prm.product_code = $1 AND prm.raw_material_code = $2`

	insertRecipeLineSQL = `
INSERT INTO product_raw_materials (product_code, raw_material_code, quantity)
VALUES ($1, $2, $3)`

	updateRecipeLineSQL = `
UPDATE product_raw_materials SET quantity = $1
WHERE product_code = $2 AND raw_material_code = $3`

	deleteRecipeLineSQL = `
DELETE FROM product_raw_materials
WHERE product_code = $1 AND raw_material_code = $2`

	rawMaterialForeignKey = "product_raw_materials_raw_material_code_fkey"
)

// RecipeRepository implements repositories.RecipeRepository against PostgreSQL.
type RecipeRepository struct {
	db  *database.Database
	bus *events.EventBus
}

var _ repositories.RecipeRepository = (*RecipeRepository)(nil)

// NewRecipeRepository returns a RecipeRepository. bus may be nil.
func NewRecipeRepository(db *database.Database, bus *events.EventBus) *RecipeRepository {
	return &RecipeRepository{db: db, bus: bus}
}

// ListByProduct returns the product's lines ordered by raw material code.
func (r *RecipeRepository) ListByProduct(ctx context.Context, productCode string) ([]*models.RecipeLine, error) {
	rows, err := r.db.DB().QueryContext(ctx, listRecipeLinesSQL, productCode)
	if err != nil {
		return nil, fmt.Errorf("query recipe lines: %w", err)
	}
	defer rows.Close()

	out := []*models.RecipeLine{}
	for rows.Next() {
		l, err := scanRecipeLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipe line: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipe lines: %w", err)
	}
	return out, nil
}

// Get returns ErrRecipeLineNotFound when the pair is not linked.
func (r *RecipeRepository) Get(ctx context.Context, productCode, rawMaterialCode string) (*models.RecipeLine, error) {
	l, err := scanRecipeLine(r.db.DB().QueryRowContext(ctx, getRecipeLineSQL, productCode, rawMaterialCode))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecipeLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query recipe line: %w", err)
	}
	return l, nil
}

// Create links the pair. Duplicates yield ErrRecipeLineAlreadyExists and a
// missing product or raw material the matching not-found error.
func (r *RecipeRepository) Create(ctx context.Context, l *models.RecipeLine) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertRecipeLineSQL,
			l.ProductCode, l.RawMaterialCode, l.Quantity); err != nil {
			switch {
			case database.IsUniqueViolation(err):
				return domain.ErrRecipeLineAlreadyExists
			case database.IsForeignKeyViolation(err) && database.ConstraintName(err) == rawMaterialForeignKey:
				return domain.ErrRawMaterialNotFound
			case database.IsForeignKeyViolation(err):
				return domain.ErrProductNotFound
			}
			return fmt.Errorf("insert recipe line: %w", err)
		}
		return publishChanged(ctx, r.bus, tx, recipeEvent(domainevents.ActionCreated, l.ProductCode, l.RawMaterialCode))
	})
}

// Update replaces the per-unit quantity.
func (r *RecipeRepository) Update(ctx context.Context, l *models.RecipeLine) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, updateRecipeLineSQL, l.Quantity, l.ProductCode, l.RawMaterialCode)
		if err != nil {
			return fmt.Errorf("update recipe line: %w", err)
		}
		if ok, err := rowsAffected(res); err != nil {
			return err
		} else if !ok {
			return domain.ErrRecipeLineNotFound
		}
		return publishChanged(ctx, r.bus, tx, recipeEvent(domainevents.ActionUpdated, l.ProductCode, l.RawMaterialCode))
	})
}

// Delete unlinks the pair.
func (r *RecipeRepository) Delete(ctx context.Context, productCode, rawMaterialCode string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, deleteRecipeLineSQL, productCode, rawMaterialCode)
		if err != nil {
			return fmt.Errorf("delete recipe line: %w", err)
		}
		if ok, err := rowsAffected(res); err != nil {
			return err
		} else if !ok {
			return domain.ErrRecipeLineNotFound
		}
		return publishChanged(ctx, r.bus, tx, recipeEvent(domainevents.ActionDeleted, productCode, rawMaterialCode))
	})
}

func recipeEvent(action, productCode, rawMaterialCode string) domainevents.CatalogChangedEvent {
	ev := domainevents.NewCatalogChangedEvent(domainevents.EntityRecipeLine, action, productCode)
	ev.RawMaterialCode = rawMaterialCode
	return ev
}

func scanRecipeLine(s rowScanner) (*models.RecipeLine, error) {
	var l models.RecipeLine
	if err := s.Scan(&l.ProductCode, &l.RawMaterialCode, &l.Quantity, &l.ProductName, &l.RawMaterialName); err != nil {
		return nil, err
	}
	return &l, nil
}
