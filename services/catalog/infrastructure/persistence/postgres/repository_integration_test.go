package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/autoflex-io/inventory/pkg/config"
	"github.com/autoflex-io/inventory/pkg/database"
	"github.com/autoflex-io/inventory/pkg/logger"
	"github.com/autoflex-io/inventory/services/catalog/domain"
	"github.com/autoflex-io/inventory/services/catalog/domain/models"
	"github.com/autoflex-io/inventory/services/catalog/infrastructure/persistence/postgres"
)

// Runs against a database migrated with migrations/inventory. No event bus is
// wired, so writes skip the outbox.
func openDB(t *testing.T) *database.Database {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set; skipping integration tests")
	}
	db, err := database.NewPool(context.Background(), url, database.PoolOptions{MaxOpenConns: 4},
		logger.New(&config.Config{LogLevel: "error"}))
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestCatalogRepositoriesIntegration(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	products := postgres.NewProductRepository(db, nil)
	materials := postgres.NewRawMaterialRepository(db, nil, time.Second)
	recipes := postgres.NewRecipeRepository(db, nil)

	p, err := models.NewProduct("Integration Table", decimal.RequireFromString("50.00"))
	if err != nil {
		t.Fatal(err)
	}
	if err := products.Create(ctx, p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	t.Cleanup(func() { _ = products.Delete(context.Background(), p.Code) })

	m, err := models.NewRawMaterial("Integration Sheet", decimal.NewFromInt(100))
	if err != nil {
		t.Fatal(err)
	}
	if err := materials.Create(ctx, m); err != nil {
		t.Fatalf("create raw material: %v", err)
	}
	t.Cleanup(func() { _ = materials.Delete(context.Background(), m.Code) })

	t.Run("stale raw material version is rejected", func(t *testing.T) {
		fresh, err := materials.GetByCode(ctx, m.Code)
		if err != nil {
			t.Fatal(err)
		}
		stale := *fresh

		fresh.StockQuantity = decimal.NewFromInt(80)
		if err := materials.Update(ctx, fresh); err != nil {
			t.Fatalf("update: %v", err)
		}
		stale.StockQuantity = decimal.NewFromInt(90)
		if err := materials.Update(ctx, &stale); !errors.Is(err, domain.ErrStaleVersion) {
			t.Fatalf("expected ErrStaleVersion, got %v", err)
		}

		got, _ := materials.GetByCode(ctx, m.Code)
		if !got.StockQuantity.Equal(decimal.NewFromInt(80)) || got.Version != fresh.Version {
			t.Fatalf("stock %s version %d, want 80 and %d", got.StockQuantity, got.Version, fresh.Version)
		}
	})

	t.Run("recipe lines", func(t *testing.T) {
		l, err := models.NewRecipeLine(p.Code, m.Code, decimal.RequireFromString("2.5"))
		if err != nil {
			t.Fatal(err)
		}
		if err := recipes.Create(ctx, l); err != nil {
			t.Fatalf("create line: %v", err)
		}
		if err := recipes.Create(ctx, l); !errors.Is(err, domain.ErrRecipeLineAlreadyExists) {
			t.Fatalf("duplicate: expected ErrRecipeLineAlreadyExists, got %v", err)
		}

		missing, _ := models.NewRecipeLine(p.Code, "RM999999", decimal.NewFromInt(1))
		if err := recipes.Create(ctx, missing); !errors.Is(err, domain.ErrRawMaterialNotFound) {
			t.Fatalf("unknown material: expected ErrRawMaterialNotFound, got %v", err)
		}

		lines, err := recipes.ListByProduct(ctx, p.Code)
		if err != nil {
			t.Fatal(err)
		}
		if len(lines) != 1 || lines[0].RawMaterialName != "Integration Sheet" {
			t.Fatalf("unexpected lines: %+v", lines)
		}
	})

	t.Run("product delete cascades recipe lines", func(t *testing.T) {
		if err := products.Delete(ctx, p.Code); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := recipes.Get(ctx, p.Code, m.Code); !errors.Is(err, domain.ErrRecipeLineNotFound) {
			t.Fatalf("expected ErrRecipeLineNotFound, got %v", err)
		}
		if _, err := products.GetByCode(ctx, p.Code); !errors.Is(err, domain.ErrProductNotFound) {
			t.Fatalf("expected ErrProductNotFound, got %v", err)
		}
	})
}
