// Command inventory applies the schema migrations for the catalog and
// production tables.
package main

import (
	"context"
	"embed"
	"os"

	"github.com/autoflex-io/inventory/pkg/config"
	"github.com/autoflex-io/inventory/pkg/logger"
	"github.com/autoflex-io/inventory/pkg/migrator"
)

//go:embed *.sql
var MigrationsFS embed.FS

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg)
	if err := migrator.RunMigrations(context.Background(), cfg.DatabaseURL, MigrationsFS, log); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")
}
