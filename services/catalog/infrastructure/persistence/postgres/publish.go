// Package postgres implements the catalog repositories on PostgreSQL.
// Every write publishes a catalog.changed event in its own transaction.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/autoflex-io/inventory/pkg/events"
	domainevents "github.com/autoflex-io/inventory/services/catalog/domain/events"
	"github.com/autoflex-io/inventory/services/catalog/domain/repositories"
)

// publishChanged writes ev to the outbox inside tx. A nil bus is a no-op.
func publishChanged(ctx context.Context, bus *events.EventBus, tx *sql.Tx, ev domainevents.CatalogChangedEvent) error {
	if bus == nil {
		return nil
	}
	msg, err := events.NewMessage(ctx, ev.EventID.String(), ev.Version, ev)
	if err != nil {
		return err
	}
	if err := bus.PublishTx(tx, domainevents.TopicCatalogChanged, msg); err != nil {
		return fmt.Errorf("publish %s %s: %w", ev.Entity, ev.Action, err)
	}
	return nil
}

// orderBy builds an ORDER BY clause from whitelisted columns. Unknown sort
// fields fall back to the code; the code is always the final tie-break.
func orderBy(opts repositories.QueryOpts, columns map[string]string) string {
	col, ok := columns[opts.Sort]
	if !ok {
		col = "code"
	}
	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}
	if col == "code" {
		return "ORDER BY code " + dir
	}
	return fmt.Sprintf("ORDER BY %s %s, code ASC", col, dir)
}

// rowsAffected reports whether res touched at least one row.
func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
