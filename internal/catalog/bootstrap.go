package catalog

import (
	"context"
	"fmt"
	"strings"

	"modelgraph/internal/dbexec"
	"modelgraph/internal/model"
	"modelgraph/internal/sqltype"
	"modelgraph/internal/sqlutil"
)

// CreateTableSQL renders an idempotent CREATE TABLE for e's scalar fields.
// Relationship fields have no column and contribute nothing.
func CreateTableSQL(d sqlutil.Dialect, e *model.Entity) string {
	fields := e.ScalarFields()
	defs := make([]string, 0, len(fields))
	for _, f := range fields {
		def := d.QuoteIdentifier(f.Column) + " " + sqltype.ColumnType(d, f.Class)
		switch {
		case f.PrimaryKey:
			def += " PRIMARY KEY"
		case !f.IsOptional():
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.QuoteIdentifier(e.Table), strings.Join(defs, ", "))
}

// Bootstrap creates the tables for entities that do not exist yet.
func Bootstrap(ctx context.Context, exec dbexec.QueryExecutor, d sqlutil.Dialect, entities []*model.Entity) error {
	for _, e := range entities {
		if _, err := exec.ExecContext(ctx, CreateTableSQL(d, e)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", e.Table, err)
		}
	}
	return nil
}
