package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
)

// Dialect selects the DDL flavour applied by Migrate.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Schema returns the DDL for the given dialect.
func Schema(d Dialect) (string, error) {
	b, err := schemaFS.ReadFile("schema/" + string(d) + ".sql")
	if err != nil {
		return "", fmt.Errorf("unknown dialect %q: %w", d, err)
	}
	return string(b), nil
}

// Migrate creates all tables that do not exist yet.  Every statement is
// CREATE ... IF NOT EXISTS so it is safe to run on each deploy.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	ddl, err := Schema(d)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("apply %s schema: %w", d, err)
	}
	return nil
}
