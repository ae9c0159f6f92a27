package persist

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const defaultPostgresDSN = "postgres://localhost/recipedecider?sslmode=disable"

var postgresDialect = dialect{
	driver: DriverPostgres,
	schema: `CREATE TABLE IF NOT EXISTS snapshots (
		name       TEXT PRIMARY KEY,
		payload    BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	read: `SELECT payload FROM snapshots WHERE name = $1`,
	upsert: `INSERT INTO snapshots (name, payload) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
}

// OpenPostgres connects to dsn (defaultPostgresDSN when empty) and ensures
// the snapshots table exists.
func OpenPostgres(ctx context.Context, dsn string) (Backend, error) {
	if dsn == "" {
		dsn = defaultPostgresDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresDialect.schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure snapshots table: %w", err)
	}
	return &sqlBackend{db: db, dialect: postgresDialect}, nil
}
