package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// snapshotName is the primary key of the single snapshot row.
const snapshotName = "recipes"

// dialect holds the statements that differ between SQL backends.
type dialect struct {
	driver Driver
	schema string
	read   string
	upsert string
}

// sqlBackend stores the snapshot in a one-row table.
type sqlBackend struct {
	db      *sql.DB
	dialect dialect
}

func (b *sqlBackend) Driver() Driver { return b.dialect.driver }

func (b *sqlBackend) Read(ctx context.Context) ([]byte, bool, error) {
	var payload []byte
	err := b.db.QueryRowContext(ctx, b.dialect.read, snapshotName).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select snapshot: %w", err)
	}
	return payload, true, nil
}

func (b *sqlBackend) Write(ctx context.Context, data []byte) error {
	if _, err := b.db.ExecContext(ctx, b.dialect.upsert, snapshotName, data); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

func (b *sqlBackend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// DB returns the underlying sql.DB. Used by tests.
func (b *sqlBackend) DB() *sql.DB { return b.db }
