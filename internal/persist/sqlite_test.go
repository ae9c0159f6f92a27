package persist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite_PragmasAndVersion(t *testing.T) {
	ctx := context.Background()
	b, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "recipes.db"))
	require.NoError(t, err)
	defer b.Close()

	db := b.(*sqlBackend).DB()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var version int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpenSQLite_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "recipes.db")
	data := []byte(`{"V1":{"recipes":[{"name":"Soup","instructions":"Boil."}]}}`)

	b, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, b.Write(ctx, data))
	require.NoError(t, b.Close())

	// Migrations are idempotent and data survives a reopen.
	b, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer b.Close()

	got, ok, err := b.Read(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, data, got)

	var rows int
	require.NoError(t, b.(*sqlBackend).DB().QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "")
	assert.Error(t, err)
}
