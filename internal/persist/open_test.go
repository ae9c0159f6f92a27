package persist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SelectsBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		cfg  Config
		want Driver
	}{
		{Config{Driver: DriverMemory}, DriverMemory},
		{Config{Driver: DriverFile, Path: filepath.Join(dir, "recipes.json")}, DriverFile},
		{Config{Driver: DriverSQLite, Path: filepath.Join(dir, "recipes.db")}, DriverSQLite},
		{Config{Path: filepath.Join(dir, "default.db")}, DriverSQLite},
	}
	for _, tt := range tests {
		g, err := Open(ctx, tt.cfg)
		require.NoError(t, err, "%+v", tt.cfg)
		assert.Equal(t, tt.want, g.Driver())
		require.NoError(t, g.Close())
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "redis"})
	assert.ErrorContains(t, err, `unknown persistence driver "redis"`)
}

func TestOpenPostgres_Unreachable(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "postgres://nobody@127.0.0.1:1/recipes?sslmode=disable&connect_timeout=1")
	assert.ErrorContains(t, err, "ping postgres")
}

func TestDrivers(t *testing.T) {
	assert.Len(t, Drivers(), 5)
}
