package persist

import (
	"context"
	"fmt"
	"path/filepath"
)

// Config selects and configures a backend.
type Config struct {
	Driver Driver
	// Path is the database file for sqlite and the snapshot file for file.
	Path string
	// DSN is the postgres connection string.
	DSN string
	S3  S3Config
}

// DefaultPath is used by the sqlite and file drivers when Path is empty.
const DefaultPath = "recipes.db"

// OpenBackend selects a Backend implementation by cfg.Driver (default sqlite).
func OpenBackend(ctx context.Context, cfg Config) (Backend, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverSQLite:
		return OpenSQLite(ctx, pathOr(cfg.Path, DefaultPath))
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN)
	case DriverFile:
		return NewFile(pathOr(cfg.Path, "recipes.json"))
	case DriverS3:
		return OpenS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown persistence driver %q", driver)
	}
}

// Open returns a Gateway over the backend selected by cfg.
func Open(ctx context.Context, cfg Config) (*Gateway, error) {
	b, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewGateway(b), nil
}

func pathOr(path, fallback string) string {
	if path == "" {
		return fallback
	}
	return filepath.Clean(path)
}
