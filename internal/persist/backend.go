package persist

import "context"

// Driver names a Backend implementation.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverFile     Driver = "file"
	DriverS3       Driver = "s3"
	DriverMemory   Driver = "memory"
)

// Drivers lists every supported driver in documentation order.
func Drivers() []Driver {
	return []Driver{DriverSQLite, DriverPostgres, DriverFile, DriverS3, DriverMemory}
}

// Backend reads and writes a single snapshot blob.
type Backend interface {
	// Read returns the stored blob. ok is false when nothing has been
	// written yet; that is not an error.
	Read(ctx context.Context) (data []byte, ok bool, err error)

	// Write replaces the stored blob.
	Write(ctx context.Context, data []byte) error

	Close() error
	Driver() Driver
}
