package persist

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/roach88/recipedecider/internal/recipe"
	"github.com/roach88/recipedecider/internal/store"
)

const tracerName = "github.com/roach88/recipedecider/internal/persist"

// Gateway saves and loads store snapshots through a Backend.
type Gateway struct {
	backend Backend
}

// NewGateway wraps b.
func NewGateway(b Backend) *Gateway {
	return &Gateway{backend: b}
}

// Driver reports the backend driver.
func (g *Gateway) Driver() Driver { return g.backend.Driver() }

// Close releases the backend.
func (g *Gateway) Close() error { return g.backend.Close() }

// Save writes the snapshot of st. Any failure is returned as a
// PERSISTENCE_FAILURE error.
func (g *Gateway) Save(ctx context.Context, st *store.Store) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "persist.Save")
	defer span.End()
	span.SetAttributes(
		attribute.String("persist.driver", string(g.backend.Driver())),
		attribute.Int("recipes", st.Len()),
	)

	data, err := st.Snapshot()
	if err != nil {
		span.SetStatus(codes.Error, "encode")
		return recipe.PersistenceFailure(fmt.Errorf("encode snapshot: %w", err))
	}
	if err := g.backend.Write(ctx, data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write")
		return recipe.PersistenceFailure(fmt.Errorf("%s write: %w", g.backend.Driver(), err))
	}

	slog.Debug("snapshot written", "driver", g.backend.Driver(), "bytes", len(data), "recipes", st.Len())
	return nil
}

// Load reads the persisted snapshot and restores a store from it.
//
// ok is false when no snapshot exists or it could not be read; the caller
// starts from an empty store. A snapshot that exists but is corrupt or of
// an unknown version restores to an empty store with ok true.
func (g *Gateway) Load(ctx context.Context, opts ...store.Option) (*store.Store, bool) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "persist.Load")
	defer span.End()

	data, ok, err := g.backend.Read(ctx)
	if err != nil {
		span.RecordError(err)
		slog.Warn("snapshot read failed; starting empty", "driver", g.backend.Driver(), "error", err)
		return nil, false
	}
	if !ok {
		slog.Info("no snapshot found; starting empty", "driver", g.backend.Driver())
		return nil, false
	}

	st := store.Restore(data, opts...)
	slog.Info("snapshot restored", "driver", g.backend.Driver(), "recipes", st.Len())
	return st, true
}

// Read returns the raw snapshot blob.
func (g *Gateway) Read(ctx context.Context) ([]byte, bool, error) {
	return g.backend.Read(ctx)
}
