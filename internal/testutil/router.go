package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/roach88/recipedecider/internal/recipe"
	"github.com/roach88/recipedecider/internal/router"
	"github.com/roach88/recipedecider/internal/store"
)

// SeededStore returns a store with a fixed random seed holding recipes in
// order.
func SeededStore(seed uint64, recipes ...recipe.Recipe) *store.Store {
	st := store.New(store.WithSeed(seed))
	for _, r := range recipes {
		st.Append(r)
	}
	return st
}

// StartRouter runs a router over st until the test ends.
func StartRouter(t testing.TB, st *store.Store, saver router.Saver, n router.Notifier, opts ...router.Option) *router.Router {
	t.Helper()
	r := router.New(st, saver, n, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("router did not stop")
		}
	})
	return r
}
