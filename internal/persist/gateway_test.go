package persist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recipedecider/internal/recipe"
	"github.com/roach88/recipedecider/internal/store"
)

var (
	soup  = recipe.Recipe{Name: "Soup", Instructions: "Boil."}
	salad = recipe.Recipe{Name: "Salad", Instructions: "Toss."}
)

// brokenBackend fails every operation.
type brokenBackend struct{ err error }

func (b brokenBackend) Read(context.Context) ([]byte, bool, error) { return nil, false, b.err }
func (b brokenBackend) Write(context.Context, []byte) error        { return b.err }
func (b brokenBackend) Close() error                               { return nil }
func (b brokenBackend) Driver() Driver                             { return "broken" }

func TestGateway_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	g := NewGateway(mem)

	st := store.New()
	st.Append(soup)
	st.Append(salad)
	require.NoError(t, g.Save(ctx, st))
	assert.Equal(t, 1, mem.Writes())

	data, ok, err := mem.Read(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"V1":{"recipes":[
		{"name":"Soup","instructions":"Boil."},
		{"name":"Salad","instructions":"Toss."}]}}`, string(data))

	loaded, ok := g.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, []recipe.Recipe{soup, salad}, loaded.List())
}

func TestGateway_LoadAbsent(t *testing.T) {
	g := NewGateway(NewMemory())

	st, ok := g.Load(context.Background())
	assert.False(t, ok)
	assert.Nil(t, st)
}

func TestGateway_LoadCorruptRestoresEmpty(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	require.NoError(t, mem.Write(ctx, []byte(`{"V1":{"recipes":[`)))

	st, ok := NewGateway(mem).Load(ctx)
	require.True(t, ok)
	require.NotNil(t, st)
	assert.Zero(t, st.Len())
}

func TestGateway_LoadUnknownVersionRestoresEmpty(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	require.NoError(t, mem.Write(ctx, []byte(`{"V2":{"recipes":[{"name":"Soup","instructions":"Boil."}]}}`)))

	st, ok := NewGateway(mem).Load(ctx)
	require.True(t, ok)
	assert.Zero(t, st.Len())
}

func TestGateway_LoadReadError(t *testing.T) {
	g := NewGateway(brokenBackend{err: errors.New("permission denied")})

	st, ok := g.Load(context.Background())
	assert.False(t, ok)
	assert.Nil(t, st)
}

func TestGateway_SaveFailureIsPersistenceFailure(t *testing.T) {
	cause := errors.New("disk full")
	g := NewGateway(brokenBackend{err: cause})

	err := g.Save(context.Background(), store.New())
	require.Error(t, err)
	assert.True(t, recipe.IsCode(err, recipe.ErrCodePersistenceFailure))
	assert.ErrorIs(t, err, cause)
}

func TestGateway_LoadPassesStoreOptions(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	g := NewGateway(mem)

	st := store.New()
	st.Append(soup)
	st.Append(salad)
	require.NoError(t, g.Save(ctx, st))

	pick := func() recipe.Recipe {
		loaded, ok := g.Load(ctx, store.WithSeed(42))
		require.True(t, ok)
		r, err := loaded.PickRandom()
		require.NoError(t, err)
		return r
	}
	assert.Equal(t, pick(), pick(), "same seed, same pick")
}
