package store

import (
	"math/rand/v2"

	"github.com/roach88/recipedecider/internal/recipe"
)

// Store is the in-memory recipe collection.
//
// INVARIANTS:
//   - records are kept in insertion order
//   - rng is used only by PickRandom and never shared
type Store struct {
	records []recipe.Recipe
	rng     *rand.Rand
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithRand sets the generator used by PickRandom.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithSeed seeds a PCG generator deterministically. Useful for tests and
// reproducible demos.
func WithSeed(seed uint64) Option {
	return func(s *Store) {
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// New creates an empty store. Without options the generator is seeded from
// the runtime's random source.
func New(opts ...Option) *Store {
	s := &Store{records: make([]recipe.Recipe, 0, 16)}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// List returns a copy of all records in insertion order.
// An empty store returns an empty, non-nil slice.
func (s *Store) List() []recipe.Recipe {
	out := make([]recipe.Recipe, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Append adds r at the end of the collection.
func (s *Store) Append(r recipe.Recipe) {
	s.records = append(s.records, r)
}

// RemoveAt removes and returns the record at i, shifting later records down.
// Fails with INDEX_OUT_OF_RANGE if i is not a valid index.
func (s *Store) RemoveAt(i int) (recipe.Recipe, error) {
	if i < 0 || i >= len(s.records) {
		return recipe.Recipe{}, recipe.OutOfRange(i, len(s.records))
	}
	removed := s.records[i]
	copy(s.records[i:], s.records[i+1:])
	s.records[len(s.records)-1] = recipe.Recipe{}
	s.records = s.records[:len(s.records)-1]
	return removed, nil
}

// PickRandom returns one record chosen uniformly at random.
// Fails with EMPTY_COLLECTION when the store has no records; callers should
// check Len first and report "no recipe" instead.
func (s *Store) PickRandom() (recipe.Recipe, error) {
	if len(s.records) == 0 {
		return recipe.Recipe{}, recipe.Empty()
	}
	return s.records[s.rng.IntN(len(s.records))], nil
}
