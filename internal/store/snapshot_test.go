package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recipedecider/internal/recipe"
)

func TestSnapshotFormat(t *testing.T) {
	s := New()
	s.Append(recipe.Recipe{Name: "Soup", Instructions: "Boil."})

	data, err := s.Snapshot()
	require.NoError(t, err)
	assert.JSONEq(t, `{"V1":{"recipes":[{"name":"Soup","instructions":"Boil."}]}}`, string(data))
}

func TestSnapshotEmptyStore(t *testing.T) {
	data, err := New().Snapshot()
	require.NoError(t, err)
	assert.JSONEq(t, `{"V1":{"recipes":[]}}`, string(data))
}

func TestSnapshotRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 3, 25} {
		s := filled(t, n)
		data, err := s.Snapshot()
		require.NoError(t, err)

		restored := Restore(data)
		assert.Equal(t, s.List(), restored.List())
	}
}

func TestRestoreUnicodeRoundTrip(t *testing.T) {
	s := New()
	s.Append(recipe.Recipe{Name: "Crème brûlée", Instructions: "Torch <carefully> & serve"})
	data, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, s.List(), Restore(data).List())
}

func TestRestoreCorruptYieldsEmpty(t *testing.T) {
	good, err := filled(t, 3).Snapshot()
	require.NoError(t, err)

	cases := map[string][]byte{
		"nil":             nil,
		"empty":           {},
		"garbage":         []byte("\x00\xff not json"),
		"truncated":       good[:len(good)/2],
		"array":           []byte(`[1,2,3]`),
		"unknown version": []byte(`{"V2":{"recipes":[]}}`),
		"two tags":        []byte(`{"V1":{"recipes":[]},"V2":{}}`),
		"wrong body type": []byte(`{"V1":{"recipes":"nope"}}`),
		"empty object":    []byte(`{}`),
		"no recipes":      []byte(`{"V1":{}}`),
		"missing field":   []byte(`{"V1":{"recipes":[{"name":"a"}]}}`),
		"null field":      []byte(`{"V1":{"recipes":[{"name":"a","instructions":null}]}}`),
		"null recipe":     []byte(`{"V1":{"recipes":[{"name":"a","instructions":"b"},null]}}`),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			s := Restore(data)
			require.NotNil(t, s)
			assert.Equal(t, 0, s.Len())

			// The restored store must be fully usable.
			s.Append(recipe.Recipe{Name: "a", Instructions: "b"})
			_, err := s.PickRandom()
			assert.NoError(t, err)
		})
	}
}

func TestRestoreKeepsBlankText(t *testing.T) {
	s := Restore([]byte(`{"V1":{"recipes":[{"name":"","instructions":"  "}]}}`))
	assert.Equal(t, []recipe.Recipe{{Name: "", Instructions: "  "}}, s.List())
}

func TestRestoreNullBody(t *testing.T) {
	s := Restore([]byte(`{"V1":null}`))
	assert.Equal(t, 0, s.Len())
}

func TestRestoreAppliesOptions(t *testing.T) {
	data, err := filled(t, 4).Snapshot()
	require.NoError(t, err)

	a := Restore(data, WithSeed(9))
	b := Restore(data, WithSeed(9))
	for i := 0; i < 20; i++ {
		ra, _ := a.PickRandom()
		rb, _ := b.PickRandom()
		assert.Equal(t, ra, rb)
	}
}

func TestVersion(t *testing.T) {
	tag, ok := Version([]byte(`{"V1":{"recipes":[]}}`))
	assert.True(t, ok)
	assert.Equal(t, "V1", tag)

	tag, ok = Version([]byte(`{"V9":{}}`))
	assert.True(t, ok)
	assert.Equal(t, "V9", tag)

	_, ok = Version([]byte(`garbage`))
	assert.False(t, ok)
	_, ok = Version([]byte(`{"a":1,"b":2}`))
	assert.False(t, ok)
}
