package store

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/roach88/recipedecider/internal/recipe"
)

// v1State is the body stored under the "V1" tag.
type v1State struct {
	Recipes []recipe.Recipe `json:"recipes"`
}

// Snapshot serializes the collection, tagged with recipe.SchemaVersion.
func (s *Store) Snapshot() ([]byte, error) {
	envelope := map[string]v1State{
		recipe.SchemaVersion: {Recipes: s.List()},
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// Restore rebuilds a store from a snapshot produced by Snapshot.
//
// Restore never fails: malformed input yields a fresh empty store. The
// options apply to the returned store either way.
func Restore(data []byte, opts ...Option) *Store {
	s := New(opts...)

	records, err := decodeV1(data)
	if err != nil {
		slog.Warn("snapshot unreadable, starting with empty collection", "error", err, "bytes", len(data))
		return s
	}
	s.records = append(s.records, records...)
	return s
}

// Version reports the schema tag of a snapshot blob, or false when the blob
// is not a single-tag JSON object.
func Version(data []byte) (string, bool) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil || len(envelope) != 1 {
		return "", false
	}
	for tag := range envelope {
		return tag, true
	}
	return "", false
}

func decodeV1(data []byte) ([]recipe.Recipe, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if len(envelope) != 1 {
		return nil, fmt.Errorf("expected exactly one version tag, got %d", len(envelope))
	}
	body, ok := envelope[recipe.SchemaVersion]
	if !ok {
		tag, _ := Version(data)
		return nil, fmt.Errorf("unrecognized schema version %q", tag)
	}

	var state struct {
		Recipes *[]struct {
			Name         *string `json:"name"`
			Instructions *string `json:"instructions"`
		} `json:"recipes"`
	}
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("decode %s body: %w", recipe.SchemaVersion, err)
	}
	if state.Recipes == nil {
		return nil, fmt.Errorf("%s body has no recipes", recipe.SchemaVersion)
	}

	records := make([]recipe.Recipe, 0, len(*state.Recipes))
	for i, r := range *state.Recipes {
		if r.Name == nil || r.Instructions == nil {
			return nil, fmt.Errorf("recipe %d: missing name or instructions", i)
		}
		records = append(records, recipe.Recipe{Name: *r.Name, Instructions: *r.Instructions})
	}
	return records, nil
}
