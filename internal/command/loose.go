package command

import (
	"bytes"
	"encoding/json"

	"github.com/roach88/recipedecider/internal/recipe"
)

// parseLooseRoll matches {"RollRecipe": true}.
func parseLooseRoll(_ []byte, obj map[string]json.RawMessage) (recipe.Command, bool, error) {
	if !isTrue(obj["RollRecipe"]) {
		return recipe.Command{}, false, nil
	}
	return recipe.Roll(), true, nil
}

// parseLooseList matches {"GetRecipes": true}, the form the UI types declare.
func parseLooseList(_ []byte, obj map[string]json.RawMessage) (recipe.Command, bool, error) {
	if !isTrue(obj["GetRecipes"]) {
		return recipe.Command{}, false, nil
	}
	return recipe.List(), true, nil
}

// parseLooseDelete matches {"DeleteRecipe": {"index": <integer>}}.
// Anything else under DeleteRecipe is left for the strict parser to reject.
func parseLooseDelete(_ []byte, obj map[string]json.RawMessage) (recipe.Command, bool, error) {
	raw, ok := obj["DeleteRecipe"]
	if !ok {
		return recipe.Command{}, false, nil
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return recipe.Command{}, false, nil
	}
	index, ok := parseIndex(body["index"])
	if !ok {
		return recipe.Command{}, false, nil
	}
	return recipe.Delete(index), true, nil
}

// parseLooseRecipe matches a bare {"name": ..., "instructions": ...} object.
func parseLooseRecipe(_ []byte, obj map[string]json.RawMessage) (recipe.Command, bool, error) {
	if len(obj) != 2 {
		return recipe.Command{}, false, nil
	}
	_, hasName := obj["name"]
	_, hasInstructions := obj["instructions"]
	if !hasName || !hasInstructions {
		return recipe.Command{}, false, nil
	}

	var f RecipeFields
	if err := json.Unmarshal(obj["name"], &f.Name); err != nil {
		return recipe.Command{}, true, recipe.Malformed("name must be a string", err)
	}
	if err := json.Unmarshal(obj["instructions"], &f.Instructions); err != nil {
		return recipe.Command{}, true, recipe.Malformed("instructions must be a string", err)
	}
	r, err := f.Recipe()
	if err != nil {
		return recipe.Command{}, true, err
	}
	return recipe.Add(r), true, nil
}

func isTrue(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("true"))
}

// parseIndex accepts a JSON integer that fits an int. Negative values are
// accepted here and rejected by the store with INDEX_OUT_OF_RANGE.
func parseIndex(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return 0, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	if int64(int(i)) != i {
		return 0, false
	}
	return int(i), true
}
