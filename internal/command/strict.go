package command

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/recipedecider/internal/recipe"
)

// ParseStrict decodes the externally tagged contract shape:
//
//	{"AddRecipe": {"name": "...", "instructions": "..."}}
//	{"DeleteRecipe": {"index": 0}}
//	"GetRecipes" | {"GetRecipes": null}
//	"RollRecipe" | {"RollRecipe": null}
//
// It is the last parser in the default chain, so it always matches and turns
// every failure into MALFORMED_REQUEST.
func ParseStrict(payload []byte, obj map[string]json.RawMessage) (recipe.Command, bool, error) {
	if obj == nil {
		var tag string
		if err := json.Unmarshal(payload, &tag); err != nil {
			return recipe.Command{}, true, recipe.Malformed("payload must be a JSON object or unit variant name", err)
		}
		cmd, err := unitVariant(tag)
		return cmd, true, err
	}

	if len(obj) != 1 {
		return recipe.Command{}, true, recipe.Malformed(fmt.Sprintf("expected exactly one variant tag, got %d keys", len(obj)), nil)
	}
	for tag, body := range obj {
		cmd, err := taggedVariant(tag, body)
		return cmd, true, err
	}
	return recipe.Command{}, true, recipe.Malformed("unreachable", nil)
}

func unitVariant(tag string) (recipe.Command, error) {
	switch tag {
	case "GetRecipes":
		return recipe.List(), nil
	case "RollRecipe":
		return recipe.Roll(), nil
	default:
		return recipe.Command{}, recipe.Malformed(fmt.Sprintf("unknown unit variant %q", tag), nil)
	}
}

func taggedVariant(tag string, body json.RawMessage) (recipe.Command, error) {
	switch tag {
	case "AddRecipe":
		var f RecipeFields
		if err := decodeStrict(body, &f); err != nil {
			return recipe.Command{}, recipe.Malformed("invalid AddRecipe body", err)
		}
		r, err := f.Recipe()
		if err != nil {
			return recipe.Command{}, err
		}
		return recipe.Add(r), nil

	case "DeleteRecipe":
		var req struct {
			Index *int `json:"index"`
		}
		if err := decodeStrict(body, &req); err != nil {
			return recipe.Command{}, recipe.Malformed("invalid DeleteRecipe body", err)
		}
		if req.Index == nil {
			return recipe.Command{}, recipe.Malformed("DeleteRecipe requires an index", nil)
		}
		return recipe.Delete(*req.Index), nil

	case "GetRecipes", "RollRecipe":
		if !isNull(body) {
			return recipe.Command{}, recipe.Malformed(fmt.Sprintf("%s takes no body", tag), nil)
		}
		return unitVariant(tag)

	default:
		return recipe.Command{}, recipe.Malformed(fmt.Sprintf("unknown variant %q", tag), nil)
	}
}

func decodeStrict(body json.RawMessage, v any) error {
	if isNull(body) {
		return fmt.Errorf("body is null")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
