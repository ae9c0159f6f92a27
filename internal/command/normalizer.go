package command

import (
	"bytes"
	"encoding/json"

	"github.com/roach88/recipedecider/internal/recipe"
)

// Parser attempts to decode one payload shape.
//
// matched is false when the payload is not this parser's shape, letting the
// next parser try. When matched is true the returned error (if any) is final.
type Parser func(payload []byte, obj map[string]json.RawMessage) (cmd recipe.Command, matched bool, err error)

// Normalizer runs parsers in order against a payload.
type Normalizer struct {
	parsers []Parser
}

// New returns a Normalizer with the default chain: loose parsers first, then
// the strict contract parser.
func New() *Normalizer {
	return &Normalizer{parsers: DefaultParsers()}
}

// NewWithParsers returns a Normalizer that tries exactly the given parsers.
func NewWithParsers(parsers ...Parser) *Normalizer {
	cp := make([]Parser, len(parsers))
	copy(cp, parsers)
	return &Normalizer{parsers: cp}
}

// DefaultParsers lists the loose parsers followed by the strict parser.
func DefaultParsers() []Parser {
	return []Parser{
		parseLooseRoll,
		parseLooseDelete,
		parseLooseList,
		parseLooseRecipe,
		ParseStrict,
	}
}

// Normalize decodes payload into exactly one Command or fails with
// MALFORMED_REQUEST.
func (n *Normalizer) Normalize(payload []byte) (recipe.Command, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return recipe.Command{}, recipe.Malformed("empty payload", nil)
	}

	// Objects are decoded once and shared; strict unit variants may be bare
	// strings, so a non-object payload is not an error here.
	var obj map[string]json.RawMessage
	if payload[0] == '{' {
		if err := json.Unmarshal(payload, &obj); err != nil {
			return recipe.Command{}, recipe.Malformed("payload is not valid JSON", err)
		}
	}

	for _, parse := range n.parsers {
		cmd, matched, err := parse(payload, obj)
		if !matched {
			continue
		}
		if err != nil {
			return recipe.Command{}, err
		}
		return cmd, nil
	}
	return recipe.Command{}, recipe.Malformed("unrecognized command payload", nil)
}
