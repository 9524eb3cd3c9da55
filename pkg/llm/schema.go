package llm

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidResponse marks model output that is syntactically or
// structurally unusable. Callers match it with errors.Is.
var ErrInvalidResponse = errors.New("invalid model response")

// draftSchema is the contract every provider response must satisfy
// before the pipeline touches it. Model output that validates here can
// still be thin, but it can never be structurally surprising.
const draftSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["title", "content", "walkable_stops"],
	"properties": {
		"title": {"type": "string", "minLength": 1},
		"description": {"type": "string"},
		"content": {"type": "string", "minLength": 50},
		"walkable_stops": {
			"type": "array",
			"minItems": 1,
			"maxItems": 12,
			"items": {
				"type": "object",
				"required": ["name"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"description": {"type": "string"},
					"highlights": {
						"type": "array",
						"items": {"type": "string"}
					}
				}
			}
		}
	}
}`

var compiledDraftSchema = jsonschema.MustCompileString("draft.schema.json", draftSchema)

// ParseDraft strips markdown fences, validates against the draft
// schema and unmarshals. Returns an error a failover chain can treat
// as invalid_response.
func ParseDraft(text string) (*Draft, error) {
	cleaned := CleanJSONBlock(text)

	var raw any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("%w: not valid JSON: %v", ErrInvalidResponse, err)
	}
	if err := compiledDraftSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: schema validation failed: %v", ErrInvalidResponse, err)
	}

	var d Draft
	if err := json.Unmarshal([]byte(cleaned), &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &d, nil
}
