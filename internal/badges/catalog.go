package badges

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/abhisek/palate/internal/store"
)

// catalogSchema validates externally authored badge catalog files
// before they reach the store.
const catalogSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"name": {"type": "string", "minLength": 1},
			"category": {"type": "string"},
			"rarity": {"type": "string"},
			"requirements": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"properties": {
						"type": {
							"enum": ["records_count", "quiz_correct", "level_reached", "xp_earned", "streak_days"]
						},
						"target": {"type": "integer", "minimum": 1}
					},
					"required": ["type", "target"],
					"additionalProperties": false
				}
			}
		},
		"required": ["id", "name", "requirements"],
		"additionalProperties": false
	}
}`

// ParseCatalog validates and decodes a badge catalog document.
func ParseCatalog(raw []byte) ([]store.Badge, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse catalog JSON: %w", err)
	}

	schema, err := compiledCatalogSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("catalog schema validation: %w", err)
	}

	var catalog []store.Badge
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]bool, len(catalog))
	for _, b := range catalog {
		if seen[b.ID] {
			return nil, fmt.Errorf("duplicate badge id %q", b.ID)
		}
		seen[b.ID] = true
	}
	return catalog, nil
}

// LoadCatalog reads and parses a badge catalog file.
func LoadCatalog(path string) ([]store.Badge, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(raw)
}

func compiledCatalogSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(catalogSchema)))
	if err != nil {
		return nil, fmt.Errorf("parse catalog schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema://badge-catalog.json", doc); err != nil {
		return nil, fmt.Errorf("add catalog schema: %w", err)
	}
	schema, err := c.Compile("schema://badge-catalog.json")
	if err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}
	return schema, nil
}
