package questions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/abhisek/palate/internal/store"
)

// bankSchema validates externally authored question files.
const bankSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"level": {"type": "integer", "minimum": 1},
			"index": {"type": "integer", "minimum": 0},
			"text": {"type": "string", "minLength": 1},
			"options": {"type": "array", "minItems": 2, "items": {"type": "string"}},
			"correct_option": {"type": "integer", "minimum": 0},
			"difficulty": {"type": "number", "minimum": 0, "maximum": 10}
		},
		"required": ["id", "level", "index", "text", "options", "correct_option"],
		"additionalProperties": false
	}
}`

// ParseBank validates and decodes a question bank document.
func ParseBank(raw []byte) ([]store.Question, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse question bank JSON: %w", err)
	}

	schema, err := compiledBankSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("question bank schema validation: %w", err)
	}

	var qs []store.Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}

	for _, q := range qs {
		if q.CorrectOption >= len(q.Options) {
			return nil, fmt.Errorf("question %s: correct_option %d out of range", q.ID, q.CorrectOption)
		}
	}
	return qs, nil
}

// LoadQuestions reads and parses a question bank file.
func LoadQuestions(path string) ([]store.Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return ParseBank(raw)
}

// LoadBank reads and parses a question bank file into a StaticBank.
func LoadBank(path string) (*StaticBank, error) {
	qs, err := LoadQuestions(path)
	if err != nil {
		return nil, err
	}
	return NewStaticBank(qs), nil
}

func compiledBankSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(bankSchema)))
	if err != nil {
		return nil, fmt.Errorf("parse bank schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema://question-bank.json", doc); err != nil {
		return nil, fmt.Errorf("add bank schema: %w", err)
	}
	schema, err := c.Compile("schema://question-bank.json")
	if err != nil {
		return nil, fmt.Errorf("compile bank schema: %w", err)
	}
	return schema, nil
}

var _ Bank = (*StoreBank)(nil)
var _ Bank = (*StaticBank)(nil)
