package parser

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// defaultSchemaDoc describes the recognized declarative workflow format
// (§6.1): name/version/steps/transitions/metadata at the top level,
// with enough shape constraints to catch the common authoring mistakes
// (missing name, steps neither a list nor a map, malformed transition
// records) without trying to re-validate every field the normal parse
// path already validates in depth (retry bounds, timeout grammar).
const defaultSchemaDoc = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "steps"],
  "properties": {
    "name": {"type": "string", "pattern": "^[A-Za-z][A-Za-z0-9_-]*$"},
    "version": {"type": "string"},
    "steps": {
      "oneOf": [
        {"type": "array", "minItems": 1},
        {"type": "object", "minProperties": 1}
      ]
    },
    "transitions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["from", "to"],
        "properties": {
          "from": {"type": "string"},
          "to": {"type": "string"},
          "condition": {"type": "string"}
        }
      }
    },
    "metadata": {"type": "object"}
  }
}`

type jsonSchema struct {
	compiled *jsonschema.Schema
}

func (s *jsonSchema) Validate(doc map[string]interface{}) error {
	// jsonschema validates against the generic decoded-JSON shape, so
	// round-trip through encoding/json to normalize numeric/string
	// types the same way a JSON decode would.
	buf, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document for validation: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(buf, &generic); err != nil {
		return fmt.Errorf("decode document for validation: %w", err)
	}
	return s.compiled.Validate(generic)
}

// WithSchema opts into schema validation against the bundled
// declarative-format schema before normalization.
func WithSchema() Option {
	return func(o *options) {
		o.schema = mustCompileDefaultSchema()
	}
}

// WithCustomSchema opts into schema validation against a caller-supplied
// JSON Schema document.
func WithCustomSchema(schemaJSON []byte) Option {
	return func(o *options) {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
			panic(fmt.Sprintf("parser: invalid custom schema: %v", err))
		}
		compiled, err := compiler.Compile("schema.json")
		if err != nil {
			panic(fmt.Sprintf("parser: schema compile failed: %v", err))
		}
		o.schema = &jsonSchema{compiled: compiled}
	}
}

var defaultSchemaCache *jsonSchema

func mustCompileDefaultSchema() *jsonSchema {
	if defaultSchemaCache != nil {
		return defaultSchemaCache
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("default.json", bytes.NewReader([]byte(defaultSchemaDoc))); err != nil {
		panic(fmt.Sprintf("parser: invalid bundled schema: %v", err))
	}
	compiled, err := compiler.Compile("default.json")
	if err != nil {
		panic(fmt.Sprintf("parser: bundled schema compile failed: %v", err))
	}
	defaultSchemaCache = &jsonSchema{compiled: compiled}
	return defaultSchemaCache
}
