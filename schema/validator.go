// Package envelopeschema validates the JSON envelopes the pipeline writes
// and serves against their embedded JSON Schema documents.
package envelopeschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed bite_reports.schema.json
var biteReportsSchemaJSON string

//go:embed conditions.schema.json
var conditionsSchemaJSON string

type compiled struct {
	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

var (
	biteReportsCompiled compiled
	conditionsCompiled  compiled
)

// ValidateBiteReports checks a bite-reports envelope document.
func ValidateBiteReports(payload json.RawMessage) error {
	return validate(payload, &biteReportsCompiled, "bite_reports.schema.json", biteReportsSchemaJSON)
}

// ValidateConditions checks a marine-conditions envelope document.
func ValidateConditions(payload json.RawMessage) error {
	return validate(payload, &conditionsCompiled, "conditions.schema.json", conditionsSchemaJSON)
}

func validate(payload json.RawMessage, c *compiled, name, source string) error {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return fmt.Errorf("decode envelope JSON: %w", err)
	}

	schema, err := c.load(name, source)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func (c *compiled) load(name, source string) (*jsonschema.Schema, error) {
	c.once.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource(name, strings.NewReader(source)); err != nil {
			c.err = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile(name)
		if err != nil {
			c.err = fmt.Errorf("compile schema: %w", err)
			return
		}
		c.schema = schema
	})

	if c.err != nil {
		return nil, c.err
	}
	if c.schema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return c.schema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("envelope is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("envelope contains trailing content")
	}

	return value, nil
}
