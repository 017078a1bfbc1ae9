package metadata

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed record.schema.json
var recordSchemaJSON []byte

const recordSchemaURL = "https://getrelease.local/record.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func recordSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(recordSchemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("parse record schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(recordSchemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add record schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(recordSchemaURL)
	})
	return schema, schemaErr
}

// Validate checks raw record JSON against the record schema.
func Validate(data []byte) error {
	sch, err := recordSchema()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse record: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}
