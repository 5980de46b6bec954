package session

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/state.json
var schemaFiles embed.FS

const stateSchemaURL = "https://century.lox.dev/schemas/state.json"

var (
	stateSchemaOnce sync.Once
	stateSchema     *jsonschema.Schema
	stateSchemaErr  error
)

func compileStateSchema() (*jsonschema.Schema, error) {
	stateSchemaOnce.Do(func() {
		data, err := schemaFiles.ReadFile("schemas/state.json")
		if err != nil {
			stateSchemaErr = fmt.Errorf("failed to read state schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(stateSchemaURL, bytes.NewReader(data)); err != nil {
			stateSchemaErr = fmt.Errorf("failed to add state schema: %w", err)
			return
		}
		stateSchema, stateSchemaErr = compiler.Compile(stateSchemaURL)
	})
	return stateSchema, stateSchemaErr
}

// validateState checks a saved-game blob against the state schema before
// it is decoded.
func validateState(data []byte) error {
	schema, err := compileStateSchema()
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return nil
}
