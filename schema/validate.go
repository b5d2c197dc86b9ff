package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const dashboardSchemaFile = "dashboard.schema.json"

var (
	dashboardSchema *jsonschema.Schema
	compileOnce     sync.Once
	compileErr      error
)

// compileSchemas compiles the embedded schema once.
func compileSchemas() error {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()

		data, err := FS.ReadFile(dashboardSchemaFile)
		if err != nil {
			compileErr = fmt.Errorf("read dashboard schema: %w", err)
			return
		}

		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal dashboard schema: %w", err)
			return
		}

		if err := compiler.AddResource(dashboardSchemaFile, doc); err != nil {
			compileErr = fmt.Errorf("add dashboard schema resource: %w", err)
			return
		}

		dashboardSchema, err = compiler.Compile(dashboardSchemaFile)
		if err != nil {
			compileErr = fmt.Errorf("compile dashboard schema: %w", err)
			return
		}
	})

	return compileErr
}

// ValidateDashboard validates a decoded dashboard document. The value is
// round-tripped through JSON so YAML and TOML decoders can both feed it.
func ValidateDashboard(doc any) error {
	if err := compileSchemas(); err != nil {
		return err
	}
	if doc == nil {
		doc = map[string]any{}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode dashboard config: %w", err)
	}
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := dashboardSchema.Validate(v); err != nil {
		return fmt.Errorf("dashboard config validation failed: %w", err)
	}
	return nil
}
