package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "catalog.schema.json"

var (
	compiledSchema *jsonschema.Schema
	compileErr     error
	compileOnce    sync.Once
)

func catalogSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		parsed, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("parse catalog schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		compiler.DefaultDraft(jsonschema.Draft7)
		if err := compiler.AddResource(schemaURL, parsed); err != nil {
			compileErr = fmt.Errorf("add catalog schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, compileErr
}

// LoadFile reads a catalog from path. The format follows the extension:
// .yaml and .yml are YAML, anything else is JSON.
func LoadFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON validates and decodes a JSON catalog document.
func ParseJSON(data []byte) (Catalog, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse catalog JSON: %w", err)
	}
	return decode(doc)
}

// ParseYAML validates and decodes a YAML catalog document.
func ParseYAML(data []byte) (Catalog, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog YAML: %w", err)
	}
	// Round-trip through JSON so the validator sees JSON types only.
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize catalog YAML: %w", err)
	}
	return ParseJSON(normalized)
}

func decode(doc any) (Catalog, error) {
	schema, err := catalogSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return nil, fmt.Errorf("invalid catalog: %s", describe(verr))
		}
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	var apps Catalog
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &apps,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create catalog decoder: %w", err)
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := apps.validateUnique(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	if apps == nil {
		apps = Catalog{}
	}
	return apps, nil
}

// describe flattens a validation error tree into "path: message" pairs.
func describe(verr *jsonschema.ValidationError) string {
	var parts []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			location := "/" + strings.Join(e.InstanceLocation, "/")
			parts = append(parts, fmt.Sprintf("%s: %s", location, e.Error()))
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(verr)
	return strings.Join(parts, "; ")
}
