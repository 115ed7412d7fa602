package provider

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed fallbacks.schema.json
var fallbacksSchemaJSON string

// FallbacksConfig is the validated on-disk provider fallback document.
type FallbacksConfig struct {
	ConfigVersion string              `json:"config_version"`
	Fallbacks     map[string][]string `json:"fallbacks"`
}

var (
	fallbacksSchemaOnce sync.Once
	fallbacksSchema     *jsonschema.Schema
	fallbacksSchemaErr  error
)

// DefaultFallbacks is the compiled-in fallback mapping used when no
// configuration file is given.
func DefaultFallbacks() map[string][]string {
	return map[string][]string{
		"en": {"wikipediaen"},
		"it": {"treccani"},
	}
}

// LoadFallbacks reads and validates a fallback configuration file. An empty
// path yields the compiled-in defaults.
func LoadFallbacks(path string) (map[string][]string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return DefaultFallbacks(), nil
	}

	payload, err := os.ReadFile(trimmed)
	if err != nil {
		return nil, fmt.Errorf("read providers config: %w", err)
	}

	cfg, err := ParseFallbacksConfig(payload)
	if err != nil {
		return nil, fmt.Errorf("providers config %s: %w", trimmed, err)
	}
	return cfg.Fallbacks, nil
}

// ParseFallbacksConfig validates payload against the embedded schema and
// decodes it.
func ParseFallbacksConfig(payload []byte) (*FallbacksConfig, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode config JSON: %w", err)
	}

	schema, err := loadFallbacksSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize config JSON: %w", err)
	}

	var cfg FallbacksConfig
	if err := json.Unmarshal(normalized, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func loadFallbacksSchema() (*jsonschema.Schema, error) {
	fallbacksSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("fallbacks.schema.json", strings.NewReader(fallbacksSchemaJSON)); err != nil {
			fallbacksSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("fallbacks.schema.json")
		if err != nil {
			fallbacksSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		fallbacksSchema = schema
	})
	return fallbacksSchema, fallbacksSchemaErr
}

func decodeStrictJSON(payload []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(new(any)); err != io.EOF {
		return nil, fmt.Errorf("trailing data after JSON document")
	}
	return value, nil
}
