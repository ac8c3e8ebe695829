package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aledsdavies/operon/core/invariant"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator checks argument values against their ArgSchema.
type Validator struct {
	config *ValidationConfig
	cache  *validatorCache
}

// NewValidator creates a validator. A nil config uses DefaultValidationConfig.
func NewValidator(config *ValidationConfig) *Validator {
	if config == nil {
		config = DefaultValidationConfig()
	}

	v := &Validator{config: config}
	if config.CacheSize > 0 {
		cache, err := newValidatorCache(config.CacheSize)
		invariant.ExpectNoError(err, "validator cache with positive size")
		v.cache = cache
	}
	return v
}

// ArgError is a failed constraint on one named argument.
type ArgError struct {
	Arg      string
	Problems []string // Leaf messages, sorted
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("argument %q: %s", e.Arg, strings.Join(e.Problems, "; "))
}

// ValidateArg validates a value against an argument schema.
// Absent values are not validated; the routine decides what absence means.
func (v *Validator) ValidateArg(schema *ArgSchema, value Value) error {
	if IsAbsent(value) {
		return nil
	}

	validator, err := v.Prepare(schema)
	if err != nil {
		return err
	}

	if err := validator.Validate(ToPlain(value, true)); err != nil {
		return convertValidationError(schema.Name, err)
	}
	return nil
}

// Prepare compiles (or fetches from cache) the validator for a schema.
// Registry construction calls it so bad schemas fail before any dispatch.
func (v *Validator) Prepare(schema *ArgSchema) (*jsonschema.Schema, error) {
	jsonSchema, err := schema.ToJSONSchema()
	if err != nil {
		return nil, fmt.Errorf("schema conversion failed: %w", err)
	}

	schemaBytes, err := json.Marshal(jsonSchema)
	if err != nil {
		return nil, fmt.Errorf("schema marshal failed: %w", err)
	}
	if len(schemaBytes) > v.config.MaxSchemaBytes {
		return nil, fmt.Errorf("schema too large: %d bytes (max: %d)",
			len(schemaBytes), v.config.MaxSchemaBytes)
	}

	depth := measureSchemaDepth(jsonSchema)
	if depth > v.config.MaxSchemaDepth {
		return nil, fmt.Errorf("schema too deep: %d levels (max: %d)",
			depth, v.config.MaxSchemaDepth)
	}

	validator, err := v.getValidator(schemaBytes)
	if err != nil {
		return nil, fmt.Errorf("validator compilation failed: %w", err)
	}
	return validator, nil
}

// CachedValidators reports how many compiled validators are held.
func (v *Validator) CachedValidators() int {
	if v.cache == nil {
		return 0
	}
	return v.cache.len()
}

func (v *Validator) getValidator(schemaJSON []byte) (*jsonschema.Schema, error) {
	if v.cache == nil {
		return v.compileSchema(schemaJSON)
	}

	key := schemaKey(schemaJSON)
	if validator, ok := v.cache.get(key); ok {
		return validator, nil
	}
	validator, err := v.compileSchema(schemaJSON)
	if err != nil {
		return nil, err
	}
	v.cache.put(key, validator)
	return validator, nil
}

// compileSchema compiles one self-contained argument schema. Argument
// schemas never use $ref, so every external load is refused.
func (v *Validator) compileSchema(schemaJSON []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = v.config.StrictFormats
	if compiler.Formats == nil {
		compiler.Formats = make(map[string]func(any) bool)
	}
	for name, check := range compilerFormats() {
		compiler.Formats[name] = check
	}
	compiler.LoadURL = func(url string) (io.ReadCloser, error) {
		return nil, fmt.Errorf("argument schemas cannot load %s", url)
	}

	const url = "schema://arg.json"
	if err := compiler.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

// convertValidationError flattens a jsonschema.ValidationError tree into
// its leaf messages.
func convertValidationError(arg string, err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ArgError{Arg: arg, Problems: []string{err.Error()}}
	}

	var problems []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			msg := e.Message
			if e.InstanceLocation != "" {
				msg = e.InstanceLocation + ": " + msg
			}
			problems = append(problems, msg)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(problems)

	return &ArgError{Arg: arg, Problems: problems}
}

// measureSchemaDepth measures the maximum nesting depth of a JSON Schema
// to prevent resource exhaustion from deeply nested schemas.
func measureSchemaDepth(schema JSONSchema) int {
	return measureDepth(schema, 0)
}

func measureDepth(obj any, currentDepth int) int {
	var m map[string]any
	switch v := obj.(type) {
	case JSONSchema:
		m = map[string]any(v)
	case map[string]any:
		m = v
	default:
		return currentDepth
	}

	maxDepth := currentDepth

	if props, ok := m["properties"].(map[string]any); ok {
		for _, fieldSchema := range props {
			if depth := measureDepth(fieldSchema, currentDepth+1); depth > maxDepth {
				maxDepth = depth
			}
		}
	}

	if items, ok := m["items"]; ok {
		if depth := measureDepth(items, currentDepth+1); depth > maxDepth {
			maxDepth = depth
		}
	}

	for _, key := range []string{"allOf", "anyOf", "oneOf"} {
		if arr, ok := m[key].([]any); ok {
			for _, schema := range arr {
				if depth := measureDepth(schema, currentDepth+1); depth > maxDepth {
					maxDepth = depth
				}
			}
		}
	}

	return maxDepth
}
