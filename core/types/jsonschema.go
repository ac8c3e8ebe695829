package types

import (
	"encoding/json"
	"fmt"
)

// JSONSchema represents a JSON Schema Draft 2020-12 document
type JSONSchema map[string]any

// ToJSONSchema converts an ArgSchema to JSON Schema format
func (a *ArgSchema) ToJSONSchema() (JSONSchema, error) {
	schema := make(JSONSchema)

	switch len(a.Types) {
	case 0:
	case 1:
		schema["type"] = string(a.Types[0])
	default:
		types := make([]string, len(a.Types))
		for i, t := range a.Types {
			types[i] = string(t)
		}
		schema["type"] = types
	}

	if a.Description != "" {
		schema["description"] = a.Description
	}

	// Numeric constraints
	if a.Minimum != nil {
		schema["minimum"] = *a.Minimum
	}
	if a.Maximum != nil {
		schema["maximum"] = *a.Maximum
	}

	// Length constraints apply to strings and arrays alike
	if a.MinLength != nil {
		schema["minLength"] = *a.MinLength
		schema["minItems"] = *a.MinLength
	}
	if a.MaxLength != nil {
		schema["maxLength"] = *a.MaxLength
		schema["maxItems"] = *a.MaxLength
	}
	if a.Pattern != nil {
		schema["pattern"] = *a.Pattern
	}

	if a.Format != nil {
		schema["format"] = string(*a.Format)
		if IsCustomFormat(*a.Format) {
			schema["x-operon-format"] = string(*a.Format)
		}
	}

	if len(a.Enum) > 0 {
		schema["enum"] = a.Enum
	}

	if a.Items != nil {
		items, err := a.Items.ToJSONSchema()
		if err != nil {
			return nil, fmt.Errorf("array items: %w", err)
		}
		schema["items"] = items
	}

	return schema, nil
}

// ToJSON serializes the JSON Schema to JSON bytes
func (j JSONSchema) ToJSON() ([]byte, error) {
	return json.MarshalIndent(j, "", "  ")
}
