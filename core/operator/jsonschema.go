package operator

import (
	"fmt"

	"github.com/aledsdavies/operon/core/types"
)

const draft2020 = "https://json-schema.org/draft/2020-12/schema"

// ToJSONSchema describes the raw params a method accepts.
func (m *MethodSpec) ToJSONSchema() (types.JSONSchema, error) {
	var schema types.JSONSchema

	switch m.Convention.Kind() {
	case ConventionNamed:
		var variants []any
		if m.Accepts.Has(types.ShapeMapping) {
			obj, err := m.namedObjectSchema()
			if err != nil {
				return nil, err
			}
			variants = append(variants, obj)
		}
		if m.Accepts.Has(types.ShapeSequence) {
			arr, err := m.namedArraySchema()
			if err != nil {
				return nil, err
			}
			variants = append(variants, arr)
		}
		if len(variants) == 1 {
			schema = variants[0].(types.JSONSchema)
		} else {
			schema = types.JSONSchema{"anyOf": variants}
		}
	case ConventionSpread:
		schema = types.JSONSchema{"type": "array"}
	case ConventionSingle:
		schema = types.JSONSchema{}
		if m.Accepts != types.AnyShape {
			schema["type"] = jsonTypes(m.Accepts)
		}
	default:
		return nil, fmt.Errorf("%s: no calling convention", m.Name())
	}

	schema["$schema"] = draft2020
	schema["title"] = m.Name()
	if m.Summary != "" {
		schema["description"] = m.Summary
	}
	return schema, nil
}

func (m *MethodSpec) argSchema(name string) (types.JSONSchema, error) {
	arg, ok := m.args[name]
	if !ok {
		return types.JSONSchema{}, nil
	}
	s, err := arg.ToJSONSchema()
	if err != nil {
		return nil, fmt.Errorf("%s: argument %q: %w", m.Name(), name, err)
	}
	return s, nil
}

func (m *MethodSpec) namedObjectSchema() (types.JSONSchema, error) {
	props := make(map[string]any, m.Convention.NameCount())
	for _, name := range m.Convention.names {
		s, err := m.argSchema(name)
		if err != nil {
			return nil, err
		}
		props[name] = s
	}
	return types.JSONSchema{
		"type":       "object",
		"properties": props,
	}, nil
}

func (m *MethodSpec) namedArraySchema() (types.JSONSchema, error) {
	prefix := make([]any, 0, m.Convention.NameCount())
	for _, name := range m.Convention.names {
		s, err := m.argSchema(name)
		if err != nil {
			return nil, err
		}
		prefix = append(prefix, s)
	}
	return types.JSONSchema{
		"type":        "array",
		"prefixItems": prefix,
	}, nil
}

func jsonTypes(set types.ShapeSet) []string {
	var out []string
	if set.Has(types.ShapeSequence) {
		out = append(out, "array")
	}
	if set.Has(types.ShapeMapping) {
		out = append(out, "object")
	}
	if set.Has(types.ShapeScalar) {
		out = append(out, "string", "number", "boolean", "null")
	}
	return out
}
