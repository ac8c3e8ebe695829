package operators

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/aledsdavies/operon/core/dispatch"
	"github.com/aledsdavies/operon/core/operator"
	"github.com/aledsdavies/operon/core/types"
	"github.com/aledsdavies/operon/runtime/document"
)

const (
	jsonOp = "_json"
	yamlOp = "_yaml"
)

// JSON installs the _json family.
func JSON(b *operator.Builder, c *dispatch.CatalogBuilder) {
	b.Operator(jsonOp).Summary("JSON text conversion").
		Method("parse").Single().Accepts(types.ShapeScalar).Class().Pure().
		Summary("Value of a JSON string; key order is kept").Done().
		Method("stringify").Single().AcceptsAny().Class().Pure().
		Summary("Compact JSON text of a value").Done()

	c.Class(jsonOp, "parse", dispatch.Exactly(1), jsonParse).
		Class(jsonOp, "stringify", dispatch.Exactly(1), jsonStringify)
}

// YAML installs the _yaml family.
func YAML(b *operator.Builder, c *dispatch.CatalogBuilder) {
	b.Operator(yamlOp).Summary("YAML text conversion").
		Method("parse").Single().Accepts(types.ShapeScalar).Class().Pure().
		Summary("Value of a YAML string").Done().
		Method("stringify").Single().AcceptsAny().Class().Pure().
		Summary("YAML text of a value").Done()

	c.Class(yamlOp, "parse", dispatch.Exactly(1), yamlParse).
		Class(yamlOp, "stringify", dispatch.Exactly(1), yamlStringify)
}

func source(v types.Value) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument must be a string, got %s", types.Describe(v))
	}
	return s, nil
}

func jsonParse(args []types.Value) (types.Value, error) {
	s, err := source(args[0])
	if err != nil {
		return nil, err
	}
	return document.DecodeJSON(strings.NewReader(s))
}

func jsonStringify(args []types.Value) (types.Value, error) {
	raw, err := document.MarshalJSON(args[0])
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func yamlParse(args []types.Value) (types.Value, error) {
	s, err := source(args[0])
	if err != nil {
		return nil, err
	}
	return document.DecodeValue(strings.NewReader(s))
}

func yamlStringify(args []types.Value) (types.Value, error) {
	var buf bytes.Buffer
	if err := document.EncodeYAML(&buf, args[0]); err != nil {
		return nil, err
	}
	return buf.String(), nil
}
