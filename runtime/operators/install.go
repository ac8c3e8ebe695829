// Package operators is the built-in operator catalog: the _object, _array,
// _math, _json, _yaml, _semver and _net families. Each family registers its method specs
// and host routines together so the two can never drift apart.
package operators

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aledsdavies/operon/core/dispatch"
	"github.com/aledsdavies/operon/core/operator"
	"github.com/aledsdavies/operon/core/types"
)

// Family installs one operator family.
type Family func(b *operator.Builder, c *dispatch.CatalogBuilder)

// Families lists the built-in families in install order.
var Families = []Family{
	Object,
	Array,
	Math,
	JSON,
	YAML,
	Semver,
	Net,
}

// Install registers every built-in family.
func Install(b *operator.Builder, c *dispatch.CatalogBuilder) {
	for _, family := range Families {
		family(b, c)
	}
}

// Build returns the registry and host catalog of the built-in families.
func Build(config *types.ValidationConfig) (*operator.Registry, *dispatch.HostCatalog, error) {
	b := operator.NewBuilder().WithValidation(config)
	c := dispatch.NewCatalogBuilder()
	Install(b, c)

	reg, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	catalog, err := c.Build()
	if err != nil {
		return nil, nil, err
	}
	return reg, catalog, nil
}

// NewEngine builds an engine over the built-in families.
func NewEngine(opts ...dispatch.Option) (*dispatch.Engine, error) {
	reg, catalog, err := Build(nil)
	if err != nil {
		return nil, err
	}
	return dispatch.NewEngine(reg, catalog, opts...)
}

// number converts a numeric argument to float64.
func number(name string, v types.Value) (float64, error) {
	if types.IsAbsent(v) {
		return 0, fmt.Errorf("%s is required", name)
	}
	f, ok := types.AsFloat(v)
	if !ok {
		return 0, fmt.Errorf("%s must be a number, got %s", name, types.Describe(v))
	}
	return f, nil
}

// finite wraps a float result, rejecting values documents cannot hold.
func finite(f float64) (types.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("result %v is not a finite number", f)
	}
	return types.Number(f), nil
}

// text renders a value the way string coercion does in the expression
// language: containers of scalars join with commas, mappings are opaque.
func text(v types.Value) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case []types.Value:
		parts := make([]string, len(t))
		for i, el := range t {
			if el == nil || types.IsAbsent(el) {
				continue
			}
			parts[i] = text(el)
		}
		return strings.Join(parts, ",")
	case *types.Map:
		return "[object Object]"
	}
	if types.IsAbsent(v) {
		return "undefined"
	}
	if f, ok := types.AsFloat(v); ok {
		switch n := types.Number(f).(type) {
		case int64:
			return strconv.FormatInt(n, 10)
		default:
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
	}
	return fmt.Sprint(v)
}
