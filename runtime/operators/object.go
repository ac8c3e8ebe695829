package operators

import (
	"fmt"
	"strconv"

	"github.com/aledsdavies/operon/core/dispatch"
	"github.com/aledsdavies/operon/core/operator"
	"github.com/aledsdavies/operon/core/types"
)

const objectOp = "_object"

var containers = []types.Shape{types.ShapeSequence, types.ShapeMapping}

// Object installs the _object family.
func Object(b *operator.Builder, c *dispatch.CatalogBuilder) {
	b.Operator(objectOp).
		Summary("Operations over mappings").
		Method("hasOwnProperty").Named("on", "prop").
		Accepts(containers...).Instance(containers...).Pure().
		Summary("Whether the subject has the property (an index for sequences)").Done().
		Method("keys").Single().Accepts(types.ShapeMapping).Class().Pure().
		Summary("Keys of a mapping, in order").Done().
		Method("values").Single().Accepts(types.ShapeMapping).Class().Pure().
		Summary("Values of a mapping, in key order").Done().
		Method("entries").Single().Accepts(types.ShapeMapping).Class().Pure().
		Summary("[key, value] pairs of a mapping").Done().
		Method("assign").Spread().Accepts(types.ShapeSequence).Class().Pure().
		Summary("Merge mappings left to right into a new mapping").Done().
		Method("defineProperty").Named("on", "key", "descriptor").
		Accepts(containers...).Class().Pure().
		Arg(types.Arg("on", types.TypeObject, types.TypeArray)).
		Arg(types.Arg("key", types.TypeString, types.TypeInt)).
		Arg(types.Arg("descriptor", types.TypeObject)).
		Summary("Copy of a mapping with one property set from a descriptor").Done()

	c.Instance(objectOp, "hasOwnProperty", dispatch.Exactly(1), hasOwnProperty).
		Class(objectOp, "keys", dispatch.Exactly(1), objectKeys).
		Class(objectOp, "values", dispatch.Exactly(1), objectValues).
		Class(objectOp, "entries", dispatch.Exactly(1), objectEntries).
		Class(objectOp, "assign", dispatch.AtLeast(1), objectAssign).
		Class(objectOp, "defineProperty", dispatch.Exactly(3), defineProperty)
}

func hasOwnProperty(subject types.Value, args []types.Value) (types.Value, error) {
	prop := text(args[0])
	switch s := subject.(type) {
	case *types.Map:
		return s.Has(prop), nil
	case []types.Value:
		i, ok := arrayIndex(prop)
		return ok && i < len(s), nil
	}
	return false, nil
}

// arrayIndex parses a canonical non-negative index ("0", "12", not "01").
func arrayIndex(s string) (int, bool) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 || strconv.Itoa(i) != s {
		return 0, false
	}
	return i, true
}

func objectKeys(args []types.Value) (types.Value, error) {
	m := args[0].(*types.Map)
	out := make([]types.Value, 0, m.Len())
	for _, k := range m.Keys() {
		out = append(out, k)
	}
	return out, nil
}

func objectValues(args []types.Value) (types.Value, error) {
	return args[0].(*types.Map).Values(), nil
}

func objectEntries(args []types.Value) (types.Value, error) {
	m := args[0].(*types.Map)
	out := make([]types.Value, 0, m.Len())
	m.Range(func(key string, value types.Value) bool {
		out = append(out, []types.Value{key, value})
		return true
	})
	return out, nil
}

// objectAssign merges into a fresh mapping; the first argument is not
// mutated. Null sources are skipped.
func objectAssign(args []types.Value) (types.Value, error) {
	out := types.NewMap()
	for i, a := range args {
		switch src := a.(type) {
		case nil:
		case *types.Map:
			src.Range(func(key string, value types.Value) bool {
				out.Set(key, types.Clone(value))
				return true
			})
		case []types.Value:
			for j, el := range src {
				out.Set(strconv.Itoa(j), types.Clone(el))
			}
		default:
			if i == 0 {
				return nil, fmt.Errorf("target must be a mapping, got %s", types.Describe(a))
			}
		}
	}
	return out, nil
}

// defineProperty supports data descriptors only ({value: ...}).
func defineProperty(args []types.Value) (types.Value, error) {
	on, key, descriptor := args[0], args[1], args[2]
	if types.IsAbsent(key) {
		return nil, fmt.Errorf("key is required")
	}
	desc, ok := descriptor.(*types.Map)
	if !ok {
		return nil, fmt.Errorf("property descriptor must be a mapping, got %s", types.Describe(descriptor))
	}
	if desc.Has("get") || desc.Has("set") {
		return nil, fmt.Errorf("accessor descriptors are not supported")
	}
	value, _ := desc.Get("value")
	value = types.Clone(value)

	switch target := on.(type) {
	case *types.Map:
		out := types.Clone(target).(*types.Map)
		out.Set(text(key), value)
		return out, nil
	case []types.Value:
		i, ok := arrayIndex(text(key))
		if !ok {
			return nil, fmt.Errorf("key %q is not a sequence index", text(key))
		}
		out := types.Clone(target).([]types.Value)
		for len(out) <= i {
			out = append(out, nil)
		}
		out[i] = value
		return out, nil
	}
	return nil, fmt.Errorf("target must be a mapping or sequence, got %s", types.Describe(on))
}
