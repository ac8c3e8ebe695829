package dispatch

import (
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/aledsdavies/operon/core/operator"
	"github.com/aledsdavies/operon/core/types"
	"github.com/stretchr/testify/require"
)

// fixture is a small _object/_list family wired the way runtime/operators
// wires the real catalog.
type fixture struct {
	reg     *operator.Registry
	catalog *HostCatalog
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	b := operator.NewBuilder()
	b.Operator("_object").
		Method("keys").Single().Accepts(types.ShapeMapping).Class().Pure().Done().
		Method("hasOwnProperty").Named("on", "prop").
		Accepts(types.ShapeMapping, types.ShapeSequence).
		Instance(types.ShapeMapping, types.ShapeSequence).
		Arg(types.Arg("prop", types.TypeString, types.TypeInt)).Done().
		Method("assign").Spread().Accepts(types.ShapeSequence).Class().Done().
		Method("echo").Single().AcceptsAny().Class().Pure().Done().
		Method("fail").Single().AcceptsAny().Class().Done().
		Method("explode").Single().AcceptsAny().Class().Done()
	b.Operator("_list").
		Method("first").Named("on").Accepts(types.ShapeMapping, types.ShapeSequence).
		Instance(types.ShapeSequence).Done().
		Method("get").Named("on", "key").Accepts(types.ShapeMapping).
		Instance(types.ShapeMapping).Done()
	reg, err := b.Build()
	require.NoError(t, err)

	cb := NewCatalogBuilder().
		Class("_object", "keys", Exactly(1), func(args []types.Value) (types.Value, error) {
			m := args[0].(*types.Map)
			out := make([]types.Value, 0, m.Len())
			for _, k := range m.Keys() {
				out = append(out, k)
			}
			return out, nil
		}).
		Instance("_object", "hasOwnProperty", Exactly(1), func(subject types.Value, args []types.Value) (types.Value, error) {
			prop := fmt.Sprint(args[0])
			switch s := subject.(type) {
			case *types.Map:
				return s.Has(prop), nil
			case []types.Value:
				i, err := strconv.Atoi(prop)
				return err == nil && i >= 0 && i < len(s), nil
			}
			return false, nil
		}).
		Class("_object", "assign", AtLeast(1), func(args []types.Value) (types.Value, error) {
			out := types.NewMap()
			for _, a := range args {
				if m, ok := a.(*types.Map); ok {
					m.Range(func(k string, v types.Value) bool {
						out.Set(k, v)
						return true
					})
				}
			}
			return out, nil
		}).
		Class("_object", "echo", Exactly(1), func(args []types.Value) (types.Value, error) {
			return args[0], nil
		}).
		Class("_object", "fail", Exactly(1), func(args []types.Value) (types.Value, error) {
			return nil, errHostBoom
		}).
		Class("_object", "explode", Exactly(1), func(args []types.Value) (types.Value, error) {
			panic("kaboom")
		}).
		Instance("_list", "first", Exactly(0), func(subject types.Value, args []types.Value) (types.Value, error) {
			s := subject.([]types.Value)
			if len(s) == 0 {
				return nil, nil
			}
			return s[0], nil
		}).
		Instance("_list", "get", Exactly(1), func(subject types.Value, args []types.Value) (types.Value, error) {
			v, _ := subject.(*types.Map).Get(fmt.Sprint(args[0]))
			return v, nil
		})
	catalog, err := cb.Build()
	require.NoError(t, err)

	return fixture{reg: reg, catalog: catalog}
}

var errHostBoom = errors.New("boom")

func (f fixture) spec(t *testing.T, op, method string) *operator.MethodSpec {
	t.Helper()
	spec, err := f.reg.Lookup(op, method)
	require.NoError(t, err)
	return spec
}

func site(op, method string, params types.Value) CallSite {
	return CallSite{
		Operator: op,
		Method:   method,
		Params:   params,
		Location: types.Root().Key("page").Index(0).Key(op + "." + method),
	}
}
