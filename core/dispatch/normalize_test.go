package dispatch

import (
	"errors"
	"testing"

	"github.com/aledsdavies/operon/core/operator"
	"github.com/aledsdavies/operon/core/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_ShapeNotAcceptedNeverProducesCall(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		method string
		params types.Value
	}{
		{"keys with sequence", "keys", []types.Value{"a"}},
		{"keys with scalar", "keys", "a"},
		{"keys with null", "keys", nil},
		{"assign with mapping", "assign", types.MapOf("a", 1)},
		{"hasOwnProperty with scalar", "hasOwnProperty", int64(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := site("_object", tt.method, tt.params)
			call, err := Normalize(s, f.spec(t, "_object", tt.method))
			require.Error(t, err)
			assert.Nil(t, call)

			var derr *DispatchError
			require.True(t, errors.As(err, &derr))
			assert.Equal(t, InvalidShape, derr.Reason)
			assert.Equal(t, StageReceived, derr.Stage)
			assert.True(t, derr.Location.Equal(s.Location))
			assert.True(t, errors.Is(err, ErrInvalidShape))
		})
	}
}

func TestNormalize_NamedMapping(t *testing.T) {
	f := newFixture(t)
	spec := f.spec(t, "_object", "hasOwnProperty")

	t.Run("unknown keys ignored", func(t *testing.T) {
		on := types.MapOf("a", 1)
		call, err := Normalize(site("_object", "hasOwnProperty",
			types.MapOf("extra", true, "prop", "a", "on", on)), spec)
		require.NoError(t, err)
		assert.Equal(t, operator.ConventionNamed, call.Convention())
		if diff := cmp.Diff([]types.Value{on, "a"}, call.Args()); diff != "" {
			t.Errorf("Args() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing keys are absent", func(t *testing.T) {
		call, err := Normalize(site("_object", "hasOwnProperty", types.MapOf("on", types.MapOf())), spec)
		require.NoError(t, err)
		require.Equal(t, 2, call.Len())

		prop, ok := call.Named("prop")
		require.True(t, ok)
		assert.True(t, types.IsAbsent(prop))

		_, ok = call.Named("nope")
		assert.False(t, ok)
	})

	t.Run("explicit null is not absent", func(t *testing.T) {
		call, err := Normalize(site("_list", "get", types.MapOf("on", types.MapOf(), "key", nil)),
			f.spec(t, "_list", "get"))
		require.NoError(t, err)
		key, _ := call.Named("key")
		assert.Nil(t, key)
		assert.False(t, types.IsAbsent(key))
	})
}

func TestNormalize_NamedSequenceBindsPositionally(t *testing.T) {
	f := newFixture(t)
	spec := f.spec(t, "_object", "hasOwnProperty")

	t.Run("exact", func(t *testing.T) {
		call, err := Normalize(site("_object", "hasOwnProperty", []types.Value{[]types.Value{1, 2, 3}, "0"}), spec)
		require.NoError(t, err)
		on, _ := call.Named("on")
		assert.Equal(t, []types.Value{1, 2, 3}, on)
		prop, _ := call.Named("prop")
		assert.Equal(t, "0", prop)
	})

	t.Run("short", func(t *testing.T) {
		call, err := Normalize(site("_object", "hasOwnProperty", []types.Value{types.MapOf()}), spec)
		require.NoError(t, err)
		prop, _ := call.Named("prop")
		assert.True(t, types.IsAbsent(prop))
	})

	t.Run("surplus kept", func(t *testing.T) {
		call, err := Normalize(site("_object", "hasOwnProperty", []types.Value{types.MapOf(), "a", "b"}), spec)
		require.NoError(t, err)
		assert.Equal(t, 3, call.Len())
		assert.Equal(t, "b", call.Args()[2])
	})
}

func TestNormalize_SpreadPreservesOrder(t *testing.T) {
	f := newFixture(t)

	call, err := Normalize(site("_object", "assign", []types.Value{int64(1), int64(2), int64(3)}),
		f.spec(t, "_object", "assign"))
	require.NoError(t, err)
	assert.Equal(t, operator.ConventionSpread, call.Convention())
	if diff := cmp.Diff([]types.Value{int64(1), int64(2), int64(3)}, call.Args()); diff != "" {
		t.Errorf("Args() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_SinglePassesThrough(t *testing.T) {
	f := newFixture(t)
	params := types.MapOf("a", 1, "b", 2)

	call, err := Normalize(site("_object", "keys", params), f.spec(t, "_object", "keys"))
	require.NoError(t, err)
	require.Equal(t, 1, call.Len())
	assert.Same(t, params, call.Args()[0])
}

func TestNormalize_ArgumentSchemaViolation(t *testing.T) {
	f := newFixture(t)

	s := site("_object", "hasOwnProperty", types.MapOf("on", types.MapOf(), "prop", true))
	call, err := Normalize(s, f.spec(t, "_object", "hasOwnProperty"))
	require.Error(t, err)
	assert.Nil(t, call)

	var derr *DispatchError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, InvalidShape, derr.Reason)
	assert.Equal(t, StageShapeValidated, derr.Stage)
	assert.Contains(t, derr.Message, `argument "prop"`)

	var argErr *types.ArgError
	assert.True(t, errors.As(err, &argErr))
}

func TestNormalizedCall_ArgsIsCopy(t *testing.T) {
	f := newFixture(t)
	call, err := Normalize(site("_object", "assign", []types.Value{"x"}), f.spec(t, "_object", "assign"))
	require.NoError(t, err)

	args := call.Args()
	args[0] = "mutated"
	assert.Equal(t, "x", call.Args()[0])
}
