package operators

import (
	"errors"
	"testing"

	"github.com/aledsdavies/operon/core/dispatch"
	"github.com/aledsdavies/operon/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *dispatch.Engine {
	t.Helper()
	e, err := NewEngine()
	require.NoError(t, err)
	return e
}

func call(op, method string, params types.Value) dispatch.CallSite {
	return dispatch.CallSite{
		Operator: op,
		Method:   method,
		Params:   params,
		Location: types.Root().Key("doc").Key(op + "." + method),
	}
}

type operatorCase struct {
	name   string
	site   dispatch.CallSite
	want   types.Value
	reason dispatch.Reason
	errMsg string
}

func runCases(t *testing.T, cases []operatorCase) {
	t.Helper()
	e := newEngine(t)
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Call(tt.site)
			if tt.errMsg != "" {
				require.Error(t, err)
				var derr *dispatch.DispatchError
				require.True(t, errors.As(err, &derr), "error is %T", err)
				assert.Equal(t, tt.reason, derr.Reason)
				assert.Contains(t, derr.Error(), tt.errMsg)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.True(t, types.Equal(tt.want, got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestBuild_RegistryMatchesCatalog(t *testing.T) {
	reg, catalog, err := Build(nil)
	require.NoError(t, err)
	require.NoError(t, catalog.Verify(reg))

	assert.Equal(t, []string{"_array", "_json", "_math", "_net", "_object", "_semver", "_yaml"}, reg.Operators())
	assert.Equal(t, len(reg.Export()), catalog.Len())

	op, ok := reg.Operator("_math")
	require.True(t, ok)
	assert.Equal(t, "max", op.DefaultMethod)
}

func TestObject(t *testing.T) {
	obj := types.MapOf("b", 1, "a", 2)

	runCases(t, []operatorCase{
		{name: "keys keep order", site: call("_object", "keys", obj), want: []types.Value{"b", "a"}},
		{name: "values", site: call("_object", "values", obj), want: []types.Value{1, 2}},
		{
			name: "entries",
			site: call("_object", "entries", obj),
			want: []types.Value{[]types.Value{"b", 1}, []types.Value{"a", 2}},
		},
		{
			name: "keys of sequence",
			site: call("_object", "keys", []types.Value{1}),
			reason: dispatch.InvalidShape, errMsg: "invalid shape",
		},
		{
			name: "hasOwnProperty on mapping",
			site: call("_object", "hasOwnProperty", types.MapOf("on", obj, "prop", "a")),
			want: true,
		},
		{
			name: "hasOwnProperty missing key",
			site: call("_object", "hasOwnProperty", types.MapOf("on", obj, "prop", "z")),
			want: false,
		},
		{
			name: "hasOwnProperty sequence index",
			site: call("_object", "hasOwnProperty", []types.Value{[]types.Value{"x", "y"}, 1}),
			want: true,
		},
		{
			name: "hasOwnProperty sequence out of range",
			site: call("_object", "hasOwnProperty", []types.Value{[]types.Value{"x"}, "01"}),
			want: false,
		},
		{
			name:   "hasOwnProperty scalar subject",
			site:   call("_object", "hasOwnProperty", types.MapOf("on", "text", "prop", "length")),
			reason: dispatch.SubjectTypeMismatch, errMsg: `subject "on" must be`,
		},
		{
			name: "assign merges left to right",
			site: call("_object", "assign", []types.Value{
				types.MapOf("a", 1, "b", 1),
				nil,
				types.MapOf("b", 2, "c", 3),
			}),
			want: types.MapOf("a", 1, "b", 2, "c", 3),
		},
		{
			name:   "assign of nothing",
			site:   call("_object", "assign", []types.Value{}),
			reason: dispatch.ArityMismatch, errMsg: "at least 1",
		},
		{
			name:   "assign scalar target",
			site:   call("_object", "assign", []types.Value{"x"}),
			reason: dispatch.HostFailure, errMsg: "target must be a mapping",
		},
		{
			name: "defineProperty on mapping",
			site: call("_object", "defineProperty", types.MapOf(
				"on", obj, "key", "c", "descriptor", types.MapOf("value", 3, "writable", true))),
			want: types.MapOf("b", 1, "a", 2, "c", 3),
		},
		{
			name: "defineProperty on sequence",
			site: call("_object", "defineProperty", []types.Value{
				[]types.Value{"x"}, 2, types.MapOf("value", "z")}),
			want: []types.Value{"x", nil, "z"},
		},
		{
			name: "defineProperty accessor",
			site: call("_object", "defineProperty", types.MapOf(
				"on", obj, "key", "c", "descriptor", types.MapOf("get", "f"))),
			reason: dispatch.HostFailure, errMsg: "accessor descriptors",
		},
		{
			name: "defineProperty bad descriptor type",
			site: call("_object", "defineProperty", types.MapOf(
				"on", obj, "key", "c", "descriptor", "v")),
			reason: dispatch.InvalidShape, errMsg: `argument "descriptor"`,
		},
	})
}

func TestObject_AssignDoesNotMutate(t *testing.T) {
	e := newEngine(t)
	target := types.MapOf("a", 1)
	_, err := e.Call(call("_object", "assign", []types.Value{target, types.MapOf("b", 2)}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, target.Keys())
}

func TestArray(t *testing.T) {
	seq := []types.Value{"a", types.MapOf("k", 1), int64(3)}

	runCases(t, []operatorCase{
		{name: "includes deep", site: call("_array", "includes", types.MapOf("on", seq, "value", types.MapOf("k", 1))), want: true},
		{name: "includes number", site: call("_array", "includes", []types.Value{seq, 3.0}), want: true},
		{name: "includes missing", site: call("_array", "includes", types.MapOf("on", seq, "value", "z")), want: false},
		{name: "indexOf", site: call("_array", "indexOf", types.MapOf("on", seq, "value", int64(3))), want: int64(2)},
		{name: "indexOf missing", site: call("_array", "indexOf", types.MapOf("on", seq, "value", "z")), want: int64(-1)},
		{
			name: "join default separator",
			site: call("_array", "join", types.MapOf("on", []types.Value{"a", 1, nil, true})),
			want: "a,1,,true",
		},
		{
			name: "join separator",
			site: call("_array", "join", types.MapOf("on", []types.Value{"a", "b"}, "separator", " - ")),
			want: "a - b",
		},
		{
			name:   "join separator must be string",
			site:   call("_array", "join", types.MapOf("on", []types.Value{"a"}, "separator", 1)),
			reason: dispatch.InvalidShape, errMsg: `argument "separator"`,
		},
		{
			name: "slice",
			site: call("_array", "slice", types.MapOf("on", []types.Value{1, 2, 3, 4}, "start", 1, "end", -1)),
			want: []types.Value{2, 3},
		},
		{
			name: "slice open end",
			site: call("_array", "slice", types.MapOf("on", []types.Value{1, 2, 3}, "start", -2)),
			want: []types.Value{2, 3},
		},
		{
			name: "slice empty range",
			site: call("_array", "slice", types.MapOf("on", []types.Value{1, 2, 3}, "start", 2, "end", 1)),
			want: []types.Value{},
		},
		{
			name: "concat flattens one level",
			site: call("_array", "concat", types.MapOf("on", []types.Value{1}, "value", []types.Value{2, []types.Value{3}})),
			want: []types.Value{1, 2, []types.Value{3}},
		},
		{
			name: "concat surplus positional values",
			site: call("_array", "concat", []types.Value{[]types.Value{1}, 2, []types.Value{3}}),
			want: []types.Value{1, 2, 3},
		},
		{name: "reverse", site: call("_array", "reverse", types.MapOf("on", []types.Value{1, 2, 3})), want: []types.Value{3, 2, 1}},
		{name: "length", site: call("_array", "length", []types.Value{[]types.Value{1, 2}}), want: int64(2)},
		{
			name:   "length takes no arguments",
			site:   call("_array", "length", []types.Value{[]types.Value{1, 2}, "extra"}),
			reason: dispatch.ArityMismatch, errMsg: "exactly 0",
		},
		{
			name:   "length of mapping",
			site:   call("_array", "length", types.MapOf("on", types.MapOf("a", 1))),
			reason: dispatch.SubjectTypeMismatch, errMsg: "got mapping",
		},
		{
			name:   "missing subject",
			site:   call("_array", "length", types.MapOf()),
			reason: dispatch.SubjectTypeMismatch, errMsg: "is missing",
		},
		{name: "isArray sequence", site: call("_array", "isArray", []types.Value{1}), want: true},
		{name: "isArray scalar", site: call("_array", "isArray", "x"), want: false},
		{
			name:   "unknown method suggests",
			site:   call("_array", "lenght", []types.Value{[]types.Value{}}),
			reason: dispatch.NotFound, errMsg: "did you mean _array.length?",
		},
	})
}

func TestMath(t *testing.T) {
	runCases(t, []operatorCase{
		{name: "max", site: call("_math", "max", []types.Value{1, 7.5, -3}), want: 7.5},
		{name: "min", site: call("_math", "min", []types.Value{1, 7.5, -3}), want: int64(-3)},
		{name: "default method is max", site: call("_math", "", []types.Value{2, 9}), want: int64(9)},
		{
			name:   "max of non-number",
			site:   call("_math", "max", []types.Value{1, "two"}),
			reason: dispatch.HostFailure, errMsg: "max argument 1 must be a number",
		},
		{
			name:   "max of nothing",
			site:   call("_math", "max", []types.Value{}),
			reason: dispatch.ArityMismatch, errMsg: "at least 1",
		},
		{name: "abs", site: call("_math", "abs", -4), want: int64(4)},
		{name: "floor", site: call("_math", "floor", 2.7), want: int64(2)},
		{name: "ceil", site: call("_math", "ceil", 2.1), want: int64(3)},
		{name: "round half up", site: call("_math", "round", 2.5), want: int64(3)},
		{name: "round negative half", site: call("_math", "round", -2.5), want: int64(-2)},
		{name: "sqrt", site: call("_math", "sqrt", 16), want: int64(4)},
		{
			name:   "sqrt negative",
			site:   call("_math", "sqrt", -1),
			reason: dispatch.HostFailure, errMsg: "square root of negative",
		},
		{
			name:   "abs of sequence",
			site:   call("_math", "abs", []types.Value{1}),
			reason: dispatch.InvalidShape, errMsg: "invalid shape",
		},
		{name: "pow named", site: call("_math", "pow", types.MapOf("base", 2, "exponent", 10)), want: int64(1024)},
		{name: "pow positional", site: call("_math", "pow", []types.Value{9, 0.5}), want: int64(3)},
		{
			name:   "pow overflow",
			site:   call("_math", "pow", []types.Value{10, 400}),
			reason: dispatch.HostFailure, errMsg: "not a finite number",
		},
		{
			name:   "pow missing exponent",
			site:   call("_math", "pow", types.MapOf("base", 2)),
			reason: dispatch.HostFailure, errMsg: "exponent is required",
		},
	})
}

func TestCodecs(t *testing.T) {
	runCases(t, []operatorCase{
		{
			name: "json parse keeps order",
			site: call("_json", "parse", `{"z": 1, "a": [true, null]}`),
			want: types.MapOf("z", 1, "a", []types.Value{true, nil}),
		},
		{
			name:   "json parse rejects yaml",
			site:   call("_json", "parse", "a: 1"),
			reason: dispatch.HostFailure, errMsg: "invalid JSON",
		},
		{
			name: "json parse escapes",
			site: call("_json", "parse", `{"a": "x\/y \u00e9\n", "n": [1.0, 9007199254740993]}`),
			want: types.MapOf("a", "x/y é\n", "n", []types.Value{1.0, int64(9007199254740993)}),
		},
		{
			name:   "json parse trailing data",
			site:   call("_json", "parse", `{} {}`),
			reason: dispatch.HostFailure, errMsg: "unexpected data after top-level value",
		},
		{
			name:   "json parse empty",
			site:   call("_json", "parse", ""),
			reason: dispatch.HostFailure, errMsg: "invalid JSON",
		},
		{
			name:   "json parse non-string",
			site:   call("_json", "parse", 5),
			reason: dispatch.HostFailure, errMsg: "must be a string",
		},
		{
			name: "json stringify",
			site: call("_json", "stringify", types.MapOf("z", 1, "a", []types.Value{"x"})),
			want: `{"z":1,"a":["x"]}`,
		},
		{
			name: "yaml parse",
			site: call("_yaml", "parse", "b: 1\na: [x, 2.5]\n"),
			want: types.MapOf("b", 1, "a", []types.Value{"x", 2.5}),
		},
		{
			name:   "yaml parse error",
			site:   call("_yaml", "parse", "a: [1"),
			reason: dispatch.HostFailure, errMsg: "failed to parse document",
		},
		{
			name: "yaml stringify",
			site: call("_yaml", "stringify", types.MapOf("b", 1, "a", []types.Value{"x"})),
			want: "b: 1\na:\n  - x\n",
		},
	})
}

func TestSemverAndNet(t *testing.T) {
	runCases(t, []operatorCase{
		{
			name: "compare named",
			site: call("_semver", "compare", types.MapOf("a", "1.2.0", "b", "v1.10.0")),
			want: int64(-1),
		},
		{
			name: "compare positional",
			site: call("_semver", "compare", []types.Value{"2.0.0", "2.0.0+build"}),
			want: int64(0),
		},
		{
			name: "canonical",
			site: call("_semver", "canonical", types.MapOf("version", "1.2")),
			want: "v1.2.0",
		},
		{
			name: "major",
			site: call("_semver", "major", []types.Value{"v3.1.4"}),
			want: "v3",
		},
		{
			name:   "invalid version is rejected by the argument schema",
			site:   call("_semver", "compare", types.MapOf("a", "1.x", "b", "1.0.0")),
			reason: dispatch.InvalidShape, errMsg: `argument "a"`,
		},
		{
			name: "net contains",
			site: call("_net", "contains", types.MapOf("prefix", "10.0.0.0/8", "addr", "10.1.2.3")),
			want: true,
		},
		{
			name: "net does not contain",
			site: call("_net", "contains", []types.Value{"fd00::/8", "10.1.2.3"}),
			want: false,
		},
		{
			name:   "invalid prefix is rejected by the argument schema",
			site:   call("_net", "contains", types.MapOf("prefix", "10.0.0.0", "addr", "10.1.2.3")),
			reason: dispatch.InvalidShape, errMsg: `argument "prefix"`,
		},
		{
			name:   "bad address",
			site:   call("_net", "contains", types.MapOf("prefix", "10.0.0.0/8", "addr", "ten")),
			reason: dispatch.HostFailure, errMsg: "ParseAddr",
		},
	})
}

func TestText(t *testing.T) {
	tests := []struct {
		in   types.Value
		want string
	}{
		{nil, "null"},
		{types.Absent, "undefined"},
		{"s", "s"},
		{false, "false"},
		{int64(12), "12"},
		{2.0, "2"},
		{0.25, "0.25"},
		{[]types.Value{1, nil, []types.Value{"a", "b"}}, "1,,a,b"},
		{types.MapOf("a", 1), "[object Object]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, text(tt.in), "text(%v)", tt.in)
	}
}
