package dispatch

import (
	"github.com/aledsdavies/operon/core/invariant"
	"github.com/aledsdavies/operon/core/operator"
	"github.com/aledsdavies/operon/core/types"
)

// CallSite is one located invocation request: the operator node found at
// Location with its (already evaluated) raw params.
type CallSite struct {
	Operator string
	Method   string // empty selects the operator's default method
	Params   types.Value
	Location types.Location
}

// Name returns "operator.method" as written in the document.
func (s CallSite) Name() string {
	if s.Method == "" {
		return s.Operator
	}
	return s.Operator + "." + s.Method
}

// NormalizedCall is the ordered argument list produced from a CallSite whose
// params passed the shape check. It can only be built by Normalize.
type NormalizedCall struct {
	site       CallSite
	spec       *operator.MethodSpec
	convention operator.ConventionKind
	args       []types.Value
	names      []string // declared names, Named convention only
}

// Site returns the originating CallSite.
func (c *NormalizedCall) Site() CallSite {
	return c.site
}

// Convention returns the convention that produced the call.
func (c *NormalizedCall) Convention() operator.ConventionKind {
	return c.convention
}

// Args returns a copy of the ordered argument list. Named arguments come
// first in declaration order, followed by any surplus positional arguments.
func (c *NormalizedCall) Args() []types.Value {
	return append([]types.Value(nil), c.args...)
}

// Len returns the number of arguments.
func (c *NormalizedCall) Len() int {
	return len(c.args)
}

// Named returns a named argument, which may be types.Absent.
func (c *NormalizedCall) Named(name string) (types.Value, bool) {
	for i, n := range c.names {
		if n == name {
			return c.args[i], true
		}
	}
	return nil, false
}

// Normalize validates the raw params of a site against a method and converts
// them into a NormalizedCall. It is all-or-nothing: on failure no call is
// produced and the error is a *DispatchError.
func Normalize(site CallSite, spec *operator.MethodSpec) (*NormalizedCall, error) {
	invariant.NotNil(spec, "spec")

	// Received -> ShapeValidated
	shape := types.ShapeOf(site.Params)
	if !spec.Accepts.Has(shape) {
		return nil, Report(site, StageReceived, newFault(InvalidShape,
			"params must be %s, got %s", spec.Accepts, types.Describe(site.Params)))
	}

	call := &NormalizedCall{
		site:       site,
		spec:       spec,
		convention: spec.Convention.Kind(),
	}

	// ShapeValidated -> Normalized
	switch spec.Convention.Kind() {
	case operator.ConventionNamed:
		call.names = spec.Convention.Names()
		call.args = bindNamed(site.Params, call.names)
		for i, name := range call.names {
			if err := spec.CheckArg(name, call.args[i]); err != nil {
				return nil, Report(site, StageShapeValidated, &fault{
					reason: InvalidShape,
					msg:    err.Error(),
					cause:  err,
				})
			}
		}

	case operator.ConventionSingle:
		call.args = []types.Value{site.Params}

	case operator.ConventionSpread:
		seq, ok := site.Params.([]types.Value)
		if !ok {
			// Only reachable when a registry accepted non-sequence shapes
			// for a spread method, which Build rejects.
			return nil, Report(site, StageShapeValidated, newFault(InvalidShape,
				"spread params must be a sequence, got %s", types.Describe(site.Params)))
		}
		call.args = append([]types.Value(nil), seq...)

	default:
		invariant.Invariant(false, "%s: unknown calling convention %s", spec.Name(), spec.Convention)
	}

	return call, nil
}

// bindNamed pulls one slot per declared name. A mapping binds by key and
// ignores unknown keys; a sequence binds by position and keeps surplus
// elements as extra arguments. Missing slots are types.Absent.
func bindNamed(params types.Value, names []string) []types.Value {
	args := make([]types.Value, len(names))
	for i := range args {
		args[i] = types.Absent
	}

	switch p := params.(type) {
	case *types.Map:
		for i, name := range names {
			if v, ok := p.Get(name); ok {
				args[i] = v
			}
		}
	case []types.Value:
		for i, v := range p {
			if i < len(names) {
				args[i] = v
			} else {
				args = append(args, v)
			}
		}
	}
	return args
}
