// Package operator defines the operator registry: the immutable table that
// maps an (operator, method) pair such as ("_object", "keys") to the
// MethodSpec describing how its raw params are shaped and dispatched.
//
// Registries are built once with a Builder and shared read-only afterwards.
package operator

import (
	"strings"

	"github.com/aledsdavies/operon/core/types"
)

// ConventionKind identifies how a method expects its raw params.
type ConventionKind uint8

const (
	conventionUnset ConventionKind = iota
	ConventionNamed                // mapping (or sequence) bound to declared names
	ConventionSingle               // raw params passed as one argument
	ConventionSpread               // sequence elements become positional arguments
)

// String returns the string representation of the ConventionKind
func (k ConventionKind) String() string {
	switch k {
	case ConventionNamed:
		return "named"
	case ConventionSingle:
		return "single"
	case ConventionSpread:
		return "spread"
	default:
		return "unset"
	}
}

// Convention is a calling convention. The variants are mutually exclusive:
// only a Named convention carries parameter names.
type Convention struct {
	kind  ConventionKind
	names []string
}

// Named binds params to the given names, in declaration order.
func Named(names ...string) Convention {
	return Convention{kind: ConventionNamed, names: append([]string(nil), names...)}
}

// Single passes the raw params through as exactly one argument.
func Single() Convention {
	return Convention{kind: ConventionSingle}
}

// Spread passes each element of a sequence as one positional argument.
func Spread() Convention {
	return Convention{kind: ConventionSpread}
}

// Kind returns the variant.
func (c Convention) Kind() ConventionKind {
	return c.kind
}

// Names returns a copy of the declared parameter names (Named only).
func (c Convention) Names() []string {
	return append([]string(nil), c.names...)
}

// NameCount returns the number of declared parameter names.
func (c Convention) NameCount() int {
	return len(c.names)
}

// NameAt returns the i-th declared parameter name.
func (c Convention) NameAt(i int) string {
	return c.names[i]
}

func (c Convention) String() string {
	if c.kind == ConventionNamed {
		return "named(" + strings.Join(c.names, ", ") + ")"
	}
	return c.kind.String()
}

// DispatchKind says whether a method is bound to a subject value.
type DispatchKind uint8

const (
	dispatchUnset DispatchKind = iota
	Instance                   // first argument is the subject
	Class                      // free routine over all arguments
)

// String returns the string representation of the DispatchKind
func (d DispatchKind) String() string {
	switch d {
	case Instance:
		return "instance"
	case Class:
		return "class"
	default:
		return "unset"
	}
}

// MethodSpec describes one method of an operator family. Specs returned by
// a Registry are shared between callers and must be treated as read-only;
// argument schemas are only reachable as copies through ArgSchema.
type MethodSpec struct {
	Operator   string
	Method     string
	Convention Convention
	Accepts    types.ShapeSet // Shapes the raw params may take
	Dispatch   DispatchKind
	Subject    types.ShapeSet // Instance only: shapes the subject may take
	Pure       bool           // Result depends only on arguments
	Summary    string

	args      map[string]*types.ArgSchema // Optional constraints per named argument
	validator *types.Validator
}

// Name returns the document spelling of the method, e.g. "_object.keys".
func (m *MethodSpec) Name() string {
	return m.Operator + "." + m.Method
}

// ArgSchema returns a copy of the constraint on a named argument.
func (m *MethodSpec) ArgSchema(name string) (*types.ArgSchema, bool) {
	schema, ok := m.args[name]
	if !ok {
		return nil, false
	}
	return schema.Clone(), true
}

// CheckArg validates a named argument against its schema, if it has one.
// Absent arguments always pass.
func (m *MethodSpec) CheckArg(name string, value types.Value) error {
	schema, ok := m.args[name]
	if !ok || m.validator == nil {
		return nil
	}
	return m.validator.ValidateArg(schema, value)
}

// OperatorSpec is a named family of methods.
type OperatorSpec struct {
	Name          string
	Summary       string
	DefaultMethod string // Used when a node names only the operator

	methods map[string]*MethodSpec
	order   []string // sorted method names
}

// Method returns the MethodSpec registered under name.
func (o *OperatorSpec) Method(name string) (*MethodSpec, bool) {
	m, ok := o.methods[name]
	return m, ok
}

// Methods returns the sorted method names.
func (o *OperatorSpec) Methods() []string {
	return append([]string(nil), o.order...)
}

// SplitName splits a document key such as "_object.keys" into operator and
// method. An operator-only key ("_math") returns an empty method.
func SplitName(key string) (operator, method string) {
	if i := strings.IndexByte(key, '.'); i >= 0 {
		return key[:i], key[i+1:]
	}
	return key, ""
}
