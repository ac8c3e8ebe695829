package operator

import (
	"fmt"

	"github.com/aledsdavies/operon/core/invariant"
	"github.com/aledsdavies/operon/core/types"
)

// Builder accumulates operator families. It is the only way to construct a
// Registry, and Build reports every configuration problem at once.
//
//	b := operator.NewBuilder()
//	b.Operator("_object").
//	    Method("keys").Single().Accepts(types.ShapeMapping).Class().Pure().Done().
//	    Method("hasOwnProperty").Named("on", "prop").
//	        Accepts(types.ShapeMapping, types.ShapeSequence).
//	        Instance(types.ShapeMapping, types.ShapeSequence).Done()
//	reg, err := b.Build()
type Builder struct {
	operators []*OperatorBuilder
	config    *types.ValidationConfig
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithValidation sets the config used to compile argument schemas.
func (b *Builder) WithValidation(config *types.ValidationConfig) *Builder {
	b.config = config
	return b
}

// Operator starts (or continues) an operator family.
func (b *Builder) Operator(name string) *OperatorBuilder {
	ob := &OperatorBuilder{parent: b, name: name}
	b.operators = append(b.operators, ob)
	return ob
}

// OperatorBuilder accumulates the methods of one operator family.
type OperatorBuilder struct {
	parent        *Builder
	name          string
	summary       string
	defaultMethod string
	methods       []*MethodBuilder
}

// Summary sets a one-line description of the family.
func (ob *OperatorBuilder) Summary(s string) *OperatorBuilder {
	ob.summary = s
	return ob
}

// Default names the method used when a node gives only the operator.
func (ob *OperatorBuilder) Default(method string) *OperatorBuilder {
	ob.defaultMethod = method
	return ob
}

// Method starts a method of this family.
func (ob *OperatorBuilder) Method(name string) *MethodBuilder {
	mb := &MethodBuilder{
		parent: ob,
		spec: MethodSpec{
			Operator: ob.name,
			Method:   name,
		},
	}
	ob.methods = append(ob.methods, mb)
	return mb
}

// Done returns to the parent Builder.
func (ob *OperatorBuilder) Done() *Builder {
	return ob.parent
}

// MethodBuilder provides a fluent API for one MethodSpec.
// It returns to the parent OperatorBuilder when Done() is called.
type MethodBuilder struct {
	parent    *OperatorBuilder
	spec      MethodSpec
	args      []*types.ArgSchema
	conflicts []string
}

func (mb *MethodBuilder) setConvention(c Convention) *MethodBuilder {
	if mb.spec.Convention.Kind() != conventionUnset {
		mb.conflicts = append(mb.conflicts,
			fmt.Sprintf("calling convention set twice (%s, then %s)", mb.spec.Convention, c))
	}
	mb.spec.Convention = c
	return mb
}

// Named sets the NamedArgs convention.
func (mb *MethodBuilder) Named(names ...string) *MethodBuilder {
	return mb.setConvention(Named(names...))
}

// Single sets the SingleArg convention.
func (mb *MethodBuilder) Single() *MethodBuilder {
	return mb.setConvention(Single())
}

// Spread sets the SpreadArgs convention.
func (mb *MethodBuilder) Spread() *MethodBuilder {
	return mb.setConvention(Spread())
}

// Accepts sets the shapes the raw params may take.
func (mb *MethodBuilder) Accepts(shapes ...types.Shape) *MethodBuilder {
	mb.spec.Accepts = types.Shapes(shapes...)
	return mb
}

// AcceptsAny accepts every shape.
func (mb *MethodBuilder) AcceptsAny() *MethodBuilder {
	mb.spec.Accepts = types.AnyShape
	return mb
}

func (mb *MethodBuilder) setDispatch(d DispatchKind) {
	if mb.spec.Dispatch != dispatchUnset && mb.spec.Dispatch != d {
		mb.conflicts = append(mb.conflicts,
			fmt.Sprintf("dispatch kind is both %s and %s", mb.spec.Dispatch, d))
	}
	mb.spec.Dispatch = d
}

// Instance binds the method to a subject of the given shapes.
func (mb *MethodBuilder) Instance(subject ...types.Shape) *MethodBuilder {
	mb.setDispatch(Instance)
	mb.spec.Subject = types.Shapes(subject...)
	return mb
}

// Class makes the method a free routine.
func (mb *MethodBuilder) Class() *MethodBuilder {
	mb.setDispatch(Class)
	return mb
}

// Arg adds a constraint on one named argument.
func (mb *MethodBuilder) Arg(schema *types.ArgSchema) *MethodBuilder {
	invariant.NotNil(schema, "schema")
	mb.args = append(mb.args, schema)
	return mb
}

// Pure marks the method's result as a function of its arguments only.
func (mb *MethodBuilder) Pure() *MethodBuilder {
	mb.spec.Pure = true
	return mb
}

// Summary sets a one-line description.
func (mb *MethodBuilder) Summary(s string) *MethodBuilder {
	mb.spec.Summary = s
	return mb
}

// Done finishes this method and returns to the parent OperatorBuilder.
func (mb *MethodBuilder) Done() *OperatorBuilder {
	return mb.parent
}
