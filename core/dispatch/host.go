package dispatch

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aledsdavies/operon/core/operator"
	"github.com/aledsdavies/operon/core/types"
)

// Variadic marks an Arity without an upper bound.
const Variadic = -1

// Arity is the argument count a routine accepts. For instance routines the
// subject is not counted.
type Arity struct {
	Min int
	Max int // Variadic for no upper bound
}

// Exactly accepts n arguments.
func Exactly(n int) Arity { return Arity{Min: n, Max: n} }

// AtLeast accepts n or more arguments.
func AtLeast(n int) Arity { return Arity{Min: n, Max: Variadic} }

// Between accepts min to max arguments.
func Between(minArgs, maxArgs int) Arity { return Arity{Min: minArgs, Max: maxArgs} }

// Allows reports whether n arguments fit.
func (a Arity) Allows(n int) bool {
	return n >= a.Min && (a.Max == Variadic || n <= a.Max)
}

func (a Arity) String() string {
	switch {
	case a.Max == Variadic:
		return fmt.Sprintf("at least %d", a.Min)
	case a.Min == a.Max:
		return fmt.Sprintf("exactly %d", a.Min)
	default:
		return fmt.Sprintf("%d to %d", a.Min, a.Max)
	}
}

func (a Arity) check() error {
	if a.Min < 0 {
		return fmt.Errorf("arity minimum %d is negative", a.Min)
	}
	if a.Max != Variadic && a.Max < a.Min {
		return fmt.Errorf("arity maximum %d is below minimum %d", a.Max, a.Min)
	}
	return nil
}

// InstanceFunc is a routine bound to a subject value.
type InstanceFunc func(subject types.Value, args []types.Value) (types.Value, error)

// ClassFunc is a free routine over all arguments.
type ClassFunc func(args []types.Value) (types.Value, error)

type routineKey struct {
	operator, method string
}

func (k routineKey) String() string {
	return k.operator + "." + k.method
}

type instanceRoutine struct {
	arity Arity
	fn    InstanceFunc
}

type classRoutine struct {
	arity Arity
	fn    ClassFunc
}

// HostCatalog holds the concrete routines the dispatcher invokes. It is
// immutable once built.
type HostCatalog struct {
	instance map[routineKey]instanceRoutine
	class    map[routineKey]classRoutine
}

// CatalogBuilder accumulates routines for a HostCatalog.
type CatalogBuilder struct {
	instance map[routineKey]instanceRoutine
	class    map[routineKey]classRoutine
	errs     []error
}

// NewCatalogBuilder creates an empty CatalogBuilder.
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{
		instance: make(map[routineKey]instanceRoutine),
		class:    make(map[routineKey]classRoutine),
	}
}

func (b *CatalogBuilder) register(key routineKey, arity Arity, isNil bool) bool {
	if isNil {
		b.errs = append(b.errs, fmt.Errorf("%s: nil routine", key))
		return false
	}
	if err := arity.check(); err != nil {
		b.errs = append(b.errs, fmt.Errorf("%s: %w", key, err))
		return false
	}
	_, dupInstance := b.instance[key]
	_, dupClass := b.class[key]
	if dupInstance || dupClass {
		b.errs = append(b.errs, fmt.Errorf("%s: duplicate routine", key))
		return false
	}
	return true
}

// Instance registers a subject-bound routine.
func (b *CatalogBuilder) Instance(op, method string, arity Arity, fn InstanceFunc) *CatalogBuilder {
	key := routineKey{op, method}
	if b.register(key, arity, fn == nil) {
		b.instance[key] = instanceRoutine{arity: arity, fn: fn}
	}
	return b
}

// Class registers a free routine.
func (b *CatalogBuilder) Class(op, method string, arity Arity, fn ClassFunc) *CatalogBuilder {
	key := routineKey{op, method}
	if b.register(key, arity, fn == nil) {
		b.class[key] = classRoutine{arity: arity, fn: fn}
	}
	return b
}

// Build returns the immutable catalog, or every registration problem joined.
func (b *CatalogBuilder) Build() (*HostCatalog, error) {
	if err := errors.Join(b.errs...); err != nil {
		return nil, fmt.Errorf("invalid host catalog: %w", err)
	}
	c := &HostCatalog{
		instance: make(map[routineKey]instanceRoutine, len(b.instance)),
		class:    make(map[routineKey]classRoutine, len(b.class)),
	}
	for k, v := range b.instance {
		c.instance[k] = v
	}
	for k, v := range b.class {
		c.class[k] = v
	}
	return c, nil
}

// Verify cross-checks the catalog against a registry: every MethodSpec needs
// exactly one routine of its dispatch kind, and every routine needs a
// MethodSpec.
func (c *HostCatalog) Verify(reg *operator.Registry) error {
	var errs []error
	seen := make(map[routineKey]bool)

	for _, desc := range reg.Export() {
		spec, err := reg.Lookup(desc.Operator, desc.Method)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		key := routineKey{spec.Operator, spec.Method}
		seen[key] = true

		_, hasInstance := c.instance[key]
		_, hasClass := c.class[key]
		switch {
		case spec.Dispatch == operator.Instance && !hasInstance:
			if hasClass {
				errs = append(errs, fmt.Errorf("%s: registered as instance but host routine is class", key))
			} else {
				errs = append(errs, fmt.Errorf("%s: no instance routine", key))
			}
		case spec.Dispatch == operator.Class && !hasClass:
			if hasInstance {
				errs = append(errs, fmt.Errorf("%s: registered as class but host routine is instance", key))
			} else {
				errs = append(errs, fmt.Errorf("%s: no class routine", key))
			}
		}
	}

	var orphans []string
	for k := range c.instance {
		if !seen[k] {
			orphans = append(orphans, k.String())
		}
	}
	for k := range c.class {
		if !seen[k] {
			orphans = append(orphans, k.String())
		}
	}
	sort.Strings(orphans)
	for _, name := range orphans {
		errs = append(errs, fmt.Errorf("%s: routine has no method spec", name))
	}

	return errors.Join(errs...)
}

// Len returns the number of routines.
func (c *HostCatalog) Len() int {
	return len(c.instance) + len(c.class)
}
