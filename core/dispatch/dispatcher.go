package dispatch

import (
	"fmt"
	"runtime/debug"

	"github.com/aledsdavies/operon/core/invariant"
	"github.com/aledsdavies/operon/core/operator"
	"github.com/aledsdavies/operon/core/types"
)

// PanicError is a routine panic captured by the dispatcher.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("routine panicked: %v", e.Value)
}

// Unwrap exposes panics raised with an error value, such as
// *invariant.Violation.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Dispatch invokes the host routine for a normalized call. Instance methods
// check the subject shape against spec.Subject first; both kinds check the
// routine's arity. Routine errors and panics become HostFailure. The error,
// when non-nil, is a *DispatchError.
func Dispatch(spec *operator.MethodSpec, call *NormalizedCall, catalog *HostCatalog) (types.Value, error) {
	invariant.NotNil(spec, "spec")
	invariant.NotNil(call, "call")
	invariant.NotNil(catalog, "catalog")
	invariant.Precondition(call.spec == spec, "call was normalized for %s, not %s", call.spec.Name(), spec.Name())

	site := call.site
	key := routineKey{spec.Operator, spec.Method}

	switch spec.Dispatch {
	case operator.Instance:
		routine, ok := catalog.instance[key]
		if !ok {
			return nil, Report(site, StageNormalized, newFault(HostFailure, "no instance routine registered"))
		}

		subjectName := spec.Convention.NameAt(0)
		subject := call.args[0]
		if types.IsAbsent(subject) {
			return nil, Report(site, StageNormalized, newFault(SubjectTypeMismatch,
				"subject %q is missing, want %s", subjectName, spec.Subject))
		}
		if shape := types.ShapeOf(subject); !spec.Subject.Has(shape) {
			return nil, Report(site, StageNormalized, newFault(SubjectTypeMismatch,
				"subject %q must be %s, got %s", subjectName, spec.Subject, types.Describe(subject)))
		}

		rest := call.args[1:]
		if !routine.arity.Allows(len(rest)) {
			return nil, Report(site, StageNormalized, newFault(ArityMismatch,
				"takes %s arguments after the subject, got %d", routine.arity, len(rest)))
		}

		return invoke(site, func() (types.Value, error) {
			return routine.fn(subject, append([]types.Value(nil), rest...))
		})

	case operator.Class:
		routine, ok := catalog.class[key]
		if !ok {
			return nil, Report(site, StageNormalized, newFault(HostFailure, "no class routine registered"))
		}
		if !routine.arity.Allows(len(call.args)) {
			return nil, Report(site, StageNormalized, newFault(ArityMismatch,
				"takes %s arguments, got %d", routine.arity, len(call.args)))
		}
		return invoke(site, func() (types.Value, error) {
			return routine.fn(append([]types.Value(nil), call.args...))
		})
	}

	invariant.Invariant(false, "%s: unknown dispatch kind %s", spec.Name(), spec.Dispatch)
	return nil, nil
}

// invoke runs a routine (Normalized -> Dispatched) and captures its faults.
func invoke(site CallSite, fn func() (types.Value, error)) (result types.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			pe := &PanicError{Value: r, Stack: debug.Stack()}
			result, err = nil, Report(site, StageDispatched, &fault{
				reason: HostFailure,
				msg:    pe.Error(),
				cause:  pe,
			})
		}
	}()

	result, err = fn()
	if err != nil {
		return nil, Report(site, StageDispatched, &fault{
			reason: HostFailure,
			msg:    err.Error(),
			cause:  err,
		})
	}
	return result, nil
}
