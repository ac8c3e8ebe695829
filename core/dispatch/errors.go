package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aledsdavies/operon/core/operator"
	"github.com/aledsdavies/operon/core/types"
)

// Reason classifies a dispatch failure.
type Reason uint8

const (
	HostFailure         Reason = iota // the routine faulted; Cause holds the fault
	NotFound                          // (operator, method) pair not registered
	InvalidShape                      // params shape or an argument constraint rejected
	SubjectTypeMismatch               // instance subject has the wrong shape
	ArityMismatch                     // argument count outside the routine's arity
)

// String returns the string representation of the Reason
func (r Reason) String() string {
	switch r {
	case NotFound:
		return "not found"
	case InvalidShape:
		return "invalid shape"
	case SubjectTypeMismatch:
		return "subject type mismatch"
	case ArityMismatch:
		return "arity mismatch"
	default:
		return "host failure"
	}
}

// Sentinels for errors.Is. Every DispatchError matches the sentinel of its
// reason.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidShape        = errors.New("invalid shape")
	ErrSubjectTypeMismatch = errors.New("subject type mismatch")
	ErrArityMismatch       = errors.New("arity mismatch")
	ErrHostFailure         = errors.New("host failure")
)

func (r Reason) sentinel() error {
	switch r {
	case NotFound:
		return ErrNotFound
	case InvalidShape:
		return ErrInvalidShape
	case SubjectTypeMismatch:
		return ErrSubjectTypeMismatch
	case ArityMismatch:
		return ErrArityMismatch
	default:
		return ErrHostFailure
	}
}

// Stage is a step of the per-CallSite state machine:
// Received -> ShapeValidated -> Normalized -> Dispatched -> {Succeeded, Failed}.
// A DispatchError records the last stage the call reached.
type Stage uint8

const (
	StageReceived Stage = iota
	StageShapeValidated
	StageNormalized
	StageDispatched
	StageSucceeded
	StageFailed
)

// String returns the string representation of the Stage
func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageShapeValidated:
		return "shape-validated"
	case StageNormalized:
		return "normalized"
	case StageDispatched:
		return "dispatched"
	case StageSucceeded:
		return "succeeded"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DispatchError is a located dispatch failure. It is never mutated after
// construction.
type DispatchError struct {
	Location   types.Location
	Operator   string
	Method     string
	Reason     Reason
	Stage      Stage
	Message    string
	Suggestion string // closest registered name, NotFound only
	Cause      error
}

// Error formats as "location: operator.method: reason: message".
func (e *DispatchError) Error() string {
	var b strings.Builder
	b.WriteString(e.Location.String())
	b.WriteString(": ")
	b.WriteString(e.Name())
	b.WriteString(": ")
	b.WriteString(e.Reason.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, " (did you mean %s?)", e.Suggestion)
	}
	return b.String()
}

// Name returns "operator.method", or the operator alone when no method was
// named.
func (e *DispatchError) Name() string {
	if e.Method == "" {
		return e.Operator
	}
	return e.Operator + "." + e.Method
}

func (e *DispatchError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel of the error's reason.
func (e *DispatchError) Is(target error) bool {
	return target == e.Reason.sentinel()
}

// fault is an unlocated failure raised inside the normalizer or dispatcher.
// Report turns it into a DispatchError.
type fault struct {
	reason Reason
	msg    string
	cause  error
}

func (f *fault) Error() string {
	return f.msg
}

func (f *fault) Unwrap() error {
	return f.cause
}

func newFault(reason Reason, format string, args ...any) *fault {
	return &fault{reason: reason, msg: fmt.Sprintf(format, args...)}
}

// Report wraps any failure into a DispatchError located at the site.
// It never panics and always returns a value. Errors that carry no reason
// are classified as HostFailure.
func Report(site CallSite, stage Stage, err error) *DispatchError {
	de := &DispatchError{
		Location: site.Location,
		Operator: site.Operator,
		Method:   site.Method,
		Stage:    stage,
	}

	var (
		existing *DispatchError
		f        *fault
	)
	switch {
	case err == nil:
		de.Reason = HostFailure
		de.Message = "unspecified failure"
	case errors.As(err, &existing):
		copied := *existing
		copied.Location = site.Location
		return &copied
	case errors.As(err, &f):
		de.Reason = f.reason
		de.Message = f.msg
		de.Cause = f.cause
	case errors.Is(err, operator.ErrNotFound):
		de.Reason = NotFound
		de.Message = err.Error()
		de.Cause = err
	default:
		de.Reason = HostFailure
		de.Message = err.Error()
		de.Cause = err
	}
	return de
}

// ErrorList collects DispatchErrors in document order.
type ErrorList []*DispatchError

// Add appends an error.
func (l *ErrorList) Add(err *DispatchError) {
	*l = append(*l, err)
}

// Len returns the number of errors.
func (l ErrorList) Len() int {
	return len(l)
}

// Err returns the list as an error, or nil when it is empty.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// Error returns one error per line.
func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	lines := make([]string, len(l))
	for i, e := range l {
		lines[i] = e.Error()
	}
	return fmt.Sprintf("%d dispatch errors:\n%s", len(l), strings.Join(lines, "\n"))
}

func (l ErrorList) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}
