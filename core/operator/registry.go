package operator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aledsdavies/operon/core/types"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// ErrNotFound is matched by lookup failures.
var ErrNotFound = errors.New("not registered")

// LookupError reports an (operator, method) pair missing from the registry.
type LookupError struct {
	Operator string
	Method   string
	Known    []string // Methods of the operator, when the operator exists
}

func (e *LookupError) Error() string {
	if e.Known == nil {
		return fmt.Sprintf("operator %q is %s", e.Operator, ErrNotFound)
	}
	if e.Method == "" {
		return fmt.Sprintf("operator %q has no default method; supported methods: %s",
			e.Operator, strings.Join(e.Known, ", "))
	}
	return fmt.Sprintf("method %q of %s is %s; supported methods: %s",
		e.Method, e.Operator, ErrNotFound, strings.Join(e.Known, ", "))
}

// Is makes errors.Is(err, ErrNotFound) true.
func (e *LookupError) Is(target error) bool {
	return target == ErrNotFound
}

// Registry is the immutable (operator, method) -> MethodSpec table.
// All methods are safe for concurrent use.
type Registry struct {
	operators map[string]*OperatorSpec
	names     []string // sorted operator names
}

// Build validates the accumulated families and returns the Registry, or an
// error joining every configuration problem found.
func (b *Builder) Build() (*Registry, error) {
	validator := types.NewValidator(b.config)
	reg := &Registry{operators: make(map[string]*OperatorSpec)}

	var errs []error
	for _, ob := range b.operators {
		if err := checkOperatorName(ob.name); err != nil {
			errs = append(errs, err)
			continue
		}

		op, ok := reg.operators[ob.name]
		if !ok {
			op = &OperatorSpec{Name: ob.name, methods: make(map[string]*MethodSpec)}
			reg.operators[ob.name] = op
			reg.names = append(reg.names, ob.name)
		}
		if ob.summary != "" {
			op.Summary = ob.summary
		}
		if ob.defaultMethod != "" {
			if op.DefaultMethod != "" && op.DefaultMethod != ob.defaultMethod {
				errs = append(errs, fmt.Errorf("%s: default method set to both %q and %q",
					ob.name, op.DefaultMethod, ob.defaultMethod))
			}
			op.DefaultMethod = ob.defaultMethod
		}

		for _, mb := range ob.methods {
			spec, err := mb.build(validator)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if _, dup := op.methods[spec.Method]; dup {
				errs = append(errs, fmt.Errorf("%s: duplicate registration", spec.Name()))
				continue
			}
			op.methods[spec.Method] = spec
			op.order = append(op.order, spec.Method)
		}
	}

	for _, op := range reg.operators {
		sort.Strings(op.order)
		if op.DefaultMethod != "" {
			if _, ok := op.methods[op.DefaultMethod]; !ok {
				errs = append(errs, fmt.Errorf("%s: default method %q is not registered",
					op.Name, op.DefaultMethod))
			}
		}
	}
	sort.Strings(reg.names)

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid operator registry: %w", err)
	}
	return reg, nil
}

func checkOperatorName(name string) error {
	if len(name) < 2 || name[0] != '_' {
		return fmt.Errorf("operator %q: name must be '_' followed by at least one character", name)
	}
	if strings.ContainsAny(name, ". ") {
		return fmt.Errorf("operator %q: name must not contain '.' or spaces", name)
	}
	return nil
}

// build validates one method. The returned spec owns copies of all slices.
func (mb *MethodBuilder) build(validator *types.Validator) (*MethodSpec, error) {
	spec := mb.spec
	name := spec.Name()

	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: "+format, append([]any{name}, args...)...))
	}

	for _, c := range mb.conflicts {
		fail("%s", c)
	}

	if spec.Method == "" || strings.ContainsAny(spec.Method, ". ") {
		fail("method name must be non-empty and must not contain '.' or spaces")
	}
	if spec.Accepts.Empty() {
		fail("no accepted shapes")
	}

	conv := spec.Convention
	switch conv.Kind() {
	case conventionUnset:
		fail("no calling convention")
	case ConventionNamed:
		if conv.NameCount() == 0 {
			fail("named convention declares no names")
		}
		seen := make(map[string]bool, conv.NameCount())
		for _, n := range conv.names {
			if n == "" {
				fail("named convention has an empty name")
			}
			if seen[n] {
				fail("named convention repeats %q", n)
			}
			seen[n] = true
		}
		if spec.Accepts.Has(types.ShapeScalar) {
			fail("named convention cannot accept scalar params")
		}
	case ConventionSpread:
		if !spec.Accepts.SubsetOf(types.Shapes(types.ShapeSequence)) {
			fail("spread convention accepts only sequences, got %s", spec.Accepts)
		}
	}

	switch spec.Dispatch {
	case dispatchUnset:
		fail("no dispatch kind")
	case Instance:
		if conv.Kind() != ConventionNamed {
			fail("instance dispatch requires the named convention (the first name is the subject)")
		}
		if spec.Subject.Empty() {
			fail("instance dispatch declares no subject shapes")
		}
	case Class:
		if !spec.Subject.Empty() {
			fail("class dispatch cannot declare subject shapes")
		}
	}

	if len(mb.args) > 0 {
		spec.args = make(map[string]*types.ArgSchema, len(mb.args))
		declared := make(map[string]bool, conv.NameCount())
		for _, n := range conv.names {
			declared[n] = true
		}
		for _, arg := range mb.args {
			if !declared[arg.Name] {
				fail("argument schema for undeclared name %q", arg.Name)
				continue
			}
			if _, dup := spec.args[arg.Name]; dup {
				fail("argument %q constrained twice", arg.Name)
				continue
			}
			if err := arg.Check(); err != nil {
				fail("%v", err)
				continue
			}
			if _, err := validator.Prepare(arg); err != nil {
				fail("argument %q: %v", arg.Name, err)
				continue
			}
			spec.args[arg.Name] = arg.Clone()
		}
		spec.validator = validator
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	spec.Convention = Convention{kind: conv.kind, names: conv.Names()}
	return &spec, nil
}

// Lookup resolves an (operator, method) pair. An empty method resolves to the
// operator's default method. The same pair always returns the same pointer.
func (r *Registry) Lookup(operator, method string) (*MethodSpec, error) {
	op, ok := r.operators[operator]
	if !ok {
		return nil, &LookupError{Operator: operator, Method: method}
	}
	if method == "" {
		method = op.DefaultMethod
	}
	spec, ok := op.methods[method]
	if !ok {
		return nil, &LookupError{Operator: operator, Method: method, Known: op.Methods()}
	}
	return spec, nil
}

// Has reports whether an operator family is registered.
func (r *Registry) Has(operator string) bool {
	_, ok := r.operators[operator]
	return ok
}

// Operators returns the sorted operator names.
func (r *Registry) Operators() []string {
	return append([]string(nil), r.names...)
}

// Operator returns one operator family.
func (r *Registry) Operator(name string) (*OperatorSpec, bool) {
	op, ok := r.operators[name]
	return op, ok
}

// Methods returns the sorted method names of an operator, or nil.
func (r *Registry) Methods(operator string) []string {
	op, ok := r.operators[operator]
	if !ok {
		return nil
	}
	return op.Methods()
}

// Suggest returns the closest registered spelling for a failed lookup, such
// as "_object.keys" for ("_object", "kyes"), or "" when nothing is close.
func (r *Registry) Suggest(operator, method string) string {
	op, ok := r.operators[operator]
	if !ok {
		best := findClosestMatch(operator, r.names)
		if best == "" {
			return ""
		}
		if method != "" {
			if _, ok := r.operators[best].methods[method]; ok {
				return best + "." + method
			}
		}
		return best
	}
	best := findClosestMatch(method, op.order)
	if best == "" {
		return ""
	}
	return operator + "." + best
}

// findClosestMatch finds the closest matching string using fuzzy ranking,
// falling back to edit distance for transpositions and typos.
func findClosestMatch(target string, candidates []string) string {
	if len(candidates) == 0 || target == "" {
		return ""
	}

	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	best, bestDist := "", -1
	for _, c := range candidates {
		d := fuzzy.LevenshteinDistance(strings.ToLower(target), strings.ToLower(c))
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	limit := len(target) / 3
	if limit < 2 {
		limit = 2
	}
	if bestDist > limit {
		return ""
	}
	return best
}

// MethodDescriptor is the exported, tooling-friendly view of a MethodSpec.
type MethodDescriptor struct {
	Name       string   `json:"name"`
	Operator   string   `json:"operator"`
	Method     string   `json:"method"`
	Convention string   `json:"convention"`
	Params     []string `json:"params,omitempty"`
	Accepts    []string `json:"accepts"`
	Dispatch   string   `json:"dispatch"`
	Subject    []string `json:"subject,omitempty"`
	Pure       bool     `json:"pure"`
	Default    bool     `json:"default,omitempty"`
	Summary    string   `json:"summary,omitempty"`
}

// Export returns descriptors for every method, sorted by name.
func (r *Registry) Export() []MethodDescriptor {
	var out []MethodDescriptor
	for _, opName := range r.names {
		op := r.operators[opName]
		for _, m := range op.order {
			spec := op.methods[m]
			out = append(out, MethodDescriptor{
				Name:       spec.Name(),
				Operator:   spec.Operator,
				Method:     spec.Method,
				Convention: spec.Convention.Kind().String(),
				Params:     spec.Convention.Names(),
				Accepts:    shapeNames(spec.Accepts),
				Dispatch:   spec.Dispatch.String(),
				Subject:    shapeNames(spec.Subject),
				Pure:       spec.Pure,
				Default:    op.DefaultMethod == m,
				Summary:    spec.Summary,
			})
		}
	}
	return out
}

func shapeNames(set types.ShapeSet) []string {
	shapes := set.List()
	if len(shapes) == 0 {
		return nil
	}
	names := make([]string, len(shapes))
	for i, s := range shapes {
		names[i] = s.String()
	}
	return names
}
