package operators

import (
	"fmt"
	"strings"

	"github.com/aledsdavies/operon/core/dispatch"
	"github.com/aledsdavies/operon/core/operator"
	"github.com/aledsdavies/operon/core/types"
)

const arrayOp = "_array"

// Array installs the _array family. Every instance method takes its
// sequence through "on".
func Array(b *operator.Builder, c *dispatch.CatalogBuilder) {
	ob := b.Operator(arrayOp).Summary("Operations over sequences")

	instance := func(name, summary string, args ...string) *operator.MethodBuilder {
		return ob.Method(name).
			Named(append([]string{"on"}, args...)...).
			Accepts(containers...).
			Instance(types.ShapeSequence).
			Pure().
			Summary(summary)
	}

	instance("includes", "Whether the sequence holds an equal element", "value").Done()
	instance("indexOf", "Index of the first equal element, or -1", "value").Done()
	instance("join", "Elements joined into a string (default separator \",\")", "separator").
		Arg(types.Arg("separator", types.TypeString)).Done()
	instance("slice", "Elements from start up to end; negative positions count from the end", "start", "end").
		Arg(types.Arg("start", types.TypeInt)).
		Arg(types.Arg("end", types.TypeInt)).Done()
	instance("concat", "New sequence with the values appended; sequences are flattened one level", "value").Done()
	instance("reverse", "New sequence in reverse order").Done()
	instance("length", "Number of elements").Done()
	ob.Method("isArray").Single().AcceptsAny().Class().Pure().
		Summary("Whether the argument is a sequence").Done()

	c.Instance(arrayOp, "includes", dispatch.Exactly(1), arrayIncludes).
		Instance(arrayOp, "indexOf", dispatch.Exactly(1), arrayIndexOf).
		Instance(arrayOp, "join", dispatch.Exactly(1), arrayJoin).
		Instance(arrayOp, "slice", dispatch.Exactly(2), arraySlice).
		Instance(arrayOp, "concat", dispatch.AtLeast(1), arrayConcat).
		Instance(arrayOp, "reverse", dispatch.Exactly(0), arrayReverse).
		Instance(arrayOp, "length", dispatch.Exactly(0), arrayLength).
		Class(arrayOp, "isArray", dispatch.Exactly(1), isArray)
}

func indexOf(seq []types.Value, v types.Value) int {
	for i, el := range seq {
		if types.Equal(el, v) {
			return i
		}
	}
	return -1
}

func arrayIncludes(subject types.Value, args []types.Value) (types.Value, error) {
	return indexOf(subject.([]types.Value), args[0]) >= 0, nil
}

func arrayIndexOf(subject types.Value, args []types.Value) (types.Value, error) {
	return int64(indexOf(subject.([]types.Value), args[0])), nil
}

func arrayJoin(subject types.Value, args []types.Value) (types.Value, error) {
	sep := ","
	if !types.IsAbsent(args[0]) {
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("separator must be a string, got %s", types.Describe(args[0]))
		}
		sep = s
	}
	seq := subject.([]types.Value)
	parts := make([]string, len(seq))
	for i, el := range seq {
		if el == nil || types.IsAbsent(el) {
			continue
		}
		parts[i] = text(el)
	}
	return strings.Join(parts, sep), nil
}

// position resolves a slice bound against length n.
func position(name string, v types.Value, n, fallback int) (int, error) {
	if types.IsAbsent(v) || v == nil {
		return fallback, nil
	}
	f, err := number(name, v)
	if err != nil {
		return 0, err
	}
	p := int(f)
	if p < 0 {
		p += n
	}
	return min(max(p, 0), n), nil
}

func arraySlice(subject types.Value, args []types.Value) (types.Value, error) {
	seq := subject.([]types.Value)
	start, err := position("start", args[0], len(seq), 0)
	if err != nil {
		return nil, err
	}
	end, err := position("end", args[1], len(seq), len(seq))
	if err != nil {
		return nil, err
	}
	out := []types.Value{}
	if start < end {
		out = types.Clone(seq[start:end]).([]types.Value)
	}
	return out, nil
}

// arrayConcat accepts surplus positional values: [seq, a, b] appends a and b.
func arrayConcat(subject types.Value, args []types.Value) (types.Value, error) {
	out := types.Clone(subject).([]types.Value)
	for _, a := range args {
		switch v := a.(type) {
		case []types.Value:
			out = append(out, types.Clone(v).([]types.Value)...)
		default:
			if types.IsAbsent(v) {
				continue
			}
			out = append(out, types.Clone(v))
		}
	}
	return out, nil
}

func arrayReverse(subject types.Value, _ []types.Value) (types.Value, error) {
	seq := subject.([]types.Value)
	out := make([]types.Value, len(seq))
	for i, el := range seq {
		out[len(seq)-1-i] = types.Clone(el)
	}
	return out, nil
}

func arrayLength(subject types.Value, _ []types.Value) (types.Value, error) {
	return int64(len(subject.([]types.Value))), nil
}

func isArray(args []types.Value) (types.Value, error) {
	return types.ShapeOf(args[0]) == types.ShapeSequence, nil
}
