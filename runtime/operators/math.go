package operators

import (
	"fmt"
	"math"

	"github.com/aledsdavies/operon/core/dispatch"
	"github.com/aledsdavies/operon/core/operator"
	"github.com/aledsdavies/operon/core/types"
)

const mathOp = "_math"

// Math installs the _math family. A bare "_math" node means "_math.max".
func Math(b *operator.Builder, c *dispatch.CatalogBuilder) {
	ob := b.Operator(mathOp).Summary("Numeric functions").Default("max")

	ob.Method("max").Spread().Accepts(types.ShapeSequence).Class().Pure().
		Summary("Largest of the numbers").Done()
	ob.Method("min").Spread().Accepts(types.ShapeSequence).Class().Pure().
		Summary("Smallest of the numbers").Done()
	ob.Method("pow").Named("base", "exponent").Accepts(containers...).Class().Pure().
		Arg(types.Arg("base", types.TypeNumber)).
		Arg(types.Arg("exponent", types.TypeNumber)).
		Summary("base raised to exponent").Done()

	c.Class(mathOp, "max", dispatch.AtLeast(1), extremum("max", math.Max)).
		Class(mathOp, "min", dispatch.AtLeast(1), extremum("min", math.Min)).
		Class(mathOp, "pow", dispatch.Exactly(2), mathPow)

	unary := []struct {
		name    string
		summary string
		fn      func(float64) (float64, error)
	}{
		{"abs", "Absolute value", wrap(math.Abs)},
		{"floor", "Largest integer not above the number", wrap(math.Floor)},
		{"ceil", "Smallest integer not below the number", wrap(math.Ceil)},
		{"round", "Nearest integer; halves round up", wrap(roundHalfUp)},
		{"sqrt", "Square root", sqrt},
	}
	for _, u := range unary {
		ob.Method(u.name).Single().Accepts(types.ShapeScalar).Class().Pure().
			Summary(u.summary).Done()
		c.Class(mathOp, u.name, dispatch.Exactly(1), unaryRoutine(u.fn))
	}
}

func wrap(fn func(float64) float64) func(float64) (float64, error) {
	return func(f float64) (float64, error) { return fn(f), nil }
}

// roundHalfUp rounds .5 toward positive infinity, so -2.5 becomes -2.
func roundHalfUp(f float64) float64 {
	return math.Floor(f + 0.5)
}

func sqrt(f float64) (float64, error) {
	if f < 0 {
		return 0, fmt.Errorf("square root of negative number %v", f)
	}
	return math.Sqrt(f), nil
}

func unaryRoutine(fn func(float64) (float64, error)) dispatch.ClassFunc {
	return func(args []types.Value) (types.Value, error) {
		f, err := number("argument", args[0])
		if err != nil {
			return nil, err
		}
		r, err := fn(f)
		if err != nil {
			return nil, err
		}
		return finite(r)
	}
}

func extremum(name string, pick func(a, b float64) float64) dispatch.ClassFunc {
	return func(args []types.Value) (types.Value, error) {
		var acc float64
		for i, a := range args {
			f, err := number(fmt.Sprintf("%s argument %d", name, i), a)
			if err != nil {
				return nil, err
			}
			if i == 0 {
				acc = f
				continue
			}
			acc = pick(acc, f)
		}
		return finite(acc)
	}
}

func mathPow(args []types.Value) (types.Value, error) {
	base, err := number("base", args[0])
	if err != nil {
		return nil, err
	}
	exp, err := number("exponent", args[1])
	if err != nil {
		return nil, err
	}
	return finite(math.Pow(base, exp))
}
