package types

import "strings"

// Shape is the structural tag of a runtime value.
// Shapes form a closed set; operators never inspect Go types directly.
type Shape uint8

const (
	ShapeScalar   Shape = 1 << iota // string, number, boolean, null, absent
	ShapeSequence                   // []Value
	ShapeMapping                    // *Map
)

// String returns the string representation of the Shape
func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeSequence:
		return "sequence"
	case ShapeMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// ParseShape converts a shape name into a Shape.
// "array" and "object" are accepted as aliases for sequence and mapping.
func ParseShape(name string) (Shape, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "scalar":
		return ShapeScalar, true
	case "sequence", "array":
		return ShapeSequence, true
	case "mapping", "object":
		return ShapeMapping, true
	default:
		return 0, false
	}
}

// ShapeSet is a set of shapes.
type ShapeSet uint8

// AnyShape accepts every shape.
const AnyShape = ShapeSet(ShapeScalar | ShapeSequence | ShapeMapping)

// Shapes builds a ShapeSet from the given shapes.
func Shapes(shapes ...Shape) ShapeSet {
	var set ShapeSet
	for _, s := range shapes {
		set |= ShapeSet(s)
	}
	return set
}

// Has reports whether the set contains the shape.
func (s ShapeSet) Has(shape Shape) bool {
	return s&ShapeSet(shape) != 0
}

// Empty reports whether the set has no members.
func (s ShapeSet) Empty() bool {
	return s == 0
}

// SubsetOf reports whether every member of s is also in other.
func (s ShapeSet) SubsetOf(other ShapeSet) bool {
	return s&^other == 0
}

// List returns the members in a stable order: sequence, mapping, scalar.
func (s ShapeSet) List() []Shape {
	out := make([]Shape, 0, 3)
	for _, shape := range []Shape{ShapeSequence, ShapeMapping, ShapeScalar} {
		if s.Has(shape) {
			out = append(out, shape)
		}
	}
	return out
}

// String renders the set as a comma separated list.
func (s ShapeSet) String() string {
	shapes := s.List()
	if len(shapes) == 0 {
		return "none"
	}
	names := make([]string, len(shapes))
	for i, shape := range shapes {
		names[i] = shape.String()
	}
	return strings.Join(names, ", ")
}

// ShapeOf returns the structural tag of a value.
func ShapeOf(v Value) Shape {
	switch v.(type) {
	case []Value:
		return ShapeSequence
	case *Map:
		return ShapeMapping
	default:
		return ShapeScalar
	}
}
