package types

import (
	"fmt"
	"regexp"
)

// ParamType is the JSON type of a named argument.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeInt    ParamType = "integer"
	TypeNumber ParamType = "number"
	TypeBool   ParamType = "boolean"
	TypeArray  ParamType = "array"
	TypeObject ParamType = "object"
	TypeNull   ParamType = "null"
)

// ArgSchema constrains the value of one named argument.
// Constraints are optional; an ArgSchema with no fields accepts anything.
type ArgSchema struct {
	Name        string      // Argument name, must match a declared name
	Types       []ParamType // Allowed JSON types (empty = any)
	Description string      // Human-readable description

	// Numeric constraints
	Minimum *float64
	Maximum *float64

	// String and array length constraints
	MinLength *int
	MaxLength *int

	Pattern *string // Regex for strings
	Format  *Format // Typed string format (uri, cidr, semver, ...)
	Enum    []any   // Allowed values

	Items *ArgSchema // Element schema for arrays
}

// Check validates the schema itself. It is called when the registry is built,
// so broken constraints surface at startup.
func (a *ArgSchema) Check() error {
	if a.Name == "" {
		return fmt.Errorf("argument name cannot be empty")
	}
	for _, typ := range a.Types {
		if !isValidParamType(typ) {
			return fmt.Errorf("argument %q: unknown type %q", a.Name, typ)
		}
	}
	if a.Pattern != nil {
		if _, err := regexp.Compile(*a.Pattern); err != nil {
			return fmt.Errorf("argument %q: invalid regex pattern %q: %w", a.Name, *a.Pattern, err)
		}
	}
	if a.Minimum != nil && a.Maximum != nil && *a.Minimum > *a.Maximum {
		return fmt.Errorf("argument %q: minimum (%v) cannot be greater than maximum (%v)", a.Name, *a.Minimum, *a.Maximum)
	}
	if a.MinLength != nil && a.MaxLength != nil && *a.MinLength > *a.MaxLength {
		return fmt.Errorf("argument %q: minLength (%d) cannot be greater than maxLength (%d)", a.Name, *a.MinLength, *a.MaxLength)
	}
	if a.Format != nil && !IsValidFormat(*a.Format) {
		return fmt.Errorf("argument %q: unknown format %q", a.Name, *a.Format)
	}
	if a.Items != nil {
		items := *a.Items
		if items.Name == "" {
			items.Name = a.Name + "[]"
		}
		if err := items.Check(); err != nil {
			return err
		}
	}
	return nil
}

func isValidParamType(typ ParamType) bool {
	switch typ {
	case TypeString, TypeInt, TypeNumber, TypeBool, TypeArray, TypeObject, TypeNull:
		return true
	default:
		return false
	}
}

// Arg starts an ArgSchema for the named argument.
func Arg(name string, types ...ParamType) *ArgSchema {
	return &ArgSchema{Name: name, Types: types}
}

// Describe sets the description.
func (a *ArgSchema) Describe(desc string) *ArgSchema {
	a.Description = desc
	return a
}

// Min sets the minimum value constraint.
func (a *ArgSchema) Min(v float64) *ArgSchema {
	a.Minimum = &v
	return a
}

// Max sets the maximum value constraint.
func (a *ArgSchema) Max(v float64) *ArgSchema {
	a.Maximum = &v
	return a
}

// Length sets the minimum and maximum length. A negative max means unbounded.
func (a *ArgSchema) Length(minLen, maxLen int) *ArgSchema {
	a.MinLength = &minLen
	if maxLen >= 0 {
		a.MaxLength = &maxLen
	}
	return a
}

// Matching sets a regex pattern constraint.
func (a *ArgSchema) Matching(pattern string) *ArgSchema {
	a.Pattern = &pattern
	return a
}

// WithFormat sets a typed format constraint.
func (a *ArgSchema) WithFormat(f Format) *ArgSchema {
	a.Format = &f
	return a
}

// OneOf restricts the argument to the given values.
func (a *ArgSchema) OneOf(values ...any) *ArgSchema {
	a.Enum = values
	return a
}

// Clone returns a deep copy.
func (a *ArgSchema) Clone() *ArgSchema {
	if a == nil {
		return nil
	}
	out := *a
	out.Types = append([]ParamType(nil), a.Types...)
	if a.Minimum != nil {
		v := *a.Minimum
		out.Minimum = &v
	}
	if a.Maximum != nil {
		v := *a.Maximum
		out.Maximum = &v
	}
	if a.MinLength != nil {
		v := *a.MinLength
		out.MinLength = &v
	}
	if a.MaxLength != nil {
		v := *a.MaxLength
		out.MaxLength = &v
	}
	if a.Pattern != nil {
		v := *a.Pattern
		out.Pattern = &v
	}
	if a.Format != nil {
		v := *a.Format
		out.Format = &v
	}
	if a.Enum != nil {
		out.Enum = append([]any(nil), a.Enum...)
	}
	out.Items = a.Items.Clone()
	return &out
}

// Elements sets the schema of array elements.
func (a *ArgSchema) Elements(items *ArgSchema) *ArgSchema {
	a.Items = items
	return a
}
