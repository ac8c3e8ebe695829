package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map"
)

// Value is a runtime value in a document.
//
// Documents are made of:
//   - []Value for sequences
//   - *Map for mappings (key order is preserved)
//   - string, bool, nil, int, int64 and float64 for scalars
//   - Absent for a named argument that was not supplied
type Value = any

type absentValue struct{}

func (absentValue) String() string { return "<absent>" }

func (absentValue) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Absent marks a declared named argument that the caller did not supply.
// It is distinct from nil, which is an explicit null in the document.
var Absent Value = absentValue{}

// IsAbsent reports whether v is the Absent marker.
func IsAbsent(v Value) bool {
	_, ok := v.(absentValue)
	return ok
}

// Map is a mapping value with insertion ordered string keys.
type Map struct {
	om *orderedmap.OrderedMap
}

// NewMap creates an empty mapping.
func NewMap() *Map {
	return &Map{om: orderedmap.New()}
}

// MapOf builds a mapping from alternating key/value arguments.
// Keys must be strings.
func MapOf(kv ...Value) *Map {
	if len(kv)%2 != 0 {
		panic("types.MapOf: odd number of arguments")
	}
	m := NewMap()
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("types.MapOf: key %v is not a string", kv[i]))
		}
		m.Set(key, kv[i+1])
	}
	return m
}

func (m *Map) inner() *orderedmap.OrderedMap {
	if m.om == nil {
		m.om = orderedmap.New()
	}
	return m.om
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil || m.om == nil {
		return nil, false
	}
	return m.om.Get(key)
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores value under key. Existing keys keep their position.
func (m *Map) Set(key string, value Value) {
	m.inner().Set(key, value)
}

// Delete removes key.
func (m *Map) Delete(key string) {
	if m == nil || m.om == nil {
		return
	}
	m.om.Delete(key)
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil || m.om == nil {
		return 0
	}
	return m.om.Len()
}

// Range calls fn for each entry in key order until fn returns false.
func (m *Map) Range(fn func(key string, value Value) bool) {
	if m == nil || m.om == nil {
		return
	}
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key.(string), pair.Value) {
			return
		}
	}
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, m.Len())
	m.Range(func(key string, _ Value) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Values returns the values in key order.
func (m *Map) Values() []Value {
	values := make([]Value, 0, m.Len())
	m.Range(func(_ string, value Value) bool {
		values = append(values, value)
		return true
	})
	return values
}

// Equal reports deep equality including key order.
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	a, b := m.Keys(), other.Keys()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
		av, _ := m.Get(a[i])
		bv, _ := other.Get(b[i])
		if !Equal(av, bv) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the mapping as a JSON object in key order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	var err error
	m.Range(func(key string, value Value) bool {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		var kb, vb []byte
		if kb, err = json.Marshal(key); err != nil {
			return false
		}
		if vb, err = json.Marshal(value); err != nil {
			err = fmt.Errorf("key %q: %w", key, err)
			return false
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return true
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// String renders the mapping as JSON.
func (m *Map) String() string {
	b, err := m.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<map: %v>", err)
	}
	return string(b)
}

// Clone returns a deep copy of v. Scalars are returned as is.
func Clone(v Value) Value {
	switch t := v.(type) {
	case []Value:
		out := make([]Value, len(t))
		for i, el := range t {
			out[i] = Clone(el)
		}
		return out
	case *Map:
		out := NewMap()
		t.Range(func(key string, value Value) bool {
			out.Set(key, Clone(value))
			return true
		})
		return out
	default:
		return v
	}
}

// Equal reports deep structural equality. Numbers compare by value
// regardless of their Go representation.
func Equal(a, b Value) bool {
	switch at := a.(type) {
	case []Value:
		bt, ok := b.([]Value)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !Equal(at[i], bt[i]) {
				return false
			}
		}
		return true
	case *Map:
		bt, ok := b.(*Map)
		return ok && at.Equal(bt)
	}
	if ai, ok := asInt64(a); ok {
		if bi, ok := asInt64(b); ok {
			return ai == bi
		}
	}
	if af, ok := AsFloat(a); ok {
		bf, ok := AsFloat(b)
		return ok && af == bf
	}
	return a == b
}

// asInt64 returns integer values exactly, without a float64 round trip.
func asInt64(v Value) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), true
		}
	}
	return 0, false
}

// AsFloat converts numeric scalars to float64.
func AsFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// Number normalizes a float result: integral values within the int64 range
// become int64 so documents keep integer formatting.
func Number(f float64) Value {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// Describe names the kind of a value for diagnostics.
func Describe(v Value) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case absentValue:
		return "absent"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []Value:
		return "sequence"
	case *Map:
		return "mapping"
	default:
		if _, ok := AsFloat(t); ok {
			return "number"
		}
		return fmt.Sprintf("%T", v)
	}
}

// ToPlain converts a value to plain Go collections (map[string]any,
// []any) suitable for encoding/json and JSON Schema validation.
// With jsonNumbers set, numbers become json.Number. Absent becomes nil.
func ToPlain(v Value, jsonNumbers bool) any {
	switch t := v.(type) {
	case []Value:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = ToPlain(el, jsonNumbers)
		}
		return out
	case *Map:
		out := make(map[string]any, t.Len())
		t.Range(func(key string, value Value) bool {
			out[key] = ToPlain(value, jsonNumbers)
			return true
		})
		return out
	case absentValue:
		return nil
	}
	if jsonNumbers {
		if f, ok := AsFloat(v); ok {
			b, err := json.Marshal(Number(f))
			if err == nil {
				return json.Number(b)
			}
		}
	}
	return v
}

// FromPlain converts plain Go collections into document values.
// Keys of plain maps are sorted because their order is unknown.
func FromPlain(v any) Value {
	switch t := v.(type) {
	case []any:
		out := make([]Value, len(t))
		for i, el := range t {
			out[i] = FromPlain(el)
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := NewMap()
		for _, k := range keys {
			out.Set(k, FromPlain(t[k]))
		}
		return out
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	default:
		return v
	}
}
