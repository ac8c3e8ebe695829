package dispatch

import (
	"fmt"
	"strconv"

	"github.com/aledsdavies/operon/core/types"
	"github.com/fxamacker/cbor/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/blake2b"
)

// CanonicalCall is the deterministic form of a pure call used for cache keys.
// Mapping key order is kept because it is observable (e.g. _object.keys).
type CanonicalCall struct {
	Version  uint8 // Canonical format version
	Operator string
	Method   string
	Args     []CanonicalValue
}

// CanonicalValue is a union type for document values in canonical form.
type CanonicalValue struct {
	Kind  uint8 // one of the canon* constants
	Str   string
	Int   int64
	Float float64
	Bool  bool
	Keys  []string         // mapping keys, in document order
	Items []CanonicalValue // sequence elements or mapping values
}

const (
	canonNull uint8 = iota
	canonAbsent
	canonString
	canonInt
	canonFloat
	canonBool
	canonSequence
	canonMapping
	canonUint
)

func toCanonicalValue(v types.Value) (CanonicalValue, error) {
	switch t := v.(type) {
	case nil:
		return CanonicalValue{Kind: canonNull}, nil
	case string:
		return CanonicalValue{Kind: canonString, Str: t}, nil
	case bool:
		return CanonicalValue{Kind: canonBool, Bool: t}, nil
	case []types.Value:
		cv := CanonicalValue{Kind: canonSequence, Items: make([]CanonicalValue, len(t))}
		for i, el := range t {
			item, err := toCanonicalValue(el)
			if err != nil {
				return cv, fmt.Errorf("[%d]: %w", i, err)
			}
			cv.Items[i] = item
		}
		return cv, nil
	case *types.Map:
		cv := CanonicalValue{Kind: canonMapping}
		var err error
		t.Range(func(key string, value types.Value) bool {
			var item CanonicalValue
			item, err = toCanonicalValue(value)
			if err != nil {
				err = fmt.Errorf("%q: %w", key, err)
				return false
			}
			cv.Keys = append(cv.Keys, key)
			cv.Items = append(cv.Items, item)
			return true
		})
		return cv, err
	}
	if types.IsAbsent(v) {
		return CanonicalValue{Kind: canonAbsent}, nil
	}
	// Integers and floats never share a kind: 2 and 2.0 encode differently.
	switch n := v.(type) {
	case int:
		return CanonicalValue{Kind: canonInt, Int: int64(n)}, nil
	case int32:
		return CanonicalValue{Kind: canonInt, Int: int64(n)}, nil
	case int64:
		return CanonicalValue{Kind: canonInt, Int: n}, nil
	case uint64:
		return CanonicalValue{Kind: canonUint, Str: strconv.FormatUint(n, 10)}, nil
	case float32:
		return CanonicalValue{Kind: canonFloat, Float: float64(n)}, nil
	case float64:
		return CanonicalValue{Kind: canonFloat, Float: n}, nil
	}
	return CanonicalValue{}, fmt.Errorf("value of type %T has no canonical form", v)
}

// resultCache memoizes pure method results by the BLAKE2b-256 digest of the
// canonical CBOR encoding of the call.
type resultCache struct {
	entries *lru.Cache[[32]byte, types.Value]
	encMode cbor.EncMode
}

func newResultCache(size int) (*resultCache, error) {
	entries, err := lru.New[[32]byte, types.Value](size)
	if err != nil {
		return nil, fmt.Errorf("result cache: %w", err)
	}
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("result cache: %w", err)
	}
	return &resultCache{entries: entries, encMode: encMode}, nil
}

// key digests a call. It fails for values with no canonical form; such calls
// are simply not cached.
func (c *resultCache) key(op, method string, args []types.Value) ([32]byte, error) {
	cc := CanonicalCall{
		Version:  1,
		Operator: op,
		Method:   method,
		Args:     make([]CanonicalValue, len(args)),
	}
	for i, a := range args {
		cv, err := toCanonicalValue(a)
		if err != nil {
			return [32]byte{}, fmt.Errorf("argument %d: %w", i, err)
		}
		cc.Args[i] = cv
	}

	data, err := c.encMode.Marshal(cc)
	if err != nil {
		return [32]byte{}, fmt.Errorf("failed to marshal canonical call: %w", err)
	}
	return blake2b.Sum256(data), nil
}

func (c *resultCache) get(k [32]byte) (types.Value, bool) {
	v, ok := c.entries.Get(k)
	if !ok {
		return nil, false
	}
	return types.Clone(v), true
}

func (c *resultCache) put(k [32]byte, v types.Value) {
	c.entries.Add(k, types.Clone(v))
}

func (c *resultCache) len() int {
	return c.entries.Len()
}
