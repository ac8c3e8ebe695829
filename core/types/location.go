package types

import (
	"strconv"
	"strings"
)

// PathElem is one step in a Location: a mapping key or a sequence index.
type PathElem struct {
	Key     string
	Index   int
	IsIndex bool
}

// Location is the path of a node from the document root.
// Locations are values: Key and Index return extended copies.
type Location []PathElem

// Root returns the empty location of the document root.
func Root() Location {
	return Location{}
}

// Key returns a copy of l extended with a mapping key.
func (l Location) Key(key string) Location {
	out := make(Location, len(l), len(l)+1)
	copy(out, l)
	return append(out, PathElem{Key: key})
}

// Index returns a copy of l extended with a sequence index.
func (l Location) Index(i int) Location {
	out := make(Location, len(l), len(l)+1)
	copy(out, l)
	return append(out, PathElem{Index: i, IsIndex: true})
}

// Equal reports whether two locations name the same node.
func (l Location) Equal(other Location) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// String renders the location as a JSONPath-like expression:
// $.blocks[0].properties["_object.keys"]
func (l Location) String() string {
	var b strings.Builder
	b.WriteString("$")
	for _, elem := range l {
		if elem.IsIndex {
			b.WriteString("[")
			b.WriteString(strconv.Itoa(elem.Index))
			b.WriteString("]")
			continue
		}
		if isPlainKey(elem.Key) {
			b.WriteString(".")
			b.WriteString(elem.Key)
			continue
		}
		b.WriteString("[")
		b.WriteString(strconv.Quote(elem.Key))
		b.WriteString("]")
	}
	return b.String()
}

func isPlainKey(key string) bool {
	if key == "" {
		return false
	}
	for i, r := range key {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
