// Package document converts YAML and JSON documents to and from the value
// model, keeping mapping key order. JSON is read as a YAML subset.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aledsdavies/operon/core/types"
	"gopkg.in/yaml.v3"
)

const (
	// maxAliasDepth bounds alias nesting.
	maxAliasDepth = 64

	// A document may expand to expansionRatio times its source node count,
	// and never fewer than minNodeBudget nodes.
	expansionRatio = 100
	minNodeBudget  = 100_000
)

// ErrExpansionLimit is returned when aliases expand a document past its
// node budget.
var ErrExpansionLimit = errors.New("document expands to too many nodes")

// Position is a 1-based source position.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Document is a decoded document and the source position of every node.
type Document struct {
	Root      types.Value
	positions map[string]Position
}

// Position returns where the node at loc starts in the source.
func (d *Document) Position(loc types.Location) (Position, bool) {
	if d == nil || d.positions == nil {
		return Position{}, false
	}
	p, ok := d.positions[loc.String()]
	return p, ok
}

// Decode parses one YAML (or JSON) document. An empty input decodes to nil.
// JSON that YAML cannot read (such as the \/ escape) is decoded as strict
// JSON, without source positions.
func Decode(r io.Reader) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var node yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(src)).Decode(&node); err != nil {
		if errors.Is(err, io.EOF) {
			return &Document{}, nil
		}
		if json.Valid(src) {
			if root, jerr := DecodeJSON(bytes.NewReader(src)); jerr == nil {
				return &Document{Root: root}, nil
			}
		}
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	c := &converter{
		positions: make(map[string]Position),
		budget:    max(minNodeBudget, expansionRatio*countNodes(&node)),
	}
	root, err := c.convert(&node, types.Root(), 0)
	if err != nil {
		return nil, err
	}
	return &Document{Root: root, positions: c.positions}, nil
}

// DecodeValue parses a document and returns only its root value.
func DecodeValue(r io.Reader) (types.Value, error) {
	doc, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return doc.Root, nil
}

type converter struct {
	positions map[string]Position
	budget    int
	produced  int
}

// countNodes counts the nodes written in the source, without following
// aliases.
func countNodes(n *yaml.Node) int {
	count := 1
	for _, child := range n.Content {
		count += countNodes(child)
	}
	return count
}

func (c *converter) spend(n *yaml.Node) error {
	c.produced++
	if c.produced > c.budget {
		return fmt.Errorf("line %d: %w (limit %d)", n.Line, ErrExpansionLimit, c.budget)
	}
	return nil
}

func (c *converter) convert(n *yaml.Node, loc types.Location, aliasDepth int) (types.Value, error) {
	if err := c.spend(n); err != nil {
		return nil, err
	}
	if n.Kind != yaml.DocumentNode {
		if _, seen := c.positions[loc.String()]; !seen {
			c.positions[loc.String()] = Position{Line: n.Line, Column: n.Column}
		}
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return c.convert(n.Content[0], loc, aliasDepth)

	case yaml.AliasNode:
		if aliasDepth >= maxAliasDepth {
			return nil, fmt.Errorf("line %d: alias %q nested too deeply", n.Line, n.Value)
		}
		return c.convert(n.Alias, loc, aliasDepth+1)

	case yaml.SequenceNode:
		out := make([]types.Value, len(n.Content))
		for i, child := range n.Content {
			v, err := c.convert(child, loc.Index(i), aliasDepth)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case yaml.MappingNode:
		m := types.NewMap()
		if err := c.fillMapping(m, n, loc, aliasDepth, false); err != nil {
			return nil, err
		}
		return m, nil

	case yaml.ScalarNode:
		return scalar(n)
	}

	return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
}

// fillMapping copies the entries of n into m. Merged entries never replace
// keys that are already present.
func (c *converter) fillMapping(m *types.Map, n *yaml.Node, loc types.Location, aliasDepth int, merging bool) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valueNode := n.Content[i], n.Content[i+1]

		if keyNode.ShortTag() == "!!merge" {
			if err := c.merge(m, valueNode, loc, aliasDepth); err != nil {
				return err
			}
			continue
		}

		if keyNode.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: mapping keys must be scalars", keyNode.Line)
		}
		key := keyNode.Value
		if merging && m.Has(key) {
			continue
		}
		v, err := c.convert(valueNode, loc.Key(key), aliasDepth)
		if err != nil {
			return err
		}
		m.Set(key, v)
	}
	return nil
}

// merge applies a "<<" merge key. Explicit keys of the enclosing mapping win
// over merged ones wherever they appear.
func (c *converter) merge(m *types.Map, n *yaml.Node, loc types.Location, aliasDepth int) error {
	if err := c.spend(n); err != nil {
		return err
	}
	if aliasDepth >= maxAliasDepth {
		return fmt.Errorf("line %d: merge nested too deeply", n.Line)
	}
	switch n.Kind {
	case yaml.AliasNode:
		return c.merge(m, n.Alias, loc, aliasDepth+1)
	case yaml.MappingNode:
		return c.fillMapping(m, n, loc, aliasDepth, true)
	case yaml.SequenceNode:
		for _, child := range n.Content {
			if err := c.merge(m, child, loc, aliasDepth); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("line %d: merge value must be a mapping", n.Line)
}

func scalar(n *yaml.Node) (types.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return b, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return i, nil
		}
		// Out of int64 range
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return f, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return f, nil
	default:
		// !!str, !!timestamp, !!binary and custom tags keep their source text
		return n.Value, nil
	}
}
