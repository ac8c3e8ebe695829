package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/aledsdavies/operon/core/types"
	"gopkg.in/yaml.v3"
)

// ToNode converts a value into a yaml.Node tree, keeping key order.
func ToNode(v types.Value) (*yaml.Node, error) {
	switch t := v.(type) {
	case []types.Value:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, el := range t {
			child, err := ToNode(el)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			n.Content = append(n.Content, child)
		}
		return n, nil

	case *types.Map:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		var err error
		t.Range(func(key string, value types.Value) bool {
			var child *yaml.Node
			child, err = ToNode(value)
			if err != nil {
				err = fmt.Errorf("%s: %w", key, err)
				return false
			}
			keyNode := &yaml.Node{}
			if err = keyNode.Encode(key); err != nil {
				return false
			}
			n.Content = append(n.Content, keyNode, child)
			return true
		})
		if err != nil {
			return nil, err
		}
		return n, nil

	case float64:
		return floatNode(t), nil
	}

	if types.IsAbsent(v) {
		v = nil
	}
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}

func floatNode(f float64) *yaml.Node {
	var s string
	switch {
	case math.IsNaN(f):
		s = ".nan"
	case math.IsInf(f, 1):
		s = ".inf"
	case math.IsInf(f, -1):
		s = "-.inf"
	default:
		s = strconv.FormatFloat(f, 'g', -1, 64)
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			s += ".0"
		}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: s}
}

// EncodeYAML writes a value as a YAML document.
func EncodeYAML(w io.Writer, v types.Value) error {
	n, err := ToNode(v)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return enc.Close()
}

// MarshalJSON renders a value as JSON, keeping key order.
func MarshalJSON(v types.Value) ([]byte, error) {
	return json.Marshal(stripAbsent(v))
}

// EncodeJSON writes a value as indented JSON followed by a newline.
func EncodeJSON(w io.Writer, v types.Value) error {
	raw, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}

func stripAbsent(v types.Value) types.Value {
	switch t := v.(type) {
	case []types.Value:
		out := make([]types.Value, len(t))
		for i, el := range t {
			out[i] = stripAbsent(el)
		}
		return out
	case *types.Map:
		out := types.NewMap()
		t.Range(func(key string, value types.Value) bool {
			out.Set(key, stripAbsent(value))
			return true
		})
		return out
	}
	if types.IsAbsent(v) {
		return nil
	}
	return v
}
