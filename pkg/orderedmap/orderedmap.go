// Package orderedmap provides a string-keyed map that remembers insertion
// order and keeps it through JSON and YAML encoding.
package orderedmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"

	"gopkg.in/yaml.v3"
)

// Map is a string-keyed map iterated in insertion order. The zero value is
// ready to use. Map is not safe for concurrent mutation.
type Map[V any] struct {
	keys   []string
	values map[string]V
}

// New creates an empty map.
func New[V any]() *Map[V] {
	return &Map[V]{}
}

// Set stores value under key. A new key is appended to the iteration order;
// replacing an existing key keeps its position.
func (m *Map[V]) Set(key string, value V) {
	if m.values == nil {
		m.values = make(map[string]V, 8)
	}

	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}

	m.values[key] = value
}

// Get returns the value stored under key.
func (m *Map[V]) Get(key string) (V, bool) {
	if m == nil || m.values == nil {
		var zero V

		return zero, false
	}

	v, ok := m.values[key]

	return v, ok
}

// Has reports whether key is present.
func (m *Map[V]) Has(key string) bool {
	_, ok := m.Get(key)

	return ok
}

// Len returns the number of entries.
func (m *Map[V]) Len() int {
	if m == nil {
		return 0
	}

	return len(m.keys)
}

// Keys returns a copy of the keys in insertion order.
func (m *Map[V]) Keys() []string {
	if m == nil {
		return nil
	}

	out := make([]string, len(m.keys))
	copy(out, m.keys)

	return out
}

// All iterates over the entries in insertion order.
func (m *Map[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		if m == nil {
			return
		}

		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// MarshalJSON encodes the map as a JSON object with keys in insertion order.
func (m *Map[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("encoding key %q: %w", k, err)
		}

		value, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("encoding value of %q: %w", k, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the document's key order.
func (m *Map[V]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading object start: %w", err)
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	m.keys = nil
	m.values = nil

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading key: %w", err)
		}

		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %v", tok)
		}

		var value V
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decoding value of %q: %w", key, err)
		}

		m.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("reading object end: %w", err)
	}

	return nil
}

// MarshalYAML encodes the map as a YAML mapping with keys in insertion
// order.
func (m *Map[V]) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	for _, k := range m.keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		valueNode := &yaml.Node{}

		if err := valueNode.Encode(m.values[k]); err != nil {
			return nil, fmt.Errorf("encoding value of %q: %w", k, err)
		}

		node.Content = append(node.Content, keyNode, valueNode)
	}

	return node, nil
}

// UnmarshalYAML decodes a YAML mapping, keeping the document's key order.
func (m *Map[V]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected YAML mapping at line %d", node.Line)
	}

	m.keys = nil
	m.values = nil

	for i := 0; i+1 < len(node.Content); i += 2 {
		var value V
		if err := node.Content[i+1].Decode(&value); err != nil {
			return fmt.Errorf("decoding value of %q: %w", node.Content[i].Value, err)
		}

		m.Set(node.Content[i].Value, value)
	}

	return nil
}
