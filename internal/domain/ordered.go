package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OrderedMap is a string-keyed map that remembers insertion order and
// round-trips through JSON objects without reordering keys.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrderedMap returns an empty map.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{values: map[string]V{}}
}

// Len returns the number of keys.
func (m *OrderedMap[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Has reports whether key is present.
func (m *OrderedMap[V]) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.values[key]
	return ok
}

// Get returns the value stored under key.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	var zero V
	if m == nil {
		return zero, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key. A key that is already present keeps its position.
func (m *OrderedMap[V]) Set(key string, value V) {
	if m.values == nil {
		m.values = map[string]V{}
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Keys returns a copy of the keys in insertion order.
func (m *OrderedMap[V]) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Each calls fn for every entry in insertion order until fn returns false.
func (m *OrderedMap[V]) Each(fn func(key string, value V) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// MarshalJSON encodes the map as a JSON object in insertion order.
// HTML characters are left unescaped.
func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(k); err != nil {
			return nil, fmt.Errorf("encode key %q: %w", k, err)
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(m.values[k]); err != nil {
			return nil, fmt.Errorf("encode value for %q: %w", k, err)
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the document.
func (m *OrderedMap[V]) UnmarshalJSON(data []byte) error {
	m.keys = nil
	m.values = map[string]V{}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("ordered map: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("ordered map: expected string key, got %v", tok)
		}
		var value V
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("ordered map: decode %q: %w", key, err)
		}
		m.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}
