package session

import (
	"encoding/json"
	"fmt"
)

// OrderedMap is a string-keyed map that remembers insertion order.
// JSON objects do not guarantee key order across encoders, so the map
// is persisted as a list of [key, value] pairs and reconstituted into
// map form on load.
type OrderedMap struct {
	keys []string
	vals map[string]string
}

func NewOrderedMap() *OrderedMap {
	return &OrderedMap{vals: make(map[string]string)}
}

// Set inserts or updates a key. A new key is appended to the order;
// updating an existing key keeps its position.
func (m *OrderedMap) Set(key, value string) {
	if m.vals == nil {
		m.vals = make(map[string]string)
	}
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = value
}

func (m *OrderedMap) Get(key string) (string, bool) {
	v, ok := m.vals[key]
	return v, ok
}

func (m *OrderedMap) Delete(key string) {
	if _, ok := m.vals[key]; !ok {
		return
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m *OrderedMap) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order. The returned slice is a
// copy.
func (m *OrderedMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// MarshalJSON encodes the map as [["k","v"], ...] in insertion order.
func (m *OrderedMap) MarshalJSON() ([]byte, error) {
	pairs := make([][2]string, 0, len(m.keys))
	for _, k := range m.keys {
		pairs = append(pairs, [2]string{k, m.vals[k]})
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON rebuilds the map from its list-of-pairs form.
func (m *OrderedMap) UnmarshalJSON(data []byte) error {
	var pairs [][2]string
	if err := json.Unmarshal(data, &pairs); err != nil {
		return fmt.Errorf("ordered map: %w", err)
	}
	m.keys = m.keys[:0]
	m.vals = make(map[string]string, len(pairs))
	for _, p := range pairs {
		m.Set(p[0], p[1])
	}
	return nil
}
