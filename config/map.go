package config

import (
	"fmt"
	"sort"
)

// Property keys recognised on a destination definition.
const (
	PropertySource      = "source"
	PropertyScope       = "scope"
	PropertyAttributeID = "attribute-id"
)

// Map holds the properties of one destination definition. A nil Map means
// the destination was declared without a properties block.
type Map map[string]any

// String returns the property under key rendered as a string, or def when
// the key is absent or holds nil.
func (m Map) String(key, def string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}

	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprint(v)
}

// Has reports whether key is present.
func (m Map) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Keys returns the property names in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy. Cloning nil yields nil.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}

	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
