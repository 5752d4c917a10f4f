// Package normalization maps loosely written names (flags, YAML values,
// environment variables) onto typed enum values.
package normalization

import (
	"slices"
	"strings"
)

// Normalizer maps case-insensitive, space-trimmed names to values of T.
type Normalizer[T comparable] struct {
	values       map[string]T
	defaultValue T
	keys         []string
}

// NewNormalizer creates a normalizer over values. Several names may map to
// the same value (aliases).
func NewNormalizer[T comparable](values map[string]T, defaultValue T) *Normalizer[T] {
	n := &Normalizer[T]{
		values:       make(map[string]T, len(values)),
		defaultValue: defaultValue,
		keys:         make([]string, 0, len(values)),
	}
	for k, v := range values {
		key := normalize(k)
		n.values[key] = v
		n.keys = append(n.keys, key)
	}
	slices.Sort(n.keys)
	return n
}

// Normalize returns the value named by raw, or the default.
func (n *Normalizer[T]) Normalize(raw string) T {
	v, _ := n.Lookup(raw)
	return v
}

// Lookup returns the value named by raw. ok is false, and the default is
// returned, when raw names no value.
func (n *Normalizer[T]) Lookup(raw string) (T, bool) {
	if v, ok := n.values[normalize(raw)]; ok {
		return v, true
	}
	return n.defaultValue, false
}

// ValidKeys returns every accepted name in lexical order.
func (n *Normalizer[T]) ValidKeys() []string {
	return slices.Clone(n.keys)
}

// Describe lists the accepted names for error messages ("a, b or c").
func (n *Normalizer[T]) Describe() string {
	switch len(n.keys) {
	case 0:
		return ""
	case 1:
		return n.keys[0]
	}
	return strings.Join(n.keys[:len(n.keys)-1], ", ") + " or " + n.keys[len(n.keys)-1]
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
