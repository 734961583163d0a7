// Package value implements the tagged-variant configuration value used
// for front matter and config-cascade documents: scalar, list, or map,
// mirroring the open, dynamically-shaped YAML mapping described in the
// front-matter vocabulary.
package value

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindList
	KindMap
)

// Value is a tagged variant: scalar(string|number|bool|null), list, or map.
// Scalars keep their native Go type in Scalar so callers can distinguish
// bool/number/string without re-parsing.
type Value struct {
	Kind   Kind
	Scalar any
	List   []Value
	Map    map[string]Value
	// keys preserves insertion order for the Map variant. Order is not
	// observable outside debug output, per the data model's invariant.
	keys []string
}

// Null returns the null/empty value.
func Null() Value { return Value{Kind: KindNull} }

// NewScalar wraps a Go scalar (string, bool, int, float64, nil) as a Value.
func NewScalar(v any) Value {
	if v == nil {
		return Null()
	}
	return Value{Kind: KindScalar, Scalar: v}
}

// NewList wraps a slice of values.
func NewList(items []Value) Value {
	return Value{Kind: KindList, List: items}
}

// NewMap creates an empty ordered map value.
func NewMap() Value {
	return Value{Kind: KindMap, Map: map[string]Value{}}
}

// Set inserts or replaces a key in a map value, tracking insertion order.
func (v *Value) Set(key string, val Value) {
	if v.Kind != KindMap {
		*v = NewMap()
	}
	if _, exists := v.Map[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.Map[key] = val
}

// Delete removes a key from a map value.
func (v *Value) Delete(key string) {
	if v.Kind != KindMap {
		return
	}
	if _, exists := v.Map[key]; !exists {
		return
	}
	delete(v.Map, key)
	for i, k := range v.keys {
		if k == key {
			v.keys = append(v.keys[:i], v.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the map's keys in insertion order.
func (v Value) Keys() []string {
	if v.Kind != KindMap {
		return nil
	}
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// SortedKeys returns the map's keys sorted lexicographically, used
// anywhere observable ordering must be deterministic but not
// insertion-dependent (e.g. argv emission).
func (v Value) SortedKeys() []string {
	out := append([]string(nil), v.Keys()...)
	sort.Strings(out)
	return out
}

// Get looks up a key in a map value. Returns (Null, false) for non-maps
// or missing keys.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != KindMap {
		return Null(), false
	}
	val, ok := v.Map[key]
	return val, ok
}

// IsNull reports whether this is the null/empty/zero-valued variant.
func (v Value) IsNull() bool {
	return v.Kind == KindNull || (v.Kind == KindScalar && v.Scalar == nil)
}

// IsFalse reports whether this value is the scalar boolean false.
func (v Value) IsFalse() bool {
	b, ok := v.Scalar.(bool)
	return v.Kind == KindScalar && ok && !b
}

// Truthy reports whether the value is anything other than IsNull() or
// the literal boolean false.
func (v Value) Truthy() bool {
	return !v.IsNull() && !v.IsFalse()
}

// String renders a scalar value as a string for argv/template binding.
// Non-scalars render as their YAML-ish form for diagnostics.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindScalar:
		return scalarToString(v.Scalar)
	case KindList:
		parts := make([]string, len(v.List))
		for i, item := range v.List {
			parts[i] = item.String()
		}
		return fmt.Sprint(parts)
	case KindMap:
		return fmt.Sprintf("map[%d keys]", len(v.Map))
	}
	return ""
}

func scalarToString(s any) string {
	switch t := s.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// FromYAMLNode converts a decoded yaml.Node into a Value tree. Mapping
// key order from the source document is preserved via Set's insertion
// tracking.
func FromYAMLNode(node *yaml.Node) (Value, error) {
	if node == nil {
		return Null(), nil
	}
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null(), nil
		}
		return FromYAMLNode(node.Content[0])
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valNode := node.Content[i+1]
			val, err := FromYAMLNode(valNode)
			if err != nil {
				return Value{}, err
			}
			m.Set(keyNode.Value, val)
		}
		return m, nil
	case yaml.SequenceNode:
		items := make([]Value, 0, len(node.Content))
		for _, c := range node.Content {
			val, err := FromYAMLNode(c)
			if err != nil {
				return Value{}, err
			}
			items = append(items, val)
		}
		return NewList(items), nil
	case yaml.ScalarNode:
		return scalarFromNode(node), nil
	case yaml.AliasNode:
		return FromYAMLNode(node.Alias)
	default:
		return Null(), fmt.Errorf("value: unsupported yaml node kind %v at line %d", node.Kind, node.Line)
	}
}

func scalarFromNode(node *yaml.Node) Value {
	var decoded any
	if err := node.Decode(&decoded); err != nil {
		return NewScalar(node.Value)
	}
	return NewScalar(decoded)
}

// ToYAMLNode renders a Value back into a *yaml.Node. Map keys are
// emitted in insertion order.
func ToYAMLNode(v Value) *yaml.Node {
	switch v.Kind {
	case KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case KindScalar:
		n := &yaml.Node{}
		_ = n.Encode(v.Scalar)
		return n
	case KindList:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range v.List {
			n.Content = append(n.Content, ToYAMLNode(item))
		}
		return n
	case KindMap:
		n := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range v.Keys() {
			key := &yaml.Node{Kind: yaml.ScalarNode, Value: k}
			val, _ := v.Get(k)
			n.Content = append(n.Content, key, ToYAMLNode(val))
		}
		return n
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

// MergeShallow merges override on top of base for map values: override's
// keys win, base keys not present in override are kept, arrays/scalars
// are replaced wholesale (no deep array merge), matching the config
// cascade's merge rule. Non-map inputs: override wins outright.
func MergeShallow(base, override Value) Value {
	if base.Kind != KindMap || override.Kind != KindMap {
		if override.IsNull() {
			return base
		}
		return override
	}
	out := NewMap()
	for _, k := range base.Keys() {
		bv, _ := base.Get(k)
		out.Set(k, bv)
	}
	for _, k := range override.Keys() {
		ov, _ := override.Get(k)
		out.Set(k, ov)
	}
	return out
}
