// Package document provides the normalized in-memory representation of exported
// resource-configuration documents.
//
// A Node is a tagged variant over null, scalars (string, number, bool), sequences
// and mappings. Comparators dispatch on Kind instead of inspecting Go types, and
// numbers keep their literal text so they are compared numerically, never as strings.
package document

import (
	"sort"
	"strings"
)

// Kind is the variant tag of a Node.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	}
	return "unknown"
}

// IsScalar reports whether k is one of the scalar subtypes.
func (k Kind) IsScalar() bool {
	return k == KindString || k == KindNumber || k == KindBool
}

// Node is an immutable document value. The zero Node is Null.
type Node struct {
	kind   Kind
	text   string
	b      bool
	items  []Node
	fields map[string]Node
}

// Null returns the null node.
func Null() Node { return Node{} }

// String returns a string scalar.
func String(s string) Node { return Node{kind: KindString, text: s} }

// Number returns a number scalar holding the literal text, e.g. "4" or "1.5e3".
func Number(literal string) Node { return Node{kind: KindNumber, text: literal} }

// Bool returns a boolean scalar.
func Bool(b bool) Node { return Node{kind: KindBool, b: b} }

// Sequence returns an ordered list node.
func Sequence(items ...Node) Node {
	cp := make([]Node, len(items))
	copy(cp, items)
	return Node{kind: KindSequence, items: cp}
}

// Mapping returns a mapping node. The map is copied.
func Mapping(fields map[string]Node) Node {
	cp := make(map[string]Node, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Node{kind: KindMapping, fields: cp}
}

// Kind returns the variant tag.
func (n Node) Kind() Kind { return n.kind }

// IsNull reports whether n is the null node.
func (n Node) IsNull() bool { return n.kind == KindNull }

// Str returns the string value of a string scalar.
func (n Node) Str() string {
	if n.kind != KindString {
		return ""
	}
	return n.text
}

// NumberText returns the literal text of a number scalar.
func (n Node) NumberText() string {
	if n.kind != KindNumber {
		return ""
	}
	return n.text
}

// BoolValue returns the value of a boolean scalar.
func (n Node) BoolValue() bool { return n.kind == KindBool && n.b }

// Len returns the number of items of a sequence or fields of a mapping.
func (n Node) Len() int {
	switch n.kind {
	case KindSequence:
		return len(n.items)
	case KindMapping:
		return len(n.fields)
	}
	return 0
}

// Index returns the i-th item of a sequence, or Null when out of range.
func (n Node) Index(i int) Node {
	if n.kind != KindSequence || i < 0 || i >= len(n.items) {
		return Node{}
	}
	return n.items[i]
}

// Field returns the named field of a mapping.
func (n Node) Field(name string) (Node, bool) {
	if n.kind != KindMapping {
		return Node{}, false
	}
	v, ok := n.fields[name]
	return v, ok
}

// Keys returns the field names of a mapping in lexicographic order.
func (n Node) Keys() []string {
	if n.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, len(n.fields))
	for k := range n.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup walks a dotted field path such as "properties.vmId".
func (n Node) Lookup(dotted string) (Node, bool) {
	trimmed := strings.TrimSpace(dotted)
	if trimmed == "" {
		return Node{}, false
	}
	current := n
	for _, segment := range strings.Split(trimmed, ".") {
		next, ok := current.Field(strings.TrimSpace(segment))
		if !ok {
			return Node{}, false
		}
		current = next
	}
	return current, true
}

// ScalarText returns the textual value of a string or number scalar.
func (n Node) ScalarText() (string, bool) {
	switch n.kind {
	case KindString, KindNumber:
		return n.text, true
	}
	return "", false
}

// NormalizeIdentifier lower-cases a resource identifier for case-insensitive keying.
// Cloud resource identifiers are case-insensitive, nothing else is normalized.
func NormalizeIdentifier(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
