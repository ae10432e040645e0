// Package structdiff computes path-qualified differences between two documents.
package structdiff

import (
	"sort"
	"strconv"

	"github.com/finops-claw-gang/snapdrift/internal/document"
)

// Kind classifies a difference.
type Kind string

const (
	// Changed is a leaf-level disagreement between the two sides.
	Changed Kind = "changed"
	// ArrayLengthMismatch reports sequences of different lengths. Elements of such
	// sequences are not compared.
	ArrayLengthMismatch Kind = "array_length_mismatch"
)

// Entry is one difference at Path. For ArrayLengthMismatch, BeforeLen and AfterLen
// carry the two lengths.
type Entry struct {
	Path      string        `json:"path"`
	Kind      Kind          `json:"kind"`
	Before    document.Node `json:"before"`
	After     document.Node `json:"after"`
	BeforeLen int           `json:"before_len,omitempty"`
	AfterLen  int           `json:"after_len,omitempty"`
}

type frame struct {
	path          string
	before, after document.Node
}

// Diff compares before and after depth-first, mapping fields in lexicographic order
// and sequence items by ascending index. A field missing on one side compares as Null.
// An empty result means the documents are equal.
func Diff(before, after document.Node, path string) []Entry {
	var entries []Entry
	walk(before, after, path, func(e Entry) bool {
		entries = append(entries, e)
		return true
	})
	return entries
}

// Equal reports whether Diff would return no entries, stopping at the first difference.
func Equal(before, after document.Node) bool {
	equal := true
	walk(before, after, "", func(Entry) bool {
		equal = false
		return false
	})
	return equal
}

// walk drives the comparison with an explicit stack so deeply nested documents never
// grow the call stack. emit returns false to stop early.
func walk(before, after document.Node, path string, emit func(Entry) bool) {
	stack := []frame{{path: path, before: before, after: after}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		b, a := f.before, f.after
		bk, ak := b.Kind(), a.Kind()

		switch {
		case bk == document.KindNull && ak == document.KindNull:
			continue

		case bk == document.KindMapping && ak == document.KindMapping:
			keys := unionKeys(b, a)
			for i := len(keys) - 1; i >= 0; i-- {
				bv, _ := b.Field(keys[i])
				av, _ := a.Field(keys[i])
				stack = append(stack, frame{path: FieldPath(f.path, keys[i]), before: bv, after: av})
			}

		case bk == document.KindSequence && ak == document.KindSequence:
			if b.Len() != a.Len() {
				if !emit(Entry{
					Path:      f.path,
					Kind:      ArrayLengthMismatch,
					Before:    b,
					After:     a,
					BeforeLen: b.Len(),
					AfterLen:  a.Len(),
				}) {
					return
				}
				continue
			}
			for i := b.Len() - 1; i >= 0; i-- {
				stack = append(stack, frame{path: IndexPath(f.path, i), before: b.Index(i), after: a.Index(i)})
			}

		case bk == ak && bk.IsScalar():
			if !scalarEqual(b, a) {
				if !emit(Entry{Path: f.path, Kind: Changed, Before: b, After: a}) {
					return
				}
			}

		default:
			// Different variants, or Null against a value.
			if !emit(Entry{Path: f.path, Kind: Changed, Before: b, After: a}) {
				return
			}
		}
	}
}

func scalarEqual(b, a document.Node) bool {
	switch b.Kind() {
	case document.KindString:
		return b.Str() == a.Str()
	case document.KindNumber:
		return document.NumbersEqual(b.NumberText(), a.NumberText())
	case document.KindBool:
		return b.BoolValue() == a.BoolValue()
	}
	return false
}

func unionKeys(b, a document.Node) []string {
	keys := b.Keys()
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		seen[k] = struct{}{}
	}
	for _, k := range a.Keys() {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// FieldPath extends parent with a field name: "" + "a" is "a", "a" + "b" is "a.b".
func FieldPath(parent, field string) string {
	if parent == "" {
		return field
	}
	return parent + "." + field
}

// IndexPath extends parent with a sequence index: "a" + 0 is "a[0]".
func IndexPath(parent string, i int) string {
	return parent + "[" + strconv.Itoa(i) + "]"
}
