package snapshot

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/finops-claw-gang/snapdrift/internal/faults"
	"github.com/finops-claw-gang/snapdrift/internal/structdiff"
)

// EqualityMode decides when two paired documents count as changed.
type EqualityMode string

const (
	// EqualityStructural compares documents field by field.
	EqualityStructural EqualityMode = "structural"
	// EqualityCanonical compares the RFC 8785 serializations byte for byte.
	EqualityCanonical EqualityMode = "canonical"
)

// ParseEqualityMode parses structural or canonical.
func ParseEqualityMode(s string) (EqualityMode, error) {
	switch m := EqualityMode(strings.ToLower(strings.TrimSpace(s))); m {
	case EqualityStructural, EqualityCanonical:
		return m, nil
	}
	return "", faults.New(faults.ConfigError, fmt.Sprintf("invalid equality mode %q (must be structural or canonical)", s), "")
}

// Result classifies every key of two sets. All lists are sorted and disjoint.
type Result struct {
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Changed   []string `json:"changed"`
	Unchanged []string `json:"unchanged"`
}

// Empty reports whether nothing was added, removed or changed.
func (r Result) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Changed) == 0
}

// Reconcile classifies the keys of base and current. A nil set counts as empty.
func Reconcile(base, current *ResourceSet, mode EqualityMode) Result {
	baseKeys := keysOf(base)
	currentKeys := keysOf(current)

	res := Result{
		Added:     []string{},
		Removed:   []string{},
		Changed:   []string{},
		Unchanged: []string{},
	}

	// both key lists are sorted: merge walk
	i, j := 0, 0
	for i < len(baseKeys) || j < len(currentKeys) {
		switch {
		case j >= len(currentKeys) || (i < len(baseKeys) && baseKeys[i] < currentKeys[j]):
			res.Removed = append(res.Removed, baseKeys[i])
			i++
		case i >= len(baseKeys) || currentKeys[j] < baseKeys[i]:
			res.Added = append(res.Added, currentKeys[j])
			j++
		default:
			key := baseKeys[i]
			b, _ := base.Get(key)
			c, _ := current.Get(key)
			if Equal(b, c, mode) {
				res.Unchanged = append(res.Unchanged, key)
			} else {
				res.Changed = append(res.Changed, key)
			}
			i++
			j++
		}
	}
	return res
}

// Equal compares two resources under mode.
func Equal(a, b Resource, mode EqualityMode) bool {
	if mode == EqualityCanonical {
		return bytes.Equal(a.Canonical, b.Canonical)
	}
	return structdiff.Equal(a.Doc, b.Doc)
}

func keysOf(s *ResourceSet) []string {
	if s == nil {
		return nil
	}
	return s.keys
}
