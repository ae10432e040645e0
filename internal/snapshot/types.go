// Package snapshot loads directories of exported resource documents into
// identity-keyed resource sets and reconciles two sets against each other.
package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/finops-claw-gang/snapdrift/internal/document"
	"github.com/finops-claw-gang/snapdrift/internal/faults"
)

// Strategy selects how a document's identity key is derived.
type Strategy string

const (
	// StrategyExactName keys a document by its file name.
	StrategyExactName Strategy = "exact"
	// StrategyPrefix keys a document by the part of its file name before the first separator.
	StrategyPrefix Strategy = "prefix"
	// StrategyIdentifier keys a document by its normalized resource identifier field.
	StrategyIdentifier Strategy = "identifier"
)

// ParseStrategy parses exact, prefix or identifier.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyExactName, StrategyPrefix, StrategyIdentifier:
		return st, nil
	}
	return "", faults.New(faults.ConfigError, fmt.Sprintf("invalid strategy %q (must be exact, prefix or identifier)", s), "")
}

// MatchesByName reports whether the strategy derives keys from file names.
func (s Strategy) MatchesByName() bool {
	return s == StrategyExactName || s == StrategyPrefix
}

// Side names which snapshot a set was loaded from.
type Side string

const (
	SideBaseline Side = "baseline"
	SideCurrent  Side = "current"
)

// AmbiguityPolicy decides what happens when several documents share a key on one side.
type AmbiguityPolicy string

const (
	// AmbiguityPickFirst keeps the lexicographically first file and warns.
	AmbiguityPickFirst AmbiguityPolicy = "pick-first"
	// AmbiguityExclude drops the key from the set and warns.
	AmbiguityExclude AmbiguityPolicy = "exclude"
)

// ParseAmbiguity parses pick-first or exclude.
func ParseAmbiguity(s string) (AmbiguityPolicy, error) {
	switch p := AmbiguityPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case AmbiguityPickFirst, AmbiguityExclude:
		return p, nil
	}
	return "", faults.New(faults.ConfigError, fmt.Sprintf("invalid ambiguity policy %q (must be pick-first or exclude)", s), "")
}

// Resource is one loaded document.
type Resource struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Path string `json:"path"`
	// Digest is the sha256 of the RFC 8785 canonical form of Doc.
	Digest string `json:"digest"`

	// Text is the comparable text form: the raw file, or the filtered document
	// pretty-printed when a filter is configured.
	Text      []byte        `json:"-"`
	Doc       document.Node `json:"-"`
	Canonical []byte        `json:"-"`
}

// ResourceSet maps keys to resources for one (side, category). It is never
// modified after the loader returns it.
type ResourceSet struct {
	category string
	side     Side
	byKey    map[string]Resource
	keys     []string
}

func newResourceSet(category string, side Side, resources []Resource) *ResourceSet {
	s := &ResourceSet{
		category: category,
		side:     side,
		byKey:    make(map[string]Resource, len(resources)),
		keys:     make([]string, 0, len(resources)),
	}
	for _, r := range resources {
		s.byKey[r.Key] = r
		s.keys = append(s.keys, r.Key)
	}
	sort.Strings(s.keys)
	return s
}

// NewResourceSet builds a set from already keyed resources. Keys must be unique.
func NewResourceSet(category string, side Side, resources ...Resource) *ResourceSet {
	return newResourceSet(category, side, resources)
}

// Category returns the category the set was loaded for.
func (s *ResourceSet) Category() string { return s.category }

// Side returns the snapshot side.
func (s *ResourceSet) Side() Side { return s.side }

// Len returns the number of keys.
func (s *ResourceSet) Len() int { return len(s.keys) }

// Keys returns the keys in sorted order.
func (s *ResourceSet) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Get returns the resource stored under key.
func (s *ResourceSet) Get(key string) (Resource, bool) {
	r, ok := s.byKey[key]
	return r, ok
}

// WarningKind classifies a recoverable condition met while loading.
type WarningKind string

const (
	WarnParseError        WarningKind = "parse_error"
	WarnIdentityAmbiguity WarningKind = "identity_ambiguity"
	WarnMissingBase       WarningKind = "missing_base_document"
	WarnMissingCategory   WarningKind = "missing_category"
)

// Warning is a non-fatal condition surfaced in the report.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	Category string      `json:"category"`
	Side     Side        `json:"side"`
	Path     string      `json:"path,omitempty"`
	Key      string      `json:"key,omitempty"`
	Message  string      `json:"message"`
}

// SortWarnings orders warnings by category, side, path, kind and key.
func SortWarnings(ws []Warning) {
	sort.SliceStable(ws, func(i, j int) bool {
		a, b := ws[i], ws[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Side != b.Side {
			return a.Side < b.Side
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Key < b.Key
	})
}
