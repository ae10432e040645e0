package drift

import (
	"fmt"
	"path"
	"strings"

	"github.com/finops-claw-gang/snapdrift/internal/document"
	"github.com/finops-claw-gang/snapdrift/internal/faults"
	"github.com/finops-claw-gang/snapdrift/internal/snapshot"
)

// DiffMode selects the comparison run over changed pairs.
type DiffMode string

const (
	DiffLines      DiffMode = "lines"
	DiffStructural DiffMode = "structural"
)

// ParseDiffMode parses lines or structural.
func ParseDiffMode(s string) (DiffMode, error) {
	switch m := DiffMode(strings.ToLower(strings.TrimSpace(s))); m {
	case DiffLines, DiffStructural:
		return m, nil
	}
	return "", faults.New(faults.ConfigError, fmt.Sprintf("invalid diff mode %q (must be lines or structural)", s), "")
}

// Layout describes how a snapshot root is organised.
type Layout string

const (
	// LayoutCategorized holds one subfolder per category.
	LayoutCategorized Layout = "categorized"
	// LayoutFlat holds every document in the root, named <prefix>-*.json.
	LayoutFlat Layout = "flat"
)

// ParseLayout parses categorized or flat.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(s))); l {
	case LayoutCategorized, LayoutFlat:
		return l, nil
	}
	return "", faults.New(faults.ConfigError, fmt.Sprintf("invalid layout %q (must be categorized or flat)", s), "")
}

// FlatUnit is the section name used for the flat layout.
const FlatUnit = "files"

// Category is one resource class compared in its own pass.
type Category struct {
	Name string `json:"name"`
	// Dir is the subfolder under each root. Empty means Name.
	Dir string `json:"dir,omitempty"`
	// Associations are file-stem suffixes of association documents stored
	// next to the base documents, e.g. "_instanceView".
	Associations []string `json:"associations,omitempty"`
}

func (c Category) dir() string {
	if c.Dir != "" {
		return c.Dir
	}
	return c.Name
}

// AssociationSection returns the section name of an association kind:
// "vms" + "_instanceView" gives "vms/instanceView".
func (c Category) AssociationSection(suffix string) string {
	return path.Join(c.Name, strings.TrimLeft(suffix, "_-."))
}

// DefaultCategories returns the exported VM-centric resource categories.
func DefaultCategories() []Category {
	return []Category{
		{Name: "vms", Associations: []string{"_instanceView", "_extensions"}},
		{Name: "nics"},
		{Name: "pips"},
		{Name: "disks"},
		{Name: "vnets"},
		{Name: "subnets"},
		{Name: "nsgs"},
	}
}

// Options configures an Engine.
type Options struct {
	Layout          Layout
	Strategy        snapshot.Strategy
	DiffMode        DiffMode
	Equality        snapshot.EqualityMode
	Pattern         string
	Separator       string
	IdentifierField string
	Ambiguity       snapshot.AmbiguityPolicy
	Filter          *document.Filter
	Concurrency     int
	// ReadRate caps document reads per second per root. Zero is unlimited.
	ReadRate float64
	// SummaryDocument is a file name at each root compared as a whole document.
	SummaryDocument string
	Categories      []Category
}

// DefaultOptions returns categorized, identifier-keyed, structural comparison.
func DefaultOptions() Options {
	return Options{
		Layout:          LayoutCategorized,
		Strategy:        snapshot.StrategyIdentifier,
		DiffMode:        DiffStructural,
		Equality:        snapshot.EqualityStructural,
		Pattern:         snapshot.DefaultPattern,
		Separator:       snapshot.DefaultSeparator,
		IdentifierField: snapshot.DefaultIdentifierField,
		Ambiguity:       snapshot.AmbiguityPickFirst,
		Concurrency:     snapshot.DefaultConcurrency,
		Categories:      DefaultCategories(),
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Layout == "" {
		o.Layout = d.Layout
	}
	if o.Strategy == "" {
		o.Strategy = d.Strategy
	}
	if o.DiffMode == "" {
		o.DiffMode = d.DiffMode
	}
	if o.Equality == "" {
		o.Equality = d.Equality
	}
	if o.Pattern == "" {
		o.Pattern = d.Pattern
	}
	if o.Separator == "" {
		o.Separator = d.Separator
	}
	if o.IdentifierField == "" {
		o.IdentifierField = d.IdentifierField
	}
	if o.Ambiguity == "" {
		o.Ambiguity = d.Ambiguity
	}
	if o.Concurrency < 1 {
		o.Concurrency = d.Concurrency
	}
	if len(o.Categories) == 0 {
		o.Categories = d.Categories
	}
	return o
}

// Validate checks enum values and category names.
func (o Options) Validate() error {
	if _, err := ParseLayout(string(o.Layout)); err != nil {
		return err
	}
	if _, err := snapshot.ParseStrategy(string(o.Strategy)); err != nil {
		return err
	}
	if _, err := ParseDiffMode(string(o.DiffMode)); err != nil {
		return err
	}
	if _, err := snapshot.ParseEqualityMode(string(o.Equality)); err != nil {
		return err
	}
	if _, err := snapshot.ParseAmbiguity(string(o.Ambiguity)); err != nil {
		return err
	}
	if o.ReadRate < 0 {
		return faults.New(faults.ConfigError, "read rate must not be negative", "")
	}
	if strings.ContainsAny(o.SummaryDocument, `/\`) {
		return faults.New(faults.ConfigError, "summary document must be a file name at the snapshot root", o.SummaryDocument)
	}

	seen := make(map[string]bool, len(o.Categories))
	for _, c := range o.Categories {
		if c.Name == "" {
			return faults.New(faults.ConfigError, "category name must not be empty", "")
		}
		if seen[c.Name] {
			return faults.New(faults.ConfigError, fmt.Sprintf("duplicate category %q", c.Name), "")
		}
		seen[c.Name] = true
	}
	return nil
}

func (o Options) loadOptions(limiter snapshot.Waiter, associations, exclude []string) snapshot.LoadOptions {
	return snapshot.LoadOptions{
		Strategy:            o.Strategy,
		Pattern:             o.Pattern,
		Separator:           o.Separator,
		IdentifierField:     o.IdentifierField,
		Ambiguity:           o.Ambiguity,
		Filter:              o.Filter,
		Concurrency:         o.Concurrency,
		Limiter:             limiter,
		AssociationSuffixes: associations,
		Exclude:             exclude,
	}
}
