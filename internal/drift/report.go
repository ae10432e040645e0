package drift

import (
	"github.com/finops-claw-gang/snapdrift/internal/linediff"
	"github.com/finops-claw-gang/snapdrift/internal/snapshot"
	"github.com/finops-claw-gang/snapdrift/internal/structdiff"
)

// Report is the result of one comparison run. It is not modified after Run returns.
type Report struct {
	Baseline       string             `json:"baseline"`
	Current        string             `json:"current"`
	Options        ReportOptions      `json:"options"`
	Sections       []Section          `json:"sections"`
	Summary        *SummaryCheck      `json:"summary,omitempty"`
	FileMismatches []FileMismatch     `json:"fileMismatches,omitempty"`
	Warnings       []snapshot.Warning `json:"warnings"`
}

// ReportOptions records the settings a report was produced with.
type ReportOptions struct {
	Layout   Layout                `json:"layout"`
	Strategy snapshot.Strategy     `json:"strategy"`
	DiffMode DiffMode              `json:"diffMode"`
	Equality snapshot.EqualityMode `json:"equality"`
	Pattern  string                `json:"pattern"`
	Filter   string                `json:"filter,omitempty"`
}

// Section holds the reconciliation of one category or association kind.
type Section struct {
	Category string         `json:"category"`
	Added    []string       `json:"added"`
	Removed  []string       `json:"removed"`
	Changed  []string       `json:"changed"`
	Diffs    []ResourceDiff `json:"diffs,omitempty"`
	// NoDifferences marks a section with nothing added, removed or changed.
	NoDifferences bool `json:"noDifferences"`
}

// ResourceDiff is the comparison of one changed key. Exactly one of Structural
// and Lines is populated, depending on the diff mode.
type ResourceDiff struct {
	Key            string             `json:"key"`
	BaselinePath   string             `json:"baselinePath"`
	CurrentPath    string             `json:"currentPath"`
	BaselineDigest string             `json:"baselineDigest"`
	CurrentDigest  string             `json:"currentDigest"`
	Structural     []structdiff.Entry `json:"structural,omitempty"`
	Lines          []linediff.Entry   `json:"lines,omitempty"`
}

// SummaryCheck is the whole-document comparison of the designated summary file.
type SummaryCheck struct {
	Document string `json:"document"`
	Equal    bool   `json:"equal"`
	// Missing names the side(s) lacking the document: baseline, current or both.
	// A document missing on both sides is Equal.
	Missing string             `json:"missing,omitempty"`
	Entries []structdiff.Entry `json:"entries,omitempty"`
}

// FileMismatch is a file present on one side only, by name relative to the root.
type FileMismatch struct {
	Name string        `json:"name"`
	Side snapshot.Side `json:"side"`
}

// Totals sums section counts.
type Totals struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Changed int `json:"changed"`
}

// Totals returns the added/removed/changed counts over all sections.
func (r *Report) Totals() Totals {
	var t Totals
	if r == nil {
		return t
	}
	for _, s := range r.Sections {
		t.Added += len(s.Added)
		t.Removed += len(s.Removed)
		t.Changed += len(s.Changed)
	}
	return t
}

// HasDrift reports whether any section, the summary check or a file mismatch
// shows a difference. Warnings alone are not drift.
func (r *Report) HasDrift() bool {
	if r == nil {
		return false
	}
	t := r.Totals()
	if t.Added+t.Removed+t.Changed > 0 || len(r.FileMismatches) > 0 {
		return true
	}
	return r.Summary != nil && !r.Summary.Equal
}

// Section returns the section named category.
func (r *Report) Section(category string) (Section, bool) {
	for _, s := range r.Sections {
		if s.Category == category {
			return s, true
		}
	}
	return Section{}, false
}
