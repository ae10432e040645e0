package drift

import (
	"github.com/finops-claw-gang/snapdrift/internal/document"
	"github.com/finops-claw-gang/snapdrift/internal/snapshot"
)

// Overrides are per-request option changes received by the API, MCP tools and
// scan workflows. Empty fields keep the base value.
type Overrides struct {
	Layout          string `json:"layout,omitempty"`
	Strategy        string `json:"strategy,omitempty"`
	DiffMode        string `json:"diff_mode,omitempty"`
	Equality        string `json:"equality,omitempty"`
	Ambiguity       string `json:"ambiguity,omitempty"`
	IgnoreExpr      string `json:"ignore_expr,omitempty"`
	SummaryDocument string `json:"summary_document,omitempty"`
}

// Apply returns base with the overrides applied. Invalid values are ConfigErrors.
func (o Overrides) Apply(base Options) (Options, error) {
	out := base
	var err error
	if o.Layout != "" {
		if out.Layout, err = ParseLayout(o.Layout); err != nil {
			return Options{}, err
		}
	}
	if o.Strategy != "" {
		if out.Strategy, err = snapshot.ParseStrategy(o.Strategy); err != nil {
			return Options{}, err
		}
	}
	if o.DiffMode != "" {
		if out.DiffMode, err = ParseDiffMode(o.DiffMode); err != nil {
			return Options{}, err
		}
	}
	if o.Equality != "" {
		if out.Equality, err = snapshot.ParseEqualityMode(o.Equality); err != nil {
			return Options{}, err
		}
	}
	if o.Ambiguity != "" {
		if out.Ambiguity, err = snapshot.ParseAmbiguity(o.Ambiguity); err != nil {
			return Options{}, err
		}
	}
	if o.IgnoreExpr != "" {
		if out.Filter, err = document.CompileFilter(o.IgnoreExpr); err != nil {
			return Options{}, err
		}
	}
	if o.SummaryDocument != "" {
		out.SummaryDocument = o.SummaryDocument
	}
	return out, nil
}
