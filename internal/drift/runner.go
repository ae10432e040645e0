package drift

import (
	"context"
	"log/slog"

	"github.com/finops-claw-gang/snapdrift/internal/observability"
	"github.com/finops-claw-gang/snapdrift/internal/snapshot"
)

// Runner runs comparisons for callers that name snapshots by path relative to
// a shared root: the API, MCP tools and scan activities.
type Runner struct {
	// Root sandboxes every snapshot path.
	Root    string
	Options Options
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Resolve maps a request path to a directory under Root.
func (r Runner) Resolve(p string) (string, error) {
	return snapshot.ResolveUnder(r.Root, p)
}

// Engine returns an engine for the base options with overrides applied.
func (r Runner) Engine(ov Overrides, logger *slog.Logger) (*Engine, error) {
	opts, err := ov.Apply(r.Options)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = r.Logger
	}
	return New(opts, logger, r.Metrics)
}

// Compare resolves both snapshot paths and runs one comparison.
func (r Runner) Compare(ctx context.Context, baseline, current string, ov Overrides) (*Report, error) {
	b, err := r.Resolve(baseline)
	if err != nil {
		return nil, err
	}
	c, err := r.Resolve(current)
	if err != nil {
		return nil, err
	}
	engine, err := r.Engine(ov, nil)
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx, b, c)
}
