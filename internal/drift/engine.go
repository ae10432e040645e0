// Package drift compares two snapshot roots category by category and aggregates
// the results into a Report.
package drift

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/finops-claw-gang/snapdrift/internal/document"
	"github.com/finops-claw-gang/snapdrift/internal/linediff"
	"github.com/finops-claw-gang/snapdrift/internal/observability"
	"github.com/finops-claw-gang/snapdrift/internal/ratelimit"
	"github.com/finops-claw-gang/snapdrift/internal/snapshot"
	"github.com/finops-claw-gang/snapdrift/internal/structdiff"
)

// SummarySection is the category recorded on summary document warnings.
const SummarySection = "summary"

// Engine runs snapshot comparisons. It is safe for concurrent use.
type Engine struct {
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
	limiter *ratelimit.ReadLimiter
}

// New validates opts and returns an Engine. logger and metrics may be nil.
func New(opts Options, logger *slog.Logger, metrics *observability.Metrics) (*Engine, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		opts:    opts,
		logger:  logger,
		metrics: metrics,
		limiter: ratelimit.NewReadLimiter(opts.ReadRate, 0),
	}, nil
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// unit is one independently reconciled section.
type unit struct {
	section      string
	baseDir      string
	currentDir   string
	baseExists   bool
	currentExist bool
	// suffix is set for association units.
	suffix       string
	associations []string
	exclude      []string
}

type unitResult struct {
	section  Section
	warnings []snapshot.Warning
}

// Run compares baselineRoot with currentRoot. Both must be existing directories,
// otherwise a FatalInputError is returned and no report is produced.
func (e *Engine) Run(ctx context.Context, baselineRoot, currentRoot string) (*Report, error) {
	if err := snapshot.RequireDir(baselineRoot, "baseline"); err != nil {
		return nil, err
	}
	if err := snapshot.RequireDir(currentRoot, "current"); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := observability.Tracer().Start(ctx, "drift.Run", trace.WithAttributes(
		attribute.String("snapdrift.baseline", baselineRoot),
		attribute.String("snapdrift.current", currentRoot),
		attribute.String("snapdrift.strategy", string(e.opts.Strategy)),
	))
	defer span.End()

	units, warnings := e.units(baselineRoot, currentRoot)

	results := make([]unitResult, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, u := range units {
		g.Go(func() error {
			res, err := e.runUnit(gctx, u)
			if err != nil {
				return fmt.Errorf("drift: %s: %w", u.section, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	report := &Report{
		Baseline: baselineRoot,
		Current:  currentRoot,
		Options: ReportOptions{
			Layout:   e.opts.Layout,
			Strategy: e.opts.Strategy,
			DiffMode: e.opts.DiffMode,
			Equality: e.opts.Equality,
			Pattern:  e.opts.Pattern,
			Filter:   e.opts.Filter.String(),
		},
		Sections: make([]Section, 0, len(results)),
	}
	for _, res := range results {
		report.Sections = append(report.Sections, res.section)
		warnings = append(warnings, res.warnings...)
	}

	if e.opts.Strategy.MatchesByName() {
		mismatches, err := e.fileMismatches(units)
		if err != nil {
			return nil, err
		}
		report.FileMismatches = mismatches
	}

	if e.opts.SummaryDocument != "" {
		summary, summaryWarnings := e.checkSummary(baselineRoot, currentRoot)
		report.Summary = summary
		warnings = append(warnings, summaryWarnings...)
	}

	snapshot.SortWarnings(warnings)
	if warnings == nil {
		warnings = []snapshot.Warning{}
	}
	report.Warnings = warnings

	e.record(ctx, report, time.Since(start))
	totals := report.Totals()
	span.SetAttributes(
		attribute.Int("snapdrift.added", totals.Added),
		attribute.Int("snapdrift.removed", totals.Removed),
		attribute.Int("snapdrift.changed", totals.Changed),
	)
	e.logger.Info("drift comparison finished",
		"baseline", baselineRoot,
		"current", currentRoot,
		"sections", len(report.Sections),
		"added", totals.Added,
		"removed", totals.Removed,
		"changed", totals.Changed,
		"warnings", len(report.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

// units lists the sections to evaluate in report order. Category folders absent
// on a side produce missing_category warnings and compare as empty sets.
func (e *Engine) units(baselineRoot, currentRoot string) ([]unit, []snapshot.Warning) {
	if e.opts.Layout == LayoutFlat {
		var exclude []string
		if e.opts.SummaryDocument != "" {
			exclude = []string{e.opts.SummaryDocument}
		}
		return []unit{{
			section:      FlatUnit,
			baseDir:      baselineRoot,
			currentDir:   currentRoot,
			baseExists:   true,
			currentExist: true,
			exclude:      exclude,
		}}, nil
	}

	var (
		units    []unit
		warnings []snapshot.Warning
	)
	for _, c := range e.opts.Categories {
		base := unit{
			section:      c.Name,
			baseDir:      filepath.Join(baselineRoot, c.dir()),
			currentDir:   filepath.Join(currentRoot, c.dir()),
			associations: c.Associations,
		}
		base.baseExists = snapshot.DirExists(base.baseDir)
		base.currentExist = snapshot.DirExists(base.currentDir)
		if !base.baseExists {
			warnings = append(warnings, missingCategory(c.Name, snapshot.SideBaseline, base.baseDir))
		}
		if !base.currentExist {
			warnings = append(warnings, missingCategory(c.Name, snapshot.SideCurrent, base.currentDir))
		}
		units = append(units, base)

		for _, suffix := range c.Associations {
			assoc := base
			assoc.section = c.AssociationSection(suffix)
			assoc.suffix = suffix
			units = append(units, assoc)
		}
	}
	return units, warnings
}

func missingCategory(category string, side snapshot.Side, dir string) snapshot.Warning {
	return snapshot.Warning{
		Kind:     snapshot.WarnMissingCategory,
		Category: category,
		Side:     side,
		Path:     dir,
		Message:  "category folder not found, compared as empty",
	}
}

func (e *Engine) runUnit(ctx context.Context, u unit) (unitResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "drift.unit",
		trace.WithAttributes(attribute.String("snapdrift.section", u.section)))
	defer span.End()

	loader := snapshot.NewLoader(e.opts.loadOptions(e.limiter, u.associations, u.exclude), e.logger)
	load := func(dir string, exists bool, side snapshot.Side) (*snapshot.ResourceSet, []snapshot.Warning, error) {
		if !exists {
			return snapshot.NewResourceSet(u.section, side), nil, nil
		}
		if u.suffix != "" {
			return loader.LoadAssociations(ctx, dir, u.section, side, u.suffix)
		}
		return loader.Load(ctx, dir, u.section, side)
	}

	base, baseWarnings, err := load(u.baseDir, u.baseExists, snapshot.SideBaseline)
	if err != nil {
		return unitResult{}, err
	}
	current, currentWarnings, err := load(u.currentDir, u.currentExist, snapshot.SideCurrent)
	if err != nil {
		return unitResult{}, err
	}

	res := snapshot.Reconcile(base, current, e.opts.Equality)
	section := Section{
		Category:      u.section,
		Added:         res.Added,
		Removed:       res.Removed,
		Changed:       res.Changed,
		NoDifferences: res.Empty(),
	}
	for _, key := range res.Changed {
		b, _ := base.Get(key)
		c, _ := current.Get(key)
		section.Diffs = append(section.Diffs, e.diffPair(key, b, c))
	}

	return unitResult{
		section:  section,
		warnings: append(baseWarnings, currentWarnings...),
	}, nil
}

func (e *Engine) diffPair(key string, b, c snapshot.Resource) ResourceDiff {
	d := ResourceDiff{
		Key:            key,
		BaselinePath:   b.Path,
		CurrentPath:    c.Path,
		BaselineDigest: b.Digest,
		CurrentDigest:  c.Digest,
	}
	if e.opts.DiffMode == DiffLines {
		d.Lines = linediff.Diff(linediff.SplitLines(b.Text), linediff.SplitLines(c.Text))
	} else {
		d.Structural = structdiff.Diff(b.Doc, c.Doc, "")
	}
	return d
}

// fileMismatches lists file names present on one side only, relative to the roots.
func (e *Engine) fileMismatches(units []unit) ([]FileMismatch, error) {
	var out []FileMismatch
	for _, u := range units {
		if u.suffix != "" {
			continue
		}
		baseNames, err := e.names(u.baseDir, u.baseExists, u.exclude)
		if err != nil {
			return nil, err
		}
		currentNames, err := e.names(u.currentDir, u.currentExist, u.exclude)
		if err != nil {
			return nil, err
		}

		rel := func(name string) string {
			if u.section == FlatUnit {
				return name
			}
			return path.Join(filepath.Base(u.baseDir), name)
		}
		for name := range baseNames {
			if !currentNames[name] {
				out = append(out, FileMismatch{Name: rel(name), Side: snapshot.SideBaseline})
			}
		}
		for name := range currentNames {
			if !baseNames[name] {
				out = append(out, FileMismatch{Name: rel(name), Side: snapshot.SideCurrent})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Side < out[j].Side
	})
	return out, nil
}

func (e *Engine) names(dir string, exists bool, exclude []string) (map[string]bool, error) {
	set := make(map[string]bool)
	if !exists {
		return set, nil
	}
	names, err := snapshot.ListNames(dir, e.opts.Pattern)
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		set[n] = true
	}
	for _, x := range exclude {
		delete(set, x)
	}
	return set, nil
}

// checkSummary compares the summary document at both roots as whole documents.
func (e *Engine) checkSummary(baselineRoot, currentRoot string) (*SummaryCheck, []snapshot.Warning) {
	name := e.opts.SummaryDocument
	check := &SummaryCheck{Document: name}

	var warnings []snapshot.Warning
	read := func(root string, side snapshot.Side) (document.Node, bool) {
		p := filepath.Join(root, name)
		raw, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			return document.Node{}, false
		}
		if err == nil {
			var doc document.Node
			if doc, err = e.opts.Filter.Apply(raw); err == nil {
				return doc, true
			}
		}
		warnings = append(warnings, snapshot.Warning{
			Kind:     snapshot.WarnParseError,
			Category: SummarySection,
			Side:     side,
			Path:     p,
			Message:  err.Error(),
		})
		return document.Node{}, false
	}

	base, baseOK := read(baselineRoot, snapshot.SideBaseline)
	current, currentOK := read(currentRoot, snapshot.SideCurrent)
	switch {
	case !baseOK && !currentOK:
		// absent on both sides is agreement
		check.Missing = "both"
		check.Equal = true
		return check, warnings
	case !baseOK:
		check.Missing = string(snapshot.SideBaseline)
		return check, warnings
	case !currentOK:
		check.Missing = string(snapshot.SideCurrent)
		return check, warnings
	}

	check.Entries = structdiff.Diff(base, current, "")
	if e.opts.Equality == snapshot.EqualityCanonical {
		b, _ := snapshot.Canonicalize(base)
		c, _ := snapshot.Canonicalize(current)
		check.Equal = bytes.Equal(b, c)
	} else {
		check.Equal = len(check.Entries) == 0
	}
	return check, warnings
}

func (e *Engine) record(ctx context.Context, r *Report, d time.Duration) {
	for _, s := range r.Sections {
		e.metrics.RecordSection(ctx, s.Category, len(s.Added), len(s.Removed), len(s.Changed))
	}
	for _, w := range r.Warnings {
		e.metrics.RecordWarning(ctx, string(w.Kind))
	}
	e.metrics.RecordRun(ctx, r.HasDrift(), d)
}

// CompareDocuments parses two documents, applies the configured filter, and
// returns their structural differences.
func (e *Engine) CompareDocuments(before, after []byte) ([]structdiff.Entry, error) {
	b, err := e.opts.Filter.Apply(before)
	if err != nil {
		return nil, fmt.Errorf("drift: before document: %w", err)
	}
	a, err := e.opts.Filter.Apply(after)
	if err != nil {
		return nil, fmt.Errorf("drift: after document: %w", err)
	}
	return structdiff.Diff(b, a, ""), nil
}

// CompareText returns the positional line differences of two texts.
func (e *Engine) CompareText(before, after []byte) []linediff.Entry {
	return linediff.Diff(linediff.SplitLines(before), linediff.SplitLines(after))
}
