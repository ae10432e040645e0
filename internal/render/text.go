// Package render writes drift reports for people (text) and machines (JSON).
package render

import (
	"fmt"
	"io"
	"strings"

	fcolor "github.com/fatih/color"

	"github.com/finops-claw-gang/snapdrift/internal/drift"
	"github.com/finops-claw-gang/snapdrift/internal/linediff"
	"github.com/finops-claw-gang/snapdrift/internal/snapshot"
	"github.com/finops-claw-gang/snapdrift/internal/structdiff"
)

// TextOptions configures Text.
type TextOptions struct {
	Color bool
}

type palette struct {
	title   *fcolor.Color
	added   *fcolor.Color
	removed *fcolor.Color
	changed *fcolor.Color
	muted   *fcolor.Color
	warn    *fcolor.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		title:   fcolor.New(fcolor.Reset, fcolor.Bold),
		added:   fcolor.New(fcolor.FgGreen),
		removed: fcolor.New(fcolor.FgRed),
		changed: fcolor.New(fcolor.FgYellow),
		muted:   fcolor.New(fcolor.FgHiBlack),
		warn:    fcolor.New(fcolor.FgYellow, fcolor.Bold),
	}
	for _, c := range []*fcolor.Color{p.title, p.added, p.removed, p.changed, p.muted, p.warn} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// textWriter keeps the first write error so rendering code stays linear.
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(c *fcolor.Color, format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = c.Fprintf(t.w, format, args...)
}

// Text writes report as ordered category sections followed by the summary check,
// file mismatches, warnings and totals.
func Text(w io.Writer, report *drift.Report, opts TextOptions) error {
	p := newPalette(opts.Color)
	plain := fcolor.New(fcolor.Reset)
	plain.DisableColor()
	tw := &textWriter{w: w}

	tw.printf(p.title, "Drift report\n")
	tw.printf(plain, "baseline: %s\n", report.Baseline)
	tw.printf(plain, "current:  %s\n", report.Current)
	tw.printf(p.muted, "strategy=%s diff=%s equality=%s pattern=%s",
		report.Options.Strategy, report.Options.DiffMode, report.Options.Equality, report.Options.Pattern)
	if report.Options.Filter != "" {
		tw.printf(p.muted, " filter=%q", report.Options.Filter)
	}
	tw.printf(plain, "\n")

	for _, s := range report.Sections {
		tw.printf(plain, "\n")
		tw.printf(p.title, "== %s ==\n", s.Category)
		if s.NoDifferences {
			tw.printf(p.muted, "  no differences\n")
			continue
		}
		for _, k := range s.Added {
			tw.printf(p.added, "  + %s\n", k)
		}
		for _, k := range s.Removed {
			tw.printf(p.removed, "  - %s\n", k)
		}
		diffs := make(map[string]drift.ResourceDiff, len(s.Diffs))
		for _, d := range s.Diffs {
			diffs[d.Key] = d
		}
		for _, k := range s.Changed {
			tw.printf(p.changed, "  ~ %s\n", k)
			d, ok := diffs[k]
			if !ok {
				continue
			}
			writeStructural(tw, p, d.Structural, "      ")
			writeLines(tw, p, d.Lines)
			if len(d.Structural) == 0 && len(d.Lines) == 0 {
				tw.printf(p.muted, "      (canonical forms differ)\n")
			}
		}
	}

	if s := report.Summary; s != nil {
		tw.printf(plain, "\n")
		switch {
		case s.Missing != "":
			tw.printf(p.warn, "summary %s: missing on %s\n", s.Document, s.Missing)
		case s.Equal:
			tw.printf(p.muted, "summary %s: equal\n", s.Document)
		default:
			tw.printf(p.changed, "summary %s: differs\n", s.Document)
			writeStructural(tw, p, s.Entries, "  ")
		}
	}

	if len(report.FileMismatches) > 0 {
		tw.printf(plain, "\n")
		tw.printf(p.title, "File mismatches\n")
		for _, m := range report.FileMismatches {
			c := p.removed
			if m.Side == snapshot.SideCurrent {
				c = p.added
			}
			tw.printf(c, "  %s only: %s\n", m.Side, m.Name)
		}
	}

	if len(report.Warnings) > 0 {
		tw.printf(plain, "\n")
		tw.printf(p.title, "Warnings\n")
		for _, wn := range report.Warnings {
			tw.printf(p.warn, "  [%s]", wn.Kind)
			tw.printf(plain, " %s/%s %s: %s\n", wn.Category, wn.Side, wn.Path, wn.Message)
		}
	}

	t := report.Totals()
	tw.printf(plain, "\n")
	tw.printf(p.title, "Totals: %d added, %d removed, %d changed\n", t.Added, t.Removed, t.Changed)
	return tw.err
}

func writeStructural(tw *textWriter, p palette, entries []structdiff.Entry, indent string) {
	for _, e := range entries {
		path := e.Path
		if path == "" {
			path = "(root)"
		}
		if e.Kind == structdiff.ArrayLengthMismatch {
			tw.printf(p.changed, "%s%s: length %d → %d\n", indent, path, e.BeforeLen, e.AfterLen)
			continue
		}
		tw.printf(p.changed, "%s%s: %s → %s\n", indent, path, e.Before.Text(), e.After.Text())
	}
}

func writeLines(tw *textWriter, p palette, entries []linediff.Entry) {
	for _, e := range entries {
		tw.printf(p.muted, "      line %d:\n", e.Line)
		tw.printf(p.removed, "        - %s\n", strings.TrimRight(e.Before.String(), " \t"))
		tw.printf(p.added, "        + %s\n", strings.TrimRight(e.After.String(), " \t"))
	}
}

// Summary returns a one-line description of the report totals.
func Summary(report *drift.Report) string {
	t := report.Totals()
	state := "no drift"
	if report.HasDrift() {
		state = "drift detected"
	}
	return fmt.Sprintf("%s: %d added, %d removed, %d changed, %d warnings",
		state, t.Added, t.Removed, t.Changed, len(report.Warnings))
}
