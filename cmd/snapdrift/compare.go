package main

import (
	"context"
	"os"
	"os/signal"

	fcolor "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/finops-claw-gang/snapdrift/internal/config"
	"github.com/finops-claw-gang/snapdrift/internal/drift"
	"github.com/finops-claw-gang/snapdrift/internal/observability"
	"github.com/finops-claw-gang/snapdrift/internal/render"
)

// optionFlags are the comparison settings shared by compare and trigger.
// Only flags the user set override the environment.
type optionFlags struct {
	layout, strategy, diffMode, equality, ambiguity string
	ignore, summary                                 string
}

func (f *optionFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.layout, "layout", "", "snapshot layout: categorized or flat")
	fs.StringVar(&f.strategy, "strategy", "", "matching strategy: identifier, exact or prefix")
	fs.StringVar(&f.diffMode, "diff", "", "diff mode for changed resources: structural or lines")
	fs.StringVar(&f.equality, "equality", "", "equality: structural or canonical")
	fs.StringVar(&f.ambiguity, "ambiguity", "", "identity collisions: pick-first or exclude")
	fs.StringVar(&f.ignore, "ignore", "", "jq expression applied to every document before comparing")
	fs.StringVar(&f.summary, "summary-document", "", "file name compared whole at the snapshot roots")
}

func (f *optionFlags) overrides() drift.Overrides {
	return drift.Overrides{
		Layout:          f.layout,
		Strategy:        f.strategy,
		DiffMode:        f.diffMode,
		Equality:        f.equality,
		Ambiguity:       f.ambiguity,
		IgnoreExpr:      f.ignore,
		SummaryDocument: f.summary,
	}
}

type compareFlags struct {
	optionFlags
	pattern      string
	separator    string
	idField      string
	concurrency  int
	readRate     float64
	format       string
	reportFile   string
	reportFormat string
	noColor      bool
}

func newCompareCmd(ro *rootOptions) *cobra.Command {
	f := &compareFlags{}
	cmd := &cobra.Command{
		Use:   "compare BASELINE CURRENT",
		Short: "Compare two snapshot directories and print the drift report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, ro, f, args[0], args[1])
		},
	}
	f.register(cmd)
	fs := cmd.Flags()
	fs.StringVar(&f.pattern, "pattern", "", "document file glob")
	fs.StringVar(&f.separator, "separator", "", "prefix strategy separator")
	fs.StringVar(&f.idField, "identifier-field", "", "dotted path of the identity field")
	fs.IntVar(&f.concurrency, "concurrency", 0, "parallel document reads")
	fs.Float64Var(&f.readRate, "read-rate", 0, "document reads per second per root (0 = unlimited)")
	fs.StringVarP(&f.format, "output", "o", "text", "stdout format: text or json")
	fs.StringVar(&f.reportFile, "report-file", "", "also write the report to this file")
	fs.StringVar(&f.reportFormat, "report-format", "", "report file format: text or json")
	fs.BoolVar(&f.noColor, "no-color", false, "disable coloured output")
	return cmd
}

func runCompare(cmd *cobra.Command, ro *rootOptions, f *compareFlags, baseline, current string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if ro.logLevel != "" {
		level = ro.logLevel
	}
	logger := observability.NewLogger(cmd.ErrOrStderr(), level)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if cfg.OTelEnabled {
		shutdown, err := observability.InitTracer(ctx, "snapdrift-cli", cfg.TraceSampleRatio)
		if err != nil {
			logger.Warn("otel init failed", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	opts, err := cfg.DriftOptions()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("pattern") {
		opts.Pattern = f.pattern
	}
	if flags.Changed("separator") {
		opts.Separator = f.separator
	}
	if flags.Changed("identifier-field") {
		opts.IdentifierField = f.idField
	}
	if flags.Changed("concurrency") {
		opts.Concurrency = f.concurrency
	}
	if flags.Changed("read-rate") {
		opts.ReadRate = f.readRate
	}
	if opts, err = f.overrides().Apply(opts); err != nil {
		return err
	}

	stdoutFormat, err := render.ParseFormat(f.format)
	if err != nil {
		return err
	}
	reportFile := cfg.ReportFile
	if flags.Changed("report-file") {
		reportFile = f.reportFile
	}
	reportFormat := cfg.ReportFormat
	if f.reportFormat != "" {
		if reportFormat, err = render.ParseFormat(f.reportFormat); err != nil {
			return err
		}
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		logger.Warn("metrics init failed", "error", err)
	}
	engine, err := drift.New(opts, logger, metrics)
	if err != nil {
		return err
	}
	report, err := engine.Run(ctx, baseline, current)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if stdoutFormat == render.FormatJSON {
		err = render.JSON(out, report)
	} else {
		err = render.Text(out, report, render.TextOptions{Color: !f.noColor && !fcolor.NoColor})
	}
	if err != nil {
		return err
	}
	if reportFile != "" {
		if err := render.WriteFile(reportFile, reportFormat, report); err != nil {
			return err
		}
		logger.Info("report written", "path", reportFile, "format", reportFormat)
	}

	if report.HasDrift() {
		return errDrift
	}
	return nil
}
