// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/finops-claw-gang/snapdrift/internal/document"
	"github.com/finops-claw-gang/snapdrift/internal/drift"
	"github.com/finops-claw-gang/snapdrift/internal/faults"
	"github.com/finops-claw-gang/snapdrift/internal/render"
	"github.com/finops-claw-gang/snapdrift/internal/snapshot"
)

// Mode determines whether drift metrics go to CloudWatch or only to the log.
type Mode string

const (
	ModeStub       Mode = "stub"
	ModeProduction Mode = "production"
)

// Config holds all application configuration.
type Config struct {
	Mode     Mode
	LogLevel string

	// Comparison settings.
	Layout          drift.Layout
	Strategy        snapshot.Strategy
	DiffMode        drift.DiffMode
	Equality        snapshot.EqualityMode
	FilePattern     string
	PrefixSeparator string
	IdentifierField string
	Ambiguity       snapshot.AmbiguityPolicy
	IgnoreExpr      string
	Concurrency     int
	ReadRate        float64
	SummaryDocument string
	ReportFile      string
	ReportFormat    render.Format

	// SnapshotRoot sandboxes snapshot paths received by the API, MCP and worker.
	SnapshotRoot string
	// ScanBudget caps drift scans per tenant per hour. Zero disables the cap.
	ScanBudget int

	// API server settings.
	APIPort      string
	CORSOrigins  []string
	OIDCIssuer   string
	OIDCAudience string
	OTelEnabled  bool
	// TraceSampleRatio is the share of root spans sampled when tracing is on.
	TraceSampleRatio float64

	TemporalAddress string
	// WorkerQueues is a comma-separated queue list for the worker ("scan,publish").
	WorkerQueues        string
	CloudWatchNamespace string
	AWSRegion           string
	AWSProfile          string
	CrossAccountRole    string
}

// LoadFromEnv reads configuration from environment variables with sensible defaults.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Mode:                Mode(envOr("SNAPDRIFT_MODE", "stub")),
		LogLevel:            envOr("SNAPDRIFT_LOG_LEVEL", "info"),
		FilePattern:         envOr("SNAPDRIFT_FILE_PATTERN", snapshot.DefaultPattern),
		PrefixSeparator:     envOr("SNAPDRIFT_PREFIX_SEPARATOR", snapshot.DefaultSeparator),
		IdentifierField:     envOr("SNAPDRIFT_IDENTIFIER_FIELD", snapshot.DefaultIdentifierField),
		IgnoreExpr:          os.Getenv("SNAPDRIFT_IGNORE_EXPR"),
		SummaryDocument:     os.Getenv("SNAPDRIFT_SUMMARY_DOCUMENT"),
		ReportFile:          os.Getenv("SNAPDRIFT_REPORT_FILE"),
		SnapshotRoot:        envOr("SNAPDRIFT_SNAPSHOT_ROOT", "."),
		APIPort:             envOr("SNAPDRIFT_API_PORT", "8080"),
		CORSOrigins:         parseCORSOrigins(os.Getenv("SNAPDRIFT_CORS_ORIGINS")),
		OIDCIssuer:          os.Getenv("SNAPDRIFT_OIDC_ISSUER"),
		OIDCAudience:        os.Getenv("SNAPDRIFT_OIDC_AUDIENCE"),
		TemporalAddress:     os.Getenv("TEMPORAL_ADDRESS"),
		WorkerQueues:        os.Getenv("SNAPDRIFT_WORKER_QUEUES"),
		CloudWatchNamespace: envOr("SNAPDRIFT_CLOUDWATCH_NAMESPACE", "Snapdrift"),
		AWSRegion:           envOr("AWS_REGION", "us-east-1"),
		AWSProfile:          os.Getenv("AWS_PROFILE"),
		CrossAccountRole:    os.Getenv("SNAPDRIFT_CROSS_ACCOUNT_ROLE"),
	}

	if cfg.Mode != ModeStub && cfg.Mode != ModeProduction {
		return Config{}, configErr("invalid SNAPDRIFT_MODE %q (must be stub or production)", cfg.Mode)
	}

	var err error
	if cfg.Layout, err = drift.ParseLayout(envOr("SNAPDRIFT_LAYOUT", string(drift.LayoutCategorized))); err != nil {
		return Config{}, fmt.Errorf("config: SNAPDRIFT_LAYOUT: %w", err)
	}
	if cfg.Strategy, err = snapshot.ParseStrategy(envOr("SNAPDRIFT_STRATEGY", string(snapshot.StrategyIdentifier))); err != nil {
		return Config{}, fmt.Errorf("config: SNAPDRIFT_STRATEGY: %w", err)
	}
	if cfg.DiffMode, err = drift.ParseDiffMode(envOr("SNAPDRIFT_DIFF_MODE", string(drift.DiffStructural))); err != nil {
		return Config{}, fmt.Errorf("config: SNAPDRIFT_DIFF_MODE: %w", err)
	}
	if cfg.Equality, err = snapshot.ParseEqualityMode(envOr("SNAPDRIFT_EQUALITY", string(snapshot.EqualityStructural))); err != nil {
		return Config{}, fmt.Errorf("config: SNAPDRIFT_EQUALITY: %w", err)
	}
	if cfg.Ambiguity, err = snapshot.ParseAmbiguity(envOr("SNAPDRIFT_AMBIGUITY", string(snapshot.AmbiguityPickFirst))); err != nil {
		return Config{}, fmt.Errorf("config: SNAPDRIFT_AMBIGUITY: %w", err)
	}
	if cfg.ReportFormat, err = render.ParseFormat(envOr("SNAPDRIFT_REPORT_FORMAT", string(render.FormatText))); err != nil {
		return Config{}, fmt.Errorf("config: SNAPDRIFT_REPORT_FORMAT: %w", err)
	}

	if cfg.Concurrency, err = envInt("SNAPDRIFT_CONCURRENCY", snapshot.DefaultConcurrency); err != nil {
		return Config{}, err
	}
	if cfg.Concurrency < 1 {
		return Config{}, configErr("SNAPDRIFT_CONCURRENCY must be at least 1, got %d", cfg.Concurrency)
	}
	if cfg.ScanBudget, err = envInt("SNAPDRIFT_SCAN_BUDGET", 0); err != nil {
		return Config{}, err
	}
	if raw := os.Getenv("SNAPDRIFT_READ_RATE"); raw != "" {
		if cfg.ReadRate, err = strconv.ParseFloat(raw, 64); err != nil || cfg.ReadRate < 0 {
			return Config{}, configErr("invalid SNAPDRIFT_READ_RATE %q", raw)
		}
	}
	cfg.TraceSampleRatio = 1
	if raw := os.Getenv("SNAPDRIFT_TRACE_SAMPLE_RATIO"); raw != "" {
		if cfg.TraceSampleRatio, err = strconv.ParseFloat(raw, 64); err != nil || cfg.TraceSampleRatio < 0 || cfg.TraceSampleRatio > 1 {
			return Config{}, configErr("invalid SNAPDRIFT_TRACE_SAMPLE_RATIO %q (must be between 0 and 1)", raw)
		}
	}
	if raw := os.Getenv("SNAPDRIFT_OTEL_ENABLED"); raw != "" {
		if cfg.OTelEnabled, err = strconv.ParseBool(raw); err != nil {
			return Config{}, configErr("invalid SNAPDRIFT_OTEL_ENABLED %q", raw)
		}
	}

	if cfg.Mode == ModeProduction && cfg.CloudWatchNamespace == "" {
		return Config{}, configErr("SNAPDRIFT_CLOUDWATCH_NAMESPACE required in production mode")
	}

	return cfg, nil
}

// DriftOptions converts the comparison settings into engine options. The jq
// ignore expression is compiled here so a bad filter fails before any run.
func (c Config) DriftOptions() (drift.Options, error) {
	filter, err := document.CompileFilter(c.IgnoreExpr)
	if err != nil {
		return drift.Options{}, fmt.Errorf("config: SNAPDRIFT_IGNORE_EXPR: %w", err)
	}
	opts := drift.DefaultOptions()
	opts.Layout = c.Layout
	opts.Strategy = c.Strategy
	opts.DiffMode = c.DiffMode
	opts.Equality = c.Equality
	opts.Pattern = c.FilePattern
	opts.Separator = c.PrefixSeparator
	opts.IdentifierField = c.IdentifierField
	opts.Ambiguity = c.Ambiguity
	opts.Filter = filter
	opts.Concurrency = c.Concurrency
	opts.ReadRate = c.ReadRate
	opts.SummaryDocument = c.SummaryDocument
	if err := opts.Validate(); err != nil {
		return drift.Options{}, fmt.Errorf("config: %w", err)
	}
	return opts, nil
}

func configErr(format string, args ...any) error {
	return faults.New(faults.ConfigError, "config: "+fmt.Sprintf(format, args...), "")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, configErr("invalid %s %q", key, raw)
	}
	return n, nil
}

func parseCORSOrigins(raw string) []string {
	if raw == "" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(o); t != "" {
			origins = append(origins, t)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// OIDCEnabled reports whether the API should verify bearer tokens.
func (c Config) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCAudience != ""
}
